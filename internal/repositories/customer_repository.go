package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tuina_clinic_backend/internal/models"
)

// CustomerRepository defines the interface for customer-related database operations.
type CustomerRepository interface {
	CreateCustomer(executor SQLExecutor, customer *models.Customer) (int64, error)
	GetCustomerByID(id int64) (*models.Customer, error)
	GetCustomers(filters models.CustomerFilters) ([]models.Customer, int, error)
	UpdateCustomer(executor SQLExecutor, customer *models.Customer) error
	DeleteCustomer(executor SQLExecutor, id int64) error
}

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository creates a new instance of CustomerRepository.
func NewCustomerRepository(db *sql.DB) CustomerRepository {
	return &customerRepository{db: db}
}

const customerColumns = `id, full_name, gender, date_of_birth, guardian_name, guardian_phone,
	constitution_notes, notes, created_at, updated_at`

func scanCustomer(row scanner, extra ...interface{}) (*models.Customer, error) {
	var c models.Customer
	var gender, guardianName, guardianPhone, constitution, notes sql.NullString
	var dob sql.NullTime

	dest := []interface{}{
		&c.ID, &c.FullName, &gender, &dob, &guardianName, &guardianPhone,
		&constitution, &notes, &c.CreatedAt, &c.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	c.Gender = nullableString(gender)
	c.DateOfBirth = nullableDate(dob)
	c.GuardianName = nullableString(guardianName)
	c.GuardianPhone = nullableString(guardianPhone)
	c.ConstitutionNotes = nullableString(constitution)
	c.Notes = nullableString(notes)
	c.MembershipStatus = models.EffectiveNone
	return &c, nil
}

// CreateCustomer inserts a new customer into the database.
func (r *customerRepository) CreateCustomer(executor SQLExecutor, customer *models.Customer) (int64, error) {
	query := `INSERT INTO customers (full_name, gender, date_of_birth, guardian_name, guardian_phone,
	            constitution_notes, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING id`

	currentTime := time.Now()
	customer.CreatedAt = currentTime
	customer.UpdatedAt = currentTime

	err := executor.QueryRow(query,
		customer.FullName, customer.Gender, customer.DateOfBirth, customer.GuardianName, customer.GuardianPhone,
		customer.ConstitutionNotes, customer.Notes, customer.CreatedAt, customer.UpdatedAt,
	).Scan(&customer.ID)
	if err != nil {
		return 0, wrapPQError(err, "creating customer")
	}
	return customer.ID, nil
}

// GetCustomerByID retrieves a customer by ID.
func (r *customerRepository) GetCustomerByID(id int64) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	customer, err := scanCustomer(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting customer by ID %d: %v", ErrDatabaseError, id, err)
	}
	return customer, nil
}

// GetCustomers retrieves customers with pagination and an optional name/phone search.
func (r *customerRepository) GetCustomers(filters models.CustomerFilters) ([]models.Customer, int, error) {
	customers := []models.Customer{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + customerColumns + `, COUNT(*) OVER() AS total_count FROM customers`)

	var args []interface{}
	argCount := 1

	if filters.Search != nil && strings.TrimSpace(*filters.Search) != "" {
		pattern := "%" + strings.TrimSpace(*filters.Search) + "%"
		queryBuilder.WriteString(fmt.Sprintf(" WHERE (full_name ILIKE $%d OR guardian_name ILIKE $%d OR guardian_phone ILIKE $%d)", argCount, argCount, argCount))
		args = append(args, pattern)
		argCount++
	}

	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")
	query, args := paginate(queryBuilder.String(), args, argCount, filters.Page, filters.PageSize)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying customers: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		customer, err := scanCustomer(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning customer: %v", ErrDatabaseError, err)
		}
		customers = append(customers, *customer)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating customer rows: %v", ErrDatabaseError, err)
	}
	return customers, totalCount, nil
}

// UpdateCustomer updates an existing customer.
func (r *customerRepository) UpdateCustomer(executor SQLExecutor, customer *models.Customer) error {
	query := `UPDATE customers SET
	            full_name = $1, gender = $2, date_of_birth = $3, guardian_name = $4, guardian_phone = $5,
	            constitution_notes = $6, notes = $7, updated_at = $8
	          WHERE id = $9`

	customer.UpdatedAt = time.Now()
	result, err := executor.Exec(query,
		customer.FullName, customer.Gender, customer.DateOfBirth, customer.GuardianName, customer.GuardianPhone,
		customer.ConstitutionNotes, customer.Notes, customer.UpdatedAt, customer.ID,
	)
	if err != nil {
		return wrapPQError(err, fmt.Sprintf("updating customer ID %d", customer.ID))
	}
	return expectAffected(result, fmt.Sprintf("updating customer ID %d", customer.ID))
}

// DeleteCustomer removes a customer. Customers with cards or visits cannot be deleted.
func (r *customerRepository) DeleteCustomer(executor SQLExecutor, id int64) error {
	result, err := executor.Exec(`DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return wrapPQError(err, fmt.Sprintf("deleting customer ID %d", id))
	}
	return expectAffected(result, fmt.Sprintf("deleting customer ID %d", id))
}
