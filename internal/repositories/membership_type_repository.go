package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tuina_clinic_backend/internal/models"

	"github.com/shopspring/decimal"
)

// MembershipTypeRepository defines the interface for the card catalog.
type MembershipTypeRepository interface {
	CreateMembershipType(executor SQLExecutor, mt *models.MembershipType) (int64, error)
	GetMembershipTypeByID(id int64) (*models.MembershipType, error)
	GetMembershipTypes(activeOnly bool) ([]models.MembershipType, error)
	UpdateMembershipType(executor SQLExecutor, mt *models.MembershipType) error
	DeleteMembershipType(executor SQLExecutor, id int64) error
}

type membershipTypeRepository struct {
	db *sql.DB
}

// NewMembershipTypeRepository creates a new instance of MembershipTypeRepository.
func NewMembershipTypeRepository(db *sql.DB) MembershipTypeRepository {
	return &membershipTypeRepository{db: db}
}

const membershipTypeColumns = `id, name, category, price, value_amount, service_count, validity_days,
	description, is_active, created_at, updated_at`

func scanMembershipType(row scanner) (*models.MembershipType, error) {
	var mt models.MembershipType
	var price, valueAmount decimal.NullDecimal
	var description sql.NullString

	err := row.Scan(
		&mt.ID, &mt.Name, &mt.Category, &price, &valueAmount, &mt.ServiceCount, &mt.ValidityDays,
		&description, &mt.IsActive, &mt.CreatedAt, &mt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	mt.Price = price.Decimal
	mt.ValueAmount = valueAmount.Decimal
	mt.Description = nullableString(description)
	return &mt, nil
}

func (r *membershipTypeRepository) CreateMembershipType(executor SQLExecutor, mt *models.MembershipType) (int64, error) {
	query := `INSERT INTO membership_types (name, category, price, value_amount, service_count, validity_days,
	            description, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING id`
	currentTime := time.Now()
	mt.CreatedAt = currentTime
	mt.UpdatedAt = currentTime

	err := executor.QueryRow(query,
		mt.Name, string(mt.Category), mt.Price, mt.ValueAmount, mt.ServiceCount, mt.ValidityDays,
		mt.Description, mt.IsActive, mt.CreatedAt, mt.UpdatedAt,
	).Scan(&mt.ID)
	if err != nil {
		return 0, wrapPQError(err, "creating membership type")
	}
	return mt.ID, nil
}

func (r *membershipTypeRepository) GetMembershipTypeByID(id int64) (*models.MembershipType, error) {
	mt, err := scanMembershipType(r.db.QueryRow(`SELECT `+membershipTypeColumns+` FROM membership_types WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting membership type by ID %d: %v", ErrDatabaseError, id, err)
	}
	return mt, nil
}

func (r *membershipTypeRepository) GetMembershipTypes(activeOnly bool) ([]models.MembershipType, error) {
	query := `SELECT ` + membershipTypeColumns + ` FROM membership_types`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY category ASC, price ASC, id ASC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying membership types: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	types := []models.MembershipType{}
	for rows.Next() {
		mt, err := scanMembershipType(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning membership type: %v", ErrDatabaseError, err)
		}
		types = append(types, *mt)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating membership type rows: %v", ErrDatabaseError, err)
	}
	return types, nil
}

func (r *membershipTypeRepository) UpdateMembershipType(executor SQLExecutor, mt *models.MembershipType) error {
	query := `UPDATE membership_types SET
	            name = $1, category = $2, price = $3, value_amount = $4, service_count = $5,
	            validity_days = $6, description = $7, is_active = $8, updated_at = $9
	          WHERE id = $10`
	mt.UpdatedAt = time.Now()

	result, err := executor.Exec(query,
		mt.Name, string(mt.Category), mt.Price, mt.ValueAmount, mt.ServiceCount,
		mt.ValidityDays, mt.Description, mt.IsActive, mt.UpdatedAt, mt.ID,
	)
	if err != nil {
		return wrapPQError(err, fmt.Sprintf("updating membership type ID %d", mt.ID))
	}
	return expectAffected(result, fmt.Sprintf("updating membership type ID %d", mt.ID))
}

func (r *membershipTypeRepository) DeleteMembershipType(executor SQLExecutor, id int64) error {
	result, err := executor.Exec(`DELETE FROM membership_types WHERE id = $1`, id)
	if err != nil {
		return wrapPQError(err, fmt.Sprintf("deleting membership type ID %d", id))
	}
	return expectAffected(result, fmt.Sprintf("deleting membership type ID %d", id))
}
