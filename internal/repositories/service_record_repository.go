package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tuina_clinic_backend/internal/models"

	"github.com/shopspring/decimal"
)

// ServiceRecordRepository defines the interface for visit database operations.
type ServiceRecordRepository interface {
	CreateServiceRecord(executor SQLExecutor, record *models.ServiceRecord) (int64, error)
	GetServiceRecordByID(id int64) (*models.ServiceRecord, error)
	LockServiceRecord(executor SQLExecutor, id int64) (*models.ServiceRecord, error)
	GetServiceRecords(filters models.ServiceRecordFilters) ([]models.ServiceRecord, int, error)
	UpdateServiceRecord(executor SQLExecutor, record *models.ServiceRecord) error
	DeleteServiceRecord(executor SQLExecutor, id int64) error
}

type serviceRecordRepository struct {
	db *sql.DB
}

// NewServiceRecordRepository creates a new instance of ServiceRecordRepository.
func NewServiceRecordRepository(db *sql.DB) ServiceRecordRepository {
	return &serviceRecordRepository{db: db}
}

const serviceRecordColumns = `sr.id, sr.customer_id, sr.therapist_id, sr.membership_card_id, sr.service_name,
	sr.service_date, sr.service_fee, sr.payment_method, sr.notes, sr.created_at, sr.updated_at,
	c.full_name, t.full_name, mc.card_number`

const serviceRecordFrom = ` FROM service_records sr
	LEFT JOIN customers c ON sr.customer_id = c.id
	LEFT JOIN therapists t ON sr.therapist_id = t.id
	LEFT JOIN membership_cards mc ON sr.membership_card_id = mc.id`

func scanServiceRecord(row scanner, extra ...interface{}) (*models.ServiceRecord, error) {
	var sr models.ServiceRecord
	var therapistID, cardID sql.NullInt64
	var notes, customerName, therapistName, cardNumber sql.NullString
	var fee decimal.NullDecimal

	dest := []interface{}{
		&sr.ID, &sr.CustomerID, &therapistID, &cardID, &sr.ServiceName,
		&sr.ServiceDate, &fee, &sr.PaymentMethod, &notes, &sr.CreatedAt, &sr.UpdatedAt,
		&customerName, &therapistName, &cardNumber,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	sr.TherapistID = nullableInt64(therapistID)
	sr.MembershipCardID = nullableInt64(cardID)
	sr.ServiceFee = fee.Decimal
	sr.Notes = nullableString(notes)
	sr.CustomerName = nullableString(customerName)
	sr.TherapistName = nullableString(therapistName)
	sr.CardNumber = nullableString(cardNumber)
	return &sr, nil
}

// CreateServiceRecord inserts a visit.
func (r *serviceRecordRepository) CreateServiceRecord(executor SQLExecutor, record *models.ServiceRecord) (int64, error) {
	query := `INSERT INTO service_records (customer_id, therapist_id, membership_card_id, service_name,
	            service_date, service_fee, payment_method, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING id`

	currentTime := time.Now()
	record.CreatedAt = currentTime
	record.UpdatedAt = currentTime
	if record.ServiceDate.IsZero() {
		record.ServiceDate = currentTime
	}

	err := executor.QueryRow(query,
		record.CustomerID, record.TherapistID, record.MembershipCardID, record.ServiceName,
		record.ServiceDate, record.ServiceFee, string(record.PaymentMethod), record.Notes,
		record.CreatedAt, record.UpdatedAt,
	).Scan(&record.ID)
	if err != nil {
		return 0, wrapPQError(err, "creating service record")
	}
	return record.ID, nil
}

// GetServiceRecordByID retrieves a visit with its joined names.
func (r *serviceRecordRepository) GetServiceRecordByID(id int64) (*models.ServiceRecord, error) {
	return r.getOne(r.db, `SELECT `+serviceRecordColumns+serviceRecordFrom+` WHERE sr.id = $1`, id)
}

// LockServiceRecord reads a visit with a row lock. It must run inside a transaction.
func (r *serviceRecordRepository) LockServiceRecord(executor SQLExecutor, id int64) (*models.ServiceRecord, error) {
	return r.getOne(executor, `SELECT `+serviceRecordColumns+serviceRecordFrom+` WHERE sr.id = $1 FOR UPDATE OF sr`, id)
}

func (r *serviceRecordRepository) getOne(executor SQLExecutor, query string, id int64) (*models.ServiceRecord, error) {
	record, err := scanServiceRecord(executor.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting service record by ID %d: %v", ErrDatabaseError, id, err)
	}
	return record, nil
}

// GetServiceRecords retrieves visits with filters and pagination, newest first.
func (r *serviceRecordRepository) GetServiceRecords(filters models.ServiceRecordFilters) ([]models.ServiceRecord, int, error) {
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + serviceRecordColumns + `, COUNT(*) OVER() AS total_count` + serviceRecordFrom)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("sr.customer_id = $%d", argCount))
		args = append(args, *filters.CustomerID)
		argCount++
	}
	if filters.TherapistID != nil {
		conditions = append(conditions, fmt.Sprintf("sr.therapist_id = $%d", argCount))
		args = append(args, *filters.TherapistID)
		argCount++
	}
	if filters.MembershipCardID != nil {
		conditions = append(conditions, fmt.Sprintf("sr.membership_card_id = $%d", argCount))
		args = append(args, *filters.MembershipCardID)
		argCount++
	}
	if filters.PaymentMethod != nil && *filters.PaymentMethod != "" {
		conditions = append(conditions, fmt.Sprintf("sr.payment_method = $%d", argCount))
		args = append(args, *filters.PaymentMethod)
		argCount++
	}
	if filters.DateFrom != nil && *filters.DateFrom != "" {
		if from, err := time.Parse("2006-01-02", *filters.DateFrom); err == nil {
			conditions = append(conditions, fmt.Sprintf("sr.service_date >= $%d", argCount))
			args = append(args, from)
			argCount++
		}
	}
	if filters.DateTo != nil && *filters.DateTo != "" {
		if to, err := time.Parse("2006-01-02", *filters.DateTo); err == nil {
			conditions = append(conditions, fmt.Sprintf("sr.service_date < $%d", argCount))
			args = append(args, to.AddDate(0, 0, 1))
			argCount++
		}
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY sr.service_date DESC, sr.id DESC")
	query, args := paginate(queryBuilder.String(), args, argCount, filters.Page, filters.PageSize)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying service records: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	records := []models.ServiceRecord{}
	for rows.Next() {
		record, err := scanServiceRecord(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning service record: %v", ErrDatabaseError, err)
		}
		records = append(records, *record)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating service record rows: %v", ErrDatabaseError, err)
	}
	return records, totalCount, nil
}

// UpdateServiceRecord updates an existing visit.
func (r *serviceRecordRepository) UpdateServiceRecord(executor SQLExecutor, record *models.ServiceRecord) error {
	query := `UPDATE service_records SET
	            therapist_id = $1, membership_card_id = $2, service_name = $3, service_date = $4,
	            service_fee = $5, payment_method = $6, notes = $7, updated_at = $8
	          WHERE id = $9`

	record.UpdatedAt = time.Now()
	result, err := executor.Exec(query,
		record.TherapistID, record.MembershipCardID, record.ServiceName, record.ServiceDate,
		record.ServiceFee, string(record.PaymentMethod), record.Notes, record.UpdatedAt, record.ID,
	)
	if err != nil {
		return wrapPQError(err, fmt.Sprintf("updating service record ID %d", record.ID))
	}
	return expectAffected(result, fmt.Sprintf("updating service record ID %d", record.ID))
}

// DeleteServiceRecord removes a visit.
func (r *serviceRecordRepository) DeleteServiceRecord(executor SQLExecutor, id int64) error {
	result, err := executor.Exec(`DELETE FROM service_records WHERE id = $1`, id)
	if err != nil {
		return wrapPQError(err, fmt.Sprintf("deleting service record ID %d", id))
	}
	return expectAffected(result, fmt.Sprintf("deleting service record ID %d", id))
}
