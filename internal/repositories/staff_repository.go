package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tuina_clinic_backend/internal/models"
)

// StaffRepository defines the interface for therapist and shift related database operations.
type StaffRepository interface {
	// Therapist methods
	CreateTherapist(executor SQLExecutor, therapist *models.Therapist) (*models.Therapist, error)
	GetTherapistByID(id int64) (*models.Therapist, error)
	GetTherapists(page, pageSize int, searchTerm *string, activeOnly bool) ([]models.Therapist, int, error)
	UpdateTherapist(executor SQLExecutor, therapist *models.Therapist) (*models.Therapist, error)
	DeleteTherapist(executor SQLExecutor, id int64) error

	// Shift methods
	CreateShift(executor SQLExecutor, shift *models.Shift) (*models.Shift, error)
	GetShiftByID(id int64) (*models.Shift, error)
	GetShifts(filters models.ShiftFilters) ([]models.Shift, int, error)
	HasOverlappingShift(therapistID int64, start, end time.Time, excludeShiftID *int64) (bool, error)
	UpdateShift(executor SQLExecutor, shift *models.Shift) (*models.Shift, error)
	DeleteShift(executor SQLExecutor, id int64) error
}

type staffRepository struct {
	db *sql.DB
}

// NewStaffRepository creates a new instance of StaffRepository.
func NewStaffRepository(db *sql.DB) StaffRepository {
	return &staffRepository{db: db}
}

// --- Therapist Methods ---

const therapistColumns = `id, user_id, full_name, phone_number, specialty, hire_date, is_active, created_at, updated_at`

func scanTherapist(row scanner, extra ...interface{}) (*models.Therapist, error) {
	var t models.Therapist
	var userID sql.NullInt64
	var phone, specialty sql.NullString
	var hireDate sql.NullTime

	dest := []interface{}{&t.ID, &userID, &t.FullName, &phone, &specialty, &hireDate, &t.IsActive, &t.CreatedAt, &t.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	t.UserID = nullableInt64(userID)
	t.PhoneNumber = nullableString(phone)
	t.Specialty = nullableString(specialty)
	t.HireDate = nullableDate(hireDate)
	return &t, nil
}

func (r *staffRepository) CreateTherapist(executor SQLExecutor, therapist *models.Therapist) (*models.Therapist, error) {
	query := `INSERT INTO therapists (user_id, full_name, phone_number, specialty, hire_date, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id`

	currentTime := time.Now()
	therapist.CreatedAt = currentTime
	therapist.UpdatedAt = currentTime

	err := executor.QueryRow(query,
		therapist.UserID, therapist.FullName, therapist.PhoneNumber, therapist.Specialty,
		therapist.HireDate, therapist.IsActive, therapist.CreatedAt, therapist.UpdatedAt,
	).Scan(&therapist.ID)
	if err != nil {
		return nil, wrapPQError(err, "creating therapist")
	}
	return therapist, nil
}

func (r *staffRepository) GetTherapistByID(id int64) (*models.Therapist, error) {
	therapist, err := scanTherapist(r.db.QueryRow(`SELECT `+therapistColumns+` FROM therapists WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting therapist by ID %d: %v", ErrDatabaseError, id, err)
	}
	return therapist, nil
}

func (r *staffRepository) GetTherapists(page, pageSize int, searchTerm *string, activeOnly bool) ([]models.Therapist, int, error) {
	therapists := []models.Therapist{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + therapistColumns + `, COUNT(*) OVER() AS total_count FROM therapists`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if searchTerm != nil && strings.TrimSpace(*searchTerm) != "" {
		conditions = append(conditions, fmt.Sprintf("(full_name ILIKE $%d OR phone_number ILIKE $%d)", argCount, argCount))
		args = append(args, "%"+strings.TrimSpace(*searchTerm)+"%")
		argCount++
	}
	if activeOnly {
		conditions = append(conditions, "is_active = TRUE")
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY full_name ASC")
	query, args := paginate(queryBuilder.String(), args, argCount, page, pageSize)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying therapists: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		therapist, err := scanTherapist(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning therapist: %v", ErrDatabaseError, err)
		}
		therapists = append(therapists, *therapist)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating therapist rows: %v", ErrDatabaseError, err)
	}
	return therapists, totalCount, nil
}

func (r *staffRepository) UpdateTherapist(executor SQLExecutor, therapist *models.Therapist) (*models.Therapist, error) {
	query := `UPDATE therapists SET
	            user_id = $1, full_name = $2, phone_number = $3, specialty = $4, hire_date = $5,
	            is_active = $6, updated_at = $7
	          WHERE id = $8`
	therapist.UpdatedAt = time.Now()

	result, err := executor.Exec(query,
		therapist.UserID, therapist.FullName, therapist.PhoneNumber, therapist.Specialty, therapist.HireDate,
		therapist.IsActive, therapist.UpdatedAt, therapist.ID,
	)
	if err != nil {
		return nil, wrapPQError(err, fmt.Sprintf("updating therapist ID %d", therapist.ID))
	}
	if err := expectAffected(result, fmt.Sprintf("updating therapist ID %d", therapist.ID)); err != nil {
		return nil, err
	}
	return therapist, nil
}

func (r *staffRepository) DeleteTherapist(executor SQLExecutor, id int64) error {
	result, err := executor.Exec(`DELETE FROM therapists WHERE id = $1`, id)
	if err != nil {
		return wrapPQError(err, fmt.Sprintf("deleting therapist ID %d", id))
	}
	return expectAffected(result, fmt.Sprintf("deleting therapist ID %d", id))
}

// --- Shift Methods ---

const shiftColumns = `s.id, s.therapist_id, s.start_time, s.end_time, s.notes, s.created_at, s.updated_at, t.full_name`

func scanShift(row scanner, extra ...interface{}) (*models.Shift, error) {
	var s models.Shift
	var notes, therapistName sql.NullString

	dest := []interface{}{&s.ID, &s.TherapistID, &s.StartTime, &s.EndTime, &notes, &s.CreatedAt, &s.UpdatedAt, &therapistName}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	s.Notes = nullableString(notes)
	s.TherapistName = nullableString(therapistName)
	return &s, nil
}

func (r *staffRepository) CreateShift(executor SQLExecutor, shift *models.Shift) (*models.Shift, error) {
	query := `INSERT INTO shifts (therapist_id, start_time, end_time, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	currentTime := time.Now()
	shift.CreatedAt = currentTime
	shift.UpdatedAt = currentTime

	err := executor.QueryRow(query,
		shift.TherapistID, shift.StartTime, shift.EndTime, shift.Notes,
		shift.CreatedAt, shift.UpdatedAt,
	).Scan(&shift.ID)
	if err != nil {
		return nil, wrapPQError(err, "creating shift")
	}
	return shift, nil
}

func (r *staffRepository) GetShiftByID(id int64) (*models.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts s JOIN therapists t ON s.therapist_id = t.id WHERE s.id = $1`
	shift, err := scanShift(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting shift by ID %d: %v", ErrDatabaseError, id, err)
	}
	return shift, nil
}

func (r *staffRepository) GetShifts(filters models.ShiftFilters) ([]models.Shift, int, error) {
	shifts := []models.Shift{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + shiftColumns + `, COUNT(*) OVER() AS total_count
	  FROM shifts s
	  JOIN therapists t ON s.therapist_id = t.id`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.TherapistID != nil {
		conditions = append(conditions, fmt.Sprintf("s.therapist_id = $%d", argCount))
		args = append(args, *filters.TherapistID)
		argCount++
	}
	if filters.From != nil {
		conditions = append(conditions, fmt.Sprintf("s.start_time >= $%d", argCount))
		args = append(args, *filters.From)
		argCount++
	}
	if filters.To != nil {
		conditions = append(conditions, fmt.Sprintf("s.end_time <= $%d", argCount))
		args = append(args, *filters.To)
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY s.start_time DESC")
	query, args := paginate(queryBuilder.String(), args, argCount, filters.Page, filters.PageSize)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying shifts: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		shift, err := scanShift(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning shift: %v", ErrDatabaseError, err)
		}
		shifts = append(shifts, *shift)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating shift rows: %v", ErrDatabaseError, err)
	}
	return shifts, totalCount, nil
}

// HasOverlappingShift reports whether the therapist already works during [start, end).
func (r *staffRepository) HasOverlappingShift(therapistID int64, start, end time.Time, excludeShiftID *int64) (bool, error) {
	query := `SELECT EXISTS (
	            SELECT 1 FROM shifts
	            WHERE therapist_id = $1 AND start_time < $3 AND end_time > $2
	              AND ($4::BIGINT IS NULL OR id <> $4)
	          )`
	var exists bool
	if err := r.db.QueryRow(query, therapistID, start, end, excludeShiftID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: checking shift overlap for therapist ID %d: %v", ErrDatabaseError, therapistID, err)
	}
	return exists, nil
}

func (r *staffRepository) UpdateShift(executor SQLExecutor, shift *models.Shift) (*models.Shift, error) {
	query := `UPDATE shifts SET
	            therapist_id = $1, start_time = $2, end_time = $3, notes = $4, updated_at = $5
	          WHERE id = $6`
	shift.UpdatedAt = time.Now()

	result, err := executor.Exec(query,
		shift.TherapistID, shift.StartTime, shift.EndTime, shift.Notes,
		shift.UpdatedAt, shift.ID,
	)
	if err != nil {
		return nil, wrapPQError(err, fmt.Sprintf("updating shift ID %d", shift.ID))
	}
	if err := expectAffected(result, fmt.Sprintf("updating shift ID %d", shift.ID)); err != nil {
		return nil, err
	}
	return shift, nil
}

func (r *staffRepository) DeleteShift(executor SQLExecutor, id int64) error {
	result, err := executor.Exec(`DELETE FROM shifts WHERE id = $1`, id)
	if err != nil {
		return wrapPQError(err, fmt.Sprintf("deleting shift ID %d", id))
	}
	return expectAffected(result, fmt.Sprintf("deleting shift ID %d", id))
}
