package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tuina_clinic_backend/internal/models"
	"tuina_clinic_backend/internal/repositories"
	"tuina_clinic_backend/pkg/utils"
)

// --- Custom Service Errors for the roster ---
var (
	ErrTherapistNotFound      = errors.New("therapist not found")
	ErrUserForTherapistAbsent = errors.New("user account for therapist not found")
	ErrShiftNotFound          = errors.New("shift not found")
	ErrShiftValidation        = errors.New("shift validation error")
	ErrShiftOverlap           = errors.New("shift overlaps with an existing shift of the therapist")
	ErrTherapistValidation    = errors.New("therapist data validation error")
	ErrShiftTimeFormat        = errors.New("invalid time format for shift, please use RFC3339 or YYYY-MM-DDTHH:MM:SS")
	ErrTherapistInUse         = errors.New("therapist cannot be deleted as they are referenced in other records")
)

const maxShiftLength = 24 * time.Hour

// --- Therapist DTOs ---
type CreateTherapistRequest struct {
	UserID      *int64  `json:"user_id"`
	FullName    string  `json:"full_name" binding:"required"`
	PhoneNumber *string `json:"phone_number"`
	Specialty   *string `json:"specialty"`
	HireDate    *string `json:"hire_date"`
	IsActive    *bool   `json:"is_active"`
}

type UpdateTherapistRequest struct {
	FullName    *string `json:"full_name"`
	PhoneNumber *string `json:"phone_number"`
	Specialty   *string `json:"specialty"`
	HireDate    *string `json:"hire_date"`
	IsActive    *bool   `json:"is_active"`
}

// --- Shift DTOs ---
type CreateShiftRequest struct {
	TherapistID int64   `json:"therapist_id" binding:"required"`
	StartTime   string  `json:"start_time" binding:"required"`
	EndTime     string  `json:"end_time" binding:"required"`
	Notes       *string `json:"notes"`
}

type UpdateShiftRequest struct {
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Notes     *string `json:"notes"`
}

// --- StaffService Interface ---
type StaffService interface {
	// Therapist methods
	CreateTherapist(req CreateTherapistRequest) (*models.Therapist, error)
	GetTherapistByID(id int64) (*models.Therapist, error)
	GetTherapists(page, pageSize int, searchTerm *string, activeOnly bool) ([]models.Therapist, int, error)
	UpdateTherapist(id int64, req UpdateTherapistRequest) (*models.Therapist, error)
	DeleteTherapist(id int64) error

	// Shift methods
	CreateShift(req CreateShiftRequest) (*models.Shift, error)
	GetShiftByID(shiftID int64) (*models.Shift, error)
	GetShifts(therapistID *int64, fromStr, toStr *string, page, pageSize int) ([]models.Shift, int, error)
	UpdateShift(shiftID int64, req UpdateShiftRequest) (*models.Shift, error)
	DeleteShift(shiftID int64) error
}

type staffService struct {
	staffRepo repositories.StaffRepository
	userRepo  repositories.AuthRepository
	db        *sql.DB
	now       Clock
}

// NewStaffService creates a new instance of StaffService.
func NewStaffService(sr repositories.StaffRepository, ur repositories.AuthRepository, db *sql.DB, now Clock) StaffService {
	return &staffService{
		staffRepo: sr,
		userRepo:  ur,
		db:        db,
		now:       now,
	}
}

// parseOptionalDate validates an optional YYYY-MM-DD string and returns it trimmed.
func parseOptionalDate(raw *string, loc *time.Location) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	s := strings.TrimSpace(*raw)
	if _, err := parseDate(s, loc); err != nil {
		return nil, err
	}
	return &s, nil
}

// parseDateTime accepts RFC3339 or a zone-less local time in loc.
func parseDateTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrShiftTimeFormat
}

func validateShiftWindow(start, end time.Time) error {
	if !end.After(start) {
		return fmt.Errorf("%w: end time must be after start time", ErrShiftValidation)
	}
	if end.Sub(start) > maxShiftLength {
		return fmt.Errorf("%w: shift duration cannot exceed 24 hours", ErrShiftValidation)
	}
	return nil
}

// --- Therapist Method Implementations ---

func (s *staffService) CreateTherapist(req CreateTherapistRequest) (*models.Therapist, error) {
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, fmt.Errorf("%w: full name cannot be empty", ErrTherapistValidation)
	}
	if req.PhoneNumber != nil && *req.PhoneNumber != "" && !utils.IsValidPhone(*req.PhoneNumber) {
		return nil, fmt.Errorf("%w: invalid phone number", ErrTherapistValidation)
	}
	if req.UserID != nil {
		if _, err := s.userRepo.FindUserByID(*req.UserID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: user ID %d", ErrUserForTherapistAbsent, *req.UserID)
			}
			return nil, fmt.Errorf("failed to validate user for therapist: %w", err)
		}
	}

	hireDate, err := parseOptionalDate(req.HireDate, s.now().Location())
	if err != nil {
		return nil, err
	}

	therapist := &models.Therapist{
		UserID:      req.UserID,
		FullName:    name,
		PhoneNumber: utils.NewNullString(utils.DerefString(req.PhoneNumber)),
		Specialty:   utils.NewNullString(utils.DerefString(req.Specialty)),
		HireDate:    hireDate,
		IsActive:    true,
	}
	if req.IsActive != nil {
		therapist.IsActive = *req.IsActive
	}

	created, err := s.staffRepo.CreateTherapist(s.db, therapist)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: user account is already linked to another therapist", ErrTherapistValidation)
		}
		return nil, fmt.Errorf("failed to create therapist in repository: %w", err)
	}
	return created, nil
}

func (s *staffService) GetTherapistByID(id int64) (*models.Therapist, error) {
	therapist, err := s.staffRepo.GetTherapistByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTherapistNotFound
		}
		return nil, fmt.Errorf("failed to get therapist by ID: %w", err)
	}
	return therapist, nil
}

func (s *staffService) GetTherapists(page, pageSize int, searchTerm *string, activeOnly bool) ([]models.Therapist, int, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	therapists, total, err := s.staffRepo.GetTherapists(page, pageSize, searchTerm, activeOnly)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get therapists: %w", err)
	}
	return therapists, total, nil
}

func (s *staffService) UpdateTherapist(id int64, req UpdateTherapistRequest) (*models.Therapist, error) {
	therapist, err := s.GetTherapistByID(id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		if strings.TrimSpace(*req.FullName) == "" {
			return nil, fmt.Errorf("%w: full name cannot be empty if provided", ErrTherapistValidation)
		}
		therapist.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.PhoneNumber != nil {
		if *req.PhoneNumber != "" && !utils.IsValidPhone(*req.PhoneNumber) {
			return nil, fmt.Errorf("%w: invalid phone number", ErrTherapistValidation)
		}
		therapist.PhoneNumber = utils.NewNullString(*req.PhoneNumber)
	}
	if req.Specialty != nil {
		therapist.Specialty = utils.NewNullString(*req.Specialty)
	}
	if req.HireDate != nil {
		hd, err := parseOptionalDate(req.HireDate, s.now().Location())
		if err != nil {
			return nil, err
		}
		therapist.HireDate = hd
	}
	if req.IsActive != nil {
		therapist.IsActive = *req.IsActive
	}

	updated, err := s.staffRepo.UpdateTherapist(s.db, therapist)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTherapistNotFound
		}
		return nil, fmt.Errorf("failed to update therapist in repository: %w", err)
	}
	return updated, nil
}

func (s *staffService) DeleteTherapist(id int64) error {
	if err := s.staffRepo.DeleteTherapist(s.db, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrTherapistNotFound
		}
		if errors.Is(err, repositories.ErrForeignKey) {
			return ErrTherapistInUse
		}
		return fmt.Errorf("failed to delete therapist: %w", err)
	}
	return nil
}

// --- Shift Method Implementations ---

func (s *staffService) checkOverlap(therapistID int64, start, end time.Time, exclude *int64) error {
	overlaps, err := s.staffRepo.HasOverlappingShift(therapistID, start, end, exclude)
	if err != nil {
		return fmt.Errorf("failed to check shift overlap: %w", err)
	}
	if overlaps {
		return ErrShiftOverlap
	}
	return nil
}

func (s *staffService) CreateShift(req CreateShiftRequest) (*models.Shift, error) {
	loc := s.now().Location()
	startTime, err := parseDateTime(req.StartTime, loc)
	if err != nil {
		return nil, fmt.Errorf("start_time: %w", err)
	}
	endTime, err := parseDateTime(req.EndTime, loc)
	if err != nil {
		return nil, fmt.Errorf("end_time: %w", err)
	}
	if err := validateShiftWindow(startTime, endTime); err != nil {
		return nil, err
	}

	if _, err := s.GetTherapistByID(req.TherapistID); err != nil {
		return nil, err
	}
	if err := s.checkOverlap(req.TherapistID, startTime, endTime, nil); err != nil {
		return nil, err
	}

	shift := &models.Shift{
		TherapistID: req.TherapistID,
		StartTime:   startTime,
		EndTime:     endTime,
		Notes:       req.Notes,
	}
	created, err := s.staffRepo.CreateShift(s.db, shift)
	if err != nil {
		return nil, fmt.Errorf("failed to create shift in repository: %w", err)
	}
	return s.staffRepo.GetShiftByID(created.ID)
}

func (s *staffService) GetShiftByID(shiftID int64) (*models.Shift, error) {
	shift, err := s.staffRepo.GetShiftByID(shiftID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, fmt.Errorf("failed to get shift by ID: %w", err)
	}
	return shift, nil
}

func (s *staffService) GetShifts(therapistID *int64, fromStr, toStr *string, page, pageSize int) ([]models.Shift, int, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	loc := s.now().Location()
	filters := models.ShiftFilters{TherapistID: therapistID, Page: page, PageSize: pageSize}
	if fromStr != nil && strings.TrimSpace(*fromStr) != "" {
		t, err := parseDateTime(*fromStr, loc)
		if err != nil {
			return nil, 0, fmt.Errorf("from: %w", err)
		}
		filters.From = &t
	}
	if toStr != nil && strings.TrimSpace(*toStr) != "" {
		t, err := parseDateTime(*toStr, loc)
		if err != nil {
			return nil, 0, fmt.Errorf("to: %w", err)
		}
		filters.To = &t
	}
	if filters.From != nil && filters.To != nil && !filters.To.After(*filters.From) {
		return nil, 0, fmt.Errorf("%w: 'to' must be after 'from'", ErrShiftValidation)
	}

	shifts, total, err := s.staffRepo.GetShifts(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get shifts: %w", err)
	}
	return shifts, total, nil
}

func (s *staffService) UpdateShift(shiftID int64, req UpdateShiftRequest) (*models.Shift, error) {
	shift, err := s.GetShiftByID(shiftID)
	if err != nil {
		return nil, err
	}

	loc := s.now().Location()
	if req.StartTime != nil {
		st, err := parseDateTime(*req.StartTime, loc)
		if err != nil {
			return nil, fmt.Errorf("start_time: %w", err)
		}
		shift.StartTime = st
	}
	if req.EndTime != nil {
		et, err := parseDateTime(*req.EndTime, loc)
		if err != nil {
			return nil, fmt.Errorf("end_time: %w", err)
		}
		shift.EndTime = et
	}
	if err := validateShiftWindow(shift.StartTime, shift.EndTime); err != nil {
		return nil, err
	}
	if err := s.checkOverlap(shift.TherapistID, shift.StartTime, shift.EndTime, &shift.ID); err != nil {
		return nil, err
	}
	if req.Notes != nil {
		shift.Notes = utils.NewNullString(*req.Notes)
	}

	updated, err := s.staffRepo.UpdateShift(s.db, shift)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, fmt.Errorf("failed to update shift in repository: %w", err)
	}
	return s.staffRepo.GetShiftByID(updated.ID)
}

func (s *staffService) DeleteShift(shiftID int64) error {
	if err := s.staffRepo.DeleteShift(s.db, shiftID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrShiftNotFound
		}
		return fmt.Errorf("failed to delete shift: %w", err)
	}
	return nil
}
