package models

import "time"

// Therapist is a massage therapist on the clinic roster.
type Therapist struct {
	ID          int64     `json:"id" db:"id"`
	UserID      *int64    `json:"user_id,omitempty" db:"user_id"` // optional login account
	FullName    string    `json:"full_name" db:"full_name"`
	PhoneNumber *string   `json:"phone_number,omitempty" db:"phone_number"`
	Specialty   *string   `json:"specialty,omitempty" db:"specialty"`
	HireDate    *string   `json:"hire_date,omitempty" db:"hire_date"` // YYYY-MM-DD
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Shift is a roster entry for a therapist.
type Shift struct {
	ID            int64     `json:"id" db:"id"`
	TherapistID   int64     `json:"therapist_id" db:"therapist_id"`
	StartTime     time.Time `json:"start_time" db:"start_time"`
	EndTime       time.Time `json:"end_time" db:"end_time"`
	Notes         *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
	TherapistName *string   `json:"therapist_name,omitempty"`
}

// ShiftFilters defines the available filters for querying shifts.
type ShiftFilters struct {
	TherapistID *int64
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
}
