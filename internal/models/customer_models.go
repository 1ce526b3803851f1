package models

import "time"

// Customer represents a child patient of the clinic together with their guardian contact.
type Customer struct {
	ID                int64           `json:"id" db:"id"`
	FullName          string          `json:"full_name" db:"full_name" binding:"required"`
	Gender            *string         `json:"gender,omitempty" db:"gender"`
	DateOfBirth       *string         `json:"date_of_birth,omitempty" db:"date_of_birth"` // YYYY-MM-DD
	Age               *int            `json:"age,omitempty"`                              // derived from DateOfBirth
	GuardianName      *string         `json:"guardian_name,omitempty" db:"guardian_name"`
	GuardianPhone     *string         `json:"guardian_phone,omitempty" db:"guardian_phone"`
	ConstitutionNotes *string         `json:"constitution_notes,omitempty" db:"constitution_notes"`
	Notes             *string         `json:"notes,omitempty" db:"notes"`
	MembershipStatus  EffectiveStatus `json:"membership_status"` // derived, never stored
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// CustomerFilters defines the available filters for querying customers.
type CustomerFilters struct {
	Search   *string `form:"search"`
	Page     int     `form:"page"`
	PageSize int     `form:"page_size"`
}
