package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CardType is the billing shape of a membership card. It never changes after issuance.
type CardType string

const (
	CardTypeCount  CardType = "count"
	CardTypePeriod CardType = "period"
	CardTypeValue  CardType = "value"
	CardTypeMixed  CardType = "mixed"
)

// CardStatus is the server-side lifecycle state of a card.
type CardStatus string

const (
	CardStatusActive    CardStatus = "active"
	CardStatusExpired   CardStatus = "expired"
	CardStatusCancelled CardStatus = "cancelled"
	CardStatusFrozen    CardStatus = "frozen"
	CardStatusLost      CardStatus = "lost"
)

// EffectiveStatus is the display status derived from a card's lifecycle state and expiry date.
type EffectiveStatus string

const (
	EffectiveActive   EffectiveStatus = "active"
	EffectiveExpiring EffectiveStatus = "expiring"
	EffectiveExpired  EffectiveStatus = "expired"
	EffectiveNone     EffectiveStatus = "none"
)

// PeriodType is the unit of a card's validity period.
type PeriodType string

const (
	PeriodDay   PeriodType = "day"
	PeriodWeek  PeriodType = "week"
	PeriodMonth PeriodType = "month"
	PeriodYear  PeriodType = "year"
)

// IsValidCardType checks if the given card type is known.
func IsValidCardType(t CardType) bool {
	switch t {
	case CardTypeCount, CardTypePeriod, CardTypeValue, CardTypeMixed:
		return true
	}
	return false
}

// IsValidCardStatus checks if the given status is a known lifecycle state.
func IsValidCardStatus(s CardStatus) bool {
	switch s {
	case CardStatusActive, CardStatusExpired, CardStatusCancelled, CardStatusFrozen, CardStatusLost:
		return true
	}
	return false
}

// MembershipCard is a card issued to exactly one customer.
type MembershipCard struct {
	ID               int64           `json:"id" db:"id"`
	CustomerID       int64           `json:"customer_id" db:"customer_id"`
	MembershipTypeID *int64          `json:"membership_type_id,omitempty" db:"membership_type_id"`
	CardNumber       string          `json:"card_number" db:"card_number"`
	CardType         CardType        `json:"card_type" db:"card_type"`
	Status           CardStatus      `json:"status" db:"status"`
	Balance          decimal.Decimal `json:"balance" db:"balance"`
	RemainingCount   int             `json:"remaining_count" db:"remaining_count"`
	TotalCount       int             `json:"total_count" db:"total_count"`
	UnitPrice        decimal.Decimal `json:"unit_price" db:"unit_price"`
	PeriodValue      *int            `json:"period_value,omitempty" db:"period_value"`
	PeriodType       *PeriodType     `json:"period_type,omitempty" db:"period_type"`
	StartDate        time.Time       `json:"start_date" db:"start_date"`
	ExpiryDate       *time.Time      `json:"expiry_date,omitempty" db:"expiry_date"`
	PricePaid        decimal.Decimal `json:"price_paid" db:"price_paid"`
	StatusReason     *string         `json:"status_reason,omitempty" db:"status_reason"`
	Notes            *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
	CustomerName     *string         `json:"customer_name,omitempty"` // joined from customers
}

// MembershipCardView is a card together with its derived display fields.
type MembershipCardView struct {
	MembershipCard
	EffectiveStatus EffectiveStatus `json:"effective_status"`
	CapacityKind    string          `json:"capacity_kind"`
	CapacityText    string          `json:"capacity_text"`
}

// CustomerMemberships is the per-customer card listing with the aggregate status.
type CustomerMemberships struct {
	CustomerID      int64                `json:"customer_id"`
	Cards           []MembershipCardView `json:"data"`
	AggregateStatus EffectiveStatus      `json:"aggregate_status"`
	Total           int                  `json:"total"`
}

// MembershipType is a catalog template used to pre-fill a new card.
type MembershipType struct {
	ID           int64           `json:"id" db:"id"`
	Name         string          `json:"name" db:"name" binding:"required"`
	Category     CardType        `json:"category" db:"category" binding:"required"`
	Price        decimal.Decimal `json:"price" db:"price"`
	ValueAmount  decimal.Decimal `json:"value_amount" db:"value_amount"`
	ServiceCount int             `json:"service_count" db:"service_count"`
	ValidityDays int             `json:"validity_days" db:"validity_days"`
	Description  *string         `json:"description,omitempty" db:"description"`
	IsActive     bool            `json:"is_active" db:"is_active"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// MembershipFilters defines the available filters for querying cards.
type MembershipFilters struct {
	CustomerID *int64  `form:"customer_id"`
	CardType   *string `form:"card_type"`
	Status     *string `form:"status"`
	Search     *string `form:"search"` // card number or customer name
	Page       int     `form:"page"`
	PageSize   int     `form:"page_size"`
}
