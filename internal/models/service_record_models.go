package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how a visit was paid for.
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "cash"
	PaymentWechat     PaymentMethod = "wechat"
	PaymentAlipay     PaymentMethod = "alipay"
	PaymentCardSwipe  PaymentMethod = "card_swipe"
	PaymentMembership PaymentMethod = "membership"
)

// IsValidPaymentMethod checks if the provided payment method is known.
func IsValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentCash, PaymentWechat, PaymentAlipay, PaymentCardSwipe, PaymentMembership:
		return true
	}
	return false
}

// ServiceRecord is one visit of a customer.
type ServiceRecord struct {
	ID               int64           `json:"id" db:"id"`
	CustomerID       int64           `json:"customer_id" db:"customer_id"`
	TherapistID      *int64          `json:"therapist_id,omitempty" db:"therapist_id"`
	MembershipCardID *int64          `json:"membership_card_id,omitempty" db:"membership_card_id"`
	ServiceName      string          `json:"service_name" db:"service_name"`
	ServiceDate      time.Time       `json:"service_date" db:"service_date"`
	ServiceFee       decimal.Decimal `json:"service_fee" db:"service_fee"`
	PaymentMethod    PaymentMethod   `json:"payment_method" db:"payment_method"`
	Notes            *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`

	// Joined details
	CustomerName  *string `json:"customer_name,omitempty"`
	TherapistName *string `json:"therapist_name,omitempty"`
	CardNumber    *string `json:"card_number,omitempty"`
}

// ServiceRecordFilters defines the available filters for querying service records.
type ServiceRecordFilters struct {
	CustomerID       *int64  `form:"customer_id"`
	TherapistID      *int64  `form:"therapist_id"`
	MembershipCardID *int64  `form:"membership_card_id"`
	PaymentMethod    *string `form:"payment_method"`
	DateFrom         *string `form:"date_from"` // YYYY-MM-DD
	DateTo           *string `form:"date_to"`   // YYYY-MM-DD
	Page             int     `form:"page"`
	PageSize         int     `form:"page_size"`
}
