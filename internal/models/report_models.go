package models

import "github.com/shopspring/decimal"

// DashboardSummary holds the key figures shown on the clinic dashboard.
type DashboardSummary struct {
	TotalCustomers      int                     `json:"total_customers"`
	CustomersByStatus   map[EffectiveStatus]int `json:"customers_by_membership_status"`
	ActiveCards         int                     `json:"active_cards"`
	ExpiringCards       []ExpiringCard          `json:"expiring_cards"`
	ServicesToday       int                     `json:"services_today"`
	RevenueToday        decimal.Decimal         `json:"revenue_today"`
	MembershipPaidToday decimal.Decimal         `json:"membership_paid_today"`
	ServicesThisMonth   int                     `json:"services_this_month"`
	RevenueThisMonth    decimal.Decimal         `json:"revenue_this_month"`
}

// ExpiringCard is an entry of the "expiring soon" list.
type ExpiringCard struct {
	CardID       int64  `json:"card_id"`
	CardNumber   string `json:"card_number"`
	CustomerID   int64  `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	ExpiryDate   string `json:"expiry_date"`
	DaysLeft     int    `json:"days_left"`
}

// DailyRevenue is a point on the revenue chart.
type DailyRevenue struct {
	Date         string          `json:"date"` // YYYY-MM-DD
	ServiceCount int             `json:"service_count"`
	Revenue      decimal.Decimal `json:"revenue"`
}
