package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"tuina_clinic_backend/internal/models"

	"github.com/shopspring/decimal"
)

// ServiceTotals are visit aggregates over a time range.
type ServiceTotals struct {
	Count             int
	Revenue           decimal.Decimal
	MembershipRevenue decimal.Decimal
}

// ReportRepository defines read-only aggregate queries for the dashboard.
type ReportRepository interface {
	CountCustomers() (int, error)
	GetCardLifecycles() ([]models.MembershipCard, error)
	GetServiceTotals(from, to time.Time) (*ServiceTotals, error)
	GetDailyRevenue(from, to time.Time) ([]models.DailyRevenue, error)
}

type reportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new instance of ReportRepository.
func NewReportRepository(db *sql.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) CountCustomers() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM customers`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: counting customers: %v", ErrDatabaseError, err)
	}
	return count, nil
}

// GetCardLifecycles returns the fields needed to evaluate membership status for every card.
func (r *reportRepository) GetCardLifecycles() ([]models.MembershipCard, error) {
	rows, err := r.db.Query(`SELECT id, customer_id, card_type, status, expiry_date FROM membership_cards`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying card lifecycles: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	cards := []models.MembershipCard{}
	for rows.Next() {
		var card models.MembershipCard
		var expiry sql.NullTime
		if err := rows.Scan(&card.ID, &card.CustomerID, &card.CardType, &card.Status, &expiry); err != nil {
			return nil, fmt.Errorf("%w: scanning card lifecycle: %v", ErrDatabaseError, err)
		}
		if expiry.Valid {
			t := expiry.Time
			card.ExpiryDate = &t
		}
		cards = append(cards, card)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating card lifecycle rows: %v", ErrDatabaseError, err)
	}
	return cards, nil
}

// GetServiceTotals sums visits in [from, to).
func (r *reportRepository) GetServiceTotals(from, to time.Time) (*ServiceTotals, error) {
	query := `SELECT COUNT(*),
	                 COALESCE(SUM(service_fee), 0),
	                 COALESCE(SUM(service_fee) FILTER (WHERE payment_method = 'membership'), 0)
	          FROM service_records
	          WHERE service_date >= $1 AND service_date < $2`

	totals := &ServiceTotals{}
	if err := r.db.QueryRow(query, from, to).Scan(&totals.Count, &totals.Revenue, &totals.MembershipRevenue); err != nil {
		return nil, fmt.Errorf("%w: summing service records: %v", ErrDatabaseError, err)
	}
	return totals, nil
}

// GetDailyRevenue groups visits in [from, to) by calendar day.
func (r *reportRepository) GetDailyRevenue(from, to time.Time) ([]models.DailyRevenue, error) {
	query := `SELECT TO_CHAR(DATE(service_date), 'YYYY-MM-DD') AS day, COUNT(*), COALESCE(SUM(service_fee), 0)
	          FROM service_records
	          WHERE service_date >= $1 AND service_date < $2
	          GROUP BY day
	          ORDER BY day ASC`

	rows, err := r.db.Query(query, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: querying daily revenue: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	days := []models.DailyRevenue{}
	for rows.Next() {
		var d models.DailyRevenue
		if err := rows.Scan(&d.Date, &d.ServiceCount, &d.Revenue); err != nil {
			return nil, fmt.Errorf("%w: scanning daily revenue: %v", ErrDatabaseError, err)
		}
		days = append(days, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating daily revenue rows: %v", ErrDatabaseError, err)
	}
	return days, nil
}
