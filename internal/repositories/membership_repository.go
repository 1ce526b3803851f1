package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tuina_clinic_backend/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// MembershipRepository defines the interface for membership card database operations.
type MembershipRepository interface {
	CreateCard(executor SQLExecutor, card *models.MembershipCard) (int64, error)
	GetCardByID(id int64) (*models.MembershipCard, error)
	LockCard(executor SQLExecutor, id int64) (*models.MembershipCard, error)
	GetCardsByCustomerID(customerID int64) ([]models.MembershipCard, error)
	GetCardsByCustomerIDs(customerIDs []int64) (map[int64][]models.MembershipCard, error)
	GetCards(filters models.MembershipFilters) ([]models.MembershipCard, int, error)
	UpdateCardStatus(executor SQLExecutor, id int64, status models.CardStatus, reason *string) error
	ConsumeCard(executor SQLExecutor, id int64, amount decimal.Decimal, visits int, today time.Time) error
	RefundCard(executor SQLExecutor, id int64, amount decimal.Decimal, visits int) error
	GetActiveCardsExpiringBetween(from, to time.Time) ([]models.MembershipCard, error)
	GetActiveCardsExpiredBefore(day time.Time) ([]models.MembershipCard, error)
}

type membershipRepository struct {
	db *sql.DB
}

// NewMembershipRepository creates a new instance of MembershipRepository.
func NewMembershipRepository(db *sql.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

const cardColumns = `mc.id, mc.customer_id, mc.membership_type_id, mc.card_number, mc.card_type, mc.status,
	mc.balance, mc.remaining_count, mc.total_count, mc.unit_price, mc.period_value, mc.period_type,
	mc.start_date, mc.expiry_date, mc.price_paid, mc.status_reason, mc.notes, mc.created_at, mc.updated_at,
	c.full_name`

const cardFrom = ` FROM membership_cards mc LEFT JOIN customers c ON mc.customer_id = c.id`

func scanCard(row scanner, extra ...interface{}) (*models.MembershipCard, error) {
	var card models.MembershipCard
	var typeID, periodValue sql.NullInt64
	var periodType, reason, notes, customerName sql.NullString
	var expiry sql.NullTime
	var balance, unitPrice, pricePaid decimal.NullDecimal

	dest := []interface{}{
		&card.ID, &card.CustomerID, &typeID, &card.CardNumber, &card.CardType, &card.Status,
		&balance, &card.RemainingCount, &card.TotalCount, &unitPrice, &periodValue, &periodType,
		&card.StartDate, &expiry, &pricePaid, &reason, &notes, &card.CreatedAt, &card.UpdatedAt,
		&customerName,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	card.MembershipTypeID = nullableInt64(typeID)
	card.Balance = balance.Decimal
	card.UnitPrice = unitPrice.Decimal
	card.PricePaid = pricePaid.Decimal
	if periodValue.Valid {
		v := int(periodValue.Int64)
		card.PeriodValue = &v
	}
	if periodType.Valid {
		p := models.PeriodType(periodType.String)
		card.PeriodType = &p
	}
	if expiry.Valid {
		t := expiry.Time
		card.ExpiryDate = &t
	}
	card.StatusReason = nullableString(reason)
	card.Notes = nullableString(notes)
	card.CustomerName = nullableString(customerName)
	return &card, nil
}

func (r *membershipRepository) queryCards(query string, args ...interface{}) ([]models.MembershipCard, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying membership cards: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	cards := []models.MembershipCard{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning membership card: %v", ErrDatabaseError, err)
		}
		cards = append(cards, *card)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating membership card rows: %v", ErrDatabaseError, err)
	}
	return cards, nil
}

// CreateCard inserts a newly issued card.
func (r *membershipRepository) CreateCard(executor SQLExecutor, card *models.MembershipCard) (int64, error) {
	query := `INSERT INTO membership_cards (customer_id, membership_type_id, card_number, card_type, status,
	            balance, remaining_count, total_count, unit_price, period_value, period_type,
	            start_date, expiry_date, price_paid, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	          RETURNING id`

	currentTime := time.Now()
	card.CreatedAt = currentTime
	card.UpdatedAt = currentTime

	var periodType sql.NullString
	if card.PeriodType != nil {
		periodType = sql.NullString{String: string(*card.PeriodType), Valid: true}
	}
	var expiry sql.NullTime
	if card.ExpiryDate != nil {
		expiry = sql.NullTime{Time: *card.ExpiryDate, Valid: true}
	}

	err := executor.QueryRow(query,
		card.CustomerID, card.MembershipTypeID, card.CardNumber, string(card.CardType), string(card.Status),
		card.Balance, card.RemainingCount, card.TotalCount, card.UnitPrice, card.PeriodValue, periodType,
		card.StartDate, expiry, card.PricePaid, card.Notes, card.CreatedAt, card.UpdatedAt,
	).Scan(&card.ID)
	if err != nil {
		return 0, wrapPQError(err, "creating membership card")
	}
	return card.ID, nil
}

// GetCardByID retrieves a card by ID.
func (r *membershipRepository) GetCardByID(id int64) (*models.MembershipCard, error) {
	card, err := scanCard(r.db.QueryRow(`SELECT `+cardColumns+cardFrom+` WHERE mc.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting membership card by ID %d: %v", ErrDatabaseError, id, err)
	}
	return card, nil
}

// LockCard reads a card with a row lock. It must run inside a transaction.
func (r *membershipRepository) LockCard(executor SQLExecutor, id int64) (*models.MembershipCard, error) {
	card, err := scanCard(executor.QueryRow(`SELECT `+cardColumns+cardFrom+` WHERE mc.id = $1 FOR UPDATE OF mc`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: locking membership card ID %d: %v", ErrDatabaseError, id, err)
	}
	return card, nil
}

// GetCardsByCustomerID lists every card of a customer, newest first.
func (r *membershipRepository) GetCardsByCustomerID(customerID int64) ([]models.MembershipCard, error) {
	return r.queryCards(`SELECT `+cardColumns+cardFrom+` WHERE mc.customer_id = $1 ORDER BY mc.created_at DESC, mc.id DESC`, customerID)
}

// GetCardsByCustomerIDs loads the cards of several customers in one query, keyed by customer.
func (r *membershipRepository) GetCardsByCustomerIDs(customerIDs []int64) (map[int64][]models.MembershipCard, error) {
	result := make(map[int64][]models.MembershipCard, len(customerIDs))
	if len(customerIDs) == 0 {
		return result, nil
	}
	cards, err := r.queryCards(`SELECT `+cardColumns+cardFrom+` WHERE mc.customer_id = ANY($1) ORDER BY mc.customer_id, mc.id`, pq.Array(customerIDs))
	if err != nil {
		return nil, err
	}
	for _, card := range cards {
		result[card.CustomerID] = append(result[card.CustomerID], card)
	}
	return result, nil
}

// GetCards retrieves cards with filters and pagination.
func (r *membershipRepository) GetCards(filters models.MembershipFilters) ([]models.MembershipCard, int, error) {
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + cardColumns + `, COUNT(*) OVER() AS total_count` + cardFrom)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("mc.customer_id = $%d", argCount))
		args = append(args, *filters.CustomerID)
		argCount++
	}
	if filters.CardType != nil && *filters.CardType != "" {
		conditions = append(conditions, fmt.Sprintf("mc.card_type = $%d", argCount))
		args = append(args, *filters.CardType)
		argCount++
	}
	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("mc.status = $%d", argCount))
		args = append(args, *filters.Status)
		argCount++
	}
	if filters.Search != nil && strings.TrimSpace(*filters.Search) != "" {
		conditions = append(conditions, fmt.Sprintf("(mc.card_number ILIKE $%d OR c.full_name ILIKE $%d)", argCount, argCount))
		args = append(args, "%"+strings.TrimSpace(*filters.Search)+"%")
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY mc.created_at DESC, mc.id DESC")
	query, args := paginate(queryBuilder.String(), args, argCount, filters.Page, filters.PageSize)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying membership cards: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	cards := []models.MembershipCard{}
	for rows.Next() {
		card, err := scanCard(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: scanning membership card: %v", ErrDatabaseError, err)
		}
		cards = append(cards, *card)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating membership card rows: %v", ErrDatabaseError, err)
	}
	return cards, totalCount, nil
}

// UpdateCardStatus persists a lifecycle transition.
func (r *membershipRepository) UpdateCardStatus(executor SQLExecutor, id int64, status models.CardStatus, reason *string) error {
	query := `UPDATE membership_cards SET status = $1, status_reason = $2, updated_at = $3 WHERE id = $4`
	result, err := executor.Exec(query, string(status), reason, time.Now(), id)
	if err != nil {
		return wrapPQError(err, fmt.Sprintf("updating status of membership card ID %d", id))
	}
	return expectAffected(result, fmt.Sprintf("updating status of membership card ID %d", id))
}

// ConsumeCard deducts amount from the balance and visits from the remaining count in a single
// guarded update. The card must be active, unexpired on today, and cover both deductions;
// otherwise ErrConditionFailed is returned and nothing changes.
func (r *membershipRepository) ConsumeCard(executor SQLExecutor, id int64, amount decimal.Decimal, visits int, today time.Time) error {
	query := `UPDATE membership_cards
	          SET balance = balance - $2, remaining_count = remaining_count - $3, updated_at = $4
	          WHERE id = $1 AND status = 'active'
	            AND balance >= $2 AND remaining_count >= $3
	            AND (expiry_date IS NULL OR expiry_date >= $5)`

	result, err := executor.Exec(query, id, amount, visits, time.Now(), today.Format("2006-01-02"))
	if err != nil {
		return wrapPQError(err, fmt.Sprintf("consuming membership card ID %d", id))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for consuming membership card ID %d: %v", ErrDatabaseError, id, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: membership card ID %d cannot cover the charge", ErrConditionFailed, id)
	}
	return nil
}

// RefundCard returns a previous deduction to the card.
func (r *membershipRepository) RefundCard(executor SQLExecutor, id int64, amount decimal.Decimal, visits int) error {
	query := `UPDATE membership_cards
	          SET balance = balance + $2, remaining_count = remaining_count + $3, updated_at = $4
	          WHERE id = $1`
	result, err := executor.Exec(query, id, amount, visits, time.Now())
	if err != nil {
		return wrapPQError(err, fmt.Sprintf("refunding membership card ID %d", id))
	}
	return expectAffected(result, fmt.Sprintf("refunding membership card ID %d", id))
}

// GetActiveCardsExpiringBetween lists active cards whose expiry date lies in [from, to].
func (r *membershipRepository) GetActiveCardsExpiringBetween(from, to time.Time) ([]models.MembershipCard, error) {
	query := `SELECT ` + cardColumns + cardFrom + `
	          WHERE mc.status = 'active' AND mc.expiry_date IS NOT NULL
	            AND mc.expiry_date >= $1 AND mc.expiry_date <= $2
	          ORDER BY mc.expiry_date ASC, mc.id ASC`
	return r.queryCards(query, from.Format("2006-01-02"), to.Format("2006-01-02"))
}

// GetActiveCardsExpiredBefore lists cards still marked active whose expiry date is before day.
func (r *membershipRepository) GetActiveCardsExpiredBefore(day time.Time) ([]models.MembershipCard, error) {
	query := `SELECT ` + cardColumns + cardFrom + `
	          WHERE mc.status = 'active' AND mc.expiry_date IS NOT NULL AND mc.expiry_date < $1
	          ORDER BY mc.expiry_date ASC, mc.id ASC`
	return r.queryCards(query, day.Format("2006-01-02"))
}
