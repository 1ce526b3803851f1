package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tuina_clinic_backend/internal/membership"
	"tuina_clinic_backend/internal/metrics"
	"tuina_clinic_backend/internal/models"
	"tuina_clinic_backend/internal/repositories"
	"tuina_clinic_backend/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrCardNotFound           = errors.New("membership card not found")
	ErrCardNumberExists       = errors.New("card number already exists")
	ErrCardTerminal           = errors.New("card is cancelled or lost and cannot change status")
	ErrMembershipTypeInactive = errors.New("membership type is no longer offered")
)

// AutoExpiredReason is recorded on cards expired by the sweeper.
const AutoExpiredReason = "auto-expired"

// IssueCardRequest is the issuing form of a new card. Amounts accept JSON numbers or numeric strings.
type IssueCardRequest struct {
	CustomerID       int64        `json:"customer_id" binding:"required"`
	MembershipTypeID *int64       `json:"membership_type_id"`
	CardNumber       *string      `json:"card_number"`
	CardType         string       `json:"card_type"`
	ServiceCount     *int         `json:"service_count"`
	UnitPrice        *json.Number `json:"unit_price"`
	PeriodValue      *int         `json:"period_value"`
	PeriodType       *string      `json:"period_type"`
	InitialAmount    *json.Number `json:"initial_amount"`
	PricePaid        *json.Number `json:"price_paid"`
	StartDate        *string      `json:"start_date"` // YYYY-MM-DD, defaults to today
	Notes            *string      `json:"notes"`
}

// UpdateCardStatusRequest changes a card's lifecycle state.
type UpdateCardStatusRequest struct {
	Status string  `json:"status" binding:"required"`
	Reason *string `json:"reason"`
}

// ValidateChargeRequest asks whether a membership charge would be accepted.
type ValidateChargeRequest struct {
	PaymentMethod    string       `json:"payment_method"`
	MembershipCardID *int64       `json:"membership_card_id"`
	ServiceFee       json.Number  `json:"service_fee" binding:"required"`
	OriginalFee      *json.Number `json:"original_fee"`
	OriginalCardID   *int64       `json:"original_card_id"`
}

// ChargeCheck is the verdict of an advisory charge validation.
type ChargeCheck struct {
	Allowed bool                       `json:"allowed"`
	Reason  string                     `json:"reason,omitempty"`
	Message string                     `json:"message,omitempty"`
	Card    *models.MembershipCardView `json:"card,omitempty"`
}

// MembershipService manages issued membership cards.
type MembershipService interface {
	IssueCard(req IssueCardRequest) (*models.MembershipCardView, error)
	GetCustomerMemberships(customerID int64) (*models.CustomerMemberships, error)
	ListCards(filters models.MembershipFilters) ([]models.MembershipCardView, int, error)
	GetCardByID(id int64) (*models.MembershipCardView, error)
	UpdateCardStatus(id int64, req UpdateCardStatusRequest) (*models.MembershipCardView, error)
	ValidateCharge(req ValidateChargeRequest) (*ChargeCheck, error)
	ExpireOverdueCards() (int, error)
	GetExpiringCards() ([]models.ExpiringCard, error)
}

type membershipService struct {
	cardRepo     repositories.MembershipRepository
	typeRepo     repositories.MembershipTypeRepository
	customerRepo repositories.CustomerRepository
	db           *sql.DB
	metrics      *metrics.Metrics
	now          Clock
}

// NewMembershipService creates a new instance of MembershipService.
func NewMembershipService(
	cardRepo repositories.MembershipRepository,
	typeRepo repositories.MembershipTypeRepository,
	customerRepo repositories.CustomerRepository,
	db *sql.DB,
	m *metrics.Metrics,
	now Clock,
) MembershipService {
	return &membershipService{
		cardRepo:     cardRepo,
		typeRepo:     typeRepo,
		customerRepo: customerRepo,
		db:           db,
		metrics:      m,
		now:          now,
	}
}

// newCardView derives the display fields of a card.
func newCardView(card models.MembershipCard, now time.Time) models.MembershipCardView {
	view := models.MembershipCardView{
		MembershipCard:  card,
		EffectiveStatus: membership.EffectiveStatusOf(card, now),
	}
	if capacity, err := membership.RemainingCapacity(card); err == nil {
		view.CapacityKind = string(capacity.Kind)
		view.CapacityText = capacity.DisplayText()
	}
	return view
}

func parseOptionalAmount(n *json.Number) (*decimal.Decimal, error) {
	if n == nil || n.String() == "" {
		return nil, nil
	}
	d, err := membership.ParseAmount(n.String())
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *membershipService) IssueCard(req IssueCardRequest) (*models.MembershipCardView, error) {
	now := s.now()

	if _, err := s.customerRepo.GetCustomerByID(req.CustomerID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to load customer %d: %w", req.CustomerID, err)
	}

	unitPrice, err := parseOptionalAmount(req.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("%w: unit_price: %v", ErrValidation, err)
	}
	initialAmount, err := parseOptionalAmount(req.InitialAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: initial_amount: %v", ErrValidation, err)
	}
	pricePaid, err := parseOptionalAmount(req.PricePaid)
	if err != nil {
		return nil, fmt.Errorf("%w: price_paid: %v", ErrValidation, err)
	}

	cardTypeRaw := req.CardType
	serviceCount := req.ServiceCount
	periodValue := req.PeriodValue
	var periodType *models.PeriodType
	if req.PeriodType != nil && *req.PeriodType != "" {
		p := models.PeriodType(strings.ToLower(strings.TrimSpace(*req.PeriodType)))
		periodType = &p
	}

	var template *models.MembershipType
	if req.MembershipTypeID != nil {
		template, err = s.typeRepo.GetMembershipTypeByID(*req.MembershipTypeID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, ErrMembershipTypeNotFound
			}
			return nil, fmt.Errorf("failed to load membership type %d: %w", *req.MembershipTypeID, err)
		}
		if !template.IsActive {
			return nil, ErrMembershipTypeInactive
		}
		if cardTypeRaw == "" {
			cardTypeRaw = string(template.Category)
		}
		if serviceCount == nil && template.ServiceCount > 0 {
			n := template.ServiceCount
			serviceCount = &n
		}
		if unitPrice == nil && template.ServiceCount > 0 {
			p := template.Price.Div(decimal.NewFromInt(int64(template.ServiceCount))).Round(2)
			unitPrice = &p
		}
		if initialAmount == nil && template.ValueAmount.IsPositive() {
			a := template.ValueAmount
			initialAmount = &a
		}
		if periodValue == nil && periodType == nil && template.ValidityDays > 0 {
			days := template.ValidityDays
			unit := models.PeriodDay
			periodValue, periodType = &days, &unit
		}
		if pricePaid == nil {
			p := template.Price
			pricePaid = &p
		}
	}

	cardType, err := membership.ParseCardType(cardTypeRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	input := membership.CardInput{
		CardType:      cardType,
		ServiceCount:  serviceCount,
		UnitPrice:     unitPrice,
		PeriodValue:   periodValue,
		PeriodType:    periodType,
		InitialAmount: initialAmount,
	}
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	start := startOfDay(now)
	if req.StartDate != nil && *req.StartDate != "" {
		if start, err = parseDate(*req.StartDate, now.Location()); err != nil {
			return nil, err
		}
	}

	card := models.MembershipCard{
		CustomerID:       req.CustomerID,
		MembershipTypeID: req.MembershipTypeID,
		CardType:         cardType,
		Status:           models.CardStatusActive,
		StartDate:        start,
		Notes:            req.Notes,
	}

	required, _ := membership.RequiredFields(cardType)
	if required.Has(membership.FieldServiceCount) {
		card.RemainingCount = *serviceCount
		card.TotalCount = *serviceCount
		card.UnitPrice = *unitPrice
	}
	if membership.ChecksBalance(cardType) {
		switch {
		case initialAmount != nil:
			card.Balance = *initialAmount
		case membership.ConsumesCount(cardType):
			// A mixed card without a stored value carries the worth of its visits.
			card.Balance = card.UnitPrice.Mul(decimal.NewFromInt(int64(card.TotalCount)))
		}
	}
	if membership.HasPeriod(cardType) {
		card.PeriodValue = periodValue
		card.PeriodType = periodType
		expiry, err := membership.ExpiryFrom(start, *periodType, *periodValue)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		card.ExpiryDate = &expiry
	} else if template != nil && template.ValidityDays > 0 {
		expiry, err := membership.ValidityDaysToExpiry(start, template.ValidityDays)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		card.ExpiryDate = expiry
	}

	switch {
	case pricePaid != nil:
		card.PricePaid = *pricePaid
	case cardType == models.CardTypeValue:
		card.PricePaid = card.Balance
	case membership.ConsumesCount(cardType):
		card.PricePaid = card.UnitPrice.Mul(decimal.NewFromInt(int64(card.TotalCount)))
	}

	if req.CardNumber != nil && strings.TrimSpace(*req.CardNumber) != "" {
		card.CardNumber = strings.TrimSpace(*req.CardNumber)
	} else {
		card.CardNumber = generateCardNumber(start)
	}

	if _, err := s.cardRepo.CreateCard(s.db, &card); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrCardNumberExists
		}
		if errors.Is(err, repositories.ErrForeignKey) {
			return nil, fmt.Errorf("%w: customer or membership type does not exist", ErrValidation)
		}
		return nil, fmt.Errorf("failed to issue membership card: %w", err)
	}

	utils.LogInfo("Membership card issued", map[string]interface{}{
		"card_id":     card.ID,
		"customer_id": card.CustomerID,
		"card_type":   card.CardType,
	})

	created, err := s.cardRepo.GetCardByID(card.ID)
	if err != nil {
		created = &card
	}
	view := newCardView(*created, now)
	return &view, nil
}

func generateCardNumber(start time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("MC%s%s", start.Format("20060102"), suffix)
}

func (s *membershipService) GetCustomerMemberships(customerID int64) (*models.CustomerMemberships, error) {
	if _, err := s.customerRepo.GetCustomerByID(customerID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to load customer %d: %w", customerID, err)
	}

	cards, err := s.cardRepo.GetCardsByCustomerID(customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards of customer %d: %w", customerID, err)
	}

	now := s.now()
	eval := membership.Evaluate(cards, now)
	result := &models.CustomerMemberships{
		CustomerID:      customerID,
		Cards:           make([]models.MembershipCardView, 0, len(cards)),
		AggregateStatus: eval.Aggregate,
		Total:           len(cards),
	}
	for _, card := range cards {
		result.Cards = append(result.Cards, newCardView(card, now))
	}
	return result, nil
}

func (s *membershipService) ListCards(filters models.MembershipFilters) ([]models.MembershipCardView, int, error) {
	cards, total, err := s.cardRepo.GetCards(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list membership cards: %w", err)
	}
	now := s.now()
	views := make([]models.MembershipCardView, 0, len(cards))
	for _, card := range cards {
		views = append(views, newCardView(card, now))
	}
	return views, total, nil
}

func (s *membershipService) GetCardByID(id int64) (*models.MembershipCardView, error) {
	card, err := s.cardRepo.GetCardByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to load membership card %d: %w", id, err)
	}
	view := newCardView(*card, s.now())
	return &view, nil
}

func (s *membershipService) UpdateCardStatus(id int64, req UpdateCardStatusRequest) (*models.MembershipCardView, error) {
	status := models.CardStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !models.IsValidCardStatus(status) {
		return nil, fmt.Errorf("%w: unknown card status %q", ErrValidation, req.Status)
	}

	card, err := s.cardRepo.GetCardByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to load membership card %d: %w", id, err)
	}

	now := s.now()
	if card.Status == status {
		view := newCardView(*card, now)
		return &view, nil
	}
	if card.Status == models.CardStatusCancelled || card.Status == models.CardStatusLost {
		return nil, ErrCardTerminal
	}
	if status == models.CardStatusActive && card.ExpiryDate != nil && membership.DaysUntil(now, *card.ExpiryDate) < 0 {
		return nil, fmt.Errorf("%w: card expired on %s and cannot be reactivated", ErrValidation, card.ExpiryDate.Format(dateLayout))
	}

	reason := utils.NewNullString(utils.DerefString(req.Reason))
	if err := s.cardRepo.UpdateCardStatus(s.db, id, status, reason); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to update status of membership card %d: %w", id, err)
	}
	s.metrics.CardStatusChanged(string(status))
	utils.LogInfo("Membership card status changed", map[string]interface{}{
		"card_id": id,
		"from":    card.Status,
		"to":      status,
		"reason":  utils.DerefString(reason),
	})

	card.Status = status
	card.StatusReason = reason
	card.UpdatedAt = now
	view := newCardView(*card, now)
	return &view, nil
}

func (s *membershipService) ValidateCharge(req ValidateChargeRequest) (*ChargeCheck, error) {
	method := models.PaymentMembership
	if strings.TrimSpace(req.PaymentMethod) != "" {
		parsed, err := parsePaymentMethod(req.PaymentMethod)
		if err != nil {
			return nil, err
		}
		method = parsed
	}

	fee, err := membership.ParseAmount(req.ServiceFee.String())
	if err != nil {
		return nil, fmt.Errorf("%w: service_fee: %v", ErrValidation, err)
	}
	originalFee := decimal.Zero
	if parsed, err := parseOptionalAmount(req.OriginalFee); err != nil {
		return nil, fmt.Errorf("%w: original_fee: %v", ErrValidation, err)
	} else if parsed != nil {
		originalFee = *parsed
	}

	now := s.now()
	check := &ChargeCheck{Allowed: true}

	var card *models.MembershipCard
	if req.MembershipCardID != nil {
		card, err = s.cardRepo.GetCardByID(*req.MembershipCardID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, ErrCardNotFound
			}
			return nil, fmt.Errorf("failed to load membership card %d: %w", *req.MembershipCardID, err)
		}
		view := newCardView(*card, now)
		check.Card = &view
	}
	isSameCard := req.MembershipCardID != nil && req.OriginalCardID != nil && *req.MembershipCardID == *req.OriginalCardID

	if err := membership.ValidatePayment(method, card, fee, originalFee, isSameCard, now); err != nil {
		var chargeErr *membership.ChargeError
		if !errors.As(err, &chargeErr) {
			return nil, err
		}
		s.metrics.ChargeRejected(string(chargeErr.Kind))
		check.Allowed = false
		check.Reason = string(chargeErr.Kind)
		check.Message = chargeErr.Error()
	}
	return check, nil
}

// ExpireOverdueCards marks active cards past their expiry date as expired.
func (s *membershipService) ExpireOverdueCards() (int, error) {
	now := s.now()
	cards, err := s.cardRepo.GetActiveCardsExpiredBefore(startOfDay(now))
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue cards: %w", err)
	}

	reason := AutoExpiredReason
	expired := 0
	var errs []error
	for _, card := range cards {
		if _, err := s.UpdateCardStatus(card.ID, UpdateCardStatusRequest{Status: string(models.CardStatusExpired), Reason: &reason}); err != nil {
			errs = append(errs, fmt.Errorf("card %d: %w", card.ID, err))
			continue
		}
		expired++
	}
	return expired, errors.Join(errs...)
}

// GetExpiringCards lists active cards entering the expiring window.
func (s *membershipService) GetExpiringCards() ([]models.ExpiringCard, error) {
	now := s.now()
	today := startOfDay(now)
	cards, err := s.cardRepo.GetActiveCardsExpiringBetween(today, today.AddDate(0, 0, membership.ExpiringWindowDays))
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring cards: %w", err)
	}

	out := make([]models.ExpiringCard, 0, len(cards))
	for _, card := range cards {
		soon, days := membership.IsExpiringSoon(card, now)
		if !soon {
			continue
		}
		out = append(out, models.ExpiringCard{
			CardID:       card.ID,
			CardNumber:   card.CardNumber,
			CustomerID:   card.CustomerID,
			CustomerName: utils.DerefString(card.CustomerName),
			ExpiryDate:   card.ExpiryDate.Format(dateLayout),
			DaysLeft:     days,
		})
	}
	return out, nil
}
