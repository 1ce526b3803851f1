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

	"github.com/shopspring/decimal"
)

var (
	ErrServiceRecordNotFound = errors.New("service record not found")
	ErrCardExhausted         = errors.New("membership card has no remaining visits")
	ErrCardNotOwned          = errors.New("membership card does not belong to this customer")
)

// CreateServiceRecordRequest DTO
type CreateServiceRecordRequest struct {
	CustomerID       int64       `json:"customer_id" binding:"required"`
	TherapistID      *int64      `json:"therapist_id"`
	MembershipCardID *int64      `json:"membership_card_id"`
	ServiceName      string      `json:"service_name" binding:"required"`
	ServiceDate      *string     `json:"service_date"` // YYYY-MM-DD, defaults to today
	ServiceFee       json.Number `json:"service_fee" binding:"required"`
	PaymentMethod    string      `json:"payment_method" binding:"required"`
	Notes            *string     `json:"notes"`
}

// UpdateServiceRecordRequest DTO. Nil fields keep their current value.
type UpdateServiceRecordRequest struct {
	TherapistID      *int64       `json:"therapist_id"`
	MembershipCardID *int64       `json:"membership_card_id"`
	ServiceName      *string      `json:"service_name"`
	ServiceDate      *string      `json:"service_date"`
	ServiceFee       *json.Number `json:"service_fee"`
	PaymentMethod    *string      `json:"payment_method"`
	Notes            *string      `json:"notes"`
}

// ServiceRecordService records visits and settles membership charges against cards.
type ServiceRecordService interface {
	CreateServiceRecord(req CreateServiceRecordRequest) (*models.ServiceRecord, error)
	GetServiceRecordByID(id int64) (*models.ServiceRecord, error)
	GetServiceRecords(filters models.ServiceRecordFilters) ([]models.ServiceRecord, int, error)
	UpdateServiceRecord(id int64, req UpdateServiceRecordRequest) (*models.ServiceRecord, error)
	DeleteServiceRecord(id int64) error
}

type serviceRecordService struct {
	recordRepo repositories.ServiceRecordRepository
	cardRepo   repositories.MembershipRepository
	db         *sql.DB
	metrics    *metrics.Metrics
	now        Clock
}

// NewServiceRecordService creates a new instance of ServiceRecordService.
func NewServiceRecordService(
	recordRepo repositories.ServiceRecordRepository,
	cardRepo repositories.MembershipRepository,
	db *sql.DB,
	m *metrics.Metrics,
	now Clock,
) ServiceRecordService {
	return &serviceRecordService{
		recordRepo: recordRepo,
		cardRepo:   cardRepo,
		db:         db,
		metrics:    m,
		now:        now,
	}
}

// cardCharge is what a visit takes from a card.
type cardCharge struct {
	amount decimal.Decimal
	visits int
}

func chargeFor(cardType models.CardType, fee decimal.Decimal) cardCharge {
	c := cardCharge{amount: decimal.Zero}
	if membership.ChecksBalance(cardType) {
		c.amount = fee
	}
	if membership.ConsumesCount(cardType) {
		c.visits = 1
	}
	return c
}

func parsePaymentMethod(raw string) (models.PaymentMethod, error) {
	method := models.PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	if !models.IsValidPaymentMethod(method) {
		return "", fmt.Errorf("%w: unknown payment method %q", ErrValidation, raw)
	}
	return method, nil
}

func (s *serviceRecordService) rejectCharge(err error) error {
	var chargeErr *membership.ChargeError
	if errors.As(err, &chargeErr) {
		s.metrics.ChargeRejected(string(chargeErr.Kind))
	}
	return err
}

// settle validates the new charge against the locked card and consumes it.
// refund is the part of the original charge already returned to the same card.
func (s *serviceRecordService) settle(tx *sql.Tx, record *models.ServiceRecord, card *models.MembershipCard, originalFee decimal.Decimal, refund *cardCharge, now time.Time) error {
	isSameCard := refund != nil
	if card != nil && card.CustomerID != record.CustomerID {
		return ErrCardNotOwned
	}
	if err := membership.ValidatePayment(record.PaymentMethod, card, record.ServiceFee, originalFee, isSameCard, now); err != nil {
		return s.rejectCharge(err)
	}
	if card == nil {
		return nil
	}

	charge := chargeFor(card.CardType, record.ServiceFee)
	remaining := card.RemainingCount
	if isSameCard {
		remaining += refund.visits
	}
	if charge.visits > remaining {
		s.metrics.ChargeRejected("exhausted")
		return ErrCardExhausted
	}

	if err := s.cardRepo.ConsumeCard(tx, card.ID, charge.amount, charge.visits, startOfDay(now)); err != nil {
		if errors.Is(err, repositories.ErrConditionFailed) {
			balance := card.Balance
			if isSameCard {
				balance = balance.Add(refund.amount)
			}
			return s.rejectCharge(&membership.ChargeError{
				Kind:      membership.ChargeInsufficientBalance,
				Available: balance,
				Required:  record.ServiceFee,
			})
		}
		return fmt.Errorf("failed to consume membership card %d: %w", card.ID, err)
	}
	return nil
}

func (s *serviceRecordService) lockCard(tx *sql.Tx, id *int64) (*models.MembershipCard, error) {
	if id == nil {
		return nil, nil
	}
	card, err := s.cardRepo.LockCard(tx, *id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCardNotFound
		}
		return nil, fmt.Errorf("failed to lock membership card %d: %w", *id, err)
	}
	return card, nil
}

func (s *serviceRecordService) CreateServiceRecord(req CreateServiceRecordRequest) (*models.ServiceRecord, error) {
	now := s.now()

	method, err := parsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	fee, err := membership.ParseAmount(req.ServiceFee.String())
	if err != nil {
		return nil, fmt.Errorf("%w: service_fee: %v", ErrValidation, err)
	}
	name := strings.TrimSpace(req.ServiceName)
	if name == "" {
		return nil, fmt.Errorf("%w: service name cannot be empty", ErrValidation)
	}
	serviceDate := startOfDay(now)
	if req.ServiceDate != nil && *req.ServiceDate != "" {
		if serviceDate, err = parseDate(*req.ServiceDate, now.Location()); err != nil {
			return nil, err
		}
	}

	record := &models.ServiceRecord{
		CustomerID:    req.CustomerID,
		TherapistID:   req.TherapistID,
		ServiceName:   name,
		ServiceDate:   serviceDate,
		ServiceFee:    fee,
		PaymentMethod: method,
		Notes:         utils.NewNullString(utils.DerefString(req.Notes)),
	}
	if method == models.PaymentMembership {
		record.MembershipCardID = req.MembershipCardID
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	card, err := s.lockCard(tx, record.MembershipCardID)
	if err != nil {
		return nil, err
	}
	if err := s.settle(tx, record, card, decimal.Zero, nil, now); err != nil {
		return nil, err
	}

	if _, err := s.recordRepo.CreateServiceRecord(tx, record); err != nil {
		if errors.Is(err, repositories.ErrForeignKey) {
			return nil, fmt.Errorf("%w: customer or therapist does not exist", ErrValidation)
		}
		return nil, fmt.Errorf("failed to create service record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit service record: %w", err)
	}

	utils.LogInfo("Service record created", map[string]interface{}{
		"record_id":      record.ID,
		"customer_id":    record.CustomerID,
		"payment_method": record.PaymentMethod,
		"fee":            record.ServiceFee.StringFixed(2),
	})
	return s.fetch(record)
}

// fetch reloads a record with its joined names, falling back to the given copy.
func (s *serviceRecordService) fetch(record *models.ServiceRecord) (*models.ServiceRecord, error) {
	full, err := s.recordRepo.GetServiceRecordByID(record.ID)
	if err != nil {
		return record, nil
	}
	return full, nil
}

func (s *serviceRecordService) GetServiceRecordByID(id int64) (*models.ServiceRecord, error) {
	record, err := s.recordRepo.GetServiceRecordByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrServiceRecordNotFound
		}
		return nil, fmt.Errorf("failed to get service record: %w", err)
	}
	return record, nil
}

func (s *serviceRecordService) GetServiceRecords(filters models.ServiceRecordFilters) ([]models.ServiceRecord, int, error) {
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 {
		filters.PageSize = 20
	}
	loc := s.now().Location()
	for _, d := range []*string{filters.DateFrom, filters.DateTo} {
		if d != nil && *d != "" {
			if _, err := parseDate(*d, loc); err != nil {
				return nil, 0, err
			}
		}
	}
	if filters.PaymentMethod != nil && *filters.PaymentMethod != "" {
		if _, err := parsePaymentMethod(*filters.PaymentMethod); err != nil {
			return nil, 0, err
		}
	}

	records, total, err := s.recordRepo.GetServiceRecords(filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list service records: %w", err)
	}
	return records, total, nil
}

// originalCharge is what the stored record took from its card, if anything.
func (s *serviceRecordService) originalCharge(record *models.ServiceRecord, card *models.MembershipCard) *cardCharge {
	if record.PaymentMethod != models.PaymentMembership || card == nil {
		return nil
	}
	c := chargeFor(card.CardType, record.ServiceFee)
	return &c
}

func (s *serviceRecordService) UpdateServiceRecord(id int64, req UpdateServiceRecordRequest) (*models.ServiceRecord, error) {
	now := s.now()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := s.recordRepo.LockServiceRecord(tx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrServiceRecordNotFound
		}
		return nil, fmt.Errorf("failed to lock service record: %w", err)
	}

	updated := *current
	if req.TherapistID != nil {
		updated.TherapistID = req.TherapistID
	}
	if req.ServiceName != nil {
		if strings.TrimSpace(*req.ServiceName) == "" {
			return nil, fmt.Errorf("%w: service name cannot be empty", ErrValidation)
		}
		updated.ServiceName = strings.TrimSpace(*req.ServiceName)
	}
	if req.ServiceDate != nil {
		if updated.ServiceDate, err = parseDate(*req.ServiceDate, now.Location()); err != nil {
			return nil, err
		}
	}
	if req.ServiceFee != nil {
		if updated.ServiceFee, err = membership.ParseAmount(req.ServiceFee.String()); err != nil {
			return nil, fmt.Errorf("%w: service_fee: %v", ErrValidation, err)
		}
	}
	if req.PaymentMethod != nil {
		if updated.PaymentMethod, err = parsePaymentMethod(*req.PaymentMethod); err != nil {
			return nil, err
		}
	}
	if req.MembershipCardID != nil {
		updated.MembershipCardID = req.MembershipCardID
	}
	if req.Notes != nil {
		updated.Notes = utils.NewNullString(*req.Notes)
	}
	if updated.PaymentMethod != models.PaymentMembership {
		updated.MembershipCardID = nil
	}

	// Lock in id order so concurrent edits touching the same two cards cannot deadlock.
	var originalCard, newCard *models.MembershipCard
	origID, newID := current.MembershipCardID, updated.MembershipCardID
	if current.PaymentMethod != models.PaymentMembership {
		origID = nil
	}
	first, second := origID, newID
	if first != nil && second != nil && *second < *first {
		first, second = second, first
	}
	locked := map[int64]*models.MembershipCard{}
	for _, cid := range []*int64{first, second} {
		if cid == nil || locked[*cid] != nil {
			continue
		}
		card, err := s.lockCard(tx, cid)
		if err != nil {
			return nil, err
		}
		locked[*cid] = card
	}
	if origID != nil {
		originalCard = locked[*origID]
	}
	if newID != nil {
		newCard = locked[*newID]
	}

	refund := s.originalCharge(current, originalCard)
	var sameCardRefund *cardCharge
	originalFee := decimal.Zero
	if refund != nil && newCard != nil && newCard.ID == originalCard.ID {
		sameCardRefund = refund
		originalFee = current.ServiceFee
	}

	// An edit that keeps the same card and fee leaves the stored charge as it is.
	chargeUnchanged := sameCardRefund != nil && updated.ServiceFee.Equal(current.ServiceFee)
	if !chargeUnchanged {
		// Validate against the pre-refund card so a rejected edit leaves the stored charge untouched.
		if err := membership.ValidatePayment(updated.PaymentMethod, newCard, updated.ServiceFee, originalFee, sameCardRefund != nil, now); err != nil {
			return nil, s.rejectCharge(err)
		}
		if refund != nil {
			if err := s.cardRepo.RefundCard(tx, originalCard.ID, refund.amount, refund.visits); err != nil {
				return nil, fmt.Errorf("failed to refund membership card %d: %w", originalCard.ID, err)
			}
		}
		if err := s.settle(tx, &updated, newCard, originalFee, sameCardRefund, now); err != nil {
			return nil, err
		}
	}

	if err := s.recordRepo.UpdateServiceRecord(tx, &updated); err != nil {
		if errors.Is(err, repositories.ErrForeignKey) {
			return nil, fmt.Errorf("%w: therapist or card does not exist", ErrValidation)
		}
		return nil, fmt.Errorf("failed to update service record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit service record update: %w", err)
	}
	return s.fetch(&updated)
}

func (s *serviceRecordService) DeleteServiceRecord(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	record, err := s.recordRepo.LockServiceRecord(tx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrServiceRecordNotFound
		}
		return fmt.Errorf("failed to lock service record: %w", err)
	}

	if record.PaymentMethod == models.PaymentMembership {
		card, err := s.lockCard(tx, record.MembershipCardID)
		if err != nil {
			return err
		}
		if refund := s.originalCharge(record, card); refund != nil {
			if err := s.cardRepo.RefundCard(tx, card.ID, refund.amount, refund.visits); err != nil {
				return fmt.Errorf("failed to refund membership card %d: %w", card.ID, err)
			}
		}
	}

	if err := s.recordRepo.DeleteServiceRecord(tx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrServiceRecordNotFound
		}
		return fmt.Errorf("failed to delete service record: %w", err)
	}
	return tx.Commit()
}
