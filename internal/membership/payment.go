package membership

import (
	"time"

	"tuina_clinic_backend/internal/models"

	"github.com/shopspring/decimal"
)

// ChargeErrorKind classifies why a membership charge was rejected.
type ChargeErrorKind string

const (
	ChargeRequiresCard        ChargeErrorKind = "requires_card"
	ChargeInvalidCard         ChargeErrorKind = "invalid_card"
	ChargeInsufficientBalance ChargeErrorKind = "insufficient_balance"
)

// ChargeError is a rejected membership charge. Its message is shown to the front desk as is.
type ChargeError struct {
	Kind      ChargeErrorKind
	Available decimal.Decimal // balance the charge was checked against
	Required  decimal.Decimal
}

func (e *ChargeError) Error() string {
	switch e.Kind {
	case ChargeRequiresCard:
		return "请选择会员卡"
	case ChargeInvalidCard:
		return "会员卡状态异常，无法使用"
	case ChargeInsufficientBalance:
		return "会员卡余额不足，当前余额 " + FormatCurrency(e.Available) + "，需要 " + FormatCurrency(e.Required)
	default:
		return "会员卡扣费失败"
	}
}

// Is matches any ChargeError of the same kind, so errors.Is(err, ErrInsufficientBalance) works.
func (e *ChargeError) Is(target error) bool {
	t, ok := target.(*ChargeError)
	return ok && t.Kind == e.Kind
}

var (
	ErrRequiresCard        = &ChargeError{Kind: ChargeRequiresCard}
	ErrInvalidCard         = &ChargeError{Kind: ChargeInvalidCard}
	ErrInsufficientBalance = &ChargeError{Kind: ChargeInsufficientBalance}
)

// ValidateCharge checks a prospective charge of proposedFee against card.
//
// originalFee is the amount this record already charged; it is added back only when the
// record is being edited against the same card, modelling a refund before the new charge.
// Count-only cards are checked for status alone: the server decrements the count.
func ValidateCharge(card *models.MembershipCard, proposedFee, originalFee decimal.Decimal, isSameCard bool) error {
	if card == nil {
		return ErrRequiresCard
	}
	if card.Status != models.CardStatusActive {
		return ErrInvalidCard
	}
	if !ChecksBalance(card.CardType) {
		return nil
	}

	effective := card.Balance
	if isSameCard {
		effective = effective.Add(originalFee)
	}
	if effective.LessThan(proposedFee) {
		return &ChargeError{Kind: ChargeInsufficientBalance, Available: effective, Required: proposedFee}
	}
	return nil
}

// ValidatePayment applies ValidateCharge when the payment method is membership.
// An active card that is already past its expiry date is rejected as invalid.
func ValidatePayment(method models.PaymentMethod, card *models.MembershipCard, proposedFee, originalFee decimal.Decimal, isSameCard bool, now time.Time) error {
	if method != models.PaymentMembership {
		return nil
	}
	if card != nil && EffectiveStatusOf(*card, now) == models.EffectiveExpired {
		return ErrInvalidCard
	}
	return ValidateCharge(card, proposedFee, originalFee, isSameCard)
}
