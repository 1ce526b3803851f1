package membership

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tuina_clinic_backend/internal/models"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned when form input cannot be turned into a valid value.
var ErrInvalidInput = errors.New("invalid membership input")

// ParseAmount parses a non-negative currency amount such as "128" or "99.5".
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "¥"))
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: amount is empty", ErrInvalidInput)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q is not a number", ErrInvalidInput, raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: amount cannot be negative", ErrInvalidInput)
	}
	return d.Round(2), nil
}

// ParseCount parses a non-negative whole number of visits.
func ParseCount(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: count is empty", ErrInvalidInput)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: count %q is not a whole number", ErrInvalidInput, raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: count cannot be negative", ErrInvalidInput)
	}
	return n, nil
}

// ParseCardType normalizes and checks a card type name.
func ParseCardType(raw string) (models.CardType, error) {
	t := models.CardType(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := cardTypeRules[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCardType, raw)
	}
	return t, nil
}

// ParsePeriodType normalizes and checks a period unit.
func ParsePeriodType(raw string) (models.PeriodType, error) {
	p := models.PeriodType(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case models.PeriodDay, models.PeriodWeek, models.PeriodMonth, models.PeriodYear:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown period type %q", ErrInvalidPeriod, raw)
}

// CardInput holds the typed issuing-form values of a new card.
type CardInput struct {
	CardType      models.CardType
	ServiceCount  *int
	UnitPrice     *decimal.Decimal
	PeriodValue   *int
	PeriodType    *models.PeriodType
	InitialAmount *decimal.Decimal
}

// Validate checks that every field required by the card type is present and usable.
func (in CardInput) Validate() error {
	required, err := RequiredFields(in.CardType)
	if err != nil {
		return err
	}
	for _, f := range required.Sorted() {
		if err := in.checkField(f); err != nil {
			return err
		}
	}
	return nil
}

func (in CardInput) checkField(f Field) error {
	switch f {
	case FieldServiceCount:
		if in.ServiceCount == nil || *in.ServiceCount <= 0 {
			return fmt.Errorf("%w: %s must be a positive number", ErrInvalidInput, f)
		}
	case FieldUnitPrice:
		if in.UnitPrice == nil || in.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: %s is required", ErrInvalidInput, f)
		}
	case FieldPeriodValue:
		if in.PeriodValue == nil || *in.PeriodValue <= 0 {
			return fmt.Errorf("%w: %s must be a positive number", ErrInvalidInput, f)
		}
	case FieldPeriodType:
		if in.PeriodType == nil {
			return fmt.Errorf("%w: %s is required", ErrInvalidInput, f)
		}
		if _, err := ParsePeriodType(string(*in.PeriodType)); err != nil {
			return err
		}
	case FieldInitialAmount:
		if in.InitialAmount == nil || !in.InitialAmount.IsPositive() {
			return fmt.Errorf("%w: %s must be greater than zero", ErrInvalidInput, f)
		}
	}
	return nil
}
