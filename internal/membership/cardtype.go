package membership

import (
	"errors"
	"fmt"
	"sort"

	"tuina_clinic_backend/internal/models"

	"github.com/shopspring/decimal"
)

// ErrUnknownCardType is returned for a card type missing from the rule table.
var ErrUnknownCardType = errors.New("unknown membership card type")

// Field names an input field of the card issuing form.
type Field string

const (
	FieldServiceCount  Field = "serviceCount"
	FieldUnitPrice     Field = "unitPrice"
	FieldPeriodValue   Field = "periodValue"
	FieldPeriodType    Field = "periodType"
	FieldInitialAmount Field = "initialAmount"
)

// FieldSet is an unordered set of fields.
type FieldSet map[Field]struct{}

func newFieldSet(fields ...Field) FieldSet {
	set := make(FieldSet, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Has reports whether f is in the set.
func (s FieldSet) Has(f Field) bool {
	_, ok := s[f]
	return ok
}

// Sorted returns the fields in lexical order.
func (s FieldSet) Sorted() []Field {
	out := make([]Field, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CapacityKind says how a card's remaining capacity is measured.
type CapacityKind string

const (
	CapacityCount     CapacityKind = "count"
	CapacityCurrency  CapacityKind = "currency"
	CapacityUnlimited CapacityKind = "unlimited"
)

// Capacity is what is left on a card.
type Capacity struct {
	Kind  CapacityKind
	Value decimal.Decimal
}

// DisplayText renders the capacity the way the front desk shows it.
func (c Capacity) DisplayText() string {
	switch c.Kind {
	case CapacityCount:
		return fmt.Sprintf("%d次", c.Value.IntPart())
	case CapacityCurrency:
		return FormatCurrency(c.Value)
	default:
		return "不限"
	}
}

// FormatCurrency renders an amount as yuan with two decimals.
func FormatCurrency(amount decimal.Decimal) string {
	return "¥" + amount.StringFixed(2)
}

type cardTypeRule struct {
	required      []Field
	capacity      CapacityKind
	checksBalance bool // a charge must be covered by the balance
	consumesCount bool // each visit uses one count
	hasPeriod     bool // expiry derived from a validity period
}

// Adding a card type means adding a row here.
var cardTypeRules = map[models.CardType]cardTypeRule{
	models.CardTypeCount: {
		required:      []Field{FieldServiceCount, FieldUnitPrice},
		capacity:      CapacityCount,
		consumesCount: true,
	},
	models.CardTypePeriod: {
		required:  []Field{FieldPeriodValue, FieldPeriodType},
		capacity:  CapacityUnlimited,
		hasPeriod: true,
	},
	models.CardTypeMixed: {
		required:      []Field{FieldServiceCount, FieldUnitPrice, FieldPeriodValue, FieldPeriodType},
		capacity:      CapacityCount,
		checksBalance: true,
		consumesCount: true,
		hasPeriod:     true,
	},
	models.CardTypeValue: {
		required:      []Field{FieldInitialAmount},
		capacity:      CapacityCurrency,
		checksBalance: true,
	},
}

func ruleFor(t models.CardType) (cardTypeRule, error) {
	rule, ok := cardTypeRules[t]
	if !ok {
		return cardTypeRule{}, fmt.Errorf("%w: %q", ErrUnknownCardType, t)
	}
	return rule, nil
}

// RequiredFields returns the issuing-form fields required for a card type.
func RequiredFields(t models.CardType) (FieldSet, error) {
	rule, err := ruleFor(t)
	if err != nil {
		return nil, err
	}
	return newFieldSet(rule.required...), nil
}

// RemainingCapacity reports what is left on a card. Missing balance or count reads as zero.
func RemainingCapacity(card models.MembershipCard) (Capacity, error) {
	rule, err := ruleFor(card.CardType)
	if err != nil {
		return Capacity{}, err
	}
	switch rule.capacity {
	case CapacityCount:
		return Capacity{Kind: CapacityCount, Value: decimal.NewFromInt(int64(card.RemainingCount))}, nil
	case CapacityCurrency:
		return Capacity{Kind: CapacityCurrency, Value: card.Balance}, nil
	default:
		return Capacity{Kind: CapacityUnlimited, Value: decimal.Zero}, nil
	}
}

// ChecksBalance reports whether charges against this card type are limited by its balance.
func ChecksBalance(t models.CardType) bool {
	return cardTypeRules[t].checksBalance
}

// ConsumesCount reports whether each visit uses one count of this card type.
func ConsumesCount(t models.CardType) bool {
	return cardTypeRules[t].consumesCount
}

// HasPeriod reports whether cards of this type expire after a validity period.
func HasPeriod(t models.CardType) bool {
	return cardTypeRules[t].hasPeriod
}
