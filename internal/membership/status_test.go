package membership

import (
	"testing"
	"time"

	"tuina_clinic_backend/internal/models"

	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

func activeCard(id int64, expiry *time.Time) models.MembershipCard {
	return models.MembershipCard{ID: id, CardType: models.CardTypePeriod, Status: models.CardStatusActive, ExpiryDate: expiry}
}

func daysFromNow(d int) *time.Time {
	t := testNow.AddDate(0, 0, d)
	return &t
}

func TestEffectiveStatusOf(t *testing.T) {
	tests := []struct {
		name     string
		card     models.MembershipCard
		expected models.EffectiveStatus
	}{
		{"active without expiry", activeCard(1, nil), models.EffectiveActive},
		{"active expired yesterday", activeCard(1, daysFromNow(-1)), models.EffectiveExpired},
		{"active expiring today", activeCard(1, daysFromNow(0)), models.EffectiveExpiring},
		{"active 14 days left", activeCard(1, daysFromNow(14)), models.EffectiveExpiring},
		{"active 15 days left", activeCard(1, daysFromNow(15)), models.EffectiveExpiring},
		{"active 16 days left", activeCard(1, daysFromNow(16)), models.EffectiveActive},
		{"server expired", models.MembershipCard{ID: 1, Status: models.CardStatusExpired, ExpiryDate: daysFromNow(100)}, models.EffectiveExpired},
		{"cancelled", models.MembershipCard{ID: 1, Status: models.CardStatusCancelled}, models.EffectiveNone},
		{"frozen", models.MembershipCard{ID: 1, Status: models.CardStatusFrozen, ExpiryDate: daysFromNow(3)}, models.EffectiveNone},
		{"lost", models.MembershipCard{ID: 1, Status: models.CardStatusLost}, models.EffectiveNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EffectiveStatusOf(tt.card, testNow))
		})
	}
}

func TestEffectiveStatusOf_DateOnlyExpiry(t *testing.T) {
	// A DATE column scans as midnight; the card is still valid late on its last day.
	lateEvening := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	expiry := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, models.EffectiveExpiring, EffectiveStatusOf(activeCard(1, &expiry), lateEvening))
}

func TestEvaluate(t *testing.T) {
	t.Run("no cards", func(t *testing.T) {
		eval := Evaluate(nil, testNow)
		assert.Equal(t, models.EffectiveNone, eval.Aggregate)
		assert.Empty(t, eval.PerCard)
	})

	t.Run("healthy card wins over expired card", func(t *testing.T) {
		cards := []models.MembershipCard{
			{ID: 1, Status: models.CardStatusExpired},
			activeCard(2, nil),
		}
		eval := Evaluate(cards, testNow)
		assert.Equal(t, models.EffectiveActive, eval.Aggregate)
		assert.Equal(t, models.EffectiveExpired, eval.PerCard[1])
		assert.Equal(t, models.EffectiveActive, eval.PerCard[2])
	})

	t.Run("expiring beats expired", func(t *testing.T) {
		cards := []models.MembershipCard{
			activeCard(1, daysFromNow(-3)),
			activeCard(2, daysFromNow(5)),
		}
		assert.Equal(t, models.EffectiveExpiring, Evaluate(cards, testNow).Aggregate)
	})

	t.Run("only non-contributing cards", func(t *testing.T) {
		cards := []models.MembershipCard{
			{ID: 1, Status: models.CardStatusCancelled},
			{ID: 2, Status: models.CardStatusLost},
		}
		eval := Evaluate(cards, testNow)
		assert.Equal(t, models.EffectiveNone, eval.Aggregate)
		assert.Len(t, eval.PerCard, 2)
	})

	t.Run("does not mutate cards", func(t *testing.T) {
		cards := []models.MembershipCard{activeCard(1, daysFromNow(-10))}
		Evaluate(cards, testNow)
		assert.Equal(t, models.CardStatusActive, cards[0].Status)
	})

	t.Run("same type cards evaluated independently", func(t *testing.T) {
		cards := []models.MembershipCard{
			activeCard(1, daysFromNow(40)),
			activeCard(2, daysFromNow(2)),
		}
		eval := Evaluate(cards, testNow)
		assert.Equal(t, models.EffectiveActive, eval.PerCard[1])
		assert.Equal(t, models.EffectiveExpiring, eval.PerCard[2])
	})
}

func TestAggregate(t *testing.T) {
	assert.Equal(t, models.EffectiveNone, Aggregate(nil))
	assert.Equal(t, models.EffectiveExpired, Aggregate([]models.EffectiveStatus{models.EffectiveNone, models.EffectiveExpired}))
	assert.Equal(t, models.EffectiveActive, Aggregate([]models.EffectiveStatus{models.EffectiveExpired, models.EffectiveActive}))
}

func TestDaysUntil(t *testing.T) {
	assert.Equal(t, 0, DaysUntil(testNow, testNow))
	assert.Equal(t, 1, DaysUntil(testNow, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, DaysUntil(testNow, time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, 366, DaysUntil(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestIsExpiringSoon(t *testing.T) {
	soon, days := IsExpiringSoon(activeCard(1, daysFromNow(7)), testNow)
	assert.True(t, soon)
	assert.Equal(t, 7, days)

	soon, _ = IsExpiringSoon(activeCard(1, daysFromNow(30)), testNow)
	assert.False(t, soon)

	soon, _ = IsExpiringSoon(activeCard(1, nil), testNow)
	assert.False(t, soon)
}
