// Package membership holds the clinic's membership card rules: effective status evaluation,
// card type capacities, period expiry arithmetic and charge validation. Everything here is
// pure; callers persist any resulting state change themselves.
package membership

import (
	"time"

	"tuina_clinic_backend/internal/models"
)

// ExpiringWindowDays is how many days before its expiry date a card is shown as expiring.
const ExpiringWindowDays = 15

// Evaluation is the result of evaluating one customer's cards.
type Evaluation struct {
	PerCard   map[int64]models.EffectiveStatus
	Aggregate models.EffectiveStatus
}

// aggregatePriority lists contributing statuses from most to least favorable.
var aggregatePriority = []models.EffectiveStatus{
	models.EffectiveActive,
	models.EffectiveExpiring,
	models.EffectiveExpired,
}

// DaysUntil returns the number of calendar days from now's date to the date of t.
// Expiry dates are calendar dates, so t's own year/month/day is used as is.
func DaysUntil(now, t time.Time) int {
	y1, m1, d1 := now.Date()
	y2, m2, d2 := t.Date()
	from := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	to := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// EffectiveStatusOf derives the display status of a single card.
// Cards that are cancelled, frozen or lost do not contribute and report EffectiveNone.
func EffectiveStatusOf(card models.MembershipCard, now time.Time) models.EffectiveStatus {
	switch card.Status {
	case models.CardStatusActive:
		if card.ExpiryDate == nil {
			return models.EffectiveActive
		}
		days := DaysUntil(now, *card.ExpiryDate)
		if days < 0 {
			return models.EffectiveExpired
		}
		if days <= ExpiringWindowDays {
			return models.EffectiveExpiring
		}
		return models.EffectiveActive
	case models.CardStatusExpired:
		return models.EffectiveExpired
	default:
		return models.EffectiveNone
	}
}

// Evaluate derives every card's effective status and the customer's aggregate status.
func Evaluate(cards []models.MembershipCard, now time.Time) Evaluation {
	eval := Evaluation{
		PerCard:   make(map[int64]models.EffectiveStatus, len(cards)),
		Aggregate: models.EffectiveNone,
	}
	if len(cards) == 0 {
		return eval
	}

	statuses := make([]models.EffectiveStatus, 0, len(cards))
	for _, card := range cards {
		st := EffectiveStatusOf(card, now)
		eval.PerCard[card.ID] = st
		statuses = append(statuses, st)
	}
	eval.Aggregate = Aggregate(statuses)
	return eval
}

// Aggregate picks the most favorable contributing status, or EffectiveNone.
func Aggregate(statuses []models.EffectiveStatus) models.EffectiveStatus {
	for _, want := range aggregatePriority {
		for _, st := range statuses {
			if st == want {
				return want
			}
		}
	}
	return models.EffectiveNone
}

// IsExpiringSoon reports whether an active card falls inside the expiring window.
// daysLeft is returned for display.
func IsExpiringSoon(card models.MembershipCard, now time.Time) (bool, int) {
	if card.Status != models.CardStatusActive || card.ExpiryDate == nil {
		return false, 0
	}
	days := DaysUntil(now, *card.ExpiryDate)
	return days >= 0 && days <= ExpiringWindowDays, days
}
