package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"tuina_clinic_backend/internal/metrics"
	"tuina_clinic_backend/internal/models"
	"tuina_clinic_backend/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var clinicZone = time.FixedZone("CST", 8*3600)

// testNow is 2024-06-10 09:00 clinic time.
var testNow = time.Date(2024, 6, 10, 9, 0, 0, 0, clinicZone)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func intPtr(n int) *int            { return &n }
func int64Ptr(n int64) *int64      { return &n }
func strPtr(s string) *string      { return &s }
func numPtr(s string) *json.Number { n := json.Number(s); return &n }

func newTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, sm, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, sm
}

type membershipFixture struct {
	cards     *mockCardRepo
	types     *mockTypeRepo
	customers *mockCustomerRepo
	metrics   *metrics.Metrics
	svc       MembershipService
}

func newMembershipFixture(t *testing.T) *membershipFixture {
	db, _ := newTestDB(t)
	f := &membershipFixture{
		cards:     new(mockCardRepo),
		types:     new(mockTypeRepo),
		customers: new(mockCustomerRepo),
		metrics:   metrics.New(),
	}
	f.svc = NewMembershipService(f.cards, f.types, f.customers, db, f.metrics, fixedClock(testNow))
	return f
}

func TestMembershipService_IssueCard(t *testing.T) {
	t.Run("count card from catalog template", func(t *testing.T) {
		f := newMembershipFixture(t)
		f.customers.On("GetCustomerByID", int64(1)).Return(&models.Customer{ID: 1}, nil)
		f.types.On("GetMembershipTypeByID", int64(4)).Return(&models.MembershipType{
			ID: 4, Category: models.CardTypeCount, Price: decimal.NewFromInt(1000), ServiceCount: 10, IsActive: true,
		}, nil)
		f.cards.On("CreateCard", mock.AnythingOfType("*models.MembershipCard")).Return(int64(7), nil)
		f.cards.On("GetCardByID", int64(7)).Return(nil, repositories.ErrNotFound)

		view, err := f.svc.IssueCard(IssueCardRequest{CustomerID: 1, MembershipTypeID: int64Ptr(4)})
		require.NoError(t, err)
		assert.Equal(t, int64(7), view.ID)
		assert.Equal(t, models.CardTypeCount, view.CardType)
		assert.Equal(t, models.CardStatusActive, view.Status)
		assert.Equal(t, 10, view.RemainingCount)
		assert.Equal(t, 10, view.TotalCount)
		assert.Equal(t, "100.00", view.UnitPrice.StringFixed(2))
		assert.Equal(t, "1000.00", view.PricePaid.StringFixed(2))
		assert.Nil(t, view.ExpiryDate)
		assert.True(t, strings.HasPrefix(view.CardNumber, "MC20240610"))
		assert.Equal(t, "10次", view.CapacityText)
		assert.Equal(t, models.EffectiveActive, view.EffectiveStatus)
	})

	t.Run("mixed card from a template carries its value amount and can be charged", func(t *testing.T) {
		f := newMembershipFixture(t)
		f.customers.On("GetCustomerByID", int64(1)).Return(&models.Customer{ID: 1}, nil)
		f.types.On("GetMembershipTypeByID", int64(5)).Return(&models.MembershipType{
			ID: 5, Category: models.CardTypeMixed, Price: decimal.NewFromInt(1000), ValueAmount: decimal.NewFromInt(1000),
			ServiceCount: 10, ValidityDays: 180, IsActive: true,
		}, nil)
		var issued models.MembershipCard
		f.cards.On("CreateCard", mock.AnythingOfType("*models.MembershipCard")).
			Run(func(args mock.Arguments) { issued = *args.Get(0).(*models.MembershipCard) }).
			Return(int64(9), nil)
		f.cards.On("GetCardByID", int64(9)).Return(nil, repositories.ErrNotFound).Once()

		view, err := f.svc.IssueCard(IssueCardRequest{CustomerID: 1, MembershipTypeID: int64Ptr(5), InitialAmount: numPtr("1000")})
		require.NoError(t, err)
		assert.Equal(t, "1000.00", view.Balance.StringFixed(2))
		assert.Equal(t, 10, view.RemainingCount)

		issued.ID = 9
		f.cards.On("GetCardByID", int64(9)).Return(&issued, nil)
		check, err := f.svc.ValidateCharge(ValidateChargeRequest{MembershipCardID: int64Ptr(9), ServiceFee: "128"})
		require.NoError(t, err)
		assert.True(t, check.Allowed, check.Message)
	})

	t.Run("mixed card without a value amount is worth its visits", func(t *testing.T) {
		f := newMembershipFixture(t)
		f.customers.On("GetCustomerByID", int64(1)).Return(&models.Customer{ID: 1}, nil)
		f.cards.On("CreateCard", mock.AnythingOfType("*models.MembershipCard")).Return(int64(10), nil)
		f.cards.On("GetCardByID", int64(10)).Return(nil, repositories.ErrNotFound)

		view, err := f.svc.IssueCard(IssueCardRequest{
			CustomerID:   1,
			CardType:     "mixed",
			ServiceCount: intPtr(5),
			UnitPrice:    numPtr("120"),
			PeriodValue:  intPtr(3),
			PeriodType:   strPtr("month"),
		})
		require.NoError(t, err)
		assert.Equal(t, "600.00", view.Balance.StringFixed(2))
		assert.Equal(t, 5, view.RemainingCount)
	})

	t.Run("monthly period card clamps the expiry day", func(t *testing.T) {
		f := newMembershipFixture(t)
		f.customers.On("GetCustomerByID", int64(1)).Return(&models.Customer{ID: 1}, nil)
		f.cards.On("CreateCard", mock.AnythingOfType("*models.MembershipCard")).Return(int64(8), nil)
		f.cards.On("GetCardByID", int64(8)).Return(nil, repositories.ErrNotFound)

		view, err := f.svc.IssueCard(IssueCardRequest{
			CustomerID:  1,
			CardType:    "period",
			PeriodValue: intPtr(1),
			PeriodType:  strPtr("month"),
			StartDate:   strPtr("2024-01-31"),
			CardNumber:  strPtr(" VIP-001 "),
		})
		require.NoError(t, err)
		require.NotNil(t, view.ExpiryDate)
		assert.Equal(t, "2024-02-29", view.ExpiryDate.Format("2006-01-02"))
		assert.Equal(t, "VIP-001", view.CardNumber)
		assert.Equal(t, "不限", view.CapacityText)
		assert.Equal(t, models.EffectiveExpired, view.EffectiveStatus)
	})

	t.Run("value card needs an initial amount", func(t *testing.T) {
		f := newMembershipFixture(t)
		f.customers.On("GetCustomerByID", int64(1)).Return(&models.Customer{ID: 1}, nil)

		_, err := f.svc.IssueCard(IssueCardRequest{CustomerID: 1, CardType: "value"})
		assert.ErrorIs(t, err, ErrValidation)
		f.cards.AssertNotCalled(t, "CreateCard", mock.Anything)
	})

	t.Run("value card balance and price", func(t *testing.T) {
		f := newMembershipFixture(t)
		f.customers.On("GetCustomerByID", int64(1)).Return(&models.Customer{ID: 1}, nil)
		f.cards.On("CreateCard", mock.AnythingOfType("*models.MembershipCard")).Return(int64(9), nil)
		f.cards.On("GetCardByID", int64(9)).Return(nil, repositories.ErrNotFound)

		view, err := f.svc.IssueCard(IssueCardRequest{CustomerID: 1, CardType: "value", InitialAmount: numPtr("500")})
		require.NoError(t, err)
		assert.Equal(t, "500.00", view.Balance.StringFixed(2))
		assert.Equal(t, "500.00", view.PricePaid.StringFixed(2))
		assert.Equal(t, "¥500.00", view.CapacityText)
	})

	t.Run("unknown customer", func(t *testing.T) {
		f := newMembershipFixture(t)
		f.customers.On("GetCustomerByID", int64(99)).Return(nil, repositories.ErrNotFound)

		_, err := f.svc.IssueCard(IssueCardRequest{CustomerID: 99, CardType: "count"})
		assert.ErrorIs(t, err, ErrCustomerNotFound)
	})

	t.Run("inactive template", func(t *testing.T) {
		f := newMembershipFixture(t)
		f.customers.On("GetCustomerByID", int64(1)).Return(&models.Customer{ID: 1}, nil)
		f.types.On("GetMembershipTypeByID", int64(4)).Return(&models.MembershipType{ID: 4, Category: models.CardTypeCount}, nil)

		_, err := f.svc.IssueCard(IssueCardRequest{CustomerID: 1, MembershipTypeID: int64Ptr(4)})
		assert.ErrorIs(t, err, ErrMembershipTypeInactive)
	})

	t.Run("duplicate card number", func(t *testing.T) {
		f := newMembershipFixture(t)
		f.customers.On("GetCustomerByID", int64(1)).Return(&models.Customer{ID: 1}, nil)
		f.cards.On("CreateCard", mock.AnythingOfType("*models.MembershipCard")).
			Return(int64(0), repositories.ErrDuplicateKey)

		_, err := f.svc.IssueCard(IssueCardRequest{
			CustomerID: 1, CardType: "count", ServiceCount: intPtr(5), UnitPrice: numPtr("80"),
		})
		assert.ErrorIs(t, err, ErrCardNumberExists)
	})
}

func TestMembershipService_GetCustomerMemberships(t *testing.T) {
	f := newMembershipFixture(t)
	f.customers.On("GetCustomerByID", int64(1)).Return(&models.Customer{ID: 1}, nil)
	f.cards.On("GetCardsByCustomerID", int64(1)).Return([]models.MembershipCard{
		{ID: 1, CustomerID: 1, CardType: models.CardTypePeriod, Status: models.CardStatusActive, ExpiryDate: day(2024, 6, 20)},
		{ID: 2, CustomerID: 1, CardType: models.CardTypeValue, Status: models.CardStatusExpired, Balance: decimal.NewFromInt(30)},
		{ID: 3, CustomerID: 1, CardType: models.CardTypeCount, Status: models.CardStatusCancelled, RemainingCount: 4},
	}, nil)

	result, err := f.svc.GetCustomerMemberships(1)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, models.EffectiveExpiring, result.AggregateStatus)
	require.Len(t, result.Cards, 3)
	assert.Equal(t, models.EffectiveExpiring, result.Cards[0].EffectiveStatus)
	assert.Equal(t, models.EffectiveExpired, result.Cards[1].EffectiveStatus)
	assert.Equal(t, "¥30.00", result.Cards[1].CapacityText)
	assert.Equal(t, models.EffectiveNone, result.Cards[2].EffectiveStatus)
	assert.Equal(t, "4次", result.Cards[2].CapacityText)
}

func TestMembershipService_UpdateCardStatus(t *testing.T) {
	t.Run("freeze an active card", func(t *testing.T) {
		f := newMembershipFixture(t)
		f.cards.On("GetCardByID", int64(5)).Return(&models.MembershipCard{ID: 5, Status: models.CardStatusActive, CardType: models.CardTypeCount}, nil)
		f.cards.On("UpdateCardStatus", int64(5), models.CardStatusFrozen, mock.Anything).Return(nil)

		view, err := f.svc.UpdateCardStatus(5, UpdateCardStatusRequest{Status: "Frozen", Reason: strPtr("travelling")})
		require.NoError(t, err)
		assert.Equal(t, models.CardStatusFrozen, view.Status)
		assert.Equal(t, "travelling", *view.StatusReason)
		assert.Equal(t, models.EffectiveNone, view.EffectiveStatus)
		n, err := testutil.GatherAndCount(f.metrics.Registry(), "tuina_clinic_membership_card_status_transitions_total")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("cancelled cards are terminal", func(t *testing.T) {
		f := newMembershipFixture(t)
		f.cards.On("GetCardByID", int64(5)).Return(&models.MembershipCard{ID: 5, Status: models.CardStatusCancelled}, nil)

		_, err := f.svc.UpdateCardStatus(5, UpdateCardStatusRequest{Status: "active"})
		assert.ErrorIs(t, err, ErrCardTerminal)
	})

	t.Run("cannot reactivate past expiry", func(t *testing.T) {
		f := newMembershipFixture(t)
		f.cards.On("GetCardByID", int64(5)).Return(&models.MembershipCard{
			ID: 5, Status: models.CardStatusFrozen, ExpiryDate: day(2024, 6, 9),
		}, nil)

		_, err := f.svc.UpdateCardStatus(5, UpdateCardStatusRequest{Status: "active"})
		assert.ErrorIs(t, err, ErrValidation)
		f.cards.AssertNotCalled(t, "UpdateCardStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newMembershipFixture(t)
		_, err := f.svc.UpdateCardStatus(5, UpdateCardStatusRequest{Status: "paused"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("card not found", func(t *testing.T) {
		f := newMembershipFixture(t)
		f.cards.On("GetCardByID", int64(5)).Return(nil, repositories.ErrNotFound)
		_, err := f.svc.UpdateCardStatus(5, UpdateCardStatusRequest{Status: "lost"})
		assert.ErrorIs(t, err, ErrCardNotFound)
	})
}

func TestMembershipService_ValidateCharge(t *testing.T) {
	valueCard := &models.MembershipCard{
		ID: 3, CustomerID: 1, CardType: models.CardTypeValue, Status: models.CardStatusActive, Balance: decimal.NewFromInt(50),
	}

	t.Run("insufficient balance", func(t *testing.T) {
		f := newMembershipFixture(t)
		f.cards.On("GetCardByID", int64(3)).Return(valueCard, nil)

		check, err := f.svc.ValidateCharge(ValidateChargeRequest{MembershipCardID: int64Ptr(3), ServiceFee: "80"})
		require.NoError(t, err)
		assert.False(t, check.Allowed)
		assert.Equal(t, "insufficient_balance", check.Reason)
		assert.Equal(t, "会员卡余额不足，当前余额 ¥50.00，需要 ¥80.00", check.Message)
		require.NotNil(t, check.Card)
		n, err := testutil.GatherAndCount(f.metrics.Registry(), "tuina_clinic_membership_charge_rejections_total")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("editing on the same card adds back the original fee", func(t *testing.T) {
		f := newMembershipFixture(t)
		f.cards.On("GetCardByID", int64(3)).Return(valueCard, nil)

		check, err := f.svc.ValidateCharge(ValidateChargeRequest{
			MembershipCardID: int64Ptr(3), OriginalCardID: int64Ptr(3), ServiceFee: "80", OriginalFee: numPtr("40"),
		})
		require.NoError(t, err)
		assert.True(t, check.Allowed)
	})

	t.Run("membership without card", func(t *testing.T) {
		f := newMembershipFixture(t)
		check, err := f.svc.ValidateCharge(ValidateChargeRequest{ServiceFee: "80"})
		require.NoError(t, err)
		assert.False(t, check.Allowed)
		assert.Equal(t, "requires_card", check.Reason)
		assert.Equal(t, "请选择会员卡", check.Message)
	})

	t.Run("cash skips validation", func(t *testing.T) {
		f := newMembershipFixture(t)
		check, err := f.svc.ValidateCharge(ValidateChargeRequest{PaymentMethod: "cash", ServiceFee: "80"})
		require.NoError(t, err)
		assert.True(t, check.Allowed)
	})

	t.Run("payment method is matched case-insensitively", func(t *testing.T) {
		f := newMembershipFixture(t)
		f.cards.On("GetCardByID", int64(3)).Return(valueCard, nil)

		check, err := f.svc.ValidateCharge(ValidateChargeRequest{PaymentMethod: " Membership ", MembershipCardID: int64Ptr(3), ServiceFee: "30"})
		require.NoError(t, err)
		assert.True(t, check.Allowed)

		_, err = f.svc.ValidateCharge(ValidateChargeRequest{PaymentMethod: "barter", ServiceFee: "30"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("bad fee", func(t *testing.T) {
		f := newMembershipFixture(t)
		_, err := f.svc.ValidateCharge(ValidateChargeRequest{ServiceFee: "abc"})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestMembershipService_ExpireOverdueCards(t *testing.T) {
	f := newMembershipFixture(t)
	today := time.Date(2024, 6, 10, 0, 0, 0, 0, clinicZone)
	overdue := []models.MembershipCard{
		{ID: 1, Status: models.CardStatusActive, ExpiryDate: day(2024, 6, 1)},
		{ID: 2, Status: models.CardStatusActive, ExpiryDate: day(2024, 6, 9)},
	}
	f.cards.On("GetActiveCardsExpiredBefore", today).Return(overdue, nil)
	f.cards.On("GetCardByID", int64(1)).Return(&overdue[0], nil)
	f.cards.On("GetCardByID", int64(2)).Return(&overdue[1], nil)
	f.cards.On("UpdateCardStatus", int64(1), models.CardStatusExpired, mock.Anything).Return(nil)
	f.cards.On("UpdateCardStatus", int64(2), models.CardStatusExpired, mock.Anything).Return(errors.New("boom"))

	expired, err := f.svc.ExpireOverdueCards()
	assert.Equal(t, 1, expired)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "card 2")
}

func TestMembershipService_GetExpiringCards(t *testing.T) {
	f := newMembershipFixture(t)
	today := time.Date(2024, 6, 10, 0, 0, 0, 0, clinicZone)
	f.cards.On("GetActiveCardsExpiringBetween", today, today.AddDate(0, 0, 15)).Return([]models.MembershipCard{
		{ID: 1, CardNumber: "MC1", CustomerID: 4, Status: models.CardStatusActive, ExpiryDate: day(2024, 6, 25), CustomerName: strPtr("小明")},
	}, nil)

	cards, err := f.svc.GetExpiringCards()
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, 15, cards[0].DaysLeft)
	assert.Equal(t, "2024-06-25", cards[0].ExpiryDate)
	assert.Equal(t, "小明", cards[0].CustomerName)
}
