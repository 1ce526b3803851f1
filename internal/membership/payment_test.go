package membership

import (
	"errors"
	"testing"

	"tuina_clinic_backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidateCharge(t *testing.T) {
	valueCard := &models.MembershipCard{ID: 1, CardType: models.CardTypeValue, Status: models.CardStatusActive, Balance: dec("100")}
	mixedCard := &models.MembershipCard{ID: 2, CardType: models.CardTypeMixed, Status: models.CardStatusActive, Balance: dec("20"), RemainingCount: 5}
	periodCard := &models.MembershipCard{ID: 3, CardType: models.CardTypePeriod, Status: models.CardStatusActive}
	emptyCountCard := &models.MembershipCard{ID: 4, CardType: models.CardTypeCount, Status: models.CardStatusActive, RemainingCount: 0}

	tests := []struct {
		name        string
		card        *models.MembershipCard
		fee         string
		originalFee string
		sameCard    bool
		wantErr     error
	}{
		{"no card", nil, "50", "0", false, ErrRequiresCard},
		{"frozen card", &models.MembershipCard{CardType: models.CardTypeValue, Status: models.CardStatusFrozen, Balance: dec("500")}, "50", "0", false, ErrInvalidCard},
		{"expired card", &models.MembershipCard{CardType: models.CardTypePeriod, Status: models.CardStatusExpired}, "50", "0", false, ErrInvalidCard},
		{"value card insufficient", valueCard, "150", "0", false, ErrInsufficientBalance},
		{"value card exact balance", valueCard, "100", "0", false, nil},
		{"edit on same card adds back original fee", valueCard, "150", "80", true, nil},
		{"edit on another card ignores original fee", valueCard, "150", "80", false, ErrInsufficientBalance},
		{"mixed card checks balance", mixedCard, "30", "0", false, ErrInsufficientBalance},
		{"period card never checks balance", periodCard, "9999", "0", false, nil},
		{"count card leaves count to the server", emptyCountCard, "80", "0", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCharge(tt.card, dec(tt.fee), dec(tt.originalFee), tt.sameCard)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateCharge_InsufficientBalanceMessage(t *testing.T) {
	card := &models.MembershipCard{CardType: models.CardTypeValue, Status: models.CardStatusActive, Balance: dec("100")}

	err := ValidateCharge(card, dec("150"), decimal.Zero, false)
	require.Error(t, err)

	var chargeErr *ChargeError
	require.True(t, errors.As(err, &chargeErr))
	assert.Equal(t, ChargeInsufficientBalance, chargeErr.Kind)
	assert.True(t, chargeErr.Available.Equal(dec("100")))
	assert.True(t, chargeErr.Required.Equal(dec("150")))
	assert.Equal(t, "会员卡余额不足，当前余额 ¥100.00，需要 ¥150.00", err.Error())
}

func TestValidateCharge_Messages(t *testing.T) {
	assert.Equal(t, "请选择会员卡", ErrRequiresCard.Error())
	assert.Equal(t, "会员卡状态异常，无法使用", ErrInvalidCard.Error())
	assert.False(t, errors.Is(ErrRequiresCard, ErrInvalidCard))
}

func TestValidatePayment(t *testing.T) {
	card := &models.MembershipCard{CardType: models.CardTypeValue, Status: models.CardStatusActive, Balance: dec("10")}

	t.Run("cash skips validation", func(t *testing.T) {
		assert.NoError(t, ValidatePayment(models.PaymentCash, nil, dec("100"), decimal.Zero, false, testNow))
		assert.NoError(t, ValidatePayment(models.PaymentWechat, card, dec("100"), decimal.Zero, false, testNow))
	})

	t.Run("membership without card", func(t *testing.T) {
		err := ValidatePayment(models.PaymentMembership, nil, dec("100"), decimal.Zero, false, testNow)
		assert.ErrorIs(t, err, ErrRequiresCard)
	})

	t.Run("membership balance check", func(t *testing.T) {
		err := ValidatePayment(models.PaymentMembership, card, dec("100"), decimal.Zero, false, testNow)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})

	t.Run("active card past expiry", func(t *testing.T) {
		lapsed := &models.MembershipCard{CardType: models.CardTypePeriod, Status: models.CardStatusActive, ExpiryDate: daysFromNow(-2)}
		err := ValidatePayment(models.PaymentMembership, lapsed, dec("100"), decimal.Zero, false, testNow)
		assert.ErrorIs(t, err, ErrInvalidCard)
	})

	t.Run("active card expiring today", func(t *testing.T) {
		lastDay := &models.MembershipCard{CardType: models.CardTypePeriod, Status: models.CardStatusActive, ExpiryDate: daysFromNow(0)}
		assert.NoError(t, ValidatePayment(models.PaymentMembership, lastDay, dec("100"), decimal.Zero, false, testNow))
	})
}
