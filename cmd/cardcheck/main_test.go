package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tuina_clinic_backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport(t *testing.T) {
	zone := time.FixedZone("CST", 8*3600)
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, zone)
	soon := time.Date(2024, 6, 20, 0, 0, 0, 0, zone)

	cards := []models.MembershipCard{
		{ID: 1, CardNumber: "MC1", CardType: models.CardTypeValue, Status: models.CardStatusActive, Balance: decimal.NewFromInt(50)},
		{ID: 2, CardNumber: "MC2", CardType: models.CardTypeCount, Status: models.CardStatusActive, RemainingCount: 4, ExpiryDate: &soon},
	}
	fee := decimal.NewFromInt(80)

	var out bytes.Buffer
	require.NoError(t, report(&out, 12, cards, &fee, now))

	text := out.String()
	assert.Contains(t, text, "4次")
	assert.Contains(t, text, "2024-06-20")
	assert.Contains(t, text, "expiring")
	assert.Contains(t, text, "会员卡余额不足")
	assert.Contains(t, text, "membership status active")
}

func TestRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/memberships/customer/7", r.URL.Path)
		_, _ = io.WriteString(w, `{"memberships":[{"id":5,"customer_id":7,"card_number":"MC5","card_type":"period","status":"frozen","balance":"0","unit_price":"0","price_paid":"0","start_date":"2024-01-01T00:00:00Z","created_at":"2024-01-01T00:00:00Z","updated_at":"2024-01-01T00:00:00Z"}]}`)
	}))
	defer srv.Close()

	var out bytes.Buffer
	err := run(context.Background(), options{apiURL: srv.URL + "/api/v1", customerID: 7, fee: "120", timezone: "UTC"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "MC5")
	assert.Contains(t, out.String(), "会员卡状态异常")
	assert.Contains(t, out.String(), "membership status none")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestReport_WriteError(t *testing.T) {
	cards := []models.MembershipCard{{ID: 1, CardType: models.CardTypePeriod, Status: models.CardStatusActive}}
	err := report(failingWriter{}, 1, cards, nil, time.Now())
	assert.ErrorContains(t, err, "disk full")
}

func TestRun_RejectsBadFee(t *testing.T) {
	err := run(context.Background(), options{apiURL: "http://localhost:1", customerID: 1, fee: "-3", timezone: "UTC"}, io.Discard)
	assert.Error(t, err)
}
