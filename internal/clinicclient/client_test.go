package clinicclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"tuina_clinic_backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cardJSON = `{"id":3,"customer_id":12,"card_number":"MC20240601A1B2C3","card_type":"value","status":"active","balance":"320.50","remaining_count":0,"total_count":0,"unit_price":"0","start_date":"2024-06-01T00:00:00+08:00","price_paid":"500","created_at":"2024-06-01T09:00:00+08:00","updated_at":"2024-06-01T09:00:00+08:00"}`

func TestNormalizeMemberships(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bare array", `[` + cardJSON + `]`},
		{"data envelope", `{"data":[` + cardJSON + `],"aggregate_status":"active","total":1}`},
		{"memberships envelope", `{"memberships":[` + cardJSON + `]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cards, err := NormalizeMemberships([]byte(tt.body))
			require.NoError(t, err)
			require.Len(t, cards, 1)
			assert.Equal(t, int64(3), cards[0].ID)
			assert.Equal(t, models.CardTypeValue, cards[0].CardType)
			assert.True(t, cards[0].Balance.Equal(decimal.RequireFromString("320.5")))
		})
	}
}

func TestNormalizeMemberships_EmptyAndUnknown(t *testing.T) {
	cards, err := NormalizeMemberships([]byte(`{"data":null}`))
	require.NoError(t, err)
	assert.Empty(t, cards)

	cards, err = NormalizeMemberships([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, cards)

	_, err = NormalizeMemberships([]byte(`{"items":[]}`))
	assert.ErrorIs(t, err, ErrUnexpectedShape)

	_, err = NormalizeMemberships([]byte(`  `))
	assert.ErrorIs(t, err, ErrUnexpectedShape)
}

func TestClient_GetCustomerMemberships(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/memberships/customer/12", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"customer_id":12,"data":[`+cardJSON+`],"aggregate_status":"active","total":1}`)
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/api/v1/", WithToken("secret-token"))
	require.NoError(t, err)

	cards, err := c.GetCustomerMemberships(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "MC20240601A1B2C3", cards[0].CardNumber)
}

func TestClient_UpdateCardStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/memberships/3/status", r.URL.Path)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "frozen", payload["status"])
		assert.Equal(t, "travelling", payload["reason"])
		_, _ = io.WriteString(w, cardJSON)
	}))
	defer srv.Close()

	c, err := New(srv.URL + "/api/v1")
	require.NoError(t, err)

	card, err := c.UpdateCardStatus(context.Background(), 3, models.CardStatusFrozen, "travelling")
	require.NoError(t, err)
	assert.Equal(t, int64(3), card.ID)
}

func TestClient_DecodesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":"NOT_FOUND","message":"Customer not found"}}`)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.GetCustomerMemberships(context.Background(), 99)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "Customer not found")
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.GetCustomerMemberships(context.Background(), 1)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
	_, err = New("not a url")
	assert.Error(t, err)
}
