package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"tuina_clinic_backend/internal/metrics"
	"tuina_clinic_backend/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCardSweeper struct {
	mock.Mock
}

func (m *mockCardSweeper) ExpireOverdueCards() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *mockCardSweeper) GetExpiringCards() ([]models.ExpiringCard, error) {
	args := m.Called()
	cards, _ := args.Get(0).([]models.ExpiringCard)
	return cards, args.Error(1)
}

func TestExpirySweeper_RunOnce(t *testing.T) {
	cards := new(mockCardSweeper)
	cards.On("ExpireOverdueCards").Return(3, nil).Once()
	cards.On("GetExpiringCards").Return([]models.ExpiringCard{{CardID: 7}}, nil).Once()

	m := metrics.New()
	sweeper := NewExpirySweeper(cards, m, time.UTC)
	sweeper.RunOnce()

	cards.AssertExpectations(t)
	n, err := testutil.GatherAndCount(m.Registry(), "tuina_clinic_expiry_sweeper_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestExpirySweeper_RunOnceReportsFailure(t *testing.T) {
	cards := new(mockCardSweeper)
	cards.On("ExpireOverdueCards").Return(1, errors.New("card 9: connection reset")).Once()
	cards.On("GetExpiringCards").Return(nil, nil).Once()

	sweeper := NewExpirySweeper(cards, nil, time.UTC)
	assert.NotPanics(t, sweeper.RunOnce)
	cards.AssertExpectations(t)
}

func TestExpirySweeper_StartRejectsBadSchedule(t *testing.T) {
	sweeper := NewExpirySweeper(new(mockCardSweeper), nil, time.UTC)
	err := sweeper.Start("every now and then")
	assert.Error(t, err)
}

func TestExpirySweeper_StartAndStop(t *testing.T) {
	sweeper := NewExpirySweeper(new(mockCardSweeper), nil, time.UTC)
	require.NoError(t, sweeper.Start("5 0 * * *"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sweeper.Stop(ctx)
}
