package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tuina_clinic_backend/internal/metrics"
	"tuina_clinic_backend/internal/models"
	"tuina_clinic_backend/pkg/utils"

	"github.com/robfig/cron/v3"
)

// CardSweeper is the part of the membership service the sweeper drives.
type CardSweeper interface {
	ExpireOverdueCards() (int, error)
	GetExpiringCards() ([]models.ExpiringCard, error)
}

// ExpirySweeper periodically flips overdue active cards to expired.
type ExpirySweeper struct {
	cards   CardSweeper
	metrics *metrics.Metrics
	cron    *cron.Cron

	mu      sync.Mutex
	running bool
}

// NewExpirySweeper builds a sweeper that evaluates its schedule in loc.
func NewExpirySweeper(cards CardSweeper, m *metrics.Metrics, loc *time.Location) *ExpirySweeper {
	return &ExpirySweeper{
		cards:   cards,
		metrics: m,
		cron:    cron.New(cron.WithLocation(loc)),
	}
}

// Start schedules the sweep and starts the cron runner.
func (s *ExpirySweeper) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	utils.LogInfo("Expiry sweeper started", map[string]interface{}{"schedule": schedule})
	return nil
}

// Stop halts the scheduler and waits for a running sweep until ctx is done.
func (s *ExpirySweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		utils.LogWarn("Expiry sweeper did not finish before shutdown")
	}
}

// RunOnce performs a single sweep. Overlapping runs are skipped.
func (s *ExpirySweeper) RunOnce() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		utils.LogWarn("Expiry sweep already running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	expired, err := s.cards.ExpireOverdueCards()
	s.metrics.SweepFinished(err, expired)
	if err != nil {
		utils.LogError(err, "Expiry sweep finished with errors", map[string]interface{}{"expired": expired})
	} else {
		utils.LogInfo("Expiry sweep finished", map[string]interface{}{"expired": expired, "took": time.Since(start).String()})
	}

	expiring, err := s.cards.GetExpiringCards()
	if err != nil {
		utils.LogError(err, "Failed to list expiring cards after sweep")
		return
	}
	if len(expiring) > 0 {
		utils.LogInfo("Cards entering the renewal window", map[string]interface{}{"count": len(expiring)})
	}
}
