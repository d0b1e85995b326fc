// Package premium grants premium status and expires it on schedule.
package premium

import (
	"context"
	"fmt"
	"time"

	"anonpair/backend/internal/logger"
	"anonpair/backend/internal/storage"
)

// Noticer receives the batched expiry notice.
type Noticer interface {
	Notice(text string)
}

// Monitor sweeps expired premium grants.
type Monitor struct {
	store    storage.PremiumStore
	notices  Noticer
	format   func(ids []int64) string
	duration time.Duration
	now      func() time.Time
}

// NewMonitor creates a Monitor. notices may be nil.
func NewMonitor(store storage.PremiumStore, notices Noticer, duration time.Duration) *Monitor {
	return &Monitor{
		store:    store,
		notices:  notices,
		format:   defaultNotice,
		duration: duration,
		now:      time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (m *Monitor) WithClock(now func() time.Time) *Monitor {
	m.now = now
	return m
}

// WithFormatter replaces the notice text builder.
func (m *Monitor) WithFormatter(format func(ids []int64) string) *Monitor {
	m.format = format
	return m
}

// Grant gives userID premium for the configured duration and returns the expiry.
func (m *Monitor) Grant(ctx context.Context, userID int64) (time.Time, error) {
	return m.GrantFor(ctx, userID, m.duration)
}

// GrantFor gives userID premium for d from now.
func (m *Monitor) GrantFor(ctx context.Context, userID int64, d time.Duration) (time.Time, error) {
	if d <= 0 {
		return time.Time{}, fmt.Errorf("premium duration must be positive, got %s", d)
	}
	until := m.now().Add(d).UTC()
	if err := m.store.GrantPremium(ctx, userID, until); err != nil {
		return time.Time{}, err
	}
	logger.Info("premium granted", "user", userID, "until", until)
	return until, nil
}

// Revoke clears premium for userID immediately.
func (m *Monitor) Revoke(ctx context.Context, userID int64) error {
	if err := m.store.RevokePremium(ctx, userID); err != nil {
		return err
	}
	logger.Info("premium revoked", "user", userID)
	return nil
}

// Sweep clears premium for every user whose expiry has passed and returns
// how many were affected. A single notice lists them all.
func (m *Monitor) Sweep(ctx context.Context) (int, error) {
	ids, err := m.store.ExpirePremium(ctx, m.now())
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	logger.Info("premium expired", "count", len(ids), "users", ids)
	if m.notices != nil {
		m.notices.Notice(m.format(ids))
	}
	return len(ids), nil
}

// Run sweeps every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("premium monitor started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			logger.Info("premium monitor stopped")
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				logger.Error("premium sweep failed", "err", err)
			}
		}
	}
}

func defaultNotice(ids []int64) string {
	return fmt.Sprintf("Premium expired for %d user(s): %v", len(ids), ids)
}
