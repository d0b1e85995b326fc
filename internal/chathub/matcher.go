package chathub

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"anonpair/backend/internal/logger"
	"anonpair/backend/internal/models"
	"anonpair/backend/internal/storage"
)

// roomIndex is the part of RoomRegistry the matcher reads.
type roomIndex interface {
	RoomFor(userID int64) (string, bool)
}

// Matcher picks a partner for a user from the waiting pool.
// It never mutates the pool or the room index.
type Matcher struct {
	pool     *WaitingPool
	rooms    roomIndex
	profiles storage.ProfileStore
	pick     func(n int) int
	now      func() time.Time
}

// NewMatcher creates a Matcher that picks uniformly at random among eligible candidates.
func NewMatcher(pool *WaitingPool, rooms roomIndex, profiles storage.ProfileStore) *Matcher {
	return &Matcher{
		pool:     pool,
		rooms:    rooms,
		profiles: profiles,
		pick:     rand.IntN,
		now:      time.Now,
	}
}

// WithPicker replaces the random source. pick(n) must return a value in [0, n).
func (m *Matcher) WithPicker(pick func(n int) int) *Matcher {
	m.pick = pick
	return m
}

// WithClock replaces the time source used for premium checks.
func (m *Matcher) WithClock(now func() time.Time) *Matcher {
	m.now = now
	return m
}

// FindPartner returns a pooled user that satisfies the request, or found=false
// when nobody does. Candidates are also checked against their own stored
// search, so a filtered waiter is never handed someone they filtered out.
func (m *Matcher) FindPartner(ctx context.Context, requester int64, filters models.SearchFilters, requirePremium bool) (int64, bool, error) {
	eligible, err := m.Eligible(ctx, FindRequest{UserID: requester, Filters: filters, RequirePremium: requirePremium})
	if err != nil {
		return 0, false, err
	}
	if len(eligible) == 0 {
		return 0, false, nil
	}

	i := m.pick(len(eligible))
	if i < 0 || i >= len(eligible) {
		return 0, false, fmt.Errorf("picker returned %d for %d candidates", i, len(eligible))
	}
	return eligible[i], true, nil
}

// Eligible returns every pooled candidate for the request, sorted by id.
func (m *Matcher) Eligible(ctx context.Context, req FindRequest) ([]int64, error) {
	now := m.now()

	var (
		self       *models.User
		selfLoaded bool
	)
	snapshot := m.pool.Snapshot()
	if len(snapshot) == 0 {
		return nil, nil
	}

	var eligible []int64
	for _, candidate := range snapshot {
		if candidate == req.UserID {
			continue
		}
		if _, busy := m.rooms.RoomFor(candidate); busy {
			logger.Warn("pooled user is mapped to a room", "user", candidate)
			continue
		}

		profile, err := m.profiles.GetProfile(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("candidate %d profile: %w", candidate, err)
		}
		if profile == nil || profile.Blocked {
			continue
		}
		if req.RequirePremium && !profile.PremiumActive(now) {
			continue
		}
		if !req.Filters.Matches(profile) {
			continue
		}

		theirs, queued := m.pool.Request(candidate)
		if queued && theirs.Filtered() {
			if !selfLoaded {
				if self, err = m.profiles.GetProfile(ctx, req.UserID); err != nil {
					return nil, fmt.Errorf("requester %d profile: %w", req.UserID, err)
				}
				selfLoaded = true
			}
			if theirs.RequirePremium && !self.PremiumActive(now) {
				continue
			}
			if !theirs.Filters.Matches(self) {
				continue
			}
		}

		eligible = append(eligible, candidate)
	}

	slices.Sort(eligible)
	return eligible, nil
}
