package chathub

import (
	"context"
	"errors"
	"time"

	"anonpair/backend/internal/logger"
	"anonpair/backend/internal/models"
	"anonpair/backend/internal/storage"
)

// maxFindAttempts bounds retries when picked candidates are taken by
// concurrent searches.
const maxFindAttempts = 64

type FindStatus string

const (
	FindMatched         FindStatus = "matched"
	FindQueued          FindStatus = "queued"
	FindAlreadyInRoom   FindStatus = "already_in_room"
	FindBlocked         FindStatus = "blocked"
	FindPremiumRequired FindStatus = "premium_required"
	FindProfileMissing  FindStatus = "profile_missing"
	FindFailed          FindStatus = "failed"
)

// FindResult is the outcome of a search for the requesting user.
type FindResult struct {
	Status    FindStatus
	RoomID    string
	PartnerID int64
	Err       error
}

type EndStatus string

const (
	EndClosed    EndStatus = "closed"
	EndNotInRoom EndStatus = "not_in_room"
	EndFailed    EndStatus = "failed"
)

type EndResult struct {
	Status    EndStatus
	Room      *models.ChatRoom
	PartnerID int64
	Err       error
}

// Deps are the collaborators of a Manager.
type Deps struct {
	Pool      *WaitingPool
	Registry  *RoomRegistry
	Matcher   *Matcher
	Profiles  storage.ProfileStore
	ChatLog   storage.ChatLogStore
	Filter    ContentFilter
	Limiter   RateLimiter
	Transport Transport
	Mirror    Mirror
	Notifier  Notifier
}

// Manager drives matchmaking, room lifecycle and the relay pipeline.
type Manager struct {
	pool      *WaitingPool
	registry  *RoomRegistry
	matcher   *Matcher
	profiles  storage.ProfileStore
	chatLog   storage.ChatLogStore
	filter    ContentFilter
	limiter   RateLimiter
	transport Transport
	mirror    Mirror
	notifier  Notifier
	now       func() time.Time
}

func NewManager(d Deps) *Manager {
	return &Manager{
		pool:      d.Pool,
		registry:  d.Registry,
		matcher:   d.Matcher,
		profiles:  d.Profiles,
		chatLog:   d.ChatLog,
		filter:    d.Filter,
		limiter:   d.Limiter,
		transport: d.Transport,
		mirror:    d.Mirror,
		notifier:  d.Notifier,
		now:       time.Now,
	}
}

// SetNotifier wires the notifier after construction. The bot service needs
// the manager before it can act as notifier.
func (m *Manager) SetNotifier(n Notifier) { m.notifier = n }

// SetTransport wires the outbound transport after construction.
func (m *Manager) SetTransport(t Transport) { m.transport = t }

// WithClock replaces the time source. Used by tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) Pool() *WaitingPool { return m.pool }

func (m *Manager) Registry() *RoomRegistry { return m.registry }

// Find pairs the user with a waiting partner or queues them.
// Filtered searches require active premium.
func (m *Manager) Find(ctx context.Context, req FindRequest) FindResult {
	log := logger.With("op", "find", "user", req.UserID)

	if m.registry.Busy(req.UserID) {
		return FindResult{Status: FindAlreadyInRoom}
	}

	status, err := m.admit(ctx, req)
	if err != nil {
		log.Error("profile lookup failed", "err", err)
		return FindResult{Status: FindFailed, Err: err}
	}
	if status != "" {
		log.Debug("search refused", "status", status)
		return FindResult{Status: status}
	}

	for attempt := 0; attempt < maxFindAttempts; attempt++ {
		partner, found, err := m.matcher.FindPartner(ctx, req.UserID, req.Filters, req.RequirePremium)
		if err != nil {
			log.Error("matcher failed", "err", err)
			return FindResult{Status: FindFailed, Err: err}
		}
		if !found {
			break
		}

		roomID, err := m.registry.CreateMatch(ctx, req.UserID, partner)
		switch {
		case err == nil:
			m.notifyMatched(ctx, partner, req.UserID, roomID)
			return FindResult{Status: FindMatched, RoomID: roomID, PartnerID: partner}
		case errors.Is(err, ErrCandidateGone):
			continue
		case errors.Is(err, ErrAlreadyInRoom):
			if m.registry.Busy(req.UserID) {
				return FindResult{Status: FindAlreadyInRoom}
			}
			log.Error("pooled candidate already in a room", "candidate", partner, "err", err)
			continue
		default:
			log.Error("room creation failed", "candidate", partner, "err", err)
			return FindResult{Status: FindFailed, Err: err}
		}
	}

	if err := m.registry.Enqueue(req); err != nil {
		return FindResult{Status: FindAlreadyInRoom}
	}
	log.Debug("queued", "pool", m.pool.Len())
	return FindResult{Status: FindQueued}
}

// Cancel removes the user from the waiting pool.
func (m *Manager) Cancel(userID int64) bool {
	return m.pool.Remove(userID)
}

// End closes the user's room and tells the partner.
func (m *Manager) End(ctx context.Context, userID int64) EndResult {
	roomID, ok := m.registry.RoomFor(userID)
	if !ok {
		return EndResult{Status: EndNotInRoom}
	}

	room, err := m.registry.CloseRoom(ctx, roomID)
	if err != nil {
		logger.Error("close room failed", "room", roomID, "user", userID, "err", err)
		return EndResult{Status: EndFailed, Err: err}
	}
	if room == nil {
		// closed concurrently by the partner
		return EndResult{Status: EndNotInRoom}
	}

	partner, _ := room.Partner(userID)
	if m.limiter != nil {
		m.limiter.Forget(userID)
		m.limiter.Forget(partner)
	}
	if partner != 0 && m.notifier != nil {
		if err := m.notifier.PartnerLeft(ctx, partner, roomID); err != nil {
			logger.Warn("partner left notice failed", "user", partner, "err", err)
		}
	}
	return EndResult{Status: EndClosed, Room: room, PartnerID: partner}
}

// Next ends the current room, if any, and searches again with req.
func (m *Manager) Next(ctx context.Context, req FindRequest) (EndResult, FindResult) {
	end := m.End(ctx, req.UserID)
	if end.Status == EndFailed {
		return end, FindResult{Status: FindFailed, Err: end.Err}
	}
	return end, m.Find(ctx, req)
}

// Evict takes a user out of matchmaking entirely: pool and room.
func (m *Manager) Evict(ctx context.Context, userID int64) EndResult {
	m.pool.Remove(userID)
	return m.End(ctx, userID)
}

// Rematch retries every waiting request against the rest of the pool and
// returns the number of rooms created.
func (m *Manager) Rematch(ctx context.Context) int {
	created := 0
	for _, entry := range m.pool.Entries() {
		if ctx.Err() != nil {
			return created
		}
		if !m.pool.Contains(entry.UserID) {
			continue
		}

		status, err := m.admit(ctx, entry.FindRequest)
		if err != nil {
			logger.Warn("rematch profile lookup failed", "user", entry.UserID, "err", err)
			continue
		}
		if status != "" {
			// Blocked or premium lapsed while waiting.
			m.pool.Remove(entry.UserID)
			m.notifyDropped(ctx, entry.UserID, status)
			continue
		}

		partner, found, err := m.matcher.FindPartner(ctx, entry.UserID, entry.Filters, entry.RequirePremium)
		if err != nil {
			logger.Warn("rematch lookup failed", "user", entry.UserID, "err", err)
			continue
		}
		if !found {
			continue
		}

		roomID, err := m.registry.CreateMatch(ctx, entry.UserID, partner)
		if err != nil {
			if !errors.Is(err, ErrCandidateGone) {
				logger.Warn("rematch room creation failed", "user", entry.UserID, "err", err)
			}
			continue
		}

		created++
		m.notifyMatched(ctx, entry.UserID, partner, roomID)
		m.notifyMatched(ctx, partner, entry.UserID, roomID)
	}
	return created
}

// Run retries pooled users on a fixed interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	logger.Info("matcher loop started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("matcher loop stopped")
			return
		case <-ticker.C:
			if m.pool.Len() < 2 {
				continue
			}
			if n := m.Rematch(ctx); n > 0 {
				logger.Info("background rematch", "rooms", n)
			}
		}
	}
}

// Restore reloads rooms that were active when the process last stopped.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	return m.registry.Restore(ctx)
}

// admit checks whether req may search right now. It returns an empty status
// when it may, or the refusal to report. A blocked user also leaves the pool.
func (m *Manager) admit(ctx context.Context, req FindRequest) (FindStatus, error) {
	profile, err := m.profiles.GetProfile(ctx, req.UserID)
	if err != nil {
		return FindFailed, err
	}
	if profile == nil {
		return FindProfileMissing, nil
	}
	if profile.Blocked {
		m.pool.Remove(req.UserID)
		return FindBlocked, nil
	}
	if req.Filtered() && !profile.PremiumActive(m.now()) {
		return FindPremiumRequired, nil
	}
	return "", nil
}

func (m *Manager) notifyDropped(ctx context.Context, userID int64, status FindStatus) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.SearchDropped(ctx, userID, status); err != nil {
		logger.Warn("search drop notice failed", "user", userID, "err", err)
	}
}

func (m *Manager) notifyMatched(ctx context.Context, userID, partnerID int64, roomID string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Matched(ctx, userID, partnerID, roomID); err != nil {
		logger.Warn("match notice failed", "user", userID, "room", roomID, "err", err)
	}
}
