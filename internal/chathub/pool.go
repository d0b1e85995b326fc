package chathub

import (
	"sort"
	"sync"
	"time"

	"anonpair/backend/internal/models"
)

// FindRequest is a user's search as it waits in the pool.
type FindRequest struct {
	UserID int64
	// Filters restricts which partners are acceptable. Empty means anyone.
	Filters models.SearchFilters
	// RequirePremium restricts partners to users with active premium.
	RequirePremium bool
}

// Filtered reports whether the request uses a premium-only feature.
func (r FindRequest) Filtered() bool {
	return r.RequirePremium || !r.Filters.IsEmpty()
}

// PoolEntry is a queued request with the time it entered the pool.
type PoolEntry struct {
	FindRequest
	QueuedAt time.Time
}

// WaitingPool is the set of users waiting for a partner.
// It does not know about rooms; RoomRegistry keeps the two disjoint.
type WaitingPool struct {
	mu      sync.RWMutex
	entries map[int64]PoolEntry
	now     func() time.Time
}

func NewWaitingPool() *WaitingPool {
	return &WaitingPool{
		entries: make(map[int64]PoolEntry),
		now:     time.Now,
	}
}

// Add queues the request. Adding a user twice replaces the stored request
// and keeps the original queue time.
func (p *WaitingPool) Add(req FindRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry := PoolEntry{FindRequest: req, QueuedAt: p.now()}
	if old, ok := p.entries[req.UserID]; ok {
		entry.QueuedAt = old.QueuedAt
	}
	p.entries[req.UserID] = entry
}

// Remove drops the user and reports whether they were queued.
func (p *WaitingPool) Remove(userID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.entries[userID]
	delete(p.entries, userID)
	return ok
}

// take removes the user and returns the entry they were queued with.
func (p *WaitingPool) take(userID int64) (PoolEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[userID]
	delete(p.entries, userID)
	return e, ok
}

// restore puts back an entry removed by take, keeping its queue time. A user
// who queued again in the meantime keeps the newer request.
func (p *WaitingPool) restore(e PoolEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.entries[e.UserID]; !ok {
		p.entries[e.UserID] = e
	}
}

func (p *WaitingPool) Contains(userID int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.entries[userID]
	return ok
}

// Request returns the stored search of a queued user.
func (p *WaitingPool) Request(userID int64) (FindRequest, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	e, ok := p.entries[userID]
	return e.FindRequest, ok
}

// Snapshot returns the queued user ids in no particular order.
func (p *WaitingPool) Snapshot() []int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]int64, 0, len(p.entries))
	for id := range p.entries {
		ids = append(ids, id)
	}
	return ids
}

// Entries returns the queued requests, oldest first.
func (p *WaitingPool) Entries() []PoolEntry {
	p.mu.RLock()
	out := make([]PoolEntry, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e)
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].QueuedAt.Equal(out[j].QueuedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].QueuedAt.Before(out[j].QueuedAt)
	})
	return out
}

func (p *WaitingPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}
