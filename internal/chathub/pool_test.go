package chathub_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"anonpair/backend/internal/chathub"
	"anonpair/backend/internal/models"
)

func TestWaitingPool_Idempotent(t *testing.T) {
	p := chathub.NewWaitingPool()

	p.Add(chathub.FindRequest{UserID: 1})
	p.Add(chathub.FindRequest{UserID: 1})
	p.Add(chathub.FindRequest{UserID: 2})

	assert.Equal(t, 2, p.Len(), "pool is a set")
	assert.ElementsMatch(t, []int64{1, 2}, p.Snapshot())

	assert.True(t, p.Remove(1))
	assert.False(t, p.Remove(1), "second remove is a no-op")
	assert.False(t, p.Contains(1))
	assert.True(t, p.Contains(2))
}

func TestWaitingPool_RequestReplaced(t *testing.T) {
	p := chathub.NewWaitingPool()

	p.Add(chathub.FindRequest{UserID: 5})
	first := p.Entries()[0].QueuedAt

	p.Add(chathub.FindRequest{UserID: 5, Filters: models.SearchFilters{Region: "Asia"}})

	req, ok := p.Request(5)
	assert.True(t, ok)
	assert.Equal(t, "Asia", req.Filters.Region)
	assert.True(t, req.Filtered())
	assert.Equal(t, first, p.Entries()[0].QueuedAt, "re-adding keeps the queue position")

	_, ok = p.Request(6)
	assert.False(t, ok)
}

func TestFindRequest_Filtered(t *testing.T) {
	assert.False(t, chathub.FindRequest{UserID: 1}.Filtered())
	assert.True(t, chathub.FindRequest{UserID: 1, RequirePremium: true}.Filtered())
	assert.True(t, chathub.FindRequest{UserID: 1, Filters: models.SearchFilters{Gender: "male"}}.Filtered())
}
