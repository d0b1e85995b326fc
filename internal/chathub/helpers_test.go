package chathub_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"anonpair/backend/internal/chathub"
	"anonpair/backend/internal/models"
)

// fakeStore is an in-memory ProfileStore, RoomStore and ChatLogStore.
type fakeStore struct {
	mu       sync.Mutex
	profiles map[int64]*models.User
	rooms    map[string]*models.ChatRoom
	logs     []models.ChatHistory

	profileErr error
	insertErr  error
	logErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: make(map[int64]*models.User),
		rooms:    make(map[string]*models.ChatRoom),
	}
}

func (s *fakeStore) addUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := u
	s.profiles[u.ID] = &cp
}

func (s *fakeStore) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	u, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) EnsureProfile(ctx context.Context, userID int64, username, name string) (*models.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.profiles[userID]; ok {
		cp := *u
		return &cp, false, nil
	}
	u := &models.User{ID: userID, Username: username, Name: name}
	s.profiles[userID] = u
	cp := *u
	return &cp, true, nil
}

func (s *fakeStore) UpsertProfile(ctx context.Context, userID int64, fields map[string]any) error {
	return errors.New("not implemented")
}

func (s *fakeStore) SetBlocked(ctx context.Context, userID int64, blocked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.profiles[userID]; ok {
		u.Blocked = blocked
	}
	return nil
}

func (s *fakeStore) InsertRoom(ctx context.Context, room *models.ChatRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	if _, ok := s.rooms[room.RoomID]; ok {
		return fmt.Errorf("duplicate room %s", room.RoomID)
	}
	cp := *room
	s.rooms[room.RoomID] = &cp
	return nil
}

func (s *fakeStore) GetRoom(ctx context.Context, roomID string) (*models.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *fakeStore) UpdateRoom(ctx context.Context, roomID string, fields map[string]any) error {
	return nil
}

func (s *fakeStore) DeleteRoom(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
	return nil
}

func (s *fakeStore) CloseRoom(ctx context.Context, roomID string, endedAt time.Time, messageCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[roomID]; ok {
		r.IsActive = false
		r.EndedAt = &endedAt
		r.MessageCount = messageCount
	}
	return nil
}

func (s *fakeStore) GetActiveRooms(ctx context.Context) ([]models.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ChatRoom
	for _, r := range s.rooms {
		if r.IsActive {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out, nil
}

func (s *fakeStore) AppendChatLog(ctx context.Context, entry *models.ChatHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logErr != nil {
		return s.logErr
	}
	s.logs = append(s.logs, *entry)
	return nil
}

func (s *fakeStore) QueryChatLog(ctx context.Context, roomID string, limit int) ([]models.ChatHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ChatHistory
	for _, h := range s.logs {
		if h.RoomID == roomID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *fakeStore) logCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}

// sent is one outbound call seen by fakeTransport.
type sent struct {
	To      int64
	Method  string
	Text    string
	Content models.Content
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (t *fakeTransport) SendText(ctx context.Context, to int64, text string) error {
	return t.record(sent{To: to, Method: "text", Text: text})
}

func (t *fakeTransport) SendMedia(ctx context.Context, to int64, c models.Content) error {
	return t.record(sent{To: to, Method: "media", Text: c.Text, Content: c})
}

func (t *fakeTransport) CopyMessage(ctx context.Context, to int64, fromChat int64, messageID int) error {
	return t.record(sent{To: to, Method: "copy", Content: models.Content{SourceChatID: fromChat, SourceMessageID: messageID}})
}

func (t *fakeTransport) record(s sent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, s)
	return nil
}

func (t *fakeTransport) calls() []sent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]sent(nil), t.sent...)
}

type fakeMirror struct {
	mu      sync.Mutex
	records []models.ChatHistory
}

func (m *fakeMirror) MirrorRelay(room models.ChatRoom, record models.ChatHistory, content models.Content) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
}

func (m *fakeMirror) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type notice struct {
	Kind    string
	User    int64
	Partner int64
	Room    string
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (n *fakeNotifier) Matched(ctx context.Context, userID, partnerID int64, roomID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{Kind: "matched", User: userID, Partner: partnerID, Room: roomID})
	return nil
}

func (n *fakeNotifier) PartnerLeft(ctx context.Context, userID int64, roomID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{Kind: "left", User: userID, Room: roomID})
	return nil
}

func (n *fakeNotifier) SearchDropped(ctx context.Context, userID int64, status chathub.FindStatus) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{Kind: "dropped:" + string(status), User: userID})
	return nil
}

func (n *fakeNotifier) all() []notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notice(nil), n.notices...)
}

type stubFilter struct {
	words []string
	err   error
}

func (f stubFilter) Contains(ctx context.Context, text string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, w := range f.words {
		if strings.Contains(strings.ToLower(text), strings.ToLower(w)) {
			return true, nil
		}
	}
	return false, nil
}

// sequentialIDs returns room ids room0001, room0002, ...
func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("room%04d", n.Add(1))
	}
}

// firstPicker always takes the lowest id among eligible candidates.
func firstPicker(n int) int { return 0 }

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// harness wires a Manager with in-memory collaborators.
type harness struct {
	store     *fakeStore
	transport *fakeTransport
	mirror    *fakeMirror
	notifier  *fakeNotifier
	clock     *clock
	pool      *chathub.WaitingPool
	registry  *chathub.RoomRegistry
	matcher   *chathub.Matcher
	manager   *chathub.Manager
}

type limiterFunc struct {
	allow  func(int64) bool
	forget func(int64)
}

func (l limiterFunc) Allow(id int64) bool { return l.allow(id) }
func (l limiterFunc) Forget(id int64) {
	if l.forget != nil {
		l.forget(id)
	}
}

func newHarness(limiter chathub.RateLimiter, filter chathub.ContentFilter) *harness {
	h := &harness{
		store:     newFakeStore(),
		transport: &fakeTransport{},
		mirror:    &fakeMirror{},
		notifier:  &fakeNotifier{},
		clock:     newClock(),
	}
	h.pool = chathub.NewWaitingPool()
	h.registry = chathub.NewRoomRegistry(h.pool, h.store, sequentialIDs()).WithClock(h.clock.Now)
	h.matcher = chathub.NewMatcher(h.pool, h.registry, h.store).WithPicker(firstPicker).WithClock(h.clock.Now)
	if limiter == nil {
		limiter = limiterFunc{allow: func(int64) bool { return true }}
	}
	h.manager = chathub.NewManager(chathub.Deps{
		Pool:      h.pool,
		Registry:  h.registry,
		Matcher:   h.matcher,
		Profiles:  h.store,
		ChatLog:   h.store,
		Filter:    filter,
		Limiter:   limiter,
		Transport: h.transport,
		Mirror:    h.mirror,
		Notifier:  h.notifier,
	}).WithClock(h.clock.Now)
	return h
}

// users registers plain profiles for the given ids.
func (h *harness) users(ids ...int64) {
	for _, id := range ids {
		h.store.addUser(models.User{ID: id})
	}
}
