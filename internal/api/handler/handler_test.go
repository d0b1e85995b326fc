package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"anonpair/backend/internal/chathub"
	"anonpair/backend/internal/config"
	"anonpair/backend/internal/models"
	"anonpair/backend/internal/oversight"
	"anonpair/backend/internal/storage"
)

const testPassword = "correct horse"

type testEnv struct {
	h     *Handler
	r     *gin.Engine
	store *storage.Service
	mgr   *chathub.Manager
	feed  *oversight.Feed
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, storage.Migrate(db))
	store := storage.NewStorageService(db, nil)

	var seq int
	pool := chathub.NewWaitingPool()
	registry := chathub.NewRoomRegistry(pool, store, func() string {
		seq++
		return fmt.Sprintf("room%04d", seq)
	})
	mgr := chathub.NewManager(chathub.Deps{
		Pool:     pool,
		Registry: registry,
		Matcher:  chathub.NewMatcher(pool, registry, store),
		Profiles: store,
		ChatLog:  store,
	})

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := &config.Config{}
	cfg.HTTP.JWTSecret = "test-secret"
	cfg.HTTP.AdminPasswordHash = string(hash)

	feed := oversight.NewFeed()
	t.Cleanup(feed.Close)
	h := NewHandler(store, mgr, feed, cfg)
	return &testEnv{h: h, r: h.Router(), store: store, mgr: mgr, feed: feed}
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/admin/login", `{"password":"`+testPassword+`"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	e := setup(t)
	w := e.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestLogin(t *testing.T) {
	e := setup(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing password", `{}`, http.StatusBadRequest},
		{"malformed body", `{`, http.StatusBadRequest},
		{"wrong password", `{"password":"nope"}`, http.StatusUnauthorized},
		{"correct password", `{"password":"` + testPassword + `"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, http.MethodPost, "/admin/login", tt.body, "")
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestLogin_NotConfigured(t *testing.T) {
	e := setup(t)
	e.h.passwordHash = nil
	w := e.do(t, http.MethodPost, "/admin/login", `{"password":"x"}`, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAuthMiddleware(t *testing.T) {
	e := setup(t)
	token := e.login(t)

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/admin/stats", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/admin/stats", "", "garbage").Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/admin/stats", "", token).Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/admin/stats?token="+token, "", "").Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("Authorization", "Basic abc")
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A token signed with another secret is rejected.
	other := *e.h
	other.jwtSecret = []byte("other-secret")
	forged, _, err := other.generateJWT()
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/admin/stats", "", forged).Code)

	// Tokens expire.
	e.h.now = func() time.Time { return time.Now().Add(tokenTTL + time.Minute) }
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/admin/stats", "", token).Code)
}

func TestStats(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	token := e.login(t)

	_, _, err := e.store.EnsureProfile(ctx, 1, "a", "A")
	require.NoError(t, err)
	_, _, err = e.store.EnsureProfile(ctx, 2, "b", "B")
	require.NoError(t, err)
	_, err = e.mgr.Registry().CreateRoom(ctx, 1, 2)
	require.NoError(t, err)
	require.NoError(t, e.mgr.Registry().Enqueue(chathub.FindRequest{UserID: 3}))

	w := e.do(t, http.MethodGet, "/admin/stats", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 2, body["users"])
	assert.EqualValues(t, 1, body["active_rooms"])
	assert.EqualValues(t, 1, body["live_rooms"])
	assert.EqualValues(t, 1, body["waiting"])
	assert.EqualValues(t, 0, body["oversight_clients"])
}

func TestPool(t *testing.T) {
	e := setup(t)
	token := e.login(t)

	require.NoError(t, e.mgr.Registry().Enqueue(chathub.FindRequest{UserID: 7}))
	require.NoError(t, e.mgr.Registry().Enqueue(chathub.FindRequest{
		UserID:         8,
		Filters:        models.SearchFilters{Gender: "female"},
		RequirePremium: true,
	}))

	w := e.do(t, http.MethodGet, "/admin/pool", "", token)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count   int `json:"count"`
		Entries []struct {
			UserID         int64             `json:"user_id"`
			Filters        map[string]string `json:"filters"`
			RequirePremium bool              `json:"require_premium"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)

	byID := map[int64]int{}
	for i, en := range resp.Entries {
		byID[en.UserID] = i
	}
	plain := resp.Entries[byID[7]]
	assert.Nil(t, plain.Filters)
	filtered := resp.Entries[byID[8]]
	assert.Equal(t, map[string]string{"gender": "female"}, filtered.Filters)
	assert.True(t, filtered.RequirePremium)
}

func TestRoomAndHistory(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	token := e.login(t)

	roomID, err := e.mgr.Registry().CreateRoom(ctx, 1, 2)
	require.NoError(t, err)
	require.NoError(t, e.store.AppendChatLog(ctx, &models.ChatHistory{
		RoomID: roomID, SenderID: 1, RecipientID: 2, Kind: models.KindText, Text: "hi", SentAt: time.Now(),
	}))
	require.NoError(t, e.store.AppendChatLog(ctx, &models.ChatHistory{
		RoomID: roomID, SenderID: 2, RecipientID: 1, Kind: models.KindPhoto, FileRef: "ph", SentAt: time.Now(),
	}))

	w := e.do(t, http.MethodGet, "/admin/rooms/"+roomID, "", token)
	require.Equal(t, http.StatusOK, w.Code)
	room := decode(t, w)
	assert.Equal(t, roomID, room["room_id"])
	assert.Equal(t, true, room["is_active"])

	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/admin/rooms/missing", "", token).Code)

	w = e.do(t, http.MethodGet, "/admin/rooms/"+roomID+"/history", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	var hist struct {
		RoomID   string `json:"room_id"`
		Messages []struct {
			SenderID int64  `json:"sender_id"`
			Kind     string `json:"kind"`
			Text     string `json:"text"`
			FileRef  string `json:"file_ref"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	assert.Equal(t, roomID, hist.RoomID)
	assert.Len(t, hist.Messages, 2)

	assert.Equal(t, http.StatusBadRequest,
		e.do(t, http.MethodGet, "/admin/rooms/"+roomID+"/history?limit=0", "", token).Code)
}

func TestReports(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	token := e.login(t)

	report := &models.Report{ReporterID: 1, ReportedID: 2, RoomID: "room0001", Reason: "spam"}
	require.NoError(t, e.store.SaveReport(ctx, report))
	require.NotEmpty(t, report.ReportID)

	w := e.do(t, http.MethodGet, "/admin/reports", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = e.do(t, http.MethodPost, "/admin/reports/"+report.ReportID+"/review", "", token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/admin/reports", "", token)
	assert.EqualValues(t, 0, decode(t, w)["count"])
	w = e.do(t, http.MethodGet, "/admin/reports?all=true", "", token)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = e.do(t, http.MethodPost, "/admin/reports/missing/review", "", token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOversightWebSocket(t *testing.T) {
	e := setup(t)
	token := e.login(t)

	srv := httptest.NewServer(e.r)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/oversight/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return e.feed.Clients() == 1 }, time.Second, 10*time.Millisecond)

	e.feed.Broadcast(oversight.Event{Type: "notice", Text: "hello admins", At: time.Now()})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev oversight.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "notice", ev.Type)
	assert.Equal(t, "hello admins", ev.Text)
}
