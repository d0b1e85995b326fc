// Package handler serves the admin HTTP API.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"anonpair/backend/internal/chathub"
	"anonpair/backend/internal/config"
	"anonpair/backend/internal/logger"
	"anonpair/backend/internal/models"
	"anonpair/backend/internal/oversight"
	"anonpair/backend/internal/storage"
)

const (
	defaultReportLimit = 50
	maxReportLimit     = 500
)

// Handler holds the services the admin endpoints read from.
type Handler struct {
	Store   storage.Storage
	Manager *chathub.Manager
	Feed    *oversight.Feed

	jwtSecret    []byte
	passwordHash []byte
	now          func() time.Time
}

func NewHandler(store storage.Storage, manager *chathub.Manager, feed *oversight.Feed, cfg *config.Config) *Handler {
	return &Handler{
		Store:        store,
		Manager:      manager,
		Feed:         feed,
		jwtSecret:    []byte(cfg.HTTP.JWTSecret),
		passwordHash: []byte(cfg.HTTP.AdminPasswordHash),
		now:          time.Now,
	}
}

// Router builds the gin engine with every admin route.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", h.Health)
	r.POST("/admin/login", h.Login)

	admin := r.Group("/admin", h.AuthMiddleware())
	admin.GET("/stats", h.Stats)
	admin.GET("/pool", h.Pool)
	admin.GET("/rooms/:id", h.Room)
	admin.GET("/rooms/:id/history", h.History)
	admin.GET("/reports", h.Reports)
	admin.POST("/reports/:id/review", h.ReviewReport)
	admin.GET("/oversight/ws", h.ServeOversight)

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type statsResponse struct {
	storage.Stats
	LiveRooms int `json:"live_rooms"`
	Waiting   int `json:"waiting"`
	Oversight int `json:"oversight_clients"`
}

func (h *Handler) Stats(c *gin.Context) {
	st, err := h.Store.Stats(c.Request.Context())
	if err != nil {
		logger.Error("stats failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}
	resp := statsResponse{
		Stats:     st,
		LiveRooms: len(h.Manager.Registry().ActiveRooms()),
		Waiting:   h.Manager.Pool().Len(),
	}
	if h.Feed != nil {
		resp.Oversight = h.Feed.Clients()
	}
	c.JSON(http.StatusOK, resp)
}

type poolEntry struct {
	UserID         int64                 `json:"user_id"`
	Filters        *models.SearchFilters `json:"filters,omitempty"`
	RequirePremium bool                  `json:"require_premium"`
	QueuedAt       time.Time             `json:"queued_at"`
	WaitingFor     string                `json:"waiting_for"`
}

func (h *Handler) Pool(c *gin.Context) {
	now := h.now()
	entries := h.Manager.Pool().Entries()
	out := make([]poolEntry, 0, len(entries))
	for _, e := range entries {
		pe := poolEntry{
			UserID:         e.UserID,
			RequirePremium: e.RequirePremium,
			QueuedAt:       e.QueuedAt,
			WaitingFor:     now.Sub(e.QueuedAt).Round(time.Second).String(),
		}
		if !e.Filters.IsEmpty() {
			f := e.Filters
			pe.Filters = &f
		}
		out = append(out, pe)
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "entries": out})
}

func (h *Handler) Room(c *gin.Context) {
	room, err := h.Manager.Registry().GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		logger.Error("room lookup failed", "room", c.Param("id"), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}
	if room == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, room)
}

type historyEntry struct {
	SenderID    int64     `json:"sender_id"`
	RecipientID int64     `json:"recipient_id"`
	Kind        string    `json:"kind"`
	FileRef     string    `json:"file_ref,omitempty"`
	Text        string    `json:"text,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

func (h *Handler) History(c *gin.Context) {
	limit, ok := parseLimit(c, config.ReportLogLimit)
	if !ok {
		return
	}
	roomID := c.Param("id")
	records, err := h.Store.QueryChatLog(c.Request.Context(), roomID, limit)
	if err != nil {
		logger.Error("history lookup failed", "room", roomID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	out := make([]historyEntry, len(records))
	for i, r := range records {
		out[i] = historyEntry{
			SenderID:    r.SenderID,
			RecipientID: r.RecipientID,
			Kind:        string(r.Kind),
			FileRef:     r.FileRef,
			Text:        r.Text,
			SentAt:      r.SentAt,
		}
	}
	c.JSON(http.StatusOK, gin.H{"room_id": roomID, "messages": out})
}

// Reports lists pending reports, or all of them with ?all=true.
func (h *Handler) Reports(c *gin.Context) {
	limit, ok := parseLimit(c, defaultReportLimit)
	if !ok {
		return
	}
	all, _ := strconv.ParseBool(c.Query("all"))
	reports, err := h.Store.ListReports(c.Request.Context(), !all, limit)
	if err != nil {
		logger.Error("list reports failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(reports), "reports": reports})
}

func (h *Handler) ReviewReport(c *gin.Context) {
	ok, err := h.Store.MarkReportReviewed(c.Request.Context(), c.Param("id"))
	if err != nil {
		logger.Error("review report failed", "report", c.Param("id"), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update report"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"report_id": c.Param("id"), "reviewed": true})
}

func parseLimit(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxReportLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
		return 0, false
	}
	return n, true
}
