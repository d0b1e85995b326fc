package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"anonpair/backend/internal/api/handler"
	"anonpair/backend/internal/chathub"
	"anonpair/backend/internal/complaint"
	"anonpair/backend/internal/config"
	"anonpair/backend/internal/localization"
	"anonpair/backend/internal/logger"
	"anonpair/backend/internal/moderation"
	"anonpair/backend/internal/oversight"
	"anonpair/backend/internal/premium"
	"anonpair/backend/internal/ratelimit"
	"anonpair/backend/internal/storage"
	"anonpair/backend/internal/telegram"
)

func fatal(msg string, args ...any) {
	logger.Error(msg, args...)
	os.Exit(1)
}

func loadLocalizer(cfg *config.Config) (*localization.Localizer, error) {
	if cfg.Bot.LocalesDir != "" {
		return localization.NewLocalizer(cfg.Bot.LocalesDir)
	}
	return localization.New()
}

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file loaded", "err", err)
	}

	cfg := config.New()
	logger.InitFromConfig(cfg)
	if err := cfg.Validate(); err != nil {
		fatal("invalid configuration", "err", err)
	}
	logger.Info("starting anonpair backend", "db", cfg.DB.Driver, "admins", len(cfg.Bot.AdminIDs))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Storage
	db, err := storage.OpenDB(cfg)
	if err != nil {
		fatal("database unavailable", "err", err)
	}
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = storage.OpenRedis(ctx, cfg)
		if err != nil {
			logger.Warn("redis unavailable, blocked words are read from the database", "err", err)
			rdb = nil
		}
	}
	store := storage.NewStorageService(db, rdb)

	loc, err := loadLocalizer(cfg)
	if err != nil {
		fatal("failed to load translations", "err", err)
	}

	// 2. Telegram transport and oversight
	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		fatal("telegram login failed", "err", err)
	}
	transport := telegram.NewTransport(api)
	feed := oversight.NewFeed()
	mirror := oversight.NewMirror(cfg.Bot.AdminGroupID, transport, store, feed)

	// 3. Chat hub
	newRoomID, err := chathub.NewRoomIDGenerator()
	if err != nil {
		fatal("room id generator", "err", err)
	}
	limiter := ratelimit.NewCooldown(cfg.Relay.Cooldown)
	pool := chathub.NewWaitingPool()
	registry := chathub.NewRoomRegistry(pool, store, newRoomID)
	manager := chathub.NewManager(chathub.Deps{
		Pool:      pool,
		Registry:  registry,
		Matcher:   chathub.NewMatcher(pool, registry, store),
		Profiles:  store,
		ChatLog:   store,
		Filter:    moderation.NewFilter(store),
		Limiter:   limiter,
		Transport: transport,
		Mirror:    mirror,
	})

	monitor := premium.NewMonitor(store, mirror, cfg.Premium.Duration).WithFormatter(oversight.ExpiryNotice)
	reports := complaint.NewService(store, manager, mirror)

	bot := telegram.NewBotService(telegram.Deps{
		API:       api,
		Out:       transport,
		Manager:   manager,
		Store:     store,
		Reports:   reports,
		Premium:   monitor,
		Localizer: loc,
		Config:    cfg,
	})
	manager.SetNotifier(bot)

	restored, err := manager.Restore(ctx)
	if err != nil {
		logger.Error("failed to restore active rooms", "err", err)
	} else if restored > 0 {
		logger.Info("restored active rooms", "rooms", restored)
	}

	// 4. Background loops
	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
			logger.Debug("worker exited", "worker", name)
		}()
	}
	run("oversight", mirror.Run)
	run("matcher", func(ctx context.Context) { manager.Run(ctx, cfg.Matcher.RematchInterval) })
	run("premium", func(ctx context.Context) { monitor.Run(ctx, cfg.Premium.SweepInterval) })
	run("limiter", func(ctx context.Context) { pruneLimiter(ctx, limiter, time.Minute) })
	run("bot", bot.Run)

	// 5. Admin HTTP API
	gin.SetMode(gin.ReleaseMode)
	h := handler.NewHandler(store, manager, feed, cfg)
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	go func() {
		logger.Info("admin api listening", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin api stopped", "err", err)
		}
	}()

	// Operations may run concurrently, so the ordered teardown is one operation.
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"anonpair": func(ctx context.Context) error {
				feed.Close()
				if err := server.Shutdown(ctx); err != nil {
					logger.Warn("admin api shutdown", "err", err)
				}
				cancel()
				if err := waitGroup(ctx, &wg); err != nil {
					return err
				}
				if rdb != nil {
					if err := rdb.Close(); err != nil {
						logger.Warn("redis close failed", "err", err)
					}
				}
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			},
		},
	)

	exitCode := <-wait
	logger.Info("anonpair backend exited", "code", exitCode)
	os.Exit(exitCode)
}

// pruneLimiter drops stale cooldown entries so idle users do not pile up.
func pruneLimiter(ctx context.Context, l *ratelimit.Cooldown, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Prune(); n > 0 {
				logger.Debug("pruned rate limiter", "users", n)
			}
		}
	}
}

// waitGroup waits for wg unless ctx ends first.
func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
