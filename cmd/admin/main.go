package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"anonpair/backend/internal/config"
	"anonpair/backend/internal/logger"
	"anonpair/backend/internal/premium"
	"anonpair/backend/internal/storage"
)

const usage = `Usage: admin <command> [args]

Commands:
  block <user_id>
  unblock <user_id>
  blockword <word>
  unblockword <word>
  grant-premium <user_id> [days]
  revoke-premium <user_id>
  sweep
  stats`

func main() {
	_ = godotenv.Load()
	cfg := config.New()
	logger.InitFromConfig(cfg)

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := storage.OpenDB(cfg)
	if err != nil {
		logger.Error("failed to connect database", "err", err)
		os.Exit(1)
	}
	// Redis is optional here; when reachable, word changes refresh the bot's cache.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		if rdb, err = storage.OpenRedis(ctx, cfg); err != nil {
			logger.Warn("redis unavailable, word changes reach the bot when its cache expires", "err", err)
			rdb = nil
		}
	}
	store := storage.NewStorageService(db, rdb)

	if err := run(ctx, store, cfg, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, s storage.Storage, cfg *config.Config, command string, args []string) error {
	switch command {
	case "block", "unblock":
		id, err := userArg(command, args)
		if err != nil {
			return err
		}
		if err := s.SetBlocked(ctx, id, command == "block"); err != nil {
			return err
		}
		fmt.Printf("User %d has been %sed.\n", id, command)
		if command == "block" {
			fmt.Println("Run /block in the bot instead to also close an open chat.")
		}

	case "blockword", "unblockword":
		if len(args) != 1 || storage.NormalizeWord(args[0]) == "" {
			return fmt.Errorf("usage: admin %s <word>", command)
		}
		word := storage.NormalizeWord(args[0])
		var err error
		if command == "blockword" {
			err = s.AddBlockedWord(ctx, word, 0)
		} else {
			err = s.RemoveBlockedWord(ctx, word)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Word %q has been %sed.\n", word, command)

	case "grant-premium":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("usage: admin grant-premium <user_id> [days]")
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q", args[0])
		}
		d := cfg.Premium.Duration
		if len(args) == 2 {
			days, err := strconv.Atoi(args[1])
			if err != nil || days <= 0 {
				return fmt.Errorf("invalid days %q", args[1])
			}
			d = time.Duration(days) * 24 * time.Hour
		}
		until, err := premium.NewMonitor(s, nil, cfg.Premium.Duration).GrantFor(ctx, id, d)
		if err != nil {
			return err
		}
		fmt.Printf("User %d has premium until %s.\n", id, until.Format(time.DateTime))

	case "revoke-premium":
		id, err := userArg(command, args)
		if err != nil {
			return err
		}
		if err := premium.NewMonitor(s, nil, cfg.Premium.Duration).Revoke(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Premium revoked for user %d.\n", id)

	case "sweep":
		n, err := premium.NewMonitor(s, nil, cfg.Premium.Duration).Sweep(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Premium sweep done, %d expired.\n", n)

	case "stats":
		st, err := s.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Users: %d\nPremium: %d\nBlocked: %d\nActive rooms: %d\nTotal rooms: %d\nMessages: %d\nReports: %d\n",
			st.Users, st.Premium, st.Blocked, st.ActiveRooms, st.TotalRooms, st.Messages, st.Reports)

	default:
		return fmt.Errorf("unknown command %q\n\n%s", command, usage)
	}
	return nil
}

func userArg(command string, args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: admin %s <user_id>", command)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user id %q", args[0])
	}
	return id, nil
}
