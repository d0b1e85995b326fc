package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"anonpair/backend/internal/logger"
)

const shardBuffer = 64

// dispatcher fans updates out to a fixed set of workers. Updates from the
// same user always land on the same worker, so each user's stream is
// handled in order while different users run in parallel.
type dispatcher struct {
	shards []chan tgbotapi.Update
	handle func(context.Context, tgbotapi.Update)
	wg     sync.WaitGroup
}

func newDispatcher(workers int, handle func(context.Context, tgbotapi.Update)) *dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &dispatcher{
		shards: make([]chan tgbotapi.Update, workers),
		handle: handle,
	}
	for i := range d.shards {
		d.shards[i] = make(chan tgbotapi.Update, shardBuffer)
	}
	return d
}

// start launches the workers. They exit once stop closes the shards.
func (d *dispatcher) start(ctx context.Context) {
	for i, ch := range d.shards {
		d.wg.Add(1)
		go func(id int, ch <-chan tgbotapi.Update) {
			defer d.wg.Done()
			for u := range ch {
				d.run(ctx, id, u)
			}
		}(i, ch)
	}
}

func (d *dispatcher) run(ctx context.Context, worker int, u tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("update handler panicked", "worker", worker, "update", u.UpdateID, "panic", r)
		}
	}()
	d.handle(ctx, u)
}

// dispatch queues u on its user's shard. It blocks when that shard is full.
func (d *dispatcher) dispatch(u tgbotapi.Update) {
	d.shards[shardFor(updateUserID(u), len(d.shards))] <- u
}

// stop closes the shards and waits for queued updates to finish.
func (d *dispatcher) stop() {
	for _, ch := range d.shards {
		close(ch)
	}
	d.wg.Wait()
}

func shardFor(userID int64, n int) int {
	s := userID % int64(n)
	if s < 0 {
		s = -s
	}
	return int(s)
}

// updateUserID returns the Telegram user behind an update, or 0.
func updateUserID(u tgbotapi.Update) int64 {
	switch {
	case u.Message != nil && u.Message.From != nil:
		return u.Message.From.ID
	case u.CallbackQuery != nil && u.CallbackQuery.From != nil:
		return u.CallbackQuery.From.ID
	case u.EditedMessage != nil && u.EditedMessage.From != nil:
		return u.EditedMessage.From.ID
	}
	return 0
}
