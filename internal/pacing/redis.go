package pacing

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/neco001/Job-Crusher/internal/utils"
)

const windowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

const defaultPoll = time.Second

// Window caps requests per time window across every process sharing the
// Redis key, on top of an inner pacer. Redis failures fail open.
type Window struct {
	inner  Pacer
	client *redis.Client
	key    string
	limit  int
	window time.Duration
	poll   time.Duration
	script *redis.Script
	wait   WaitFunc
	logger *zap.Logger
}

// NewWindow layers a shared Redis window on top of inner. A nil client or a
// non-positive limit disables the window.
func NewWindow(inner Pacer, client *redis.Client, key string, limit int, window time.Duration, logger *zap.Logger) *Window {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Window{
		inner:  inner,
		client: client,
		key:    key,
		limit:  limit,
		window: window,
		poll:   defaultPoll,
		script: redis.NewScript(windowScript),
		wait:   utils.WaitFor,
		logger: logger,
	}
}

func (w *Window) Before(ctx context.Context, n int) error {
	if w.inner != nil {
		if err := w.inner.Before(ctx, n); err != nil {
			return err
		}
	}

	if w.client == nil || w.limit <= 0 || w.window <= 0 {
		return nil
	}

	for {
		allowed, err := w.allow(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			w.logger.Warn("rate window unavailable, continuing", zap.Error(err))
			return nil
		}
		if allowed {
			return nil
		}

		w.logger.Debug("rate window exhausted, waiting", zap.String("key", w.key), zap.Duration("poll", w.poll))
		if err := w.wait(ctx, w.poll); err != nil {
			return err
		}
	}
}

func (w *Window) allow(ctx context.Context) (bool, error) {
	ttl := w.window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}
	res, err := w.script.Run(ctx, w.client, []string{w.key}, ttl, w.limit).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}
