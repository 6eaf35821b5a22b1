// Package pacing spaces out requests to external job sources.
package pacing

import (
	"context"
	"time"

	"github.com/neco001/Job-Crusher/internal/utils"
)

// Pacer is consulted before the n-th (0-based) network request of a batch.
type Pacer interface {
	Before(ctx context.Context, n int) error
}

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Fixed waits a constant delay before every request except the first.
type Fixed struct {
	Delay time.Duration
	Wait  WaitFunc
}

// NewFixed returns a fixed-floor pacer.
func NewFixed(delay time.Duration) *Fixed {
	return &Fixed{Delay: delay, Wait: utils.WaitFor}
}

func (f *Fixed) Before(ctx context.Context, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n == 0 || f.Delay <= 0 {
		return nil
	}

	wait := f.Wait
	if wait == nil {
		wait = utils.WaitFor
	}
	return wait(ctx, f.Delay)
}
