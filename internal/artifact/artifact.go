// Package artifact emits follow-up material for accepted postings: a
// markdown report folder per posting and an optional Redis event.
package artifact

import (
	"context"
	"errors"
	"time"

	"github.com/neco001/Job-Crusher/internal/posting"
	"github.com/neco001/Job-Crusher/internal/scoring"
)

// Report is everything a sink needs about one persisted posting.
type Report struct {
	Posting  *posting.Posting
	Result   scoring.Result
	StoredID int64
	Status   posting.Status
	// AddedAt is when the posting was first stored; sinks use it so that a
	// re-emission targets the same artifact.
	AddedAt time.Time
}

// Sink receives reports for postings scoring at or above the artifact
// threshold.
type Sink interface {
	Emit(ctx context.Context, r Report) error
}

// Multi fans a report out to every sink and joins their errors. A failing
// sink does not stop the others.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, r Report) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards reports.
type Nop struct{}

func (Nop) Emit(context.Context, Report) error { return nil }
