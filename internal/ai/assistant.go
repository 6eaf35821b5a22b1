// Package ai holds the model-agnostic contract for written posting analysis.
package ai

import (
	"context"

	"github.com/neco001/Job-Crusher/internal/posting"
	"github.com/neco001/Job-Crusher/internal/scoring"
)

// Analysis is a written assessment of one posting against the candidate
// profile.
type Analysis struct {
	Summary   string
	Strengths []string
	Gaps      []string
	Questions []string
	Model     string
	Raw       string
}

type Analyst interface {
	Analyze(ctx context.Context, p *posting.Posting, result scoring.Result) (*Analysis, error)
}
