// Package pipeline runs one acquisition pass over the configured sources:
// search, dedup, fetch, normalize, filter, score, then persist the accepted
// postings in descending score order and emit their artifacts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/neco001/Job-Crusher/internal/artifact"
	"github.com/neco001/Job-Crusher/internal/filtering"
	"github.com/neco001/Job-Crusher/internal/logger"
	"github.com/neco001/Job-Crusher/internal/normalize"
	"github.com/neco001/Job-Crusher/internal/pacing"
	"github.com/neco001/Job-Crusher/internal/posting"
	"github.com/neco001/Job-Crusher/internal/scoring"
	"github.com/neco001/Job-Crusher/internal/source"
	"github.com/neco001/Job-Crusher/internal/store"
)

// ErrSourceUnavailable is returned when every search of a run failed.
var ErrSourceUnavailable = errors.New("no source could be reached")

// DefaultArtifactMinScore is the lowest score that gets a report folder.
const DefaultArtifactMinScore = 70

// Source is an adapter with the search terms to run against it. A source
// without terms is searched once with an empty term.
type Source struct {
	Adapter source.Adapter
	Terms   []string
}

// Config tunes a pipeline.
type Config struct {
	DefaultCurrency  string
	ArtifactMinScore int
}

// Deps are the collaborators of a pipeline. Pacer, Store and Sink may be nil:
// without a pacer requests are not spaced, without a store nothing is
// persisted, without a sink no artifacts are emitted.
type Deps struct {
	Sources []Source
	Chain   *filtering.Chain
	Scorer  *scoring.Scorer
	Pacer   pacing.Pacer
	Store   store.Store
	Sink    artifact.Sink
	Logger  *zap.Logger
}

// Accepted is a posting that passed every gate and scored at least MAYBE.
type Accepted struct {
	Posting *posting.Posting
	Result  scoring.Result
}

type Pipeline struct {
	cfg  Config
	deps Deps
	log  *zap.Logger
}

type candidate struct {
	source  source.Adapter
	summary source.Summary
}

func New(cfg Config, deps Deps) (*Pipeline, error) {
	if len(deps.Sources) == 0 {
		return nil, errors.New("at least one source is required")
	}
	for i, s := range deps.Sources {
		if s.Adapter == nil {
			return nil, fmt.Errorf("source %d has no adapter", i)
		}
	}
	if deps.Chain == nil {
		return nil, errors.New("filter chain is required")
	}
	if deps.Scorer == nil {
		return nil, errors.New("scorer is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.ArtifactMinScore <= 0 {
		cfg.ArtifactMinScore = DefaultArtifactMinScore
	}
	return &Pipeline{cfg: cfg, deps: deps, log: deps.Logger}, nil
}

// Run acquires and then persists. Persistence is skipped when acquisition
// was cancelled or no source could be reached.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	accepted, summary, err := p.Acquire(ctx)
	if err != nil {
		return summary, err
	}
	if err := p.Persist(ctx, accepted, summary); err != nil {
		return summary, err
	}
	summary.Log(p.log)
	return summary, nil
}

// Acquire runs the sequential acquisition loop and returns the accepted
// postings sorted by score, highest first.
func (p *Pipeline) Acquire(ctx context.Context) ([]Accepted, *Summary, error) {
	summary := NewSummary(uuid.NewString())
	p.log = p.deps.Logger.With(zap.String(logger.FieldRunID, summary.RunID))

	pace := &requestCounter{pacer: p.deps.Pacer}
	p.deps.Chain.Reset()

	candidates, err := p.search(ctx, pace, summary)
	if err != nil {
		return nil, summary, err
	}

	unique, unlinked := dedup(candidates)
	summary.Unique = len(unique)
	for _, c := range unlinked {
		// Without a link a listing can be neither fetched nor stored.
		summary.NormalizeFailures++
		p.log.Warn("listing has no link",
			logger.PostingFields(c.source.Name(), "", c.summary.Title, c.summary.Company)...)
	}
	p.log.Info("listings collected",
		zap.Int("raw", summary.Raw), zap.Int("unique", summary.Unique), zap.Int("unlinked", len(unlinked)))

	accepted := make([]Accepted, 0)
	finish := func(err error) ([]Accepted, *Summary, error) {
		summary.Accepted = len(accepted)
		summary.Gates = p.deps.Chain.Steps()
		return sortAccepted(accepted), summary, err
	}

	for _, c := range unique {
		if err := ctx.Err(); err != nil {
			p.log.Info("acquisition cancelled", zap.Int("accepted_so_far", len(accepted)))
			return finish(err)
		}

		a, ok, err := p.process(ctx, pace, c, summary)
		if err != nil {
			return finish(err)
		}
		if ok {
			accepted = append(accepted, a)
		}
	}

	return finish(nil)
}

func (p *Pipeline) search(ctx context.Context, pace *requestCounter, summary *Summary) ([]candidate, error) {
	var (
		out      []candidate
		attempts int
	)
	for _, src := range p.deps.Sources {
		terms := src.Terms
		if len(terms) == 0 {
			terms = []string{""}
		}
		for _, term := range terms {
			if err := pace.before(ctx); err != nil {
				return nil, err
			}
			attempts++

			found, err := src.Adapter.Search(ctx, term)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				summary.SearchFailures++
				p.log.Warn("search failed", zap.String(logger.FieldSource, src.Adapter.Name()), zap.String("term", term), zap.Error(err))
				continue
			}

			p.log.Debug("search done", zap.String(logger.FieldSource, src.Adapter.Name()), zap.String("term", term), zap.Int("listings", len(found)))
			summary.Raw += len(found)
			for _, s := range found {
				out = append(out, candidate{source: src.Adapter, summary: s})
			}
		}
	}

	if attempts > 0 && summary.SearchFailures == attempts {
		return nil, fmt.Errorf("%w: %d searches failed", ErrSourceUnavailable, attempts)
	}
	return out, nil
}

// process handles one unique listing. Only cancellation is returned as an
// error; every other failure is counted and skipped.
func (p *Pipeline) process(ctx context.Context, pace *requestCounter, c candidate, summary *Summary) (Accepted, bool, error) {
	s := c.summary
	log := p.log.With(logger.PostingFields(c.source.Name(), s.DetailLink, s.Title, s.Company)...)

	rec := s.Record
	if rec == nil {
		if err := pace.before(ctx); err != nil {
			return Accepted{}, false, err
		}
		fetched, err := c.source.Detail(ctx, s.DetailLink)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Accepted{}, false, ctxErr
			}
			summary.FetchFailures++
			log.Warn("detail fetch failed, skipping", zap.Error(err))
			return Accepted{}, false, nil
		}
		rec = fetched
	}
	if rec.Link == "" {
		rec.Link = s.DetailLink
	}
	if rec.Source == "" {
		rec.Source = c.source.Name()
	}

	post, err := normalize.Normalize(rec, normalize.Options{DefaultCurrency: p.cfg.DefaultCurrency})
	if err != nil {
		summary.NormalizeFailures++
		log.Info("normalization failed, skipping", zap.Error(err))
		return Accepted{}, false, nil
	}

	if rejection := p.deps.Chain.Check(post); rejection != nil {
		summary.Rejected[rejection.Gate]++
		log.Info("rejected by filter", zap.String("gate", rejection.Gate), zap.String("detail", rejection.Detail))
		return Accepted{}, false, nil
	}

	result := p.deps.Scorer.Score(post)
	if result.Tier == scoring.TierReject {
		summary.BelowThreshold++
		log.Info("score below threshold", zap.Int("score", result.Total))
		return Accepted{}, false, nil
	}

	log.Info("posting accepted", zap.Int("score", result.Total), zap.String("tier", string(result.Tier)))
	return Accepted{Posting: post, Result: result}, true, nil
}

// Persist stores accepted postings in the given order. A failure on one
// posting is counted and the next one is processed.
func (p *Pipeline) Persist(ctx context.Context, accepted []Accepted, summary *Summary) error {
	if p.deps.Store == nil {
		return nil
	}
	if summary == nil {
		summary = NewSummary(uuid.NewString())
	}

	for _, a := range accepted {
		if err := ctx.Err(); err != nil {
			return err
		}

		post := a.Posting
		log := p.log.With(logger.PostingFields(post.Source, post.SourceID, post.Title, post.CompanyName)...)

		res, err := p.persistOne(ctx, a)
		if err != nil {
			summary.PersistFailures++
			log.Warn("persist failed", zap.Error(err))
			continue
		}
		summary.Persisted++
		if res.Created {
			summary.Created++
		} else {
			summary.Updated++
		}

		if p.deps.Sink == nil || a.Result.Total < p.cfg.ArtifactMinScore {
			continue
		}
		report := artifact.Report{Posting: post, Result: a.Result, StoredID: res.ID, Status: res.Status, AddedAt: res.AddedAt}
		if err := p.deps.Sink.Emit(ctx, report); err != nil {
			summary.ArtifactFailures++
			log.Warn("artifact emission failed", zap.Error(err))
			continue
		}
		summary.Artifacts++
	}
	return nil
}

func (p *Pipeline) persistOne(ctx context.Context, a Accepted) (store.UpsertResult, error) {
	post := a.Posting

	companyID, err := p.deps.Store.EnsureCompany(ctx, post.CompanyName)
	if err != nil {
		return store.UpsertResult{}, err
	}

	res, err := p.deps.Store.UpsertPosting(ctx, store.PostingInput{
		CompanyID: companyID,
		SourceURL: post.SourceID,
		Title:     post.Title,
		Location:  post.Location,
		FullText:  post.FullText(),
		Score:     a.Result.Total,
		Verdict:   string(a.Result.Tier),
	}, a.Result.Status)
	if err != nil {
		return store.UpsertResult{}, err
	}

	// A posting whose first note was lost to an earlier failure gets it now,
	// even when its score is unchanged.
	previous := res.PreviousScore
	if !hasScoreNote(res.Notes) {
		previous = nil
	}
	if previous == nil || res.ScoreChanged(a.Result.Total) {
		if err := p.deps.Store.AppendNote(ctx, res.ID, ScoreNote(a, previous)); err != nil {
			return res, fmt.Errorf("append note: %w", err)
		}
	}
	return res, nil
}

const (
	foundNotePrefix   = "Found via "
	rescoreNotePrefix = "Re-scored via "
)

// hasScoreNote reports whether a notes log already holds a score note.
func hasScoreNote(notes string) bool {
	return strings.Contains(notes, foundNotePrefix) || strings.Contains(notes, rescoreNotePrefix)
}

// ScoreNote renders the notes line recorded when a posting is first stored
// or its score changes.
func ScoreNote(a Accepted, previous *int) string {
	var b strings.Builder
	if previous == nil {
		fmt.Fprintf(&b, foundNotePrefix+"%s. Score %d (%s).", a.Posting.Source, a.Result.Total, a.Result.Tier)
	} else {
		fmt.Fprintf(&b, rescoreNotePrefix+"%s. Score %d -> %d (%s).", a.Posting.Source, *previous, a.Result.Total, a.Result.Tier)
	}

	parts := make([]string, 0, len(a.Result.Breakdown))
	for _, pts := range a.Result.Breakdown {
		parts = append(parts, fmt.Sprintf("%s %d/%d", pts.Category, pts.Points, pts.Cap))
	}
	if len(parts) > 0 {
		fmt.Fprintf(&b, " Breakdown: %s.", strings.Join(parts, ", "))
	}
	if c := a.Posting.Compensation; c != nil && c.Raw != "" {
		fmt.Fprintf(&b, " Compensation: %s.", c.Raw)
	}
	return b.String()
}

// dedup keeps the first listing for each detail link, in input order.
// Listings without any link are returned separately.
func dedup(in []candidate) (unique, unlinked []candidate) {
	seen := make(map[string]bool, len(in))
	unique = make([]candidate, 0, len(in))
	for _, c := range in {
		key := strings.TrimSpace(c.summary.DetailLink)
		if key == "" && c.summary.Record != nil {
			key = strings.TrimSpace(c.summary.Record.Link)
		}
		if key == "" {
			unlinked = append(unlinked, c)
			continue
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, c)
	}
	return unique, unlinked
}

func sortAccepted(in []Accepted) []Accepted {
	sort.SliceStable(in, func(i, j int) bool {
		return in[i].Result.Total > in[j].Result.Total
	})
	return in
}

// requestCounter numbers the network requests of a run for the pacer.
type requestCounter struct {
	pacer pacing.Pacer
	n     int
}

func (r *requestCounter) before(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := r.n
	r.n++
	if r.pacer == nil {
		return nil
	}
	return r.pacer.Before(ctx, n)
}
