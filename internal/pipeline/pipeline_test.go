package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/neco001/Job-Crusher/internal/artifact"
	"github.com/neco001/Job-Crusher/internal/filtering"
	"github.com/neco001/Job-Crusher/internal/posting"
	"github.com/neco001/Job-Crusher/internal/scoring"
	"github.com/neco001/Job-Crusher/internal/source"
	"github.com/neco001/Job-Crusher/internal/store"
	"github.com/neco001/Job-Crusher/internal/store/memory"
)

type fakeAdapter struct {
	name      string
	listings  map[string][]source.Summary
	searchErr error
	details   map[string]*source.Record
	searches  []string
	fetched   []string
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Search(_ context.Context, term string) ([]source.Summary, error) {
	f.searches = append(f.searches, term)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.listings[term], nil
}

func (f *fakeAdapter) Detail(_ context.Context, link string) (*source.Record, error) {
	f.fetched = append(f.fetched, link)
	rec, ok := f.details[link]
	if !ok {
		return nil, source.NewFetchError(f.name, link, errors.New("timeout"))
	}
	return rec, nil
}

func detail(link, title, location, salary string, modes ...string) *source.Record {
	return &source.Record{
		Source: "fake",
		Format: source.FormatDetail,
		Link:   link,
		Fields: map[string]any{
			"url":        link,
			"title":      title,
			"company":    "Acme",
			"location":   location,
			"salary":     salary,
			"work_modes": modes,
		},
	}
}

func inline(rec *source.Record) source.Summary {
	return source.Summary{Title: rec.Fields["title"].(string), DetailLink: rec.Link, Record: rec}
}

func newPipeline(t *testing.T, adapter *fakeAdapter, st store.Store, sink artifact.Sink, pacer *recordingPacer) *Pipeline {
	t.Helper()
	scorer, err := scoring.New(scoring.DefaultCategories(), scoring.DefaultThresholds())
	if err != nil {
		t.Fatalf("scorer: %v", err)
	}
	deps := Deps{
		Sources: []Source{{Adapter: adapter, Terms: []string{"director"}}},
		Chain:   filtering.Default(filtering.DefaultConfig(), zaptest.NewLogger(t)),
		Scorer:  scorer,
		Store:   st,
		Sink:    sink,
		Logger:  zaptest.NewLogger(t),
	}
	if pacer != nil {
		deps.Pacer = pacer
	}
	p, err := New(Config{DefaultCurrency: "PLN"}, deps)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

type recordingPacer struct {
	calls  []int
	cancel context.CancelFunc
	stopAt int
}

func (r *recordingPacer) Before(ctx context.Context, n int) error {
	r.calls = append(r.calls, n)
	if r.cancel != nil && n == r.stopAt {
		r.cancel()
		return ctx.Err()
	}
	return nil
}

type recordingSink struct{ reports []artifact.Report }

func (r *recordingSink) Emit(_ context.Context, rep artifact.Report) error {
	r.reports = append(r.reports, rep)
	return nil
}

func TestDuplicateLinkFirstSeenWins(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", listings: map[string][]source.Summary{
		"director": {
			inline(detail("A", "Commercial Director FMCG", "Warszawa", "15000 monthly")),
			inline(detail("A", "Junior Sales Rep", "Warszawa", "")),
		},
	}}
	st := memory.New(nil)
	p := newPipeline(t, adapter, st, nil, nil)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Raw != 2 || summary.Unique != 1 || summary.Accepted != 1 || summary.Persisted != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	rec, err := st.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Title != "Commercial Director FMCG" || rec.Score != 70 || rec.Status != posting.StatusLead || rec.Verdict != "STRONG" {
		t.Fatalf("unexpected stored posting %+v", rec)
	}
	if !strings.Contains(rec.Notes, "Score 70 (STRONG)") || !strings.Contains(rec.Notes, "FMCG 30/30") {
		t.Fatalf("unexpected notes %q", rec.Notes)
	}
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", listings: map[string][]source.Summary{
		"director": {inline(detail("A", "Commercial Director FMCG", "Warszawa", "15000 monthly"))},
	}}
	st := memory.New(nil)
	p := newPipeline(t, adapter, st, nil, nil)
	ctx := context.Background()

	if _, err := p.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := st.SetStatus(ctx, 1, posting.StatusApplied); err != nil {
		t.Fatalf("set status: %v", err)
	}

	summary, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.Created != 0 || summary.Updated != 1 {
		t.Fatalf("expected an update on second run, got %+v", summary)
	}

	all, _ := st.List(ctx, store.ListOptions{All: true})
	if len(all) != 1 {
		t.Fatalf("expected exactly one stored posting, got %d", len(all))
	}
	if all[0].Status != posting.StatusApplied {
		t.Fatalf("status regressed to %q", all[0].Status)
	}
	if n := strings.Count(all[0].Notes, "\n"); n != 1 {
		t.Fatalf("unchanged score must not add notes, got %d lines", n)
	}
}

func TestGateRejections(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", listings: map[string][]source.Summary{
		"director": {
			inline(detail("K", "Commercial Director FMCG", "Kraków", "20000 monthly", "on site")),
			inline(detail("C", "Commercial Director FMCG", "Warszawa", "8000 monthly")),
			inline(detail("S", "Sales Director", "Warszawa", "")),
		},
	}}
	st := memory.New(nil)
	p := newPipeline(t, adapter, st, nil, nil)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Rejected[filtering.GateLocation] != 1 || summary.Rejected[filtering.GateCompensation] != 1 {
		t.Fatalf("unexpected rejections %v", summary.Rejected)
	}
	if summary.BelowThreshold != 1 || summary.Accepted != 0 || summary.Persisted != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	all, _ := st.List(context.Background(), store.ListOptions{All: true})
	if len(all) != 0 {
		t.Fatalf("rejected postings must not be stored, got %d", len(all))
	}
}

func TestFetchFailureIsIsolatedAndPaced(t *testing.T) {
	adapter := &fakeAdapter{
		name: "fake",
		listings: map[string][]source.Summary{
			"director": {{DetailLink: "B"}, {DetailLink: "C"}, {DetailLink: "B"}},
		},
		details: map[string]*source.Record{
			"C": detail("C", "Commercial Director FMCG", "Warszawa", "15000 monthly"),
		},
	}
	pacer := &recordingPacer{}
	p := newPipeline(t, adapter, memory.New(nil), nil, pacer)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.FetchFailures != 1 || summary.Accepted != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(adapter.fetched) != 2 {
		t.Fatalf("duplicate links must be fetched once, got %v", adapter.fetched)
	}
	// one search plus two detail fetches
	if len(pacer.calls) != 3 || pacer.calls[0] != 0 || pacer.calls[2] != 2 {
		t.Fatalf("unexpected pacer calls %v", pacer.calls)
	}
}

func TestAllSearchesFailing(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", searchErr: errors.New("connection refused")}
	p := newPipeline(t, adapter, memory.New(nil), nil, nil)

	summary, err := p.Run(context.Background())
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	if summary.SearchFailures != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestEmptyTermsSearchOnce(t *testing.T) {
	adapter := &fakeAdapter{name: "fake"}
	p := newPipeline(t, adapter, nil, nil, nil)
	p.deps.Sources[0].Terms = nil

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(adapter.searches) != 1 || adapter.searches[0] != "" {
		t.Fatalf("expected one empty-term search, got %q", adapter.searches)
	}
}

func TestCancellationStopsBeforeNextItem(t *testing.T) {
	adapter := &fakeAdapter{
		name:     "fake",
		listings: map[string][]source.Summary{"director": {{DetailLink: "C"}, {DetailLink: "D"}}},
		details: map[string]*source.Record{
			"C": detail("C", "Commercial Director FMCG", "Warszawa", "15000 monthly"),
			"D": detail("D", "Head of Sales FMCG", "Warszawa", "15000 monthly"),
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pacer := &recordingPacer{cancel: cancel, stopAt: 2}
	p := newPipeline(t, adapter, memory.New(nil), nil, pacer)

	accepted, summary, err := p.Acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(accepted) != 1 || len(adapter.fetched) != 1 {
		t.Fatalf("expected only the first item processed, got %d accepted, fetched %v", len(accepted), adapter.fetched)
	}
	if summary.Accepted != 1 {
		t.Fatalf("summary must count postings accepted before cancellation, got %d", summary.Accepted)
	}
	if len(summary.Gates) != 3 || summary.Gates[0].Initial != 1 {
		t.Fatalf("unexpected gate steps %+v", summary.Gates)
	}
}

func TestUnlinkedListingsAreCounted(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", listings: map[string][]source.Summary{
		"director": {
			{Title: "Sales Director", Company: "Acme"},
			inline(detail("A", "Commercial Director FMCG", "Warszawa", "15000 monthly")),
			inline(detail("A", "Commercial Director FMCG", "Warszawa", "15000 monthly")),
		},
	}}
	p := newPipeline(t, adapter, memory.New(nil), nil, nil)

	_, summary, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if summary.Raw != 3 || summary.Unique != 1 || summary.NormalizeFailures != 1 || summary.Accepted != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestGateStepsArePerRun(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", listings: map[string][]source.Summary{
		"director": {
			inline(detail("A", "Commercial Director FMCG", "Warszawa", "15000 monthly")),
			inline(detail("K", "Commercial Director FMCG", "Kraków", "15000 monthly", "on_site")),
		},
	}}
	p := newPipeline(t, adapter, memory.New(nil), nil, nil)

	for i := 0; i < 2; i++ {
		_, summary, err := p.Acquire(context.Background())
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		loc := summary.Gates[0]
		if loc.Name != filtering.GateLocation || loc.Initial != 2 || loc.Dropped != 1 || loc.Left != 1 {
			t.Fatalf("run %d: unexpected location step %+v", i, loc)
		}
	}
}

func TestAcceptedSortedByScoreStable(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", listings: map[string][]source.Summary{
		"director": {
			inline(detail("M1", "Head of Sales FMCG", "Warszawa", "")),
			inline(detail("S", "Commercial Director FMCG", "Warszawa", "")),
			inline(detail("M2", "Head of Sales FMCG", "Remote", "")),
		},
	}}
	p := newPipeline(t, adapter, nil, nil, nil)

	accepted, _, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	var links []string
	for _, a := range accepted {
		links = append(links, a.Posting.SourceID)
	}
	if strings.Join(links, ",") != "S,M1,M2" {
		t.Fatalf("unexpected order %v", links)
	}
	if accepted[1].Result.Status != posting.StatusWaiting {
		t.Fatalf("MAYBE posting must map to Waiting, got %q", accepted[1].Result.Status)
	}
}

type flakyStore struct {
	store.Store
	failURL string
}

func (f *flakyStore) UpsertPosting(ctx context.Context, in store.PostingInput, initial posting.Status) (store.UpsertResult, error) {
	if in.SourceURL == f.failURL {
		return store.UpsertResult{}, errors.New("deadlock detected")
	}
	return f.Store.UpsertPosting(ctx, in, initial)
}

type noteFailingStore struct {
	store.Store
	failures int
}

func (f *noteFailingStore) AppendNote(ctx context.Context, id int64, text string) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("connection reset")
	}
	return f.Store.AppendNote(ctx, id, text)
}

func TestLostNoteIsWrittenOnNextRun(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", listings: map[string][]source.Summary{
		"director": {inline(detail("A", "Commercial Director FMCG", "Warszawa", "15000 monthly"))},
	}}
	mem := memory.New(nil)
	st := &noteFailingStore{Store: mem, failures: 1}
	p := newPipeline(t, adapter, st, nil, nil)
	ctx := context.Background()

	first, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.PersistFailures != 1 || first.Persisted != 0 {
		t.Fatalf("unexpected first summary %+v", first)
	}

	second, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.PersistFailures != 0 || second.Persisted != 1 {
		t.Fatalf("unexpected second summary %+v", second)
	}

	rec, err := mem.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.Contains(rec.Notes, "Found via fake. Score 70 (STRONG).") {
		t.Fatalf("expected the first note to be written, got %q", rec.Notes)
	}

	if _, err := p.Run(ctx); err != nil {
		t.Fatalf("third run: %v", err)
	}
	rec, _ = mem.Get(ctx, 1)
	if n := strings.Count(rec.Notes, "\n"); n != 1 {
		t.Fatalf("expected a single note line, got %d in %q", n, rec.Notes)
	}
}

func TestPersistFailureIsIsolated(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", listings: map[string][]source.Summary{
		"director": {
			inline(detail("S", "Commercial Director FMCG", "Warszawa", "")),
			inline(detail("M", "Head of Sales FMCG", "Warszawa", "")),
		},
	}}
	st := &flakyStore{Store: memory.New(func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }), failURL: "S"}
	sink := &recordingSink{}
	p := newPipeline(t, adapter, st, sink, nil)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.PersistFailures != 1 || summary.Persisted != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	// the MAYBE posting scores 60, under the artifact threshold
	if len(sink.reports) != 0 || summary.Artifacts != 0 {
		t.Fatalf("unexpected artifacts %d", len(sink.reports))
	}
}

func TestArtifactsForStrongPostings(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", listings: map[string][]source.Summary{
		"director": {inline(detail("S", "Commercial Director FMCG", "Warszawa", ""))},
	}}
	sink := &recordingSink{}
	p := newPipeline(t, adapter, memory.New(nil), sink, nil)

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Artifacts != 1 || len(sink.reports) != 1 {
		t.Fatalf("expected one artifact, got %+v", summary)
	}
	rep := sink.reports[0]
	if rep.StoredID != 1 || rep.Status != posting.StatusLead || rep.AddedAt.IsZero() {
		t.Fatalf("unexpected report %+v", rep)
	}
}

func TestNewValidatesDeps(t *testing.T) {
	if _, err := New(Config{}, Deps{}); err == nil {
		t.Fatalf("expected error without sources")
	}
	if _, err := New(Config{}, Deps{Sources: []Source{{Adapter: &fakeAdapter{}}}, Logger: zap.NewNop()}); err == nil {
		t.Fatalf("expected error without chain")
	}
}

func TestSummaryWrite(t *testing.T) {
	s := NewSummary("run-1")
	s.Rejected[filtering.GateLocation] = 2
	s.Persisted, s.Created, s.Updated = 3, 2, 1
	s.Gates = []filtering.Step{{Name: filtering.GateLocation, Initial: 5, Dropped: 2, Left: 3}}

	var b strings.Builder
	if err := s.Write(&b); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := b.String()
	for _, want := range []string{"rejected: location", "3 (2 new, 1 updated)", "run-1", "gate location", "5 in, 2 dropped, 3 left"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary output missing %q:\n%s", want, out)
		}
	}
	if s.RejectedTotal() != 2 {
		t.Fatalf("unexpected rejected total %d", s.RejectedTotal())
	}
}

func TestSummaryLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewSummary("run-2")
	s.Persisted, s.Created, s.Updated = 3, 2, 1
	s.Rejected[filtering.GateSeniority] = 4
	s.Gates = []filtering.Step{{Name: filtering.GateSeniority, Initial: 6, Dropped: 4, Left: 2}}

	s.Log(zap.New(core))

	entries := logs.FilterMessage("run summary").All()
	if len(entries) != 1 {
		t.Fatalf("expected one summary entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["created"] != int64(2) || fields["updated"] != int64(1) || fields["rejected_total"] != int64(4) {
		t.Fatalf("unexpected fields %v", fields)
	}
	if fields["gate_seniority"] != "6 in, 4 dropped, 2 left" {
		t.Fatalf("unexpected gate field %v", fields["gate_seniority"])
	}
}
