package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/neco001/Job-Crusher/internal/ai"
	"github.com/neco001/Job-Crusher/internal/posting"
	"github.com/neco001/Job-Crusher/internal/scoring"
)

func testReport() Report {
	return Report{
		Posting: &posting.Posting{
			SourceID:     "https://jobs/1",
			Source:       "pracuj",
			CompanyName:  "Acme/Poland",
			Title:        "Commercial Director FMCG with a very long title that goes past fifty",
			Location:     "Warszawa",
			WorkModes:    []posting.WorkMode{posting.WorkModeHybrid},
			Compensation: &posting.Compensation{Amount: 15000, Period: posting.PeriodMonthly, Currency: "PLN", Raw: "15000 monthly"},
			Requirements: []string{"10 years in sales"},
		},
		Result: scoring.Result{
			Total:     70,
			Tier:      scoring.TierStrong,
			Status:    posting.StatusLead,
			Breakdown: []scoring.Points{{Category: "FMCG", Points: 30, Cap: 30}, {Category: "Leadership", Points: 25, Cap: 25}},
		},
		StoredID: 7,
		Status:   posting.StatusLead,
		AddedAt:  time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestFolderName(t *testing.T) {
	r := testReport()
	got := FolderName(r.AddedAt, r.Posting.CompanyName, r.Posting.Title)
	want := "2025-03-01 ( Acme-Poland ) Commercial Director FMCG with a very long title th"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got := FolderName(r.AddedAt, "", "X"); got != "2025-03-01 ( Unknown ) X" {
		t.Fatalf("unexpected default company name %q", got)
	}
}

type stubAnalyst struct {
	analysis *ai.Analysis
	err      error
}

func (s stubAnalyst) Analyze(context.Context, *posting.Posting, scoring.Result) (*ai.Analysis, error) {
	return s.analysis, s.err
}

func TestFolderEmitWritesFiles(t *testing.T) {
	root := t.TempDir()
	analyst := stubAnalyst{analysis: &ai.Analysis{Summary: "Solid fit", Strengths: []string{"FMCG background"}, Model: "stub"}}
	sink := NewFolder(root, analyst, zap.NewNop())
	r := testReport()

	if err := sink.Emit(context.Background(), r); err != nil {
		t.Fatalf("emit: %v", err)
	}
	// re-emission targets the same folder
	if err := sink.Emit(context.Background(), r); err != nil {
		t.Fatalf("second emit: %v", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected exactly one folder, got %v %v", entries, err)
	}
	dir := filepath.Join(root, entries[0].Name())

	offer, _ := os.ReadFile(filepath.Join(dir, OfferFile))
	for _, want := range []string{"## Match: 70% - STRONG", "- **FMCG:** 30/30", "15000 monthly", "- 10 years in sales", "hybrid"} {
		if !strings.Contains(string(offer), want) {
			t.Fatalf("offer file missing %q:\n%s", want, offer)
		}
	}

	analysis, _ := os.ReadFile(filepath.Join(dir, AnalysisFile))
	if !strings.Contains(string(analysis), "- [ ] FMCG background") || !strings.Contains(string(analysis), "Solid fit") {
		t.Fatalf("analysis file missing generated content:\n%s", analysis)
	}

	notes, _ := os.ReadFile(filepath.Join(dir, NotesFile))
	if !strings.Contains(string(notes), "2025-03-01") {
		t.Fatalf("notes file missing date:\n%s", notes)
	}
}

func TestFolderEmitFallsBackWithoutAnalysis(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	root := t.TempDir()
	sink := NewFolder(root, stubAnalyst{err: errors.New("quota")}, zap.New(core))

	if err := sink.Emit(context.Background(), testReport()); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}

	entries, _ := os.ReadDir(root)
	analysis, _ := os.ReadFile(filepath.Join(root, entries[0].Name(), AnalysisFile))
	if !strings.Contains(string(analysis), "Fill in after reading the posting") {
		t.Fatalf("expected blank checklist:\n%s", analysis)
	}
}

type fakeRedis struct {
	channel string
	message []byte
	err     error
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.message, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestPublisherEmit(t *testing.T) {
	fake := &fakeRedis{}
	p := &Publisher{rdb: fake, channel: DefaultChannel}

	if err := p.Emit(context.Background(), testReport()); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if fake.channel != DefaultChannel {
		t.Fatalf("unexpected channel %q", fake.channel)
	}

	var ev Event
	if err := json.Unmarshal(fake.message, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.PostingID != 7 || ev.Score != 70 || ev.Breakdown["Leadership"] != 25 || ev.Status != "Lead" {
		t.Fatalf("unexpected event %+v", ev)
	}

	fake.err = errors.New("connection refused")
	if err := p.Emit(context.Background(), testReport()); err == nil {
		t.Fatalf("expected publish error")
	}
}

type failingSink struct{ calls int }

func (f *failingSink) Emit(context.Context, Report) error {
	f.calls++
	return errors.New("disk full")
}

func TestMultiContinuesAfterFailure(t *testing.T) {
	first, second := &failingSink{}, &failingSink{}
	err := Multi{first, nil, Nop{}, second}.Emit(context.Background(), testReport())
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if first.calls != 1 || second.calls != 1 {
		t.Fatalf("every sink must be called, got %d and %d", first.calls, second.calls)
	}
}
