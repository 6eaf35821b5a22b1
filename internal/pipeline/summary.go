package pipeline

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/neco001/Job-Crusher/internal/filtering"
)

// Summary counts what happened at each stage of a run.
type Summary struct {
	RunID string

	Raw               int
	Unique            int
	SearchFailures    int
	FetchFailures     int
	NormalizeFailures int
	// Rejected counts filter rejections per gate.
	Rejected map[string]int
	// Gates holds the per-gate counters of the filter chain, in chain order.
	Gates          []filtering.Step
	BelowThreshold int
	Accepted       int

	Persisted        int
	Created          int
	Updated          int
	PersistFailures  int
	Artifacts        int
	ArtifactFailures int
}

func NewSummary(runID string) *Summary {
	return &Summary{RunID: runID, Rejected: make(map[string]int)}
}

// RejectedTotal sums rejections over all gates.
func (s *Summary) RejectedTotal() int {
	total := 0
	for _, n := range s.Rejected {
		total += n
	}
	return total
}

func (s *Summary) Log(log *zap.Logger) {
	fields := []zap.Field{
		zap.String("run_id", s.RunID),
		zap.Int("raw", s.Raw),
		zap.Int("unique", s.Unique),
		zap.Int("search_failures", s.SearchFailures),
		zap.Int("fetch_failures", s.FetchFailures),
		zap.Int("normalize_failures", s.NormalizeFailures),
		zap.Any("rejected", s.Rejected),
		zap.Int("rejected_total", s.RejectedTotal()),
		zap.Int("below_threshold", s.BelowThreshold),
		zap.Int("accepted", s.Accepted),
		zap.Int("persisted", s.Persisted),
		zap.Int("created", s.Created),
		zap.Int("updated", s.Updated),
		zap.Int("persist_failures", s.PersistFailures),
		zap.Int("artifacts", s.Artifacts),
		zap.Int("artifact_failures", s.ArtifactFailures),
	}
	for _, g := range s.Gates {
		fields = append(fields, zap.String("gate_"+g.Name, fmt.Sprintf("%d in, %d dropped, %d left", g.Initial, g.Dropped, g.Left)))
	}
	log.Info("run summary", fields...)
}

// Write prints the summary as an aligned two-column table.
func (s *Summary) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	rows := [][2]string{
		{"run", s.RunID},
		{"raw listings", fmt.Sprint(s.Raw)},
		{"unique", fmt.Sprint(s.Unique)},
		{"search failures", fmt.Sprint(s.SearchFailures)},
		{"detail fetch failures", fmt.Sprint(s.FetchFailures)},
		{"normalize failures", fmt.Sprint(s.NormalizeFailures)},
	}

	gates := make([]string, 0, len(s.Rejected))
	for gate := range s.Rejected {
		gates = append(gates, gate)
	}
	sort.Strings(gates)
	for _, gate := range gates {
		rows = append(rows, [2]string{"rejected: " + gate, fmt.Sprint(s.Rejected[gate])})
	}

	for _, g := range s.Gates {
		rows = append(rows, [2]string{"gate " + g.Name, fmt.Sprintf("%d in, %d dropped, %d left", g.Initial, g.Dropped, g.Left)})
	}

	rows = append(rows,
		[2]string{"below threshold", fmt.Sprint(s.BelowThreshold)},
		[2]string{"accepted", fmt.Sprint(s.Accepted)},
		[2]string{"persisted", fmt.Sprintf("%d (%d new, %d updated)", s.Persisted, s.Created, s.Updated)},
		[2]string{"persist failures", fmt.Sprint(s.PersistFailures)},
		[2]string{"artifacts", fmt.Sprint(s.Artifacts)},
		[2]string{"artifact failures", fmt.Sprint(s.ArtifactFailures)},
	)

	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}
