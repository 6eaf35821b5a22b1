package normalize

import (
	"errors"
	"testing"

	"github.com/neco001/Job-Crusher/internal/posting"
	"github.com/neco001/Job-Crusher/internal/source"
)

func TestNormalizeDetailRecord(t *testing.T) {
	rec := &source.Record{
		Source: "pracuj",
		Format: source.FormatDetail,
		Link:   "https://www.pracuj.pl/praca/1",
		Fields: map[string]any{
			"title":            "  Commercial   Director FMCG ",
			"company":          "Acme Foods",
			"location":         "Warszawa",
			"salary":           "18 000 – 22 000 zł brutto / mies.",
			"work_modes":       []any{"praca hybrydowa", "praca zdalna"},
			"position_levels":  "dyrektor",
			"description":      "Grow the retail channel",
			"responsibilities": []any{"Own P&L", ""},
			"requirements":     []any{"English C1"},
		},
	}

	p, err := Normalize(rec, Options{DefaultCurrency: "PLN"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.SourceID != rec.Link {
		t.Fatalf("unexpected source id %q", p.SourceID)
	}
	if p.Title != "Commercial Director FMCG" {
		t.Fatalf("unexpected title %q", p.Title)
	}
	if !p.HasWorkMode(posting.WorkModeHybrid) || !p.HasWorkMode(posting.WorkModeRemote) {
		t.Fatalf("unexpected work modes %v", p.WorkModes)
	}
	if p.SeniorityHint != "dyrektor" {
		t.Fatalf("unexpected seniority hint %q", p.SeniorityHint)
	}
	if len(p.Responsibilities) != 1 {
		t.Fatalf("expected empty list items to be dropped, got %v", p.Responsibilities)
	}
	if p.Benefits == nil || len(p.Benefits) != 0 {
		t.Fatalf("expected empty benefits, got %v", p.Benefits)
	}
	if p.Compensation == nil || p.Compensation.Amount != 18000 || p.Compensation.Currency != "PLN" || p.Compensation.Period != posting.PeriodMonthly {
		t.Fatalf("unexpected compensation %+v", p.Compensation)
	}
}

func TestNormalizeToleratesMissingOptionalFields(t *testing.T) {
	rec := &source.Record{
		Format: source.FormatDetail,
		Link:   "https://example.com/2",
		Fields: map[string]any{"title": "Head of Sales"},
	}

	p, err := Normalize(rec, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Compensation != nil {
		t.Fatalf("expected no compensation, got %+v", p.Compensation)
	}
	if p.CompanyName != unknownCompany {
		t.Fatalf("expected fallback company, got %q", p.CompanyName)
	}
}

func TestNormalizeFlatRecord(t *testing.T) {
	rec := &source.Record{
		Source: "indeed",
		Format: source.FormatFlat,
		Fields: map[string]any{
			"job_url":    "https://indeed.com/viewjob?jk=1",
			"title":      "VP Sales",
			"company":    "Globex",
			"location":   "Warsaw",
			"city":       "Warsaw",
			"state":      "Mazowieckie",
			"is_remote":  "true",
			"min_amount": "",
			"max_amount": 120000,
			"interval":   "yearly",
			"currency":   "usd",
			"job_level":  "Director",
		},
	}

	p, err := Normalize(rec, Options{DefaultCurrency: "PLN"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.SourceID != "https://indeed.com/viewjob?jk=1" {
		t.Fatalf("unexpected source id %q", p.SourceID)
	}
	if p.Location != "Warsaw, Mazowieckie" {
		t.Fatalf("unexpected location %q", p.Location)
	}
	if !p.HasWorkMode(posting.WorkModeRemote) {
		t.Fatalf("expected remote work mode")
	}
	c := p.Compensation
	if c == nil || c.Amount != 120000 || c.Period != posting.PeriodYearly || c.Currency != "USD" {
		t.Fatalf("unexpected compensation %+v", c)
	}
}

func TestNormalizeFailures(t *testing.T) {
	tests := []struct {
		name string
		rec  *source.Record
		want error
	}{
		{
			name: "nil record",
			rec:  nil,
			want: ErrMissingField,
		},
		{
			name: "missing link",
			rec:  &source.Record{Fields: map[string]any{"title": "Director"}},
			want: ErrMissingField,
		},
		{
			name: "missing title",
			rec:  &source.Record{Link: "x", Fields: map[string]any{"company": "Acme"}},
			want: ErrMissingField,
		},
		{
			name: "error marker",
			rec:  &source.Record{Link: "x", Fields: map[string]any{"error": "blocked"}},
			want: ErrSourceMarker,
		},
		{
			name: "unknown format",
			rec:  &source.Record{Link: "x", Format: "xml"},
			want: ErrUnknownFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.rec, Options{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var nerr *Error
			if !errors.As(err, &nerr) {
				t.Fatalf("expected *Error, got %T", err)
			}
		})
	}
}
