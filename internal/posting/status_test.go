package posting

import "testing"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{in: "New", want: StatusNew},
		{in: "lead", want: StatusLead},
		{in: "under_review", want: StatusUnderReview},
		{in: "  No-Response ", want: StatusNoResponse},
		{in: "WAITING", want: StatusWaiting},
	}

	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if err != nil {
			t.Fatalf("ParseStatus(%q) returned error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseStatusRejectsUnknown(t *testing.T) {
	for _, in := range []string{"", "hired", "poczekalnia"} {
		if _, err := ParseStatus(in); err == nil {
			t.Fatalf("ParseStatus(%q) expected error", in)
		}
	}
}

func TestHaystackIsLowerCaseAndKeepsOriginal(t *testing.T) {
	p := &Posting{
		Title:            "Commercial Director FMCG",
		Description:      "Lead The Team",
		Requirements:     []string{"English C1"},
		Responsibilities: []string{"Retail Growth"},
		Benefits:         []string{"Car"},
	}

	got := p.Haystack()
	want := "commercial director fmcg lead the team retail growth english c1 car"
	if got != want {
		t.Fatalf("unexpected haystack %q", got)
	}
	if p.Title != "Commercial Director FMCG" {
		t.Fatalf("title casing must be preserved, got %q", p.Title)
	}
}
