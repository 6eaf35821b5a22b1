// Package posting holds the canonical job posting shape shared by every
// stage of the pipeline.
package posting

import "strings"

// WorkMode is a declared way of working for a posting.
type WorkMode string

const (
	WorkModeRemote      WorkMode = "remote"
	WorkModeHybrid      WorkMode = "hybrid"
	WorkModeOnSite      WorkMode = "on_site"
	WorkModeUnspecified WorkMode = "unspecified"
)

// Period is the time unit a compensation amount is quoted in.
type Period string

const (
	PeriodHourly  Period = "hourly"
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// Compensation is a structured pay amount as declared by the source.
type Compensation struct {
	Amount   float64
	Period   Period
	Currency string
	// Raw keeps the text the amount was parsed from, if any.
	Raw string
}

// Posting is the canonical, source-independent job posting.
// Text fields keep the original casing; comparisons lower-case copies.
type Posting struct {
	SourceID         string
	Source           string
	CompanyName      string
	Title            string
	Location         string
	WorkModes        []WorkMode
	Compensation     *Compensation
	Description      string
	Requirements     []string
	Responsibilities []string
	Benefits         []string
	SeniorityHint    string
}

// HasWorkMode reports whether the posting declares the given mode.
func (p *Posting) HasWorkMode(mode WorkMode) bool {
	for _, m := range p.WorkModes {
		if m == mode {
			return true
		}
	}
	return false
}

// Haystack returns the lower-cased text used for keyword matching: title,
// description and every list-valued field.
func (p *Posting) Haystack() string {
	parts := make([]string, 0, 2+len(p.Requirements)+len(p.Responsibilities)+len(p.Benefits))
	parts = append(parts, p.Title, p.Description)
	parts = append(parts, p.Responsibilities...)
	parts = append(parts, p.Requirements...)
	parts = append(parts, p.Benefits...)

	return strings.ToLower(strings.Join(parts, " "))
}

// FullText is the stored free-text rendition of the posting.
func (p *Posting) FullText() string {
	var b strings.Builder
	b.WriteString(p.Title)
	if p.Description != "" {
		b.WriteString("\n\n")
		b.WriteString(p.Description)
	}
	writeList(&b, p.Responsibilities)
	writeList(&b, p.Requirements)
	writeList(&b, p.Benefits)
	return b.String()
}

func writeList(b *strings.Builder, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n")
	for _, item := range items {
		b.WriteString("\n- ")
		b.WriteString(item)
	}
}
