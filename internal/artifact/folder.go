package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/neco001/Job-Crusher/internal/ai"
	"github.com/neco001/Job-Crusher/internal/logger"
	"github.com/neco001/Job-Crusher/internal/posting"
)

// Report folder file names.
const (
	OfferFile    = "00_OFFER.md"
	AnalysisFile = "01_ANALYSIS.md"
	NotesFile    = "04_NOTES.md"

	dateLayout    = "2006-01-02"
	maxTitleRunes = 50
)

// Folder writes one markdown folder per posting under Root.
type Folder struct {
	Root    string
	analyst ai.Analyst
	logger  *zap.Logger
}

// NewFolder returns a folder sink. The analyst is optional; without one the
// analysis file is a blank checklist.
func NewFolder(root string, analyst ai.Analyst, log *zap.Logger) *Folder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Folder{Root: root, analyst: analyst, logger: log}
}

// FolderName is "<date> ( <company> ) <title>", the title cut to 50 runes.
// Path separators are replaced so the name is a single path element.
func FolderName(addedAt time.Time, company, title string) string {
	company = strings.TrimSpace(company)
	if company == "" {
		company = "Unknown"
	}
	title = strings.TrimSpace(title)
	if r := []rune(title); len(r) > maxTitleRunes {
		title = strings.TrimSpace(string(r[:maxTitleRunes]))
	}
	return fmt.Sprintf("%s ( %s ) %s", addedAt.Format(dateLayout), SafeName(company), SafeName(title))
}

func (f *Folder) Emit(ctx context.Context, r Report) error {
	if r.Posting == nil {
		return fmt.Errorf("report has no posting")
	}
	p := r.Posting

	addedAt := r.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}
	dir := filepath.Join(f.Root, FolderName(addedAt, p.CompanyName, p.Title))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report folder: %w", err)
	}

	var analysis *ai.Analysis
	if f.analyst != nil {
		a, err := f.analyst.Analyze(ctx, p, r.Result)
		if err != nil {
			f.logger.Warn("analysis failed, writing blank checklist",
				append(logger.PostingFields(p.Source, p.SourceID, p.Title, p.CompanyName), zap.Error(err))...)
		} else {
			analysis = a
		}
	}

	files := []struct {
		name string
		body string
	}{
		{OfferFile, renderOffer(r)},
		{AnalysisFile, renderAnalysis(r, analysis)},
		{NotesFile, renderNotes(r, addedAt)},
	}
	for _, file := range files {
		if err := os.WriteFile(filepath.Join(dir, file.name), []byte(file.body), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", file.name, err)
		}
	}

	f.logger.Info("report folder written", zap.String("dir", dir), zap.Int("score", r.Result.Total))
	return nil
}

func renderOffer(r Report) string {
	p := r.Posting
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n## Details\n", p.Title)
	fmt.Fprintf(&b, "- **Company:** %s\n", p.CompanyName)
	fmt.Fprintf(&b, "- **Location:** %s\n", orDefault(p.Location, "Unknown"))
	fmt.Fprintf(&b, "- **Compensation:** %s\n", compensationText(p.Compensation))
	fmt.Fprintf(&b, "- **Work modes:** %s\n", orDefault(workModes(p.WorkModes), "not specified"))
	if p.SeniorityHint != "" {
		fmt.Fprintf(&b, "- **Seniority:** %s\n", p.SeniorityHint)
	}
	fmt.Fprintf(&b, "- **Source:** %s\n", p.Source)
	fmt.Fprintf(&b, "- **Link:** %s\n", p.SourceID)

	fmt.Fprintf(&b, "\n## Match: %d%% - %s\n\n### Breakdown\n", r.Result.Total, r.Result.Tier)
	for _, pts := range r.Result.Breakdown {
		fmt.Fprintf(&b, "- **%s:** %d/%d\n", pts.Category, pts.Points, pts.Cap)
	}

	writeSection(&b, "Responsibilities", p.Responsibilities)
	writeSection(&b, "Requirements", p.Requirements)
	writeSection(&b, "Benefits", p.Benefits)

	if p.Description != "" {
		fmt.Fprintf(&b, "\n## Description\n\n%s\n", p.Description)
	}
	return b.String()
}

func renderAnalysis(r Report, a *ai.Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Analysis: %s\n\n## Score: %d%% - %s\n", r.Posting.Title, r.Result.Total, r.Result.Tier)

	if a == nil {
		b.WriteString("\n### Strengths\n- [ ] Fill in after reading the posting\n")
		b.WriteString("\n### Gaps\n- [ ] Fill in after reading the posting\n")
		b.WriteString("\n### Questions for the recruiter\n- [ ] Prepare questions\n")
	} else {
		if a.Summary != "" {
			fmt.Fprintf(&b, "\n%s\n", a.Summary)
		}
		writeChecklist(&b, "Strengths", a.Strengths)
		writeChecklist(&b, "Gaps", a.Gaps)
		writeChecklist(&b, "Questions for the recruiter", a.Questions)
		if a.Model != "" {
			fmt.Fprintf(&b, "\n_Generated by %s._\n", a.Model)
		}
	}

	b.WriteString("\n### Decision\n- [ ] Apply\n- [ ] Reject\n- [ ] Wait for more information\n")
	return b.String()
}

func renderNotes(r Report, addedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Notes: %s\n\n## Timeline\n", r.Posting.Title)
	fmt.Fprintf(&b, "- **%s:** found via %s, status %s\n", addedAt.Format(dateLayout), r.Posting.Source, r.Status)
	b.WriteString("\n## Company contact\n- [ ] Add contact details\n")
	b.WriteString("\n## Application status\n- [ ] CV sent\n- [ ] Reply received\n- [ ] Phone screen\n- [ ] Interview\n")
	return b.String()
}

func writeSection(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func writeChecklist(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "\n### %s\n", title)
	if len(items) == 0 {
		b.WriteString("- [ ] (none)\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- [ ] %s\n", item)
	}
}

func compensationText(c *posting.Compensation) string {
	if c == nil {
		return "not declared"
	}
	if c.Raw != "" {
		return c.Raw
	}
	return fmt.Sprintf("%g %s %s", c.Amount, c.Currency, c.Period)
}

func workModes(modes []posting.WorkMode) string {
	out := make([]string, 0, len(modes))
	for _, m := range modes {
		out = append(out, string(m))
	}
	return strings.Join(out, ", ")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// SafeName replaces path separators so a company or title can be part of a
// single folder name.
func SafeName(s string) string {
	return strings.NewReplacer("/", "-", "\\", "-", "\x00", "").Replace(s)
}
