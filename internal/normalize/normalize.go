// Package normalize maps source-specific raw records into the canonical
// posting shape.
package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/neco001/Job-Crusher/internal/posting"
	"github.com/neco001/Job-Crusher/internal/source"
)

const unknownCompany = "Unknown"

var (
	// ErrMissingField is returned when a required field is absent.
	ErrMissingField = errors.New("missing required field")
	// ErrUnknownFormat is returned for records in an unsupported shape.
	ErrUnknownFormat = errors.New("unknown record format")
	// ErrSourceMarker is returned when the record carries the source's error marker.
	ErrSourceMarker = errors.New("record carries source error marker")
)

// Error is a normalization failure for one record.
type Error struct {
	Link  string
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("normalize %s: %v: %s", e.Link, e.Err, e.Field)
	}
	return fmt.Sprintf("normalize %s: %v", e.Link, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options tune normalization.
type Options struct {
	// DefaultCurrency is assumed for amounts without a currency marker.
	DefaultCurrency string
}

// detailRecord is the shape produced by site scrapers for a detail page.
type detailRecord struct {
	URL              string   `mapstructure:"url"`
	Title            string   `mapstructure:"title"`
	Company          string   `mapstructure:"company"`
	Location         string   `mapstructure:"location"`
	Salary           string   `mapstructure:"salary"`
	WorkModes        []string `mapstructure:"work_modes"`
	PositionLevels   []string `mapstructure:"position_levels"`
	Description      string   `mapstructure:"description"`
	Responsibilities []string `mapstructure:"responsibilities"`
	Requirements     []string `mapstructure:"requirements"`
	Benefits         []string `mapstructure:"benefits"`
	Error            string   `mapstructure:"error"`
}

// flatRecord is the tabular row shape exported by job-board aggregators.
type flatRecord struct {
	JobURL      string   `mapstructure:"job_url"`
	Title       string   `mapstructure:"title"`
	Company     string   `mapstructure:"company"`
	Location    string   `mapstructure:"location"`
	City        string   `mapstructure:"city"`
	State       string   `mapstructure:"state"`
	IsRemote    bool     `mapstructure:"is_remote"`
	WorkModes   []string `mapstructure:"work_modes"`
	MinAmount   float64  `mapstructure:"min_amount"`
	MaxAmount   float64  `mapstructure:"max_amount"`
	Interval    string   `mapstructure:"interval"`
	Currency    string   `mapstructure:"currency"`
	Description string   `mapstructure:"description"`
	JobLevel    string   `mapstructure:"job_level"`
}

// Normalize converts one raw record into a Posting. It never fails on
// missing optional fields; only a missing link or title, an unknown
// format or an error marker are failures.
func Normalize(rec *source.Record, opts Options) (*posting.Posting, error) {
	if rec == nil {
		return nil, &Error{Err: ErrMissingField, Field: "record"}
	}

	switch rec.Format {
	case source.FormatDetail, "":
		return fromDetail(rec, opts)
	case source.FormatFlat:
		return fromFlat(rec, opts)
	default:
		return nil, &Error{Link: rec.Link, Err: ErrUnknownFormat, Field: rec.Format}
	}
}

func fromDetail(rec *source.Record, opts Options) (*posting.Posting, error) {
	var d detailRecord
	if err := decode(rec.Fields, &d); err != nil {
		return nil, &Error{Link: rec.Link, Err: err}
	}

	if strings.TrimSpace(d.Error) != "" {
		return nil, &Error{Link: rec.Link, Err: ErrSourceMarker, Field: strings.TrimSpace(d.Error)}
	}

	p := &posting.Posting{
		SourceID:         firstNonEmpty(rec.Link, d.URL),
		Source:           rec.Source,
		CompanyName:      firstNonEmpty(d.Company, unknownCompany),
		Title:            clean(d.Title),
		Location:         clean(d.Location),
		WorkModes:        parseWorkModes(d.WorkModes),
		Description:      strings.TrimSpace(d.Description),
		Requirements:     cleanList(d.Requirements),
		Responsibilities: cleanList(d.Responsibilities),
		Benefits:         cleanList(d.Benefits),
		SeniorityHint:    strings.Join(cleanList(d.PositionLevels), ", "),
	}

	if comp, ok := ParseCompensation(d.Salary, opts.DefaultCurrency); ok {
		p.Compensation = comp
	}

	return p, validate(p)
}

func fromFlat(rec *source.Record, opts Options) (*posting.Posting, error) {
	var f flatRecord
	if err := decode(rec.Fields, &f); err != nil {
		return nil, &Error{Link: rec.Link, Err: err}
	}

	modes := parseWorkModes(f.WorkModes)
	if f.IsRemote && !containsMode(modes, posting.WorkModeRemote) {
		modes = append(modes, posting.WorkModeRemote)
	}

	p := &posting.Posting{
		SourceID:      firstNonEmpty(rec.Link, f.JobURL),
		Source:        rec.Source,
		CompanyName:   firstNonEmpty(f.Company, unknownCompany),
		Title:         clean(f.Title),
		Location:      joinLocation(f.Location, f.City, f.State),
		WorkModes:     modes,
		Description:   strings.TrimSpace(f.Description),
		SeniorityHint: clean(f.JobLevel),
	}

	amount := f.MinAmount
	if amount <= 0 {
		amount = f.MaxAmount
	}
	if amount > 0 {
		currency := strings.ToUpper(strings.TrimSpace(f.Currency))
		if currency == "" {
			currency = strings.ToUpper(opts.DefaultCurrency)
		}
		p.Compensation = &posting.Compensation{
			Amount:   amount,
			Period:   parseInterval(f.Interval),
			Currency: currency,
			Raw:      fmt.Sprintf("%g %s %s", amount, currency, strings.TrimSpace(f.Interval)),
		}
	}

	return p, validate(p)
}

func decode(input map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if input == nil {
		return nil
	}
	return decoder.Decode(input)
}

func validate(p *posting.Posting) error {
	if p.SourceID == "" {
		return &Error{Err: ErrMissingField, Field: "link"}
	}
	if p.Title == "" {
		return &Error{Link: p.SourceID, Err: ErrMissingField, Field: "title"}
	}
	return nil
}

func parseWorkModes(raw []string) []posting.WorkMode {
	modes := make([]posting.WorkMode, 0, len(raw))
	for _, r := range raw {
		mode := ParseWorkMode(r)
		if !containsMode(modes, mode) {
			modes = append(modes, mode)
		}
	}
	return modes
}

// ParseWorkMode maps a free-text work mode label to a WorkMode.
func ParseWorkMode(s string) posting.WorkMode {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "hybrid") || strings.Contains(s, "hybryd"):
		return posting.WorkModeHybrid
	case strings.Contains(s, "remote") || strings.Contains(s, "zdaln"):
		return posting.WorkModeRemote
	case strings.Contains(s, "site") || strings.Contains(s, "office") || strings.Contains(s, "stacjonarn"):
		return posting.WorkModeOnSite
	default:
		return posting.WorkModeUnspecified
	}
}

func containsMode(modes []posting.WorkMode, mode posting.WorkMode) bool {
	for _, m := range modes {
		if m == mode {
			return true
		}
	}
	return false
}

func parseInterval(s string) posting.Period {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yearly", "annual", "year":
		return posting.PeriodYearly
	case "hourly", "hour":
		return posting.PeriodHourly
	case "daily", "day":
		return posting.PeriodDaily
	case "weekly", "week":
		return posting.PeriodWeekly
	default:
		return posting.PeriodMonthly
	}
}

func joinLocation(parts ...string) string {
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = clean(part)
		key := strings.ToLower(part)
		if part == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, part)
	}
	return strings.Join(out, ", ")
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = clean(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
