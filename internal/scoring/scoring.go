// Package scoring rates a posting against the candidate profile with a
// table of weighted keyword categories.
package scoring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/neco001/Job-Crusher/internal/posting"
)

// MaxTotal is the upper bound of a score.
const MaxTotal = 100

// Tier is the verdict derived from a total score.
type Tier string

const (
	TierReject    Tier = "REJECT"
	TierMaybe     Tier = "MAYBE"
	TierStrong    Tier = "STRONG"
	TierMustApply Tier = "MUST_APPLY"
)

// Keyword is a token and the points it contributes when present.
type Keyword struct {
	Token  string
	Points int
}

// Category is a named group of keywords whose points are capped.
type Category struct {
	Name     string
	Cap      int
	Keywords []Keyword
}

// Thresholds are the lowest totals of each tier. Boundary values belong to
// the higher tier.
type Thresholds struct {
	MustApply int
	Strong    int
	Maybe     int
}

// DefaultThresholds returns the 90/70/50 tier bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{MustApply: 90, Strong: 70, Maybe: 50}
}

// Validate checks the thresholds are ordered and within range.
func (t Thresholds) Validate() error {
	if t.Maybe < 0 || t.MustApply > MaxTotal {
		return fmt.Errorf("thresholds must be within 0..%d", MaxTotal)
	}
	if !(t.Maybe <= t.Strong && t.Strong <= t.MustApply) {
		return errors.New("thresholds must satisfy maybe <= strong <= must-apply")
	}
	return nil
}

// Tier maps a total to its verdict tier.
func (t Thresholds) Tier(total int) Tier {
	switch {
	case total >= t.MustApply:
		return TierMustApply
	case total >= t.Strong:
		return TierStrong
	case total >= t.Maybe:
		return TierMaybe
	default:
		return TierReject
	}
}

// StatusFor returns the initial lifecycle status for a tier.
func StatusFor(tier Tier) posting.Status {
	switch tier {
	case TierMustApply, TierStrong:
		return posting.StatusLead
	case TierMaybe:
		return posting.StatusWaiting
	default:
		return posting.StatusRejected
	}
}

// Points is the score of one category.
type Points struct {
	Category string
	Points   int
	Cap      int
}

// Result is the outcome of scoring a posting.
type Result struct {
	Total int
	// Breakdown keeps category order of the table.
	Breakdown []Points
	Tier      Tier
	Status    posting.Status
}

// Category returns the points of the named category.
func (r Result) Category(name string) (int, bool) {
	for _, p := range r.Breakdown {
		if p.Category == name {
			return p.Points, true
		}
	}
	return 0, false
}

// BreakdownMap returns the breakdown keyed by category name.
func (r Result) BreakdownMap() map[string]int {
	out := make(map[string]int, len(r.Breakdown))
	for _, p := range r.Breakdown {
		out[p.Category] = p.Points
	}
	return out
}

// Scorer is a pure function of a posting. It holds no mutable state and is
// safe for concurrent use.
type Scorer struct {
	categories []Category
	thresholds Thresholds
}

// New validates the table and thresholds and returns a Scorer.
func New(categories []Category, thresholds Thresholds) (*Scorer, error) {
	if len(categories) == 0 {
		return nil, errors.New("at least one scoring category is required")
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}

	caps := 0
	seen := make(map[string]bool, len(categories))
	table := make([]Category, 0, len(categories))
	for _, c := range categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, errors.New("category name is required")
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate category %q", name)
		}
		seen[name] = true

		if c.Cap <= 0 {
			return nil, fmt.Errorf("category %q: cap must be positive", name)
		}
		caps += c.Cap

		keywords := make([]Keyword, 0, len(c.Keywords))
		for _, k := range c.Keywords {
			token := strings.ToLower(strings.TrimSpace(k.Token))
			if token == "" {
				return nil, fmt.Errorf("category %q: empty keyword", name)
			}
			if k.Points <= 0 {
				return nil, fmt.Errorf("category %q: keyword %q must have positive points", name, token)
			}
			keywords = append(keywords, Keyword{Token: token, Points: k.Points})
		}
		table = append(table, Category{Name: name, Cap: c.Cap, Keywords: keywords})
	}

	if caps > MaxTotal {
		return nil, fmt.Errorf("category caps sum to %d, must not exceed %d", caps, MaxTotal)
	}

	return &Scorer{categories: table, thresholds: thresholds}, nil
}

// Thresholds returns the tier thresholds of the scorer.
func (s *Scorer) Thresholds() Thresholds { return s.thresholds }

// Categories returns a copy of the scoring table.
func (s *Scorer) Categories() []Category {
	out := make([]Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// Score rates the posting. Each present keyword adds its points once; a
// category never exceeds its cap.
func (s *Scorer) Score(p *posting.Posting) Result {
	haystack := p.Haystack()

	res := Result{Breakdown: make([]Points, 0, len(s.categories))}
	for _, c := range s.categories {
		sum := 0
		for _, k := range c.Keywords {
			if strings.Contains(haystack, k.Token) {
				sum += k.Points
			}
		}
		if sum > c.Cap {
			sum = c.Cap
		}
		res.Breakdown = append(res.Breakdown, Points{Category: c.Name, Points: sum, Cap: c.Cap})
		res.Total += sum
	}

	if res.Total > MaxTotal {
		res.Total = MaxTotal
	}
	res.Tier = s.thresholds.Tier(res.Total)
	res.Status = StatusFor(res.Tier)
	return res
}
