package filtering

import (
	"errors"
	"strings"

	"github.com/neco001/Job-Crusher/internal/posting"
)

type seniorityFilter struct {
	toggle
	required []string
	excluded []string
}

// NewSeniority creates the gate rejecting excluded levels in the title and
// requiring a wanted level in the title or the seniority hint. Postings
// without any seniority signal are rejected.
func NewSeniority(cfg SeniorityConfig) Filter {
	f := &seniorityFilter{
		required: lowerAll(cfg.Required),
		excluded: lowerAll(cfg.Excluded),
	}
	if cfg.Disabled {
		f.Disable(disabledInConfig)
	}
	return f
}

func (f *seniorityFilter) Name() string { return GateSeniority }

func (f *seniorityFilter) Validate() error {
	if len(f.required) == 0 {
		return errors.New("at least one required level token is needed")
	}
	return nil
}

func (f *seniorityFilter) Apply(p *posting.Posting) *Rejection {
	title := strings.ToLower(p.Title)
	if token := containsAny(title, f.excluded); token != "" {
		return &Rejection{Gate: GateSeniority, Detail: "excluded level " + token}
	}

	if containsAny(title, f.required) != "" {
		return nil
	}
	if containsAny(strings.ToLower(p.SeniorityHint), f.required) != "" {
		return nil
	}

	return &Rejection{Gate: GateSeniority, Detail: "no required level"}
}

func (f *seniorityFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{
			"required": strings.Join(f.required, ","),
			"excluded": strings.Join(f.excluded, ","),
		},
	}
}
