package filtering

import (
	"errors"
	"strings"

	"github.com/neco001/Job-Crusher/internal/posting"
)

type locationFilter struct {
	toggle
	modes      []posting.WorkMode
	localities []string
}

// NewLocation creates the gate accepting postings with an allowed work mode
// or an allowed locality token in the location text.
func NewLocation(cfg LocationConfig) Filter {
	f := &locationFilter{
		modes:      cfg.WorkModes,
		localities: lowerAll(cfg.Localities),
	}
	if cfg.Disabled {
		f.Disable(disabledInConfig)
	}
	return f
}

func (f *locationFilter) Name() string { return GateLocation }

func (f *locationFilter) Validate() error {
	if len(f.modes) == 0 && len(f.localities) == 0 {
		return errors.New("no work modes or localities are allowed")
	}
	return nil
}

func (f *locationFilter) Apply(p *posting.Posting) *Rejection {
	for _, mode := range f.modes {
		if p.HasWorkMode(mode) {
			return nil
		}
	}

	location := strings.ToLower(p.Location)
	if containsAny(location, f.localities) != "" {
		return nil
	}

	return &Rejection{Gate: GateLocation, Detail: p.Location}
}

func (f *locationFilter) Status() Status {
	modes := make([]string, 0, len(f.modes))
	for _, m := range f.modes {
		modes = append(modes, string(m))
	}
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{
			"work_modes": strings.Join(modes, ","),
			"localities": strings.Join(f.localities, ","),
		},
	}
}

func lowerAll(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// containsAny returns the first token found in s, or "".
func containsAny(s string, tokens []string) string {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return t
		}
	}
	return ""
}
