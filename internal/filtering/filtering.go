// Package filtering implements the hard filter chain: ordered pass/fail
// gates that drop postings which structurally cannot match before any
// scoring work is done.
package filtering

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/neco001/Job-Crusher/internal/posting"
)

// Gate names double as rejection reason codes.
const (
	GateLocation     = "location"
	GateSeniority    = "seniority"
	GateCompensation = "compensation"
)

const disabledInConfig = "disabled in config"

// Filter represents a single gate of the chain.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	// Apply returns nil when the posting passes the gate.
	Apply(p *posting.Posting) *Rejection
}

// Rejection is the terminal classification of a posting dropped by a gate.
type Rejection struct {
	Gate   string
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return fmt.Sprintf("rejected by %s gate", r.Gate)
	}
	return fmt.Sprintf("rejected by %s gate: %s", r.Gate, r.Detail)
}

// Step describes the accumulated result of executing a gate.
type Step struct {
	Name    string
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Chain runs gates in order and stops at the first rejection.
type Chain struct {
	steps  []Filter
	logger *zap.Logger

	mu    sync.Mutex
	stats map[string]*Step
}

// New creates a chain over the supplied gates. Order is preserved.
func New(steps []Filter, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		steps:  steps,
		logger: logger,
		stats:  make(map[string]*Step, len(steps)),
	}
}

// Default builds the location, seniority and compensation gates in that order.
func Default(cfg *Config, logger *zap.Logger) *Chain {
	if cfg == nil {
		cfg = &Config{}
	}
	return New([]Filter{
		NewLocation(cfg.Location),
		NewSeniority(cfg.Seniority),
		NewCompensation(cfg.Compensation, logger),
	}, logger)
}

// Validate checks the configuration of every enabled gate.
func (c *Chain) Validate() error {
	for _, step := range c.steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(); err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}
	}
	return nil
}

// Check runs the enabled gates in order. The first failing gate
// short-circuits the chain and its rejection is returned.
func (c *Chain) Check(p *posting.Posting) *Rejection {
	for _, step := range c.steps {
		if !step.IsEnabled() {
			continue
		}

		rejection := step.Apply(p)
		c.record(step.Name(), rejection != nil)

		if rejection != nil {
			c.logger.Debug("filter rejected posting",
				zap.String("gate", rejection.Gate),
				zap.String("detail", rejection.Detail),
				zap.String("link", p.SourceID),
			)
			return rejection
		}
	}
	return nil
}

// Steps returns per-gate counters in chain order.
func (c *Chain) Steps() []Step {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Step, 0, len(c.steps))
	for _, step := range c.steps {
		if s, ok := c.stats[step.Name()]; ok {
			out = append(out, *s)
			continue
		}
		out = append(out, Step{Name: step.Name()})
	}
	return out
}

// Reset clears the per-gate counters, so Steps describes a single run.
func (c *Chain) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = make(map[string]*Step, len(c.steps))
}

// Filters returns the gates of the chain.
func (c *Chain) Filters() []Filter { return c.steps }

func (c *Chain) record(name string, dropped bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.stats[name]
	if !ok {
		s = &Step{Name: name}
		c.stats[name] = s
	}
	s.Initial++
	if dropped {
		s.Dropped++
	} else {
		s.Left++
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// toggle holds the enable state shared by all gates.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }
