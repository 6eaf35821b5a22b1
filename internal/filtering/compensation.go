package filtering

import (
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/neco001/Job-Crusher/internal/posting"
)

const (
	weeksPerMonth = 52.0 / 12.0
	hoursPerDay   = 8.0
)

type compensationFilter struct {
	toggle
	cfg    CompensationConfig
	logger *zap.Logger
}

// NewCompensation creates the gate rejecting declared pay below the
// monthly floor. Postings without declared pay pass.
func NewCompensation(cfg CompensationConfig, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ReferenceCurrency = strings.ToUpper(strings.TrimSpace(cfg.ReferenceCurrency))
	rates := make(map[string]float64, len(cfg.Rates))
	for code, rate := range cfg.Rates {
		rates[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	cfg.Rates = rates

	f := &compensationFilter{cfg: cfg, logger: logger}
	if cfg.Disabled {
		f.Disable(disabledInConfig)
	}
	return f
}

func (f *compensationFilter) Name() string { return GateCompensation }

func (f *compensationFilter) Validate() error {
	if f.cfg.Floor < 0 {
		return errors.New("floor must not be negative")
	}
	if f.cfg.ReferenceCurrency == "" {
		return errors.New("reference currency is required")
	}
	if f.cfg.MonthlyHours <= 0 {
		return errors.New("monthly hours must be positive")
	}
	for code, rate := range f.cfg.Rates {
		if rate <= 0 {
			return errors.New("rate for " + code + " must be positive")
		}
	}
	return nil
}

func (f *compensationFilter) Apply(p *posting.Posting) *Rejection {
	if p.Compensation == nil {
		return nil
	}

	monthly, ok := MonthlyEquivalent(p.Compensation, f.cfg)
	if !ok {
		f.logger.Info("compensation currency has no conversion rate, treating as undeclared",
			zap.String("link", p.SourceID),
			zap.String("currency", p.Compensation.Currency),
		)
		return nil
	}

	if monthly < f.cfg.Floor {
		return &Rejection{
			Gate: GateCompensation,
			Detail: strconv.FormatFloat(monthly, 'f', 0, 64) + " " + f.cfg.ReferenceCurrency +
				" below " + strconv.FormatFloat(f.cfg.Floor, 'f', 0, 64),
		}
	}
	return nil
}

func (f *compensationFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{
			"floor":              strconv.FormatFloat(f.cfg.Floor, 'f', -1, 64),
			"reference_currency": f.cfg.ReferenceCurrency,
		},
	}
}

// MonthlyEquivalent converts a compensation into a monthly amount in the
// reference currency. It reports false when the currency cannot be converted.
func MonthlyEquivalent(c *posting.Compensation, cfg CompensationConfig) (float64, bool) {
	if c == nil {
		return 0, false
	}

	ref := strings.ToUpper(strings.TrimSpace(cfg.ReferenceCurrency))
	currency := strings.ToUpper(strings.TrimSpace(c.Currency))

	rate := 1.0
	if currency != "" && currency != ref {
		r, ok := cfg.Rates[currency]
		if !ok || r <= 0 {
			return 0, false
		}
		rate = r
	}

	amount := c.Amount * rate
	switch c.Period {
	case posting.PeriodYearly:
		amount /= 12
	case posting.PeriodHourly:
		amount *= cfg.MonthlyHours
	case posting.PeriodDaily:
		amount *= cfg.MonthlyHours / hoursPerDay
	case posting.PeriodWeekly:
		amount *= weeksPerMonth
	}
	return amount, true
}
