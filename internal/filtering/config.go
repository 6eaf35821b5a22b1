package filtering

import "github.com/neco001/Job-Crusher/internal/posting"

// Config contains configuration settings consumed by the gates.
type Config struct {
	Location     LocationConfig
	Seniority    SeniorityConfig
	Compensation CompensationConfig
}

// LocationConfig configures the location gate.
type LocationConfig struct {
	Disabled bool
	// WorkModes accepted regardless of location text.
	WorkModes []posting.WorkMode
	// Localities are lower-case tokens searched in the location text.
	Localities []string
}

// SeniorityConfig configures the seniority gate.
type SeniorityConfig struct {
	Disabled bool
	Required []string
	Excluded []string
}

// CompensationConfig configures the compensation floor gate.
type CompensationConfig struct {
	Disabled bool
	// Floor is the minimum monthly amount in ReferenceCurrency.
	Floor             float64
	ReferenceCurrency string
	// MonthlyHours converts hourly rates into monthly amounts.
	MonthlyHours float64
	// Rates maps a currency code to its value in ReferenceCurrency.
	Rates map[string]float64
}

// DefaultConfig mirrors the search profile the tool was built for: senior
// commercial roles around Warsaw or remote, paid at least 12000 PLN a month.
func DefaultConfig() *Config {
	return &Config{
		Location: LocationConfig{
			WorkModes:  []posting.WorkMode{posting.WorkModeRemote, posting.WorkModeHybrid},
			Localities: []string{"warszawa", "warsaw", "mazowieckie", "remote", "zdalna", "hybrydowa", "hybrid"},
		},
		Seniority: SeniorityConfig{
			Required: []string{"director", "dyrektor", "head of", "vp", "kierownik", "manager"},
			Excluded: []string{
				"junior", "młodszy", "assistant", "asystent", "coordinator", "koordynator",
				"specialist", "specjalista", "praktykant", "intern", "stażysta",
			},
		},
		Compensation: CompensationConfig{
			Floor:             12000,
			ReferenceCurrency: "PLN",
			MonthlyHours:      160,
			Rates:             map[string]float64{"EUR": 4.3, "USD": 4.0, "GBP": 5.0, "CHF": 4.5},
		},
	}
}
