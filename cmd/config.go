package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/neco001/Job-Crusher/internal/archive"
	"github.com/neco001/Job-Crusher/internal/filtering"
	"github.com/neco001/Job-Crusher/internal/headhunter"
	"github.com/neco001/Job-Crusher/internal/normalize"
	"github.com/neco001/Job-Crusher/internal/pipeline"
	"github.com/neco001/Job-Crusher/internal/posting"
	"github.com/neco001/Job-Crusher/internal/scoring"
)

// Source kinds.
const (
	SourceHeadhunter = "headhunter"
	SourceScraper    = "scraper"
	SourceFeed       = "feed"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	DefaultCurrency string         `mapstructure:"default-currency"`
	TokenFile       string         `mapstructure:"token-file"`
	Sources         []SourceConfig `mapstructure:"sources"`
	Filters         FiltersConfig  `mapstructure:"filters"`
	Scoring         ScoringConfig  `mapstructure:"scoring"`
	Pacing          PacingConfig   `mapstructure:"pacing"`
	Store           StoreConfig    `mapstructure:"store"`
	Redis           RedisConfig    `mapstructure:"redis"`
	Reports         ReportsConfig  `mapstructure:"reports"`
	Schedule        string         `mapstructure:"schedule"`
	AI              *AIConfig      `mapstructure:"ai"`
}

type SourceConfig struct {
	Name      string        `mapstructure:"name"`
	Kind      string        `mapstructure:"kind"`
	Terms     []string      `mapstructure:"terms"`
	URL       string        `mapstructure:"url"`
	File      string        `mapstructure:"file"`
	Timeout   time.Duration `mapstructure:"timeout"`
	TokenFile string        `mapstructure:"token-file"`
	UserAgent string        `mapstructure:"user-agent"`
	// Search holds extra headhunter search parameters.
	Search headhunter.SearchParams `mapstructure:"search"`
}

type FiltersConfig struct {
	Location struct {
		Disabled   bool     `mapstructure:"disabled"`
		WorkModes  []string `mapstructure:"work-modes"`
		Localities []string `mapstructure:"localities"`
	} `mapstructure:"location"`
	Seniority struct {
		Disabled bool     `mapstructure:"disabled"`
		Required []string `mapstructure:"required"`
		Excluded []string `mapstructure:"excluded"`
	} `mapstructure:"seniority"`
	Compensation struct {
		Disabled          bool               `mapstructure:"disabled"`
		Floor             float64            `mapstructure:"floor"`
		ReferenceCurrency string             `mapstructure:"reference-currency"`
		MonthlyHours      float64            `mapstructure:"monthly-hours"`
		Rates             map[string]float64 `mapstructure:"rates"`
	} `mapstructure:"compensation"`
}

type ScoringConfig struct {
	Thresholds struct {
		MustApply int `mapstructure:"must-apply"`
		Strong    int `mapstructure:"strong"`
		Maybe     int `mapstructure:"maybe"`
	} `mapstructure:"thresholds"`
	Categories []CategoryConfig `mapstructure:"categories"`
}

type CategoryConfig struct {
	Name     string          `mapstructure:"name"`
	Cap      int             `mapstructure:"cap"`
	Keywords []KeywordConfig `mapstructure:"keywords"`
}

type KeywordConfig struct {
	Token  string `mapstructure:"token"`
	Points int    `mapstructure:"points"`
}

type PacingConfig struct {
	Delay  time.Duration `mapstructure:"delay"`
	Window struct {
		Key    string        `mapstructure:"key"`
		Limit  int           `mapstructure:"limit"`
		Period time.Duration `mapstructure:"period"`
	} `mapstructure:"window"`
}

type StoreConfig struct {
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn" json:"-"`
	DSNFile string `mapstructure:"dsn-file"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Publish bool   `mapstructure:"publish"`
	Channel string `mapstructure:"channel"`
}

type ReportsConfig struct {
	Dir        string        `mapstructure:"dir"`
	ArchiveDir string        `mapstructure:"archive-dir"`
	Skip       []string      `mapstructure:"skip"`
	MinScore   int           `mapstructure:"min-score"`
	MaxAge     time.Duration `mapstructure:"max-age"`
}

type AIConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Profile     string        `mapstructure:"profile"`
	ProfileFile string        `mapstructure:"profile-file"`
	Gemini      *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key" json:"-"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

func setDefaults(v *viper.Viper) {
	def := filtering.DefaultConfig()
	thresholds := scoring.DefaultThresholds()

	v.SetDefault("default-currency", def.Compensation.ReferenceCurrency)

	modes := make([]string, 0, len(def.Location.WorkModes))
	for _, m := range def.Location.WorkModes {
		modes = append(modes, string(m))
	}
	v.SetDefault("filters.location.work-modes", modes)
	v.SetDefault("filters.location.localities", def.Location.Localities)
	v.SetDefault("filters.seniority.required", def.Seniority.Required)
	v.SetDefault("filters.seniority.excluded", def.Seniority.Excluded)
	v.SetDefault("filters.compensation.floor", def.Compensation.Floor)
	v.SetDefault("filters.compensation.reference-currency", def.Compensation.ReferenceCurrency)
	v.SetDefault("filters.compensation.monthly-hours", def.Compensation.MonthlyHours)
	v.SetDefault("filters.compensation.rates", def.Compensation.Rates)

	v.SetDefault("scoring.thresholds.must-apply", thresholds.MustApply)
	v.SetDefault("scoring.thresholds.strong", thresholds.Strong)
	v.SetDefault("scoring.thresholds.maybe", thresholds.Maybe)

	v.SetDefault("pacing.delay", 10*time.Second)
	v.SetDefault("pacing.window.key", "job-crusher:requests")
	v.SetDefault("pacing.window.period", time.Minute)

	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("redis.channel", "EVENT_POSTING_ACCEPTED")

	v.SetDefault("reports.dir", "reports")
	v.SetDefault("reports.archive-dir", "reports/99_Archive")
	v.SetDefault("reports.skip", []string{"_base_files"})
	v.SetDefault("reports.min-score", pipeline.DefaultArtifactMinScore)
	v.SetDefault("reports.max-age", archive.DefaultMaxAge)

	v.SetDefault("schedule", "@every 6h")
}

func loadConfig(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &config, nil
}

// FilterConfig converts the filter section.
func (c *Config) FilterConfig() (*filtering.Config, error) {
	out := &filtering.Config{}

	out.Location.Disabled = c.Filters.Location.Disabled
	out.Location.Localities = c.Filters.Location.Localities
	for _, raw := range c.Filters.Location.WorkModes {
		mode := normalize.ParseWorkMode(raw)
		if mode == posting.WorkModeUnspecified {
			return nil, fmt.Errorf("unknown work mode %q", raw)
		}
		out.Location.WorkModes = append(out.Location.WorkModes, mode)
	}

	out.Seniority.Disabled = c.Filters.Seniority.Disabled
	out.Seniority.Required = c.Filters.Seniority.Required
	out.Seniority.Excluded = c.Filters.Seniority.Excluded

	comp := c.Filters.Compensation
	out.Compensation = filtering.CompensationConfig{
		Disabled:          comp.Disabled,
		Floor:             comp.Floor,
		ReferenceCurrency: comp.ReferenceCurrency,
		MonthlyHours:      comp.MonthlyHours,
		Rates:             comp.Rates,
	}
	return out, nil
}

// Scorer builds the scorer; without configured categories the built-in
// table is used.
func (c *Config) Scorer() (*scoring.Scorer, error) {
	categories := scoring.DefaultCategories()
	if len(c.Scoring.Categories) > 0 {
		categories = make([]scoring.Category, 0, len(c.Scoring.Categories))
		for _, cc := range c.Scoring.Categories {
			cat := scoring.Category{Name: cc.Name, Cap: cc.Cap}
			for _, kw := range cc.Keywords {
				cat.Keywords = append(cat.Keywords, scoring.Keyword{Token: strings.ToLower(kw.Token), Points: kw.Points})
			}
			categories = append(categories, cat)
		}
	}

	th := scoring.Thresholds{
		MustApply: c.Scoring.Thresholds.MustApply,
		Strong:    c.Scoring.Thresholds.Strong,
		Maybe:     c.Scoring.Thresholds.Maybe,
	}
	return scoring.New(categories, th)
}
