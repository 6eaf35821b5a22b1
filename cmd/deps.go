package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/neco001/Job-Crusher/internal/ai"
	"github.com/neco001/Job-Crusher/internal/ai/gemini"
	"github.com/neco001/Job-Crusher/internal/artifact"
	"github.com/neco001/Job-Crusher/internal/filtering"
	"github.com/neco001/Job-Crusher/internal/headhunter"
	"github.com/neco001/Job-Crusher/internal/logger"
	"github.com/neco001/Job-Crusher/internal/pacing"
	"github.com/neco001/Job-Crusher/internal/pipeline"
	"github.com/neco001/Job-Crusher/internal/secrets"
	"github.com/neco001/Job-Crusher/internal/source/feed"
	"github.com/neco001/Job-Crusher/internal/source/scraperapi"
	"github.com/neco001/Job-Crusher/internal/store"
	"github.com/neco001/Job-Crusher/internal/store/memory"
	"github.com/neco001/Job-Crusher/internal/store/postgres"
)

// env holds the collaborators shared by commands. close releases them.
type env struct {
	config *Config
	logger *zap.Logger
	store  store.Store
	redis  *redis.Client
}

func (e *env) close() {
	if e.store != nil {
		e.store.Close()
	}
	if e.redis != nil {
		if err := e.redis.Close(); err != nil {
			e.logger.Warn("closing redis", zap.Error(err))
		}
	}
	_ = e.logger.Sync()
}

func newEnv(ctx context.Context, withRedis bool) (*env, error) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	config, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	e := &env{config: config, logger: log}

	e.store, err = openStore(ctx, config.Store, log)
	if err != nil {
		return nil, err
	}

	if withRedis && strings.TrimSpace(config.Redis.URL) != "" {
		e.redis, err = newRedisClient(ctx, config.Redis.URL)
		if err != nil {
			// Redis only shares pacing and publishes events.
			log.Warn("redis is unavailable, continuing without it", zap.Error(err))
			e.redis = nil
		}
	}

	return e, nil
}

func openStore(ctx context.Context, cfg StoreConfig, log *zap.Logger) (store.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverMemory:
		log.Warn("using the in-memory store, nothing will be kept after exit")
		return memory.New(nil), nil
	case DriverPostgres, "":
		dsn, err := secrets.Load(secrets.Source{
			Name:  "database url",
			Value: cfg.DSN,
			File:  cfg.DSNFile,
			Env:   "DATABASE_URL",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set store.dsn, store.dsn-file or DATABASE_URL)", err)
		}
		return postgres.New(ctx, dsn, log)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

// newRedisClient creates and verifies a Redis client connection.
func newRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

func buildSources(config *Config, log *zap.Logger) ([]pipeline.Source, error) {
	if len(config.Sources) == 0 {
		return nil, errors.New("no sources configured")
	}

	out := make([]pipeline.Source, 0, len(config.Sources))
	for i, sc := range config.Sources {
		var src pipeline.Source
		src.Terms = sc.Terms

		switch strings.ToLower(strings.TrimSpace(sc.Kind)) {
		case SourceHeadhunter:
			token, err := secrets.Optional(secrets.Source{
				Name: "headhunter token",
				File: firstNonEmpty(sc.TokenFile, config.TokenFile),
				Env:  "HH_TOKEN",
			})
			if err != nil {
				return nil, err
			}
			if token == "" {
				log.Debug("headhunter token is not set, searching anonymously")
			}
			hh := headhunter.New(log, token, sc.Search)
			if sc.UserAgent != "" {
				hh.UserAgent = sc.UserAgent
			}
			if sc.URL != "" {
				hh.APIURL = strings.TrimRight(sc.URL, "/")
			}
			src.Adapter = hh
		case SourceScraper:
			if sc.URL == "" {
				return nil, fmt.Errorf("source %d (%s): url is required", i, sc.Name)
			}
			src.Adapter = scraperapi.New(sc.Name, sc.URL, sc.Timeout, log)
		case SourceFeed:
			if sc.File == "" {
				return nil, fmt.Errorf("source %d (%s): file is required", i, sc.Name)
			}
			src.Adapter = feed.New(sc.Name, sc.File, log)
		default:
			return nil, fmt.Errorf("source %d: unknown kind %q", i, sc.Kind)
		}

		out = append(out, src)
	}
	return out, nil
}

func buildPacer(config *Config, rdb *redis.Client, log *zap.Logger) pacing.Pacer {
	var p pacing.Pacer = pacing.NewFixed(config.Pacing.Delay)

	w := config.Pacing.Window
	if rdb != nil && w.Limit > 0 {
		p = pacing.NewWindow(p, rdb, w.Key, w.Limit, w.Period, log)
	}
	return p
}

func buildAnalyst(ctx context.Context, config *AIConfig, log *zap.Logger) (ai.Analyst, error) {
	if config == nil || !config.Enabled {
		return nil, nil
	}

	gc := config.Gemini
	if gc == nil {
		gc = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: gc.APIKey,
		File:  gc.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	profile := config.Profile
	if config.ProfileFile != "" {
		data, err := os.ReadFile(config.ProfileFile)
		if err != nil {
			return nil, fmt.Errorf("reading candidate profile: %w", err)
		}
		profile = string(data)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, gc.Model)
	if err != nil {
		return nil, err
	}

	analystLogger := logger.WithCommonFields(log, "gemini", generator.Model())
	return gemini.NewAnalyst(generator, profile, analystLogger, gc.MaxLogLength), nil
}

func buildSink(ctx context.Context, e *env) artifact.Sink {
	var sinks artifact.Multi

	analyst, err := buildAnalyst(ctx, e.config.AI, e.logger)
	if err != nil {
		e.logger.Warn("skipping ai analysis", zap.Error(err))
		analyst = nil
	}
	if e.config.Reports.Dir != "" {
		sinks = append(sinks, artifact.NewFolder(e.config.Reports.Dir, analyst, e.logger))
	}

	if e.redis != nil && e.config.Redis.Publish {
		sinks = append(sinks, artifact.NewPublisher(e.redis, e.config.Redis.Channel))
	}

	return sinks
}

// buildChain builds the default gates and disables the ones named in skip.
func buildChain(cfg *filtering.Config, skip []string, log *zap.Logger) (*filtering.Chain, error) {
	chain := filtering.Default(cfg, log)

	known := make(map[string]bool)
	for _, f := range chain.Filters() {
		known[f.Name()] = true
	}
	for _, name := range skip {
		name = strings.ToLower(strings.TrimSpace(name))
		if !known[name] {
			return nil, fmt.Errorf("unknown filter %q", name)
		}
		filtering.DisableByName(chain.Filters(), name, "disabled by flag")
	}

	if err := chain.Validate(); err != nil {
		return nil, fmt.Errorf("filters: %w", err)
	}
	log.Debug("filters prepared", zap.Any("filters", filtering.Describe(chain.Filters())))
	return chain, nil
}

func buildPipeline(ctx context.Context, e *env) (*pipeline.Pipeline, error) {
	sources, err := buildSources(e.config, e.logger)
	if err != nil {
		return nil, err
	}

	filterConfig, err := e.config.FilterConfig()
	if err != nil {
		return nil, err
	}
	chain, err := buildChain(filterConfig, viper.GetStringSlice("skip-filters"), e.logger)
	if err != nil {
		return nil, err
	}

	scorer, err := e.config.Scorer()
	if err != nil {
		return nil, fmt.Errorf("scoring: %w", err)
	}
	e.logger.Debug("scoring table",
		zap.Any("categories", scorer.Categories()),
		zap.Any("thresholds", scorer.Thresholds()),
	)

	return pipeline.New(pipeline.Config{
		DefaultCurrency:  e.config.DefaultCurrency,
		ArtifactMinScore: e.config.Reports.MinScore,
	}, pipeline.Deps{
		Sources: sources,
		Chain:   chain,
		Scorer:  scorer,
		Pacer:   buildPacer(e.config, e.redis, e.logger),
		Store:   e.store,
		Sink:    buildSink(ctx, e),
		Logger:  e.logger,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
