// Package archive implements the cleanup sweep: stale postings are moved to
// No Response and the report folders of closed companies are moved out of
// the working directory.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/neco001/Job-Crusher/internal/artifact"
	"github.com/neco001/Job-Crusher/internal/posting"
	"github.com/neco001/Job-Crusher/internal/store"
)

// DefaultMaxAge is how long a posting may stay New, Lead or Applied.
const DefaultMaxAge = 60 * 24 * time.Hour

// Config of a sweep.
type Config struct {
	MaxAge time.Duration
	// ReportsDir holds one folder per posting.
	ReportsDir string
	// ArchiveDir receives folders of closed companies.
	ArchiveDir string
	// Skip names folders under ReportsDir never moved, such as a folder with
	// base CV files.
	Skip []string
}

// Result reports what a sweep changed.
type Result struct {
	Aged     int64
	Archived []string
}

type Sweeper struct {
	cfg    Config
	store  store.Store
	now    func() time.Time
	logger *zap.Logger
}

func New(cfg Config, st store.Store, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	return &Sweeper{cfg: cfg, store: st, now: time.Now, logger: logger}
}

func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	var res Result

	cutoff := s.now().Add(-s.cfg.MaxAge)
	aged, err := s.store.AgeOut(ctx, cutoff, posting.StaleStatuses, posting.StatusNoResponse)
	if err != nil {
		return res, fmt.Errorf("age out: %w", err)
	}
	res.Aged = aged
	s.logger.Info("stale postings aged out", zap.Int64("count", aged), zap.Time("cutoff", cutoff))

	if s.cfg.ReportsDir == "" || s.cfg.ArchiveDir == "" {
		return res, nil
	}

	companies, err := s.store.CompaniesWithStatus(ctx, posting.ClosedStatuses)
	if err != nil {
		return res, fmt.Errorf("closed companies: %w", err)
	}
	if len(companies) == 0 {
		return res, nil
	}

	entries, err := os.ReadDir(s.cfg.ReportsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Info("reports directory does not exist, nothing to archive", zap.String("dir", s.cfg.ReportsDir))
			return res, nil
		}
		return res, fmt.Errorf("read reports dir: %w", err)
	}

	skip := s.skipSet()
	for _, entry := range entries {
		if !entry.IsDir() || skip[entry.Name()] {
			continue
		}
		company := matchCompany(entry.Name(), companies)
		if company == "" {
			continue
		}

		moved, err := s.move(entry.Name())
		if err != nil {
			s.logger.Warn("archiving folder failed", zap.String("folder", entry.Name()), zap.Error(err))
			continue
		}
		if moved {
			s.logger.Info("folder archived", zap.String("folder", entry.Name()), zap.String("company", company))
			res.Archived = append(res.Archived, entry.Name())
		}
	}
	return res, nil
}

func (s *Sweeper) move(name string) (bool, error) {
	if err := os.MkdirAll(s.cfg.ArchiveDir, 0o755); err != nil {
		return false, err
	}
	target := filepath.Join(s.cfg.ArchiveDir, name)
	if _, err := os.Stat(target); err == nil {
		s.logger.Warn("archive target exists, leaving folder in place", zap.String("target", target))
		return false, nil
	}
	return true, os.Rename(filepath.Join(s.cfg.ReportsDir, name), target)
}

func (s *Sweeper) skipSet() map[string]bool {
	set := make(map[string]bool, len(s.cfg.Skip)+1)
	for _, name := range s.cfg.Skip {
		set[name] = true
	}
	// the archive may live inside the reports directory
	if rel, err := filepath.Rel(s.cfg.ReportsDir, s.cfg.ArchiveDir); err == nil && !strings.Contains(rel, string(filepath.Separator)) {
		set[rel] = true
	}
	return set
}

// matchCompany returns the company whose "( name )" marker is in folder.
// Names are sanitised the way report folders are named.
func matchCompany(folder string, companies []string) string {
	for _, c := range companies {
		if strings.Contains(folder, "( "+artifact.SafeName(c)+" )") {
			return c
		}
	}
	return ""
}
