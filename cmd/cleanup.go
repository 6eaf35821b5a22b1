package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neco001/Job-Crusher/internal/archive"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Move stale postings to No Response and archive report folders of closed companies",
	Run: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func archiveConfig(config *Config) archive.Config {
	return archive.Config{
		MaxAge:     config.Reports.MaxAge,
		ReportsDir: config.Reports.Dir,
		ArchiveDir: config.Reports.ArchiveDir,
		Skip:       config.Reports.Skip,
	}
}

func cleanup() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := newEnv(ctx, false)
	if err != nil {
		log.Fatalf("preparing: %s", err)
	}
	defer e.close()

	res, err := archive.New(archiveConfig(e.config), e.store, e.logger).Run(ctx)
	if err != nil {
		e.logger.Fatal("cleanup failed", zap.Error(err))
	}

	fmt.Printf("Aged out: %d\n", res.Aged)
	fmt.Printf("Archived folders: %d\n", len(res.Archived))
	for _, name := range res.Archived {
		fmt.Printf("  %s\n", name)
	}
}
