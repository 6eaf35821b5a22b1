package cmd

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/neco001/Job-Crusher/internal/archive"
	"github.com/neco001/Job-Crusher/internal/scheduler"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on the configured cron schedule until interrupted",
	Run: func(cmd *cobra.Command, _ []string) {
		schedule(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().Bool("now", false, "start the first run immediately")
	scheduleCmd.Flags().Bool("cleanup", false, "run the cleanup sweep after every run")
	scheduleCmd.Flags().StringSlice("skip-filters", nil, "filters to disable: location, seniority, compensation")
}

func schedule(cmd *cobra.Command) {
	viper.BindPFlag("skip-filters", cmd.Flags().Lookup("skip-filters"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := newEnv(ctx, true)
	if err != nil {
		log.Fatalf("preparing: %s", err)
	}
	defer e.close()

	p, err := buildPipeline(ctx, e)
	if err != nil {
		e.logger.Fatal("building the pipeline", zap.Error(err))
	}

	withCleanup, _ := cmd.Flags().GetBool("cleanup")
	sweeper := archive.New(archiveConfig(e.config), e.store, e.logger)

	job := func(ctx context.Context) error {
		if _, err := p.Run(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if !withCleanup {
			return nil
		}
		res, err := sweeper.Run(ctx)
		if err != nil {
			return err
		}
		e.logger.Info("cleanup complete", zap.Int64("aged", res.Aged), zap.Int("archived", len(res.Archived)))
		return nil
	}

	runNow, _ := cmd.Flags().GetBool("now")
	s := scheduler.New(e.config.Schedule, job, e.logger)
	if err := s.Start(ctx, runNow); err != nil {
		e.logger.Fatal("starting the scheduler", zap.Error(err))
	}

	<-ctx.Done()
	e.logger.Info("stopping", zap.String("reason", "signal received"))
	s.Stop()
}
