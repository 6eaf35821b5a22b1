package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/neco001/Job-Crusher/internal/pipeline"
)

const (
	PromptPersist         = "Persist"
	PromptNo              = "No"
	PromptReportByCompany = "Report by company"
	PromptPostingsToFile  = "Dump postings to file"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Persist accepted postings?",
	Items: []string{PromptPersist, PromptNo, PromptReportByCompany, PromptPostingsToFile},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Search every source once, score the postings and persist the accepted ones",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "persist accepted postings without asking")
	runCmd.Flags().StringSlice("skip-filters", nil, "filters to disable for this run: location, seniority, compensation")
}

// run is the interactive acquisition command.
func run(cmd *cobra.Command) {
	viper.BindPFlag("skip-filters", cmd.Flags().Lookup("skip-filters"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := newEnv(ctx, true)
	if err != nil {
		log.Fatalf("preparing: %s", err)
	}
	defer e.close()

	logger := e.logger
	logger.Info("starting the job-crusher", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(e.config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	p, err := buildPipeline(ctx, e)
	if err != nil {
		logger.Fatal("building the pipeline", zap.Error(err))
	}

	accepted, summary, err := p.Acquire(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("exiting", zap.String("reason", "interrupted, nothing persisted"))
		return
	case err != nil:
		logger.Fatal("acquiring postings", zap.Error(err))
	}

	if len(accepted) == 0 {
		logger.Info("exiting", zap.String("reason", "no postings accepted"))
		_ = summary.Write(os.Stdout)
		return
	}

	if err := printAccepted(accepted); err != nil {
		logger.Fatal("printing postings", zap.Error(err))
	}

	autoApprove, _ := cmd.Flags().GetBool("auto-approve")
	for {
		action := PromptPersist
		if !autoApprove {
			_, action, err = prompt.Run()
			if err != nil {
				logger.Fatal("exiting", zap.Error(err))
			}
		}

		err = handleAction(ctx, action, p, logger, accepted, summary)
		if errors.Is(err, errExit) {
			return
		}
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(ctx context.Context, action string, p *pipeline.Pipeline, logger *zap.Logger, accepted []pipeline.Accepted, summary *pipeline.Summary) error {
	switch action {
	case PromptPersist:
		if err := p.Persist(ctx, accepted, summary); err != nil {
			return fmt.Errorf("persist: %w", err)
		}
		summary.Log(logger)
		if err := summary.Write(os.Stdout); err != nil {
			return err
		}
		return errExit
	case PromptNo:
		logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return errExit
	case PromptReportByCompany:
		pretty, _ := json.MarshalIndent(pipeline.ReportByCompany(accepted), "", "  ")
		logger.Info(string(pretty), zap.Int("postings count", len(accepted)))
		return nil
	case PromptPostingsToFile:
		filename, err := pipeline.DumpToTmpFile(accepted)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func printAccepted(accepted []pipeline.Accepted) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tTIER\tCOMPANY\tTITLE\tLINK")
	for _, a := range accepted {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			a.Result.Total, a.Result.Tier, a.Posting.CompanyName, a.Posting.Title, a.Posting.SourceID,
		)
	}
	return w.Flush()
}
