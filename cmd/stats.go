package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neco001/Job-Crusher/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many postings are in each status",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		stats()
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func stats() {
	ctx := context.Background()

	e, err := newEnv(ctx, false)
	if err != nil {
		log.Fatalf("preparing: %s", err)
	}
	defer e.close()

	counts, err := e.store.Stats(ctx)
	if err != nil {
		e.logger.Fatal("collecting stats", zap.Error(err))
	}

	if err := writeStats(os.Stdout, counts); err != nil {
		e.logger.Fatal("printing stats", zap.Error(err))
	}
}

func writeStats(out io.Writer, counts []store.StatusCount) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	total := 0
	fmt.Fprintln(w, "STATUS\tCOUNT")
	for _, c := range counts {
		fmt.Fprintf(w, "%s\t%d\n", c.Status, c.Count)
		total += c.Count
	}
	fmt.Fprintf(w, "Total\t%d\n", total)
	return w.Flush()
}
