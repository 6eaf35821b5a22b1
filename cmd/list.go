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

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active postings, or all of them",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		list(cmd)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolP("all", "a", false, "include closed postings")
	listCmd.Flags().StringP("search", "q", "", "match title, company or status")
	listCmd.Flags().IntP("limit", "l", store.DefaultListLimit, "maximum number of postings")
}

func list(cmd *cobra.Command) {
	ctx := context.Background()

	all, _ := cmd.Flags().GetBool("all")
	query, _ := cmd.Flags().GetString("search")
	limit, _ := cmd.Flags().GetInt("limit")

	e, err := newEnv(ctx, false)
	if err != nil {
		log.Fatalf("preparing: %s", err)
	}
	defer e.close()

	records, err := e.store.List(ctx, store.ListOptions{Query: query, All: all, Limit: limit})
	if err != nil {
		e.logger.Fatal("listing postings", zap.Error(err))
	}

	if err := writeRecords(os.Stdout, records); err != nil {
		e.logger.Fatal("printing postings", zap.Error(err))
	}
}

func writeRecords(out io.Writer, records []store.Record) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tADDED\tSTATUS\tSCORE\tCOMPANY\tTITLE\tURL")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			r.ID, r.AddedAt.Format("2006-01-02"), r.Status, r.Score, r.Company, r.Title, r.SourceURL,
		)
	}
	return w.Flush()
}
