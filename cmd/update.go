package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neco001/Job-Crusher/internal/posting"
	"github.com/neco001/Job-Crusher/internal/store"
)

var updateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Change the status of a posting or append a note to it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		update(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().StringP("status", "s", "", "new status: "+statusList())
	updateCmd.Flags().StringP("note", "n", "", "note to append")
}

func statusList() string {
	names := make([]string, 0, len(posting.Statuses()))
	for _, s := range posting.Statuses() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

func update(cmd *cobra.Command, rawID string) {
	ctx := context.Background()

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		log.Fatalf("invalid posting id %q", rawID)
	}

	status, _ := cmd.Flags().GetString("status")
	note, _ := cmd.Flags().GetString("note")

	e, err := newEnv(ctx, false)
	if err != nil {
		log.Fatalf("preparing: %s", err)
	}
	defer e.close()

	if err := updatePosting(ctx, e.store, id, status, note); err != nil {
		e.logger.Fatal("updating posting", zap.Int64("id", id), zap.Error(err))
	}
	fmt.Printf("Updated posting %d\n", id)
}

func updatePosting(ctx context.Context, st store.Store, id int64, status, note string) error {
	status, note = strings.TrimSpace(status), strings.TrimSpace(note)
	if status == "" && note == "" {
		return errors.New("nothing to update, set --status or --note")
	}

	if status != "" {
		s, err := posting.ParseStatus(status)
		if err != nil {
			return err
		}
		if err := st.SetStatus(ctx, id, s); err != nil {
			return err
		}
		if note == "" {
			note = fmt.Sprintf("Status changed to %s.", s)
		}
	}
	return st.AppendNote(ctx, id, note)
}
