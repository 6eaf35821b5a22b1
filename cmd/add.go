package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/neco001/Job-Crusher/internal/posting"
	"github.com/neco001/Job-Crusher/internal/store"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a posting found outside the configured sources",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		add(cmd)
	},
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().String("company", "", "company name (required)")
	addCmd.Flags().String("title", "", "posting title (required)")
	addCmd.Flags().String("url", "", "posting url, a manual:<uuid> key is generated when empty")
	addCmd.Flags().String("location", "", "posting location")
	addCmd.Flags().String("note", "", "first note")
	addCmd.MarkFlagRequired("company")
	addCmd.MarkFlagRequired("title")
}

// manualInput builds the upsert input of a manually added posting.
func manualInput(companyID int64, title, url, location string) store.PostingInput {
	url = strings.TrimSpace(url)
	if url == "" {
		url = "manual:" + uuid.NewString()
	}
	return store.PostingInput{
		CompanyID: companyID,
		SourceURL: url,
		Title:     strings.TrimSpace(title),
		Location:  strings.TrimSpace(location),
	}
}

func add(cmd *cobra.Command) {
	ctx := context.Background()

	e, err := newEnv(ctx, false)
	if err != nil {
		log.Fatalf("preparing: %s", err)
	}
	defer e.close()

	company, _ := cmd.Flags().GetString("company")
	title, _ := cmd.Flags().GetString("title")
	url, _ := cmd.Flags().GetString("url")
	location, _ := cmd.Flags().GetString("location")
	note, _ := cmd.Flags().GetString("note")

	id, err := addPosting(ctx, e.store, company, title, url, location, note)
	if err != nil {
		e.logger.Fatal("adding posting", zap.Error(err))
	}
	fmt.Printf("Added posting %d\n", id)
}

func addPosting(ctx context.Context, st store.Store, company, title, url, location, note string) (int64, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return 0, fmt.Errorf("%w: company is required", store.ErrInvalidInput)
	}

	if url = strings.TrimSpace(url); url != "" {
		existing, err := st.GetBySourceURL(ctx, url)
		switch {
		case err == nil:
			return existing.ID, fmt.Errorf("%w: posting %d already has url %s", store.ErrInvalidInput, existing.ID, url)
		case !errors.Is(err, store.ErrNotFound):
			return 0, err
		}
	}

	companyID, err := st.EnsureCompany(ctx, company)
	if err != nil {
		return 0, err
	}

	res, err := st.UpsertPosting(ctx, manualInput(companyID, title, url, location), posting.StatusNew)
	if err != nil {
		return 0, err
	}

	text := "Added manually."
	if note = strings.TrimSpace(note); note != "" {
		text += " " + note
	}
	if err := st.AppendNote(ctx, res.ID, text); err != nil {
		return res.ID, fmt.Errorf("append note: %w", err)
	}
	return res.ID, nil
}
