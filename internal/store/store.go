// Package store defines the persistence gateway for companies and postings.
// Implementations back the natural keys (company name, posting source URL)
// with unique constraints, never overwrite the status of an existing
// posting on upsert, and only ever append to the notes log.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neco001/Job-Crusher/internal/posting"
)

var (
	// ErrNotFound is returned when a posting id does not exist.
	ErrNotFound = errors.New("posting not found")
	// ErrInvalidInput is returned for empty natural keys.
	ErrInvalidInput = errors.New("invalid input")
)

// NoteTimeLayout is the timestamp prefix of every note line.
const NoteTimeLayout = "2006-01-02 15:04"

// PostingInput carries the scraped and score-derived fields of an upsert.
type PostingInput struct {
	CompanyID int64
	SourceURL string
	Title     string
	Location  string
	FullText  string
	Score     int
	Verdict   string
}

// UpsertResult tells what an upsert did.
type UpsertResult struct {
	ID      int64
	Created bool
	// Status is the stored status after the upsert.
	Status posting.Status
	// PreviousScore is the stored score before an update; nil on insert.
	PreviousScore *int
	AddedAt       time.Time
	// Notes is the stored notes log; an upsert never changes it.
	Notes string
}

// ScoreChanged reports whether an update changed the stored score.
func (r UpsertResult) ScoreChanged(score int) bool {
	return r.Created || r.PreviousScore == nil || *r.PreviousScore != score
}

// Record is a stored posting joined with its company.
type Record struct {
	ID        int64
	CompanyID int64
	Company   string
	Title     string
	Location  string
	SourceURL string
	Status    posting.Status
	Notes     string
	FullText  string
	Score     int
	Verdict   string
	AddedAt   time.Time
}

// ListOptions selects postings for listing.
type ListOptions struct {
	// Query matches title, company or status case-insensitively.
	Query string
	// All includes closed postings; otherwise only active statuses are listed
	// unless a query is given.
	All   bool
	Limit int
}

// StatusCount is one row of the status statistics.
type StatusCount struct {
	Status posting.Status
	Count  int
}

// Store is the persistence gateway.
type Store interface {
	// EnsureCompany returns the id of the named company, creating it if absent.
	EnsureCompany(ctx context.Context, name string) (int64, error)
	// UpsertPosting inserts a posting with the initial status, or updates the
	// scraped fields of the posting with the same source URL, leaving its
	// status and notes untouched.
	UpsertPosting(ctx context.Context, in PostingInput, initial posting.Status) (UpsertResult, error)
	// AppendNote appends a timestamped line to the posting's notes.
	AppendNote(ctx context.Context, id int64, text string) error

	SetStatus(ctx context.Context, id int64, status posting.Status) error
	Get(ctx context.Context, id int64) (*Record, error)
	// GetBySourceURL returns ErrNotFound when no posting has the URL.
	GetBySourceURL(ctx context.Context, sourceURL string) (*Record, error)
	List(ctx context.Context, opts ListOptions) ([]Record, error)
	Stats(ctx context.Context) ([]StatusCount, error)
	// AgeOut moves postings added before the cutoff from one of the given
	// statuses to the target status and returns how many changed.
	AgeOut(ctx context.Context, before time.Time, from []posting.Status, to posting.Status) (int64, error)
	// CompaniesWithStatus returns names of companies having a posting in one
	// of the statuses.
	CompaniesWithStatus(ctx context.Context, statuses []posting.Status) ([]string, error)

	Close()
}

// FormatNote renders one notes log entry. Multi-line text is kept, the
// entry always ends with a newline.
func FormatNote(at time.Time, text string) string {
	text = strings.TrimRight(text, "\n")
	return fmt.Sprintf("%s: %s\n", at.Format(NoteTimeLayout), text)
}

// ValidateInput checks the natural keys of an upsert.
func ValidateInput(in PostingInput, initial posting.Status) error {
	if strings.TrimSpace(in.SourceURL) == "" {
		return fmt.Errorf("%w: source url is required", ErrInvalidInput)
	}
	if in.CompanyID == 0 {
		return fmt.Errorf("%w: company id is required", ErrInvalidInput)
	}
	if _, err := posting.ParseStatus(string(initial)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// DefaultListLimit is used when ListOptions.Limit is not positive.
const DefaultListLimit = 25
