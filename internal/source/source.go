// Package source defines the boundary to external job sources. An adapter
// lists postings for a search term and fetches the detail record behind a
// listing's link.
package source

import (
	"context"
	"errors"
	"fmt"
)

// Record shapes understood by the normalizer.
const (
	// FormatDetail is a detail-page record produced by a site scraper.
	FormatDetail = "detail"
	// FormatFlat is a tabular row exported by a job-board aggregator.
	FormatFlat = "flat"
)

// Summary is one listing returned by a search.
type Summary struct {
	Title      string
	Company    string
	Location   string
	DetailLink string
	// Record is set when the adapter already holds the full detail record,
	// in which case no detail fetch is needed.
	Record *Record
}

// Record is a raw, source-specific detail record.
type Record struct {
	Source string
	Format string
	Link   string
	Fields map[string]any
}

// Searcher lists postings for a search term.
type Searcher interface {
	Search(ctx context.Context, term string) ([]Summary, error)
}

// Detailer fetches the detail record behind a listing link. A failed fetch
// must return an error; an empty record is a valid result.
type Detailer interface {
	Detail(ctx context.Context, link string) (*Record, error)
}

// Adapter is a named job source.
type Adapter interface {
	Searcher
	Detailer
	Name() string
}

// ErrFetch marks detail fetch failures for one item.
var ErrFetch = errors.New("source fetch failed")

// FetchError describes a failed detail fetch for one link.
type FetchError struct {
	Source string
	Link   string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: fetch %s: %v", e.Source, e.Link, e.Err)
}

func (e *FetchError) Unwrap() []error { return []error{ErrFetch, e.Err} }

// NewFetchError wraps err as a FetchError unless it already is one.
func NewFetchError(src, link string, err error) error {
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{Source: src, Link: link, Err: err}
}
