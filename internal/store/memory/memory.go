// Package memory is an in-process store used by tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/neco001/Job-Crusher/internal/posting"
	"github.com/neco001/Job-Crusher/internal/store"
)

// Store keeps companies and postings in maps guarded by a mutex.
type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	companies map[string]int64
	names     map[int64]string
	postings  map[int64]*store.Record
	byURL     map[string]int64
	nextCo    int64
	nextPost  int64
}

// New returns an empty store. A nil clock uses time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:       now,
		companies: make(map[string]int64),
		names:     make(map[int64]string),
		postings:  make(map[int64]*store.Record),
		byURL:     make(map[string]int64),
	}
}

func (s *Store) EnsureCompany(_ context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: company name is required", store.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.companies[name]; ok {
		return id, nil
	}
	s.nextCo++
	s.companies[name] = s.nextCo
	s.names[s.nextCo] = name
	return s.nextCo, nil
}

func (s *Store) UpsertPosting(_ context.Context, in store.PostingInput, initial posting.Status) (store.UpsertResult, error) {
	if err := store.ValidateInput(in, initial); err != nil {
		return store.UpsertResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	company, ok := s.names[in.CompanyID]
	if !ok {
		return store.UpsertResult{}, fmt.Errorf("%w: unknown company id %d", store.ErrInvalidInput, in.CompanyID)
	}

	if id, ok := s.byURL[in.SourceURL]; ok {
		rec := s.postings[id]
		prev := rec.Score
		rec.CompanyID = in.CompanyID
		rec.Company = company
		rec.Title = in.Title
		rec.Location = in.Location
		rec.FullText = in.FullText
		rec.Score = in.Score
		rec.Verdict = in.Verdict
		return store.UpsertResult{ID: id, Status: rec.Status, PreviousScore: &prev, AddedAt: rec.AddedAt, Notes: rec.Notes}, nil
	}

	s.nextPost++
	rec := &store.Record{
		ID:        s.nextPost,
		CompanyID: in.CompanyID,
		Company:   company,
		Title:     in.Title,
		Location:  in.Location,
		SourceURL: in.SourceURL,
		Status:    initial,
		FullText:  in.FullText,
		Score:     in.Score,
		Verdict:   in.Verdict,
		AddedAt:   s.now(),
	}
	s.postings[rec.ID] = rec
	s.byURL[in.SourceURL] = rec.ID

	return store.UpsertResult{ID: rec.ID, Created: true, Status: initial, AddedAt: rec.AddedAt}, nil
}

func (s *Store) AppendNote(_ context.Context, id int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.postings[id]
	if !ok {
		return store.ErrNotFound
	}
	rec.Notes += store.FormatNote(s.now(), text)
	return nil
}

func (s *Store) SetStatus(_ context.Context, id int64, status posting.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.postings[id]
	if !ok {
		return store.ErrNotFound
	}
	rec.Status = status
	return nil
}

func (s *Store) Get(_ context.Context, id int64) (*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.postings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *Store) GetBySourceURL(_ context.Context, sourceURL string) (*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byURL[sourceURL]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s.postings[id]
	return &cp, nil
}

func (s *Store) List(_ context.Context, opts store.ListOptions) ([]store.Record, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = store.DefaultListLimit
	}
	query := strings.ToLower(strings.TrimSpace(opts.Query))

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.Record, 0)
	for _, rec := range s.postings {
		if query != "" {
			if !strings.Contains(strings.ToLower(rec.Title), query) &&
				!strings.Contains(strings.ToLower(rec.Company), query) &&
				!strings.Contains(strings.ToLower(string(rec.Status)), query) {
				continue
			}
		} else if !opts.All && !in(rec.Status, posting.ActiveStatuses) {
			continue
		}
		out = append(out, *rec)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].AddedAt.After(out[j].AddedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Stats(_ context.Context) ([]store.StatusCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[posting.Status]int)
	for _, rec := range s.postings {
		counts[rec.Status]++
	}

	out := make([]store.StatusCount, 0, len(counts))
	for st, n := range counts {
		out = append(out, store.StatusCount{Status: st, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Status < out[j].Status
		}
		return out[i].Count > out[j].Count
	})
	return out, nil
}

func (s *Store) AgeOut(_ context.Context, before time.Time, from []posting.Status, to posting.Status) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, rec := range s.postings {
		if in(rec.Status, from) && rec.AddedAt.Before(before) {
			rec.Status = to
			n++
		}
	}
	return n, nil
}

func (s *Store) CompaniesWithStatus(_ context.Context, statuses []posting.Status) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	for _, rec := range s.postings {
		if in(rec.Status, statuses) {
			seen[rec.Company] = true
		}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Close() {}

func in(st posting.Status, set []posting.Status) bool {
	for _, candidate := range set {
		if candidate == st {
			return true
		}
	}
	return false
}
