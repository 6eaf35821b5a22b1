// Package postgres implements the store on PostgreSQL through a pgx pool.
// Every call acquires a pooled connection for the duration of one statement.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/neco001/Job-Crusher/internal/posting"
	"github.com/neco001/Job-Crusher/internal/store"
)

//go:embed schema.sql
var schema string

// Store is the PostgreSQL-backed store.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	now    func() time.Time
}

// New connects, verifies connectivity and applies the schema.
func New(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Debug("postgres store ready")

	return &Store{pool: pool, logger: logger, now: time.Now}, nil
}

func (s *Store) EnsureCompany(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: company name is required", store.ErrInvalidInput)
	}

	// DO UPDATE makes RETURNING yield the existing row on conflict.
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO companies (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensure company %q: %w", name, err)
	}
	return id, nil
}

func (s *Store) UpsertPosting(ctx context.Context, in store.PostingInput, initial posting.Status) (store.UpsertResult, error) {
	if err := store.ValidateInput(in, initial); err != nil {
		return store.UpsertResult{}, err
	}

	var (
		res    store.UpsertResult
		status string
	)
	err := s.pool.QueryRow(ctx,
		`WITH prev AS (
		   SELECT score FROM postings WHERE source_url = $2
		 ), up AS (
		   INSERT INTO postings (company_id, source_url, title, location, full_text, score, verdict, status)
		   VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		   ON CONFLICT (source_url) DO UPDATE
		   SET company_id = EXCLUDED.company_id,
		       title      = EXCLUDED.title,
		       location   = EXCLUDED.location,
		       full_text  = EXCLUDED.full_text,
		       score      = EXCLUDED.score,
		       verdict    = EXCLUDED.verdict,
		       updated_at = NOW()
		   RETURNING id, (xmax = 0) AS created, status, added_at, notes
		 )
		 SELECT up.id, up.created, up.status, up.added_at, up.notes, (SELECT score FROM prev)
		 FROM up`,
		in.CompanyID, in.SourceURL, in.Title, in.Location, in.FullText, in.Score, in.Verdict, string(initial),
	).Scan(&res.ID, &res.Created, &status, &res.AddedAt, &res.Notes, &res.PreviousScore)
	if err != nil {
		return store.UpsertResult{}, fmt.Errorf("upsert posting %s: %w", in.SourceURL, err)
	}

	res.Status = posting.Status(status)
	if res.Created {
		res.PreviousScore = nil
	}
	return res, nil
}

func (s *Store) AppendNote(ctx context.Context, id int64, text string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE postings SET notes = notes || $2, updated_at = NOW() WHERE id = $1`,
		id, store.FormatNote(s.now(), text),
	)
	if err != nil {
		return fmt.Errorf("append note to %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetStatus(ctx context.Context, id int64, status posting.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE postings SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("set status of %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const selectRecord = `
	SELECT p.id, p.company_id, c.name, p.title, p.location, p.source_url,
	       p.status, p.notes, p.full_text, p.score, p.verdict, p.added_at
	FROM postings p
	JOIN companies c ON c.id = p.company_id`

func (s *Store) Get(ctx context.Context, id int64) (*store.Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, selectRecord+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get posting %d: %w", id, err)
	}
	return rec, nil
}

func (s *Store) GetBySourceURL(ctx context.Context, sourceURL string) (*store.Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, selectRecord+` WHERE p.source_url = $1`, sourceURL))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get posting by url: %w", err)
	}
	return rec, nil
}

func (s *Store) List(ctx context.Context, opts store.ListOptions) ([]store.Record, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = store.DefaultListLimit
	}

	var (
		where []string
		args  []any
	)
	query := strings.TrimSpace(opts.Query)
	switch {
	case query != "":
		args = append(args, query)
		where = append(where, `(p.title ILIKE '%' || $1 || '%' OR c.name ILIKE '%' || $1 || '%' OR p.status ILIKE '%' || $1 || '%')`)
	case !opts.All:
		args = append(args, statusStrings(posting.ActiveStatuses))
		where = append(where, `p.status = ANY($1)`)
	}

	sql := selectRecord
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	sql += fmt.Sprintf(" ORDER BY p.added_at DESC, p.id DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list postings: %w", err)
	}
	defer rows.Close()

	out := make([]store.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list postings scan: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *Store) Stats(ctx context.Context) ([]store.StatusCount, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, count(*) FROM postings GROUP BY status ORDER BY count(*) DESC, status`)
	if err != nil {
		return nil, fmt.Errorf("stats query: %w", err)
	}
	defer rows.Close()

	out := make([]store.StatusCount, 0)
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("stats scan: %w", err)
		}
		out = append(out, store.StatusCount{Status: posting.Status(status), Count: int(count)})
	}
	return out, rows.Err()
}

func (s *Store) AgeOut(ctx context.Context, before time.Time, from []posting.Status, to posting.Status) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE postings SET status = $1, updated_at = NOW()
		 WHERE status = ANY($2) AND added_at < $3`,
		string(to), statusStrings(from), before,
	)
	if err != nil {
		return 0, fmt.Errorf("age out postings: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) CompaniesWithStatus(ctx context.Context, statuses []posting.Status) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT c.name
		 FROM postings p JOIN companies c ON c.id = p.company_id
		 WHERE p.status = ANY($1)
		 ORDER BY c.name`,
		statusStrings(statuses),
	)
	if err != nil {
		return nil, fmt.Errorf("companies with status: %w", err)
	}
	defer rows.Close()

	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("companies with status scan: %w", err)
	}
	return names, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

func scanRecord(row pgx.Row) (*store.Record, error) {
	var (
		rec    store.Record
		status string
	)
	if err := row.Scan(
		&rec.ID, &rec.CompanyID, &rec.Company, &rec.Title, &rec.Location, &rec.SourceURL,
		&status, &rec.Notes, &rec.FullText, &rec.Score, &rec.Verdict, &rec.AddedAt,
	); err != nil {
		return nil, err
	}
	rec.Status = posting.Status(status)
	return &rec, nil
}

func statusStrings(statuses []posting.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, string(st))
	}
	return out
}
