package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/propguard/propguard/internal/model"
)

// Querier is the subset of pgxpool.Pool the store uses; pgxmock
// satisfies it in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool    Querier
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromQuerier wraps an existing querier; used by tests.
func NewPostgresFromQuerier(q Querier) *PostgresStore {
	return &PostgresStore{pool: q}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS listings (
	id         TEXT PRIMARY KEY,
	listing    JSONB NOT NULL,
	status     TEXT,
	evaluation JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status);
CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateListing(ctx context.Context, listing model.Listing, eval *model.EvaluationResult) (*model.ListingRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	listingJSON, err := json.Marshal(listing)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal listing")
	}

	var status any
	var evalJSON any
	if eval != nil {
		status = string(eval.Status)
		raw, err := json.Marshal(eval)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal evaluation")
		}
		evalJSON = string(raw)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO listings (id, listing, status, evaluation, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, string(listingJSON), status, evalJSON, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert listing")
	}

	return &model.ListingRecord{
		ID:         id,
		Listing:    listing,
		Evaluation: eval,
		CreatedAt:  now,
	}, nil
}

func (s *PostgresStore) GetListing(ctx context.Context, id string) (*model.ListingRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, listing::text, evaluation::text, created_at FROM listings WHERE id = $1`,
		id,
	)

	r, err := scanPGListing(row)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: %s", id)
		}
		return nil, err
	}
	return r, nil
}

func (s *PostgresStore) ListListings(ctx context.Context, filter ListingFilter) ([]model.ListingRecord, error) {
	query := `SELECT id, listing::text, evaluation::text, created_at FROM listings WHERE true`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $1`
	}
	if filter.Lister != "" {
		args = append(args, filter.Lister)
		query += placeholderClause(` AND listing->>'lister_name' = `, len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += placeholderClause(` LIMIT `, len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += placeholderClause(` OFFSET `, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list listings")
	}
	defer rows.Close()

	var records []model.ListingRecord
	for rows.Next() {
		r, err := scanPGListing(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list listings iterate")
}

func (s *PostgresStore) UpdateEvaluation(ctx context.Context, id string, eval *model.EvaluationResult) error {
	evalJSON, err := json.Marshal(eval)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal evaluation")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE listings SET evaluation = $1, status = $2 WHERE id = $3`,
		string(evalJSON), string(eval.Status), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update evaluation %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: %s", id)
	}
	return nil
}

// placeholderClause appends a $n placeholder to a SQL fragment.
func placeholderClause(prefix string, n int) string {
	return prefix + "$" + strconv.Itoa(n)
}

func scanPGListing(row scannable) (*model.ListingRecord, error) {
	var r model.ListingRecord
	var listingJSON string
	var evalJSON sql.NullString

	if err := row.Scan(&r.ID, &listingJSON, &evalJSON, &r.CreatedAt); err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan listing")
	}

	if err := json.Unmarshal([]byte(listingJSON), &r.Listing); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal listing")
	}
	if evalJSON.Valid {
		r.Evaluation = &model.EvaluationResult{}
		if err := json.Unmarshal([]byte(evalJSON.String), r.Evaluation); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal evaluation")
		}
	}
	return &r, nil
}
