package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/propguard/propguard/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS listings (
	id         TEXT PRIMARY KEY,
	listing    TEXT NOT NULL,
	status     TEXT,
	evaluation TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_listings_status ON listings(status);
CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateListing(ctx context.Context, listing model.Listing, eval *model.EvaluationResult) (*model.ListingRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	listingJSON, err := json.Marshal(listing)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal listing")
	}

	var status any
	var evalJSON any
	if eval != nil {
		status = string(eval.Status)
		raw, err := json.Marshal(eval)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal evaluation")
		}
		evalJSON = string(raw)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO listings (id, listing, status, evaluation, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(listingJSON), status, evalJSON, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert listing")
	}

	return &model.ListingRecord{
		ID:         id,
		Listing:    listing,
		Evaluation: eval,
		CreatedAt:  now,
	}, nil
}

func (s *SQLiteStore) GetListing(ctx context.Context, id string) (*model.ListingRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, listing, evaluation, created_at FROM listings WHERE id = ?`,
		id,
	)
	return scanListing(row)
}

func (s *SQLiteStore) ListListings(ctx context.Context, filter ListingFilter) ([]model.ListingRecord, error) {
	query := `SELECT id, listing, evaluation, created_at FROM listings WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Lister != "" {
		query += ` AND json_extract(listing, '$.lister_name') = ?`
		args = append(args, filter.Lister)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list listings")
	}
	defer rows.Close()

	var records []model.ListingRecord
	for rows.Next() {
		r, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list listings iterate")
}

func (s *SQLiteStore) UpdateEvaluation(ctx context.Context, id string, eval *model.EvaluationResult) error {
	evalJSON, err := json.Marshal(eval)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal evaluation")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE listings SET evaluation = ?, status = ? WHERE id = ?`,
		string(evalJSON), string(eval.Status), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update evaluation %s", id)
	}
	return checkRowsAffected(res, "listing", id)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanListing(row scannable) (*model.ListingRecord, error) {
	var r model.ListingRecord
	var listingJSON string
	var evalJSON sql.NullString

	err := row.Scan(&r.ID, &listingJSON, &evalJSON, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan listing")
	}

	if err := json.Unmarshal([]byte(listingJSON), &r.Listing); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal listing")
	}
	if evalJSON.Valid {
		r.Evaluation = &model.EvaluationResult{}
		if err := json.Unmarshal([]byte(evalJSON.String), r.Evaluation); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal evaluation")
		}
	}
	return &r, nil
}
