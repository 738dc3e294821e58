package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is the default single-file store.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("archive: mkdir %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS tests (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		url           TEXT NOT NULL,
		title         TEXT,
		subject       TEXT NOT NULL,
		source        TEXT NOT NULL,
		authoritative INTEGER NOT NULL DEFAULT 0,
		questions     TEXT NOT NULL,
		needs_review  TEXT,
		raw           TEXT,
		created_at    TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: init schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Save(ctx context.Context, r Record) (int64, error) {
	enc, err := encode(r)
	if err != nil {
		return 0, err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tests (url, title, subject, source, authoritative, questions, needs_review, raw, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.URL, r.Title, r.Subject, r.Source, r.Authoritative,
		string(enc.questions), string(enc.review), r.Raw, r.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("archive: insert: %w", err)
	}
	return res.LastInsertId()
}

const sqliteColumns = `id, url, COALESCE(title,''), subject, source, authoritative, questions, COALESCE(needs_review,''), COALESCE(raw,''), created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row rowScanner) (Record, error) {
	var (
		r                 Record
		questions, review string
		created           string
	)
	if err := row.Scan(&r.ID, &r.URL, &r.Title, &r.Subject, &r.Source, &r.Authoritative,
		&questions, &review, &r.Raw, &created); err != nil {
		return Record{}, err
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	if err := decode(&r, []byte(questions), []byte(review)); err != nil {
		return Record{}, err
	}
	return r, nil
}

func (s *SQLite) Get(ctx context.Context, id int64) (Record, error) {
	r, err := scanSQLite(s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM tests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: #%d", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("archive: get #%d: %w", id, err)
	}
	return r, nil
}

// List returns the newest tests first. Raw text is left out.
func (s *SQLite) List(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteColumns+` FROM tests ORDER BY id DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		r, err := scanSQLite(rows)
		if err != nil {
			return nil, fmt.Errorf("archive: list: %w", err)
		}
		r.Raw = ""
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error { return s.db.Close() }
