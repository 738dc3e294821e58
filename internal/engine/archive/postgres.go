package archive

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Postgres stores tests in a shared database.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres creates a pgx pool and applies the embedded migrations.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 5
	config.MinConns = 1

	// The pool outlives ctx; ctx only bounds ping and migrations.
	pool, err := pgxpool.NewWithConfig(context.WithoutCancel(ctx), config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("archive postgres connected", slog.String("addr", config.ConnConfig.Host))
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := p.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", entry.Name(), err)
		}
		slog.Debug("migration applied", slog.String("file", entry.Name()))
	}
	return nil
}

func (p *Postgres) Save(ctx context.Context, r Record) (int64, error) {
	enc, err := encode(r)
	if err != nil {
		return 0, err
	}
	var id int64
	err = p.pool.QueryRow(ctx,
		`INSERT INTO quiz_tests (url, title, subject, source, authoritative, questions, needs_review, raw)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		r.URL, r.Title, r.Subject, r.Source, r.Authoritative, enc.questions, enc.review, r.Raw,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("archive: insert: %w", err)
	}
	return id, nil
}

const pgColumns = `id, url, COALESCE(title,''), subject, source, authoritative, questions, needs_review, COALESCE(raw,''), created_at`

func scanPostgres(row pgx.Row) (Record, error) {
	var (
		r                 Record
		questions, review []byte
	)
	if err := row.Scan(&r.ID, &r.URL, &r.Title, &r.Subject, &r.Source, &r.Authoritative,
		&questions, &review, &r.Raw, &r.CreatedAt); err != nil {
		return Record{}, err
	}
	if err := decode(&r, questions, review); err != nil {
		return Record{}, err
	}
	return r, nil
}

func (p *Postgres) Get(ctx context.Context, id int64) (Record, error) {
	r, err := scanPostgres(p.pool.QueryRow(ctx, `SELECT `+pgColumns+` FROM quiz_tests WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: #%d", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("archive: get #%d: %w", id, err)
	}
	return r, nil
}

func (p *Postgres) List(ctx context.Context, limit int) ([]Record, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+pgColumns+` FROM quiz_tests ORDER BY id DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		r, err := scanPostgres(rows)
		if err != nil {
			return nil, fmt.Errorf("archive: list: %w", err)
		}
		r.Raw = ""
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
