// Package archive stores generated tests.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anatolykoptev/go_quiz/internal/engine/testparse"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("archive: test not found")

// Record is one archived test.
type Record struct {
	ID            int64                `json:"id"`
	URL           string               `json:"url"`
	Title         string               `json:"title,omitempty"`
	Subject       string               `json:"subject"`
	Source        string               `json:"source"`
	Authoritative bool                 `json:"authoritative"`
	Questions     []testparse.Question `json:"questions"`
	NeedsReview   []int                `json:"needs_review,omitempty"`
	Raw           string               `json:"raw,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// Store persists generated tests.
type Store interface {
	Save(ctx context.Context, r Record) (int64, error)
	Get(ctx context.Context, id int64) (Record, error)
	List(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// Open returns a PostgreSQL store when databaseURL is set and a SQLite
// store at path otherwise. An empty path means ~/.go_quiz/archive.db.
func Open(ctx context.Context, databaseURL, path string) (Store, error) {
	if databaseURL != "" {
		return OpenPostgres(ctx, databaseURL)
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("archive: home dir: %w", err)
		}
		path = filepath.Join(home, ".go_quiz", "archive.db")
	}
	return OpenSQLite(path)
}

type encoded struct {
	questions []byte
	review    []byte
}

func encode(r Record) (encoded, error) {
	qs := r.Questions
	if qs == nil {
		qs = []testparse.Question{}
	}
	q, err := json.Marshal(qs)
	if err != nil {
		return encoded{}, fmt.Errorf("archive: encode questions: %w", err)
	}
	rv, err := json.Marshal(r.NeedsReview)
	if err != nil {
		return encoded{}, fmt.Errorf("archive: encode review list: %w", err)
	}
	return encoded{questions: q, review: rv}, nil
}

func decode(r *Record, questions, review []byte) error {
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &r.Questions); err != nil {
			return fmt.Errorf("archive: decode questions of #%d: %w", r.ID, err)
		}
	}
	if len(review) > 0 {
		if err := json.Unmarshal(review, &r.NeedsReview); err != nil {
			return fmt.Errorf("archive: decode review list of #%d: %w", r.ID, err)
		}
	}
	return nil
}
