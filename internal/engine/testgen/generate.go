// Package testgen builds a test from a URL: acquire the material, name its
// subject, ask the model for questions and parse the answer.
package testgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anatolykoptev/go_quiz/internal/engine"
	"github.com/anatolykoptev/go_quiz/internal/engine/archive"
	"github.com/anatolykoptev/go_quiz/internal/engine/sources"
	"github.com/anatolykoptev/go_quiz/internal/engine/subject"
	"github.com/anatolykoptev/go_quiz/internal/engine/testparse"
)

const (
	DefaultQuestions  = 10
	MaxQuestions      = 30
	DefaultDifficulty = "medium"
)

var difficulties = map[string]bool{"easy": true, "medium": true, "hard": true}

var allKinds = []testparse.Type{testparse.MultipleChoice, testparse.TrueFalse, testparse.OpenEnded}

// ErrBadOption reports an invalid difficulty or question kind.
var ErrBadOption = errors.New("invalid test option")

// AcquireFunc fetches the normalized material for a URL.
type AcquireFunc func(ctx context.Context, rawURL string, noCache bool) (engine.ContentFetchOutput, error)

// Result is a generated test.
type Result struct {
	ID            int64                `json:"id,omitempty"` // archive id when saved
	URL           string               `json:"url"`
	Title         string               `json:"title,omitempty"`
	Subject       string               `json:"subject"`
	Source        string               `json:"source"`
	Authoritative bool                 `json:"authoritative"`
	Questions     []testparse.Question `json:"questions"`
	NeedsReview   []int                `json:"needs_review,omitempty"`
	Raw           string               `json:"raw"`
}

// Generator wires the steps together. Zero fields fall back to the
// package-level engine functions.
type Generator struct {
	Acquire  AcquireFunc         // nil = sources.Acquire
	Subject  *subject.Extractor  // nil = &subject.Extractor{}
	Complete engine.CompleteFunc // nil = engine.Complete
	Archive  archive.Store       // used when the input asks to save
}

type options struct {
	count      int
	difficulty string
	kinds      []string
}

func normalize(in engine.TestGenerateInput) (options, error) {
	o := options{count: in.Questions, difficulty: strings.ToLower(strings.TrimSpace(in.Difficulty))}
	if o.count <= 0 {
		o.count = DefaultQuestions
	}
	if o.count > MaxQuestions {
		o.count = MaxQuestions
	}
	if o.difficulty == "" {
		o.difficulty = DefaultDifficulty
	}
	if !difficulties[o.difficulty] {
		return options{}, fmt.Errorf("%w: difficulty %q (valid: easy, medium, hard)", ErrBadOption, in.Difficulty)
	}

	seen := map[string]bool{}
	for _, k := range in.Kinds {
		k = strings.ToLower(strings.TrimSpace(k))
		if !validKind(k) {
			return options{}, fmt.Errorf("%w: question kind %q", ErrBadOption, k)
		}
		if !seen[k] {
			seen[k] = true
			o.kinds = append(o.kinds, k)
		}
	}
	if len(o.kinds) == 0 {
		for _, k := range allKinds {
			o.kinds = append(o.kinds, string(k))
		}
	}
	return o, nil
}

func validKind(k string) bool {
	for _, t := range allKinds {
		if string(t) == k {
			return true
		}
	}
	return false
}

// Generate runs the whole flow. Parsing never fails; a test whose answer
// key is partly unusable is returned with NeedsReview set.
func (g *Generator) Generate(ctx context.Context, in engine.TestGenerateInput) (*Result, error) {
	opts, err := normalize(in)
	if err != nil {
		return nil, err
	}

	acquireFn := g.Acquire
	if acquireFn == nil {
		acquireFn = sources.Acquire
	}
	start := time.Now()
	content, err := acquireFn(ctx, in.URL, false)
	if err != nil {
		return nil, fmt.Errorf("acquire: %w", err)
	}

	ext := g.Subject
	if ext == nil {
		ext = &subject.Extractor{}
	}
	subj := ext.Extract(ctx, subject.Input{PageTitle: content.Title, Content: content.Text})

	complete := g.Complete
	if complete == nil {
		complete = engine.Complete
	}
	user := fmt.Sprintf(engine.TestUserPrompt, opts.count, opts.difficulty,
		strings.Join(opts.kinds, ", "), subj, content.Text)
	raw, err := complete(ctx, engine.TestSystemPrompt, user)
	if err != nil {
		return nil, fmt.Errorf("generate test: %w", err)
	}

	qs := testparse.Parse(raw)
	res := &Result{
		URL:           content.URL,
		Title:         titleLine(raw),
		Subject:       subj,
		Source:        content.Source,
		Authoritative: content.Authoritative,
		Questions:     qs,
		NeedsReview:   testparse.Review(qs),
		Raw:           raw,
	}
	if res.Questions == nil {
		res.Questions = []testparse.Question{}
	}
	engine.IncrTestGenerated()

	if len(qs) == 0 {
		slog.Warn("testgen: model output has no questions", slog.String("url", content.URL))
	}
	slog.Info("test generated",
		slog.String("url", content.URL),
		slog.String("subject", subj),
		slog.String("source", content.Source),
		slog.Int("questions", len(qs)),
		slog.Int("needs_review", len(res.NeedsReview)),
		slog.Duration("took", time.Since(start)))

	if in.Save && g.Archive != nil {
		id, err := g.Archive.Save(ctx, archive.Record{
			URL:           res.URL,
			Title:         res.Title,
			Subject:       res.Subject,
			Source:        res.Source,
			Authoritative: res.Authoritative,
			Questions:     res.Questions,
			NeedsReview:   res.NeedsReview,
			Raw:           res.Raw,
		})
		if err != nil {
			return res, fmt.Errorf("save test: %w", err)
		}
		res.ID = id
	}
	return res, nil
}

// titleLine returns the value of a leading "Title:" line, if any.
func titleLine(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "Title:"); ok {
			return strings.TrimSpace(rest)
		}
		return ""
	}
	return ""
}
