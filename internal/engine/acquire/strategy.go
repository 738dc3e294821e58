// Package acquire runs content-acquisition strategies in priority order and
// folds their failures into one diagnostic.
package acquire

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Strategy is one concrete way of acquiring text for an identifier
// (a video id or a URL).
type Strategy interface {
	// Name is the sourceId reported in outcomes and diagnostics.
	Name() string
	// Timeout is the strategy's own budget; zero means the orchestrator default.
	Timeout() time.Duration
	// Attempt must build every outbound request with ctx so that expiry
	// cancels the request itself.
	Attempt(ctx context.Context, id string) (Outcome, error)
}

// Outcome is the single successful result of one acquisition call.
type Outcome struct {
	SourceID string `json:"source"`
	Text     string `json:"text"`
	// Authoritative is false for reconstructions (speech-to-text, model extraction);
	// their timestamps must not be trusted.
	Authoritative bool `json:"authoritative"`
	// Title is the page title when the strategy saw the page itself.
	Title string `json:"title,omitempty"`
}

// Terminal content-unavailable causes. They still advance the chain, but
// callers can detect them with errors.Is on the aggregated error.
var (
	ErrCaptionsDisabled = errors.New("captions are disabled for this video")
	ErrNoRealContent    = errors.New("model could not access the real content")
	ErrEmptyContent     = errors.New("empty content")
)

// AttemptError records one strategy failure.
type AttemptError struct {
	SourceID string
	Message  string
	Err      error
}

func (e AttemptError) Error() string { return e.SourceID + ": " + e.Message }
func (e AttemptError) Unwrap() error { return e.Err }

// ExhaustedError is returned when every strategy failed. Its message lists
// every sourceId with its failure reason, in strategy order.
type ExhaustedError struct {
	Attempts []AttemptError
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all sources failed: no strategies configured"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Error()
	}
	return "all sources failed: " + strings.Join(parts, "; ")
}

func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a
	}
	return errs
}

// Func adapts a plain function to Strategy. Handy for chains assembled at
// runtime and for tests.
type Func struct {
	ID       string
	Budget   time.Duration
	Official bool
	Fn       func(ctx context.Context, id string) (string, error)
}

func (f Func) Name() string           { return f.ID }
func (f Func) Timeout() time.Duration { return f.Budget }

func (f Func) Attempt(ctx context.Context, id string) (Outcome, error) {
	text, err := f.Fn(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{SourceID: f.ID, Text: text, Authoritative: f.Official}, nil
}
