package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anatolykoptev/go_quiz/internal/engine"
)

// DefaultTimeout is the baseline per-strategy budget.
const DefaultTimeout = 15 * time.Second

// Orchestrator tries strategies strictly in order and returns the first success.
// It holds no per-call state, so one value can serve concurrent requests.
type Orchestrator struct {
	DefaultTimeout time.Duration
}

// Run attempts each strategy once, in slice order, each under its own timeout.
// On exhaustion it returns *ExhaustedError listing every failure in order.
func (o Orchestrator) Run(ctx context.Context, strategies []Strategy, id string) (Outcome, error) {
	engine.IncrAcquisition()

	failures := make([]AttemptError, 0, len(strategies))
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			failures = append(failures, AttemptError{SourceID: s.Name(), Message: "not attempted: " + err.Error(), Err: err})
			break
		}

		start := time.Now()
		out, err := o.attempt(ctx, s, id)
		elapsed := time.Since(start)

		if err == nil {
			engine.IncrSourceWin(out.SourceID)
			slog.Info("acquire: success",
				slog.String("source", out.SourceID),
				slog.String("id", id),
				slog.Bool("authoritative", out.Authoritative),
				slog.Int("chars", len(out.Text)),
				slog.Duration("took", elapsed))
			return out, nil
		}

		engine.IncrStrategyFailure()
		slog.Warn("acquire: strategy failed, trying next",
			slog.String("source", s.Name()),
			slog.String("id", id),
			slog.Duration("took", elapsed),
			slog.Any("error", err))
		failures = append(failures, AttemptError{SourceID: s.Name(), Message: err.Error(), Err: err})
	}

	engine.IncrAcquisitionFailure()
	return Outcome{}, &ExhaustedError{Attempts: failures}
}

func (o Orchestrator) budget(s Strategy) time.Duration {
	if t := s.Timeout(); t > 0 {
		return t
	}
	if o.DefaultTimeout > 0 {
		return o.DefaultTimeout
	}
	return DefaultTimeout
}

// attempt runs one strategy under its own cancellation scope. The strategy
// runs in a goroutine so a call that ignores ctx is still abandoned on expiry.
func (o Orchestrator) attempt(ctx context.Context, s Strategy, id string) (Outcome, error) {
	engine.IncrStrategyAttempt()
	timeout := o.budget(s)
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		out Outcome
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		out, err := s.Attempt(actx, id)
		ch <- result{out, err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-actx.Done():
		r.err = actx.Err()
	}

	if r.err != nil {
		if errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() == nil {
			engine.IncrStrategyTimeout()
			return Outcome{}, fmt.Errorf("timed out after %s: %w", timeout, r.err)
		}
		return Outcome{}, r.err
	}
	if strings.TrimSpace(r.out.Text) == "" {
		return Outcome{}, ErrEmptyContent
	}
	r.out.SourceID = s.Name()
	return r.out, nil
}
