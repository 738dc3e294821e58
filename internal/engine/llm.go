package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/anatolykoptev/go-kit/llm"
)

// CompleteFunc is a system+user prompt completion. Strategies and the test
// generator depend on this type so tests can stub the model.
type CompleteFunc func(ctx context.Context, system, user string) (string, error)

// ErrLLMDisabled is returned when no LLM client is configured.
var ErrLLMDisabled = errors.New("llm: client not configured")

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```text")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Complete sends a system+user prompt pair using the configured temperature and max_tokens.
func Complete(ctx context.Context, system, user string) (string, error) {
	if cfg.LLMClient == nil {
		return "", ErrLLMDisabled
	}
	metrics.LLMCalls.Add(1)
	resp, err := cfg.LLMClient.Complete(ctx, system, user)
	if err != nil {
		metrics.LLMErrors.Add(1)
		return "", err
	}
	return stripFences(resp), nil
}

// CompleteShort is Complete tuned for one-line answers (titles, labels).
func CompleteShort(ctx context.Context, system, user string) (string, error) {
	if cfg.LLMClient == nil {
		return "", ErrLLMDisabled
	}
	metrics.LLMCalls.Add(1)
	resp, err := cfg.LLMClient.Complete(ctx, system, user,
		llm.WithChatTemperature(0.3),
		llm.WithChatMaxTokens(60),
	)
	if err != nil {
		metrics.LLMErrors.Add(1)
		return "", err
	}
	return stripFences(resp), nil
}
