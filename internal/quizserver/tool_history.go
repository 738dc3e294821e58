package quizserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_quiz/internal/engine"
	"github.com/anatolykoptev/go_quiz/internal/engine/archive"
)

// TestHistoryOutput holds either one archived test or a listing.
type TestHistoryOutput struct {
	Test  *archive.Record  `json:"test,omitempty"`
	Tests []archive.Record `json:"tests,omitempty"`
	Total int              `json:"total"`
}

func registerTestHistory(server *mcp.Server, store archive.Store) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "test_history",
		Description: "Show archived tests. With id, returns that test including the raw model text; without id, lists the most recent tests (newest first).",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.TestHistoryInput) (*mcp.CallToolResult, any, error) {
		out, err := history(ctx, store, input)
		if err != nil {
			return nil, nil, err
		}
		return nil, out, nil
	})
}

func history(ctx context.Context, store archive.Store, input engine.TestHistoryInput) (TestHistoryOutput, error) {
	if store == nil {
		return TestHistoryOutput{}, errors.New("archive is not configured")
	}
	if input.ID > 0 {
		rec, err := store.Get(ctx, input.ID)
		if err != nil {
			return TestHistoryOutput{}, err
		}
		return TestHistoryOutput{Test: &rec, Total: 1}, nil
	}
	list, err := store.List(ctx, input.Limit)
	if err != nil {
		return TestHistoryOutput{}, err
	}
	return TestHistoryOutput{Tests: list, Total: len(list)}, nil
}
