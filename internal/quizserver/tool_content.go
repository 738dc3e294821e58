package quizserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_quiz/internal/engine"
	"github.com/anatolykoptev/go_quiz/internal/engine/sources"
)

func registerContentFetch(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "content_fetch",
		Description: "Fetch clean text for a video or article URL. Videos go through transcript sources (managed service, captions API, page captions, innertube, speech-to-text); articles through direct fetch, proxy and LLM extraction. Returns the text, the source that produced it, and whether that source is authoritative.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.ContentFetchInput) (*mcp.CallToolResult, engine.ContentFetchOutput, error) {
		if input.URL == "" {
			return nil, engine.ContentFetchOutput{}, errors.New("url is required")
		}
		out, err := sources.Acquire(ctx, input.URL, input.NoCache)
		if err != nil {
			return nil, engine.ContentFetchOutput{}, err
		}
		return nil, out, nil
	})
}
