package quizserver

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_quiz/internal/engine"
	"github.com/anatolykoptev/go_quiz/internal/engine/testgen"
	"github.com/anatolykoptev/go_quiz/internal/engine/testparse"
)

// TestParseOutput is the result of test_parse.
type TestParseOutput struct {
	Questions   []testparse.Question `json:"questions"`
	NeedsReview []int                `json:"needs_review,omitempty"`
	Total       int                  `json:"total"`
}

// Tools returning questions declare Out as any: an answer marshals to a
// string or a bool, which a schema inferred from the struct would reject.

func registerTestGenerate(server *mcp.Server, g *testgen.Generator) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "test_generate",
		Description: "Generate a school test from a video or article URL. Acquires the material, derives its subject, asks the model for questions (multiple-choice, true-false, open-ended) and parses them with their answer key. Questions without a usable key are listed in needs_review. Set save=true to store the test in the archive.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.TestGenerateInput) (*mcp.CallToolResult, any, error) {
		if input.URL == "" {
			return nil, nil, errors.New("url is required")
		}
		if input.Save && g.Archive == nil {
			return nil, nil, errors.New("archive is not configured")
		}
		res, err := g.Generate(ctx, input)
		if err != nil {
			return nil, nil, err
		}
		return nil, res, nil
	})
}

func registerTestParse(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "test_parse",
		Description: "Parse test text (numbered questions, A) to D) options, a --- divider and a numbered answer key) into typed questions. Never fails on malformed input; unparseable lines are skipped and questions without a usable answer are listed in needs_review.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(_ context.Context, _ *mcp.CallToolRequest, input engine.TestParseInput) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(input.Text) == "" {
			return nil, nil, errors.New("text is required")
		}
		return nil, parseTest(input.Text), nil
	})
}

func parseTest(text string) TestParseOutput {
	qs := testparse.Parse(text)
	if qs == nil {
		qs = []testparse.Question{}
	}
	engine.IncrTestParsed()
	return TestParseOutput{Questions: qs, NeedsReview: testparse.Review(qs), Total: len(qs)}
}
