// Package quizserver registers the quiz tools on an MCP server.
package quizserver

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_quiz/internal/engine/archive"
	"github.com/anatolykoptev/go_quiz/internal/engine/testgen"
)

// ToolCount is the number of tools RegisterTools adds.
const ToolCount = 4

// RegisterTools registers content_fetch, test_generate, test_parse and
// test_history. store may be nil; saving and history are then unavailable.
func RegisterTools(server *mcp.Server, store archive.Store) {
	registerContentFetch(server)
	registerTestGenerate(server, &testgen.Generator{Archive: store})
	registerTestParse(server)
	registerTestHistory(server, store)
}
