package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolGetBestMove is the MCP tool name for best-move evaluation.
const ToolGetBestMove = "get_best_move"

// NewMCPServer returns an MCP server offering the get_best_move tool.
func NewMCPServer(log *slog.Logger, dispatcher *Dispatcher, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "uci-engine", Version: version}, nil)

	server.AddTool(&mcp.Tool{
		Name: ToolGetBestMove,
		Description: "Ask a UCI chess engine for the best move in a position. " +
			"Returns the move in long algebraic notation (e.g. e2e4) with the engine's evaluation.",
		InputSchema: bestMoveSchema(),
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, bestMoveTool(log.With("component", "mcp_bridge"), dispatcher))

	return server
}

// ServeStdio runs server over stdin/stdout until ctx ends or the client
// disconnects.
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

func bestMoveSchema() *jsonschema.Schema {
	minDepth := 1.0
	minElo := 1.0

	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"fen": {
				Type:        "string",
				Description: "Position in Forsyth-Edwards Notation",
			},
			"depth": {
				Type:        "integer",
				Description: fmt.Sprintf("Search depth in plies (default %d)", DefaultDepth),
				Minimum:     &minDepth,
			},
			"elo": {
				Type:        "integer",
				Description: "Limit engine strength to this Elo rating",
				Minimum:     &minElo,
			},
		},
		Required: []string{"fen"},
	}
}

func bestMoveTool(log *slog.Logger, dispatcher *Dispatcher) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		call := Call{Method: MethodGetBestMove}

		if req != nil && req.Params != nil && len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &call); err != nil {
				return errorResult("INVALID_ARGUMENT: malformed arguments: " + err.Error()), nil
			}

			call.Method = MethodGetBestMove
		}

		reply := dispatcher.Handle(ctx, call)
		if reply.Error != nil {
			log.Debug("Tool call failed", "code", reply.Error.Code)

			return errorResult(reply.Error.Code + ": " + reply.Error.Message), nil
		}

		data, err := json.Marshal(reply)
		if err != nil {
			return nil, fmt.Errorf("marshal reply: %w", err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
		IsError: true,
	}
}
