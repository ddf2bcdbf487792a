// Package mcp exposes tools from MCP servers, local over stdio or remote over
// streamable HTTP, as a toolset.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/threadkit/threadkit/pkg/tools"
)

// uiResourceMetaKey is the tool _meta key naming the UI resource template
// rendered for the tool's results.
const uiResourceMetaKey = "ui/resource"

type mcpClient interface {
	Initialize(ctx context.Context, request *mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, params *mcp.ListToolsParams) iter.Seq2[*mcp.Tool, error]
	CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error)
	Close() error
}

// Toolset is a set of tools served by one MCP server.
type Toolset struct {
	client     mcpClient
	logID      string
	toolFilter []string

	instructions string
	started      atomic.Bool
}

var _ tools.ToolSet = (*Toolset)(nil)

// NewCommandToolset spawns a local MCP server over stdio.
func NewCommandToolset(command string, args, env, toolFilter []string) *Toolset {
	slog.Debug("Creating stdio MCP toolset", "command", command, "args", args, "tool_filter", toolFilter)

	return &Toolset{
		client:     newCommandClient(command, args, env),
		logID:      command,
		toolFilter: toolFilter,
	}
}

// NewRemoteToolset connects to a remote MCP server over streamable HTTP.
func NewRemoteToolset(url string, headers map[string]string, toolFilter []string) *Toolset {
	slog.Debug("Creating remote MCP toolset", "url", url, "tool_filter", toolFilter)

	return &Toolset{
		client:     newRemoteClient(url, headers),
		logID:      url,
		toolFilter: toolFilter,
	}
}

func (ts *Toolset) Start(ctx context.Context) error {
	if ts.started.Load() {
		return errors.New("toolset already started")
	}

	// The connection must outlive the request that created it; later turns
	// reuse it.
	ctx = context.WithoutCancel(ctx)

	slog.Debug("Starting MCP toolset", "server", ts.logID)

	result, err := ts.client.Initialize(ctx, &mcp.InitializeRequest{
		Params: &mcp.InitializeParams{
			ClientInfo: &mcp.Implementation{
				Name:    "threadkit",
				Version: "1.0.0",
			},
		},
	})
	if err != nil {
		return fmt.Errorf("initializing MCP client: %w", err)
	}

	ts.instructions = result.Instructions
	ts.started.Store(true)

	slog.Debug("Started MCP toolset", "server", ts.logID)
	return nil
}

func (ts *Toolset) Instructions() string {
	return ts.instructions
}

func (ts *Toolset) Tools(ctx context.Context) ([]tools.Tool, error) {
	if !ts.started.Load() {
		return nil, errors.New("toolset not started")
	}

	var toolsList []tools.Tool
	for t, err := range ts.client.ListTools(ctx, &mcp.ListToolsParams{}) {
		if err != nil {
			return nil, fmt.Errorf("listing MCP tools: %w", err)
		}
		if len(ts.toolFilter) > 0 && !slices.Contains(ts.toolFilter, t.Name) {
			continue
		}

		tool := tools.Tool{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.InputSchema,
			Handler:     ts.callTool,
		}
		if t.Annotations != nil {
			tool.Annotations = tools.ToolAnnotations{ReadOnlyHint: t.Annotations.ReadOnlyHint}
		}
		if ref, ok := t.Meta[uiResourceMetaKey].(string); ok {
			tool.UIResourceRef = ref
		}
		toolsList = append(toolsList, tool)
	}

	slog.Debug("Listed MCP tools", "server", ts.logID, "count", len(toolsList))
	return toolsList, nil
}

func (ts *Toolset) callTool(ctx context.Context, toolCall tools.ToolCall) (*tools.ToolCallResult, error) {
	slog.Debug("Calling MCP tool", "tool", toolCall.Function.Name)

	arguments := toolCall.Function.Arguments
	if arguments == "" {
		arguments = "{}"
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return nil, fmt.Errorf("parsing tool arguments: %w", err)
	}

	resp, err := ts.client.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolCall.Function.Name,
		Arguments: args,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("calling tool %s: %w", toolCall.Function.Name, err)
	}

	return convertResult(resp), nil
}

func (ts *Toolset) Stop() error {
	slog.Debug("Stopping MCP toolset", "server", ts.logID)
	return ts.client.Close()
}

func convertResult(toolResult *mcp.CallToolResult) *tools.ToolCallResult {
	result := &tools.ToolCallResult{
		Structured: toolResult.StructuredContent,
		IsError:    toolResult.IsError,
	}

	for _, content := range toolResult.Content {
		if textContent, ok := content.(*mcp.TextContent); ok {
			result.Content = append(result.Content, tools.Content{Type: "text", Text: textContent.Text})
		}
	}

	// Empty output confuses models that expect a tool turn to say something.
	if len(result.Content) == 0 {
		result.Content = []tools.Content{{Type: "text", Text: "no output"}}
	}

	return result
}
