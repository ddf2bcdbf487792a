// Package tools defines the tool call, tool result and toolset types shared
// by the conversation loop, the model providers and the tool providers.
package tools

import (
	"context"
	"strings"
)

// ToolCall is a model-requested invocation of a tool. The ID is opaque,
// request-scoped and unique within a turn.
type ToolCall struct {
	Index    *int         `json:"index,omitempty"`
	ID       string       `json:"id,omitempty"`
	Type     ToolType     `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type ToolType string

const ToolTypeFunction ToolType = "function"

// Content is one block of tool output. Only text blocks are produced today;
// the type tag keeps the wire format open for richer blocks.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// UIResource is a renderable artifact attached to a tool result for rich
// client display, e.g. an html snippet keyed by the tool's resource template.
type UIResource struct {
	URI      string `json:"uri"`
	MimeType string `json:"mime_type"`
	Text     string `json:"text"`
}

// ToolCallResult is the outcome of executing a tool call. IsError marks
// execution failures that are fed back to the model as tool output rather
// than aborting the turn.
type ToolCallResult struct {
	Content    []Content   `json:"content"`
	Structured any         `json:"structured_content,omitempty"`
	IsError    bool        `json:"is_error,omitempty"`
	UIResource *UIResource `json:"ui_resource,omitempty"`
}

// Output returns the concatenated text of all content blocks.
func (r *ToolCallResult) Output() string {
	var sb strings.Builder
	for _, c := range r.Content {
		sb.WriteString(c.Text)
	}
	return sb.String()
}

func ResultSuccess(text string) *ToolCallResult {
	return &ToolCallResult{Content: []Content{{Type: "text", Text: text}}}
}

func ResultError(text string) *ToolCallResult {
	return &ToolCallResult{Content: []Content{{Type: "text", Text: text}}, IsError: true}
}

// ToolHandler executes a single tool call.
type ToolHandler func(ctx context.Context, toolCall ToolCall) (*ToolCallResult, error)

type ToolAnnotations struct {
	// ReadOnlyHint marks tools that never mutate state; read-only tools
	// skip the confirmation flow.
	ReadOnlyHint bool `json:"read_only_hint,omitempty"`
}

// Tool is one callable tool with its schema and handler.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  any             `json:"parameters"`
	Annotations ToolAnnotations `json:"annotations,omitempty"`

	// UIResourceRef names the UI resource template rendered for this
	// tool's results, if any.
	UIResourceRef string `json:"ui_resource_ref,omitempty"`

	Handler ToolHandler `json:"-"`
}

// ToolSet is a named group of tools from one provider (builtin or remote).
type ToolSet interface {
	Tools(ctx context.Context) ([]Tool, error)
	Instructions() string
	Start(ctx context.Context) error
	Stop() error
}
