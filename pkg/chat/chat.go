// Package chat defines the provider-neutral message and streaming types. Every
// model provider adapts its own wire format into these.
package chat

import "github.com/threadkit/threadkit/pkg/tools"

type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleTool      MessageRole = "tool"
)

// Message is one entry in a conversation history.
type Message struct {
	Role      MessageRole      `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []tools.ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool-role message to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
	// IsError marks a tool-role message carrying a failed execution.
	IsError bool `json:"is_error,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
}

type FinishReason string

const (
	FinishReasonNull      FinishReason = ""
	FinishReasonStop      FinishReason = "stop"
	FinishReasonToolCalls FinishReason = "tool_calls"
	FinishReasonLength    FinishReason = "length"
)

// Usage accumulates token counts across rounds.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

func (u *Usage) Add(other *Usage) {
	if other == nil {
		return
	}
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// MessageDelta is the incremental payload of one stream chunk.
type MessageDelta struct {
	Role      string           `json:"role,omitempty"`
	Content   string           `json:"content,omitempty"`
	ToolCalls []tools.ToolCall `json:"tool_calls,omitempty"`
}

type MessageStreamChoice struct {
	Index        int          `json:"index"`
	Delta        MessageDelta `json:"delta"`
	FinishReason FinishReason `json:"finish_reason"`
}

// MessageStreamResponse is one chunk of a streaming completion.
type MessageStreamResponse struct {
	ID      string                `json:"id"`
	Model   string                `json:"model"`
	Choices []MessageStreamChoice `json:"choices"`
	Usage   *Usage                `json:"usage,omitempty"`
}

// MessageStream yields completion chunks until io.EOF.
type MessageStream interface {
	Recv() (MessageStreamResponse, error)
	Close()
}
