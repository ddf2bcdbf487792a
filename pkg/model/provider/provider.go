// Package provider defines the model provider interface and its factory.
package provider

import (
	"context"

	"github.com/threadkit/threadkit/pkg/chat"
	"github.com/threadkit/threadkit/pkg/tools"
)

// Provider is a streaming chat model client.
type Provider interface {
	// CreateChatCompletionStream starts a streaming completion; the stream
	// yields chunks until io.EOF.
	CreateChatCompletionStream(
		ctx context.Context,
		messages []chat.Message,
		tools []tools.Tool,
	) (chat.MessageStream, error)

	// CreateChatCompletion runs a non-streaming completion and returns the
	// full assistant text. Used for short side calls like thread titling.
	CreateChatCompletion(
		ctx context.Context,
		messages []chat.Message,
	) (string, error)
}
