package openai

import (
	"io"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/ssestream"

	"github.com/threadkit/threadkit/pkg/chat"
	"github.com/threadkit/threadkit/pkg/tools"
)

// streamAdapter adapts the OpenAI chunk stream to chat.MessageStream.
type streamAdapter struct {
	stream     *ssestream.Stream[openai.ChatCompletionChunk]
	trackUsage bool
}

func newStreamAdapter(stream *ssestream.Stream[openai.ChatCompletionChunk], trackUsage bool) *streamAdapter {
	return &streamAdapter{
		stream:     stream,
		trackUsage: trackUsage,
	}
}

func (a *streamAdapter) Recv() (chat.MessageStreamResponse, error) {
	if !a.stream.Next() {
		if err := a.stream.Err(); err != nil {
			return chat.MessageStreamResponse{}, err
		}
		return chat.MessageStreamResponse{}, io.EOF
	}

	chunk := a.stream.Current()

	response := chat.MessageStreamResponse{
		ID:      chunk.ID,
		Model:   chunk.Model,
		Choices: make([]chat.MessageStreamChoice, len(chunk.Choices)),
	}

	for i, choice := range chunk.Choices {
		converted := chat.MessageStreamChoice{
			Index: int(choice.Index),
			Delta: chat.MessageDelta{
				Role:    choice.Delta.Role,
				Content: choice.Delta.Content,
			},
			FinishReason: convertFinishReason(choice.FinishReason),
		}

		for _, toolCall := range choice.Delta.ToolCalls {
			index := int(toolCall.Index)
			converted.Delta.ToolCalls = append(converted.Delta.ToolCalls, tools.ToolCall{
				Index: &index,
				ID:    toolCall.ID,
				Type:  tools.ToolTypeFunction,
				Function: tools.FunctionCall{
					Name:      toolCall.Function.Name,
					Arguments: toolCall.Function.Arguments,
				},
			})
		}

		response.Choices[i] = converted
	}

	if a.trackUsage && chunk.JSON.Usage.Valid() {
		response.Usage = &chat.Usage{
			InputTokens:  chunk.Usage.PromptTokens,
			OutputTokens: chunk.Usage.CompletionTokens,
		}
	}

	return response, nil
}

func convertFinishReason(reason string) chat.FinishReason {
	switch reason {
	case "stop":
		return chat.FinishReasonStop
	case "tool_calls", "function_call":
		return chat.FinishReasonToolCalls
	case "length":
		return chat.FinishReasonLength
	default:
		return chat.FinishReasonNull
	}
}

func (a *streamAdapter) Close() {
	if a.stream != nil {
		a.stream.Close()
	}
}
