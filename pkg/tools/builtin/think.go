package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/threadkit/threadkit/pkg/tools"
)

// ThinkTool gives the model a scratchpad. Calls are echoed back verbatim and
// have no side effects, so the tool is read-only and never needs approval.
type ThinkTool struct{}

var _ tools.ToolSet = (*ThinkTool)(nil)

func NewThinkTool() *ThinkTool {
	return &ThinkTool{}
}

func (t *ThinkTool) Instructions() string {
	return `Use the think tool to reason about complicated problems before answering. Nothing you write there is shown to the user.`
}

func (t *ThinkTool) Tools(context.Context) ([]tools.Tool, error) {
	return []tools.Tool{
		{
			Name:        "think",
			Description: "Think about something. The thought is logged but causes no side effects.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"thought": map[string]any{
						"type":        "string",
						"description": "The thought to record",
					},
				},
				"required": []string{"thought"},
			},
			Annotations: tools.ToolAnnotations{ReadOnlyHint: true},
			Handler:     think,
		},
	}, nil
}

func think(_ context.Context, toolCall tools.ToolCall) (*tools.ToolCallResult, error) {
	var params struct {
		Thought string `json:"thought"`
	}
	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return tools.ResultSuccess(params.Thought), nil
}

func (t *ThinkTool) Start(context.Context) error { return nil }
func (t *ThinkTool) Stop() error                 { return nil }
