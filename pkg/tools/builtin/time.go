package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/threadkit/threadkit/pkg/tools"
)

// TimeTool reports the current time. Stateless and read-only.
type TimeTool struct{}

var _ tools.ToolSet = (*TimeTool)(nil)

func NewTimeTool() *TimeTool {
	return &TimeTool{}
}

func (t *TimeTool) Instructions() string { return "" }

func (t *TimeTool) Tools(context.Context) ([]tools.Tool, error) {
	return []tools.Tool{
		{
			Name:        "current_time",
			Description: "Get the current date and time, optionally in a specific IANA timezone",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"timezone": map[string]any{
						"type":        "string",
						"description": "IANA timezone name like Europe/Paris; defaults to UTC",
					},
				},
			},
			Annotations: tools.ToolAnnotations{ReadOnlyHint: true},
			Handler:     currentTime,
		},
	}, nil
}

func currentTime(_ context.Context, toolCall tools.ToolCall) (*tools.ToolCallResult, error) {
	var params struct {
		Timezone string `json:"timezone"`
	}
	if toolCall.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &params); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
	}

	loc := time.UTC
	if params.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(params.Timezone); err != nil {
			return tools.ResultError(fmt.Sprintf("unknown timezone %q", params.Timezone)), nil
		}
	}

	return tools.ResultSuccess(time.Now().In(loc).Format(time.RFC1123)), nil
}

func (t *TimeTool) Start(context.Context) error { return nil }
func (t *TimeTool) Stop() error                 { return nil }
