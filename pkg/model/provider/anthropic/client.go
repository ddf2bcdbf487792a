// Package anthropic implements the model provider for the Anthropic Messages
// API.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/threadkit/threadkit/pkg/chat"
	"github.com/threadkit/threadkit/pkg/config"
	"github.com/threadkit/threadkit/pkg/tools"
)

const defaultMaxTokens = 8192

// Client wraps the Anthropic SDK behind the provider interface.
type Client struct {
	cfg    config.ModelConfig
	client anthropic.Client
}

func NewClient(cfg *config.ModelConfig, apiKey string) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("model configuration is required")
	}
	if apiKey == "" {
		return nil, errors.New("anthropic API key is not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		cfg:    *cfg,
		client: anthropic.NewClient(opts...),
	}, nil
}

func (c *Client) CreateChatCompletionStream(
	ctx context.Context,
	messages []chat.Message,
	requestTools []tools.Tool,
) (chat.MessageStream, error) {
	slog.Debug("Creating Anthropic chat completion stream",
		"model", c.cfg.Model,
		"message_count", len(messages),
		"tool_count", len(requestTools))

	if len(messages) == 0 {
		return nil, errors.New("at least one message is required")
	}

	params, err := c.buildParams(messages, requestTools)
	if err != nil {
		return nil, err
	}

	trackUsage := c.cfg.TrackUsage == nil || *c.cfg.TrackUsage
	stream := c.client.Messages.NewStreaming(ctx, params)
	return newStreamAdapter(stream, trackUsage), nil
}

func (c *Client) CreateChatCompletion(ctx context.Context, messages []chat.Message) (string, error) {
	params, err := c.buildParams(messages, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String(), nil
}

func (c *Client) buildParams(messages []chat.Message, requestTools []tools.Tool) (anthropic.MessageNewParams, error) {
	converted, err := convertMessages(messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}
	if len(converted) == 0 {
		return anthropic.MessageNewParams{}, errors.New("no messages to send after conversion")
	}

	allTools, err := convertTools(requestTools)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	maxTokens := int64(c.cfg.MaxTokens)
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: maxTokens,
		System:    extractSystemBlocks(messages),
		Messages:  converted,
		Tools:     allTools,
	}
	if c.cfg.Temperature != nil {
		params.Temperature = anthropic.Float(*c.cfg.Temperature)
	}
	return params, nil
}

// convertMessages maps the neutral history to Anthropic messages. System
// messages are lifted into params.System; consecutive tool results are
// grouped into one user message because the API requires tool_use blocks to
// be answered by a single user message with all tool_result blocks.
func convertMessages(messages []chat.Message) ([]anthropic.MessageParam, error) {
	var out []anthropic.MessageParam

	for i := 0; i < len(messages); i++ {
		msg := &messages[i]
		switch msg.Role {
		case chat.MessageRoleSystem:
			continue

		case chat.MessageRoleUser:
			if txt := strings.TrimSpace(msg.Content); txt != "" {
				out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(txt)))
			}

		case chat.MessageRoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if txt := strings.TrimSpace(msg.Content); txt != "" {
				blocks = append(blocks, anthropic.NewTextBlock(txt))
			}
			for _, toolCall := range msg.ToolCalls {
				var input map[string]any
				if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &input); err != nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    toolCall.ID,
						Input: input,
						Name:  toolCall.Function.Name,
					},
				})
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}

		case chat.MessageRoleTool:
			var blocks []anthropic.ContentBlockParamUnion
			for i < len(messages) && messages[i].Role == chat.MessageRoleTool {
				blocks = append(blocks, anthropic.NewToolResultBlock(
					messages[i].ToolCallID,
					strings.TrimSpace(messages[i].Content),
					messages[i].IsError))
				i++
			}
			i--
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}

	return out, nil
}

func extractSystemBlocks(messages []chat.Message) []anthropic.TextBlockParam {
	var systemBlocks []anthropic.TextBlockParam
	for i := range messages {
		msg := &messages[i]
		if msg.Role != chat.MessageRoleSystem {
			continue
		}
		if txt := strings.TrimSpace(msg.Content); txt != "" {
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: txt})
		}
	}
	return systemBlocks
}

func convertTools(requestTools []tools.Tool) ([]anthropic.ToolUnionParam, error) {
	toolParams := make([]anthropic.ToolParam, len(requestTools))
	for i, tool := range requestTools {
		var inputSchema anthropic.ToolInputSchemaParam
		if err := tools.ConvertSchema(tool.Parameters, &inputSchema); err != nil {
			return nil, fmt.Errorf("tool %s: %w", tool.Name, err)
		}
		toolParams[i] = anthropic.ToolParam{
			Name:        tool.Name,
			Description: anthropic.String(tool.Description),
			InputSchema: inputSchema,
		}
	}

	anthropicTools := make([]anthropic.ToolUnionParam, len(toolParams))
	for i := range toolParams {
		anthropicTools[i] = anthropic.ToolUnionParam{OfTool: &toolParams[i]}
	}
	return anthropicTools, nil
}
