// Package openai implements the model provider for OpenAI-compatible chat
// completion APIs.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"

	"github.com/threadkit/threadkit/pkg/chat"
	"github.com/threadkit/threadkit/pkg/config"
	"github.com/threadkit/threadkit/pkg/tools"
)

// Client wraps the OpenAI SDK behind the provider interface.
type Client struct {
	cfg    config.ModelConfig
	client openai.Client
}

func NewClient(cfg *config.ModelConfig, apiKey string) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("model configuration is required")
	}
	if apiKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("openai API key is not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		cfg:    *cfg,
		client: openai.NewClient(opts...),
	}, nil
}

func (c *Client) CreateChatCompletionStream(
	ctx context.Context,
	messages []chat.Message,
	requestTools []tools.Tool,
) (chat.MessageStream, error) {
	slog.Debug("Creating OpenAI chat completion stream",
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
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(trackUsage),
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	return newStreamAdapter(stream, trackUsage), nil
}

func (c *Client) CreateChatCompletion(ctx context.Context, messages []chat.Message) (string, error) {
	params, err := c.buildParams(messages, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) buildParams(messages []chat.Message, requestTools []tools.Tool) (openai.ChatCompletionNewParams, error) {
	params := openai.ChatCompletionNewParams{
		Model:    c.cfg.Model,
		Messages: convertMessages(messages),
	}

	if c.cfg.Temperature != nil {
		params.Temperature = openai.Float(*c.cfg.Temperature)
	}
	if c.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.cfg.MaxTokens))
	}

	if len(requestTools) > 0 {
		toolsParam := make([]openai.ChatCompletionToolUnionParam, len(requestTools))
		for i, tool := range requestTools {
			var parameters map[string]any
			if err := tools.ConvertSchema(tool.Parameters, &parameters); err != nil {
				return openai.ChatCompletionNewParams{}, fmt.Errorf("tool %s: %w", tool.Name, err)
			}
			toolsParam[i] = openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  shared.FunctionParameters(parameters),
			})
		}
		params.Tools = toolsParam
	}

	return params, nil
}

func convertMessages(messages []chat.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for i := range messages {
		msg := &messages[i]

		switch msg.Role {
		case chat.MessageRoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))

		case chat.MessageRoleUser:
			out = append(out, openai.UserMessage(msg.Content))

		case chat.MessageRoleAssistant:
			assistantParam := openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				assistantParam.Content.OfString = param.NewOpt(msg.Content)
			}
			if len(msg.ToolCalls) > 0 {
				toolCalls := make([]openai.ChatCompletionMessageToolCallUnionParam, len(msg.ToolCalls))
				for j, toolCall := range msg.ToolCalls {
					toolCalls[j] = openai.ChatCompletionMessageToolCallUnionParam{
						OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
							ID: toolCall.ID,
							Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
								Name:      toolCall.Function.Name,
								Arguments: toolCall.Function.Arguments,
							},
						},
					}
				}
				assistantParam.ToolCalls = toolCalls
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistantParam})

		case chat.MessageRoleTool:
			toolParam := openai.ChatCompletionToolMessageParam{
				ToolCallID: msg.ToolCallID,
			}
			toolParam.Content.OfString = param.NewOpt(msg.Content)
			out = append(out, openai.ChatCompletionMessageParamUnion{OfTool: &toolParam})
		}
	}
	return out
}
