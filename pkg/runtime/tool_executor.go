package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/threadkit/threadkit/pkg/agent"
	"github.com/threadkit/threadkit/pkg/chat"
	"github.com/threadkit/threadkit/pkg/confirmation"
	"github.com/threadkit/threadkit/pkg/permissions"
	"github.com/threadkit/threadkit/pkg/session"
	"github.com/threadkit/threadkit/pkg/telemetry"
	"github.com/threadkit/threadkit/pkg/tools"
)

// toolExecutor dispatches one round's tool calls: permission decision,
// confirmation suspension, execution, UI resource resolution and history
// append. Calls run strictly in the order the model emitted them.
type toolExecutor struct {
	rt     *Runtime
	sess   *session.Session
	agent  *agent.Agent
	events chan Event
}

func newToolExecutor(rt *Runtime, sess *session.Session, a *agent.Agent, events chan Event) *toolExecutor {
	return &toolExecutor{
		rt:     rt,
		sess:   sess,
		agent:  a,
		events: events,
	}
}

func (e *toolExecutor) processToolCalls(ctx context.Context, calls []tools.ToolCall, agentTools []tools.Tool) error {
	slog.Debug("Processing tool calls", "agent", e.agent.Name(), "session_id", e.sess.ID, "call_count", len(calls))

	toolMap := make(map[string]tools.Tool, len(agentTools))
	for _, t := range agentTools {
		toolMap[t.Name] = t
	}

	for _, toolCall := range calls {
		callCtx, callSpan := e.startSpan(ctx, "runtime.tool.call", trace.WithAttributes(
			attribute.String("tool.name", toolCall.Function.Name),
			attribute.String("agent", e.agent.Name()),
			attribute.String("session.id", e.sess.ID),
			attribute.String("tool.call_id", toolCall.ID),
		))

		err := e.processToolCall(callCtx, toolCall, toolMap)
		if err != nil {
			callSpan.SetStatus(codes.Error, "tool call aborted")
			callSpan.End()
			return err
		}

		callSpan.SetStatus(codes.Ok, "tool call processed")
		callSpan.End()
	}
	return nil
}

func (e *toolExecutor) processToolCall(ctx context.Context, toolCall tools.ToolCall, toolMap map[string]tools.Tool) error {
	toolName := toolCall.Function.Name
	e.events <- ToolUse(toolCall, e.agent.Name())

	tool, exists := toolMap[toolName]
	if !exists {
		slog.Warn("Tool call rejected: unknown tool", "agent", e.agent.Name(), "tool", toolName, "session_id", e.sess.ID)
		e.appendToolResult(ctx, toolCall, tools.ResultError(fmt.Sprintf("Tool '%s' is not available to this agent.", toolName)))
		return nil
	}

	decision, source := e.decide(toolCall, tool)
	switch decision {
	case permissions.Deny:
		slog.Debug("Tool denied by policy", "tool", toolName, "session_id", e.sess.ID)
		e.appendToolResult(ctx, toolCall, denialResult(fmt.Sprintf("Tool '%s' is denied by the administrator's policy and was not executed.", toolName)))
		return nil

	case permissions.Allow:
		e.events <- ToolAutoApproved(toolCall, source, e.agent.Name())
		e.execute(ctx, toolCall, tool)
		return nil

	case permissions.Ask:
		return e.executeWithConfirmation(ctx, toolCall, tool)
	}
	return nil
}

// decide evaluates the permission policy. Read-only tools never need
// confirmation; everything else walks the configured allow tiers.
func (e *toolExecutor) decide(toolCall tools.ToolCall, tool tools.Tool) (permissions.Decision, permissions.Source) {
	if tool.Annotations.ReadOnlyHint {
		return permissions.Allow, permissions.SourceReadOnly
	}
	if e.rt.perms == nil {
		return permissions.Allow, permissions.SourceNone
	}

	var args map[string]any
	if toolCall.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &args); err != nil {
			slog.Debug("Failed to parse tool arguments for permission check", "tool", toolCall.Function.Name, "error", err)
		}
	}

	return e.rt.perms.Check(toolCall.Function.Name, args, e.sess.UserID, e.sess.ApprovedTools)
}

// executeWithConfirmation registers a pending confirmation and suspends until
// the out-of-band resolve call answers it or the connection dies.
func (e *toolExecutor) executeWithConfirmation(ctx context.Context, toolCall tools.ToolCall, tool tools.Tool) error {
	id, resolution := e.rt.broker.Create(confirmation.Request{
		RequestID: e.sess.ID,
		ThreadID:  e.rootThreadID(),
		UserID:    e.sess.UserID,
		ToolCall:  toolCall,
	})
	defer e.rt.broker.Abandon(id)

	slog.Debug("Waiting for tool confirmation", "tool", toolCall.Function.Name, "confirmation_id", id, "session_id", e.sess.ID)
	e.events <- ToolPendingConfirmation(id, toolCall, e.agent.Name())

	select {
	case res := <-resolution:
		e.events <- ToolConfirmed(id, res.Approved, res.Scope, e.agent.Name())

		if !res.Approved {
			e.appendToolResult(ctx, toolCall, denialResult(fmt.Sprintf("The user declined to run tool '%s'. Do not retry it; continue without it.", toolCall.Function.Name)))
			return nil
		}

		switch res.Scope {
		case confirmation.ScopeThread:
			e.sess.AllowTool(toolCall.Function.Name)
		case confirmation.ScopeAlways:
			if e.rt.prefs != nil {
				if err := e.rt.prefs.AddAlwaysAllowedTool(e.sess.UserID, toolCall.Function.Name); err != nil {
					slog.Error("Failed to persist always-allow preference", "tool", toolCall.Function.Name, "error", err)
				}
			}
		}

		e.execute(ctx, toolCall, tool)
		return nil

	case <-ctx.Done():
		// Abandoned with the connection; the deferred Abandon discards the
		// broker entry.
		slog.Debug("Connection closed while awaiting confirmation", "tool", toolCall.Function.Name, "confirmation_id", id, "session_id", e.sess.ID)
		return ctx.Err()
	}
}

// execute runs the tool handler and appends the result. Handler failures are
// fed back to the model as error results; the turn continues.
func (e *toolExecutor) execute(ctx context.Context, toolCall tools.ToolCall, tool tools.Tool) {
	ctx, span := e.startSpan(ctx, "runtime.tool.handler", trace.WithAttributes(
		attribute.String("tool.name", toolCall.Function.Name),
		attribute.String("agent", e.agent.Name()),
		attribute.String("session.id", e.sess.ID),
	))
	defer span.End()

	var res *tools.ToolCallResult
	var err error

	start := time.Now()
	if toolCall.Function.Name == tools.DelegateToolName {
		res, err = e.rt.delegate(ctx, e.sess, e.agent, toolCall, e.events)
	} else {
		res, err = tool.Handler(ctx, toolCall)
	}
	telemetry.RecordToolCall(ctx, toolCall.Function.Name, e.sess.ID, e.agent.Name(), time.Since(start), err)

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			span.SetStatus(codes.Ok, "tool handler canceled")
			res = tools.ResultError("The tool call was canceled.")
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, "tool handler error")
			slog.Error("Error calling tool", "tool", toolCall.Function.Name, "error", err)
			res = tools.ResultError(fmt.Sprintf("Error calling tool: %v", err))
		}
	} else {
		span.SetStatus(codes.Ok, "tool handler completed")
	}

	e.resolveUIResource(tool, res)
	e.appendToolResult(ctx, toolCall, res)
}

// resolveUIResource renders the tool's declared UI resource template onto the
// result. Failure degrades to no resource.
func (e *toolExecutor) resolveUIResource(tool tools.Tool, res *tools.ToolCallResult) {
	if tool.UIResourceRef == "" || e.rt.resolver == nil || res.IsError {
		return
	}
	resource, err := e.rt.resolver.Resolve(tool.UIResourceRef, res)
	if err != nil {
		slog.Debug("UI resource resolution failed", "tool", tool.Name, "ref", tool.UIResourceRef, "error", err)
		return
	}
	res.UIResource = resource
}

// appendToolResult emits the result event and appends the tool message to
// history, preserving tool-call order.
func (e *toolExecutor) appendToolResult(ctx context.Context, toolCall tools.ToolCall, res *tools.ToolCallResult) {
	e.events <- ToolResult(toolCall, res, e.agent.Name())

	content := res.Output()
	if strings.TrimSpace(content) == "" {
		content = "(no output)"
	}

	e.sess.AddMessage(session.AgentMessage(e.agent.Name(), chat.Message{
		Role:       chat.MessageRoleTool,
		Content:    content,
		ToolCallID: toolCall.ID,
		IsError:    res.IsError,
		CreatedAt:  time.Now().Format(time.RFC3339),
	}))
	e.rt.updateSession(ctx, e.sess)
}

// rootThreadID reports the parent thread for sub-threads so confirmations
// resolve against the thread the client knows about.
func (e *toolExecutor) rootThreadID() string {
	if e.sess.ParentID != "" {
		return e.sess.ParentID
	}
	return e.sess.ID
}

// denialResult is success-shaped so the model sees a normal tool turn.
func denialResult(message string) *tools.ToolCallResult {
	return tools.ResultSuccess(message)
}

func (e *toolExecutor) startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if e.rt.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return e.rt.tracer.Start(ctx, name, opts...)
}
