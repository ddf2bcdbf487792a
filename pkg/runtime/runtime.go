// Package runtime drives one chat turn: it loops model completions over the
// growing history, streams text deltas out as events, routes requested tool
// calls through permission checks and the confirmation broker, and feeds
// results back into history until the model stops asking for tools or the
// round cap is hit.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/threadkit/threadkit/pkg/chat"
	"github.com/threadkit/threadkit/pkg/confirmation"
	"github.com/threadkit/threadkit/pkg/permissions"
	"github.com/threadkit/threadkit/pkg/session"
	"github.com/threadkit/threadkit/pkg/team"
	"github.com/threadkit/threadkit/pkg/tools"
	"github.com/threadkit/threadkit/pkg/ui"
)

// defaultMaxRounds bounds model round-trips per turn. The cap is the sole
// safety net against runaway tool-call cycles.
const defaultMaxRounds = 10

// PreferenceWriter persists "always" scope approvals into the user's
// always-allow preferences.
type PreferenceWriter interface {
	AddAlwaysAllowedTool(userID, toolName string) error
}

// Runtime owns the per-deployment collaborators shared by every turn.
type Runtime struct {
	team      *team.Team
	sessions  session.Store
	broker    *confirmation.Broker
	perms     *permissions.Checker
	prefs     PreferenceWriter
	resolver  *ui.Resolver
	tracer    trace.Tracer
	maxRounds int
}

type Opt func(*Runtime)

func WithPermissions(checker *permissions.Checker) Opt {
	return func(rt *Runtime) { rt.perms = checker }
}

func WithPreferenceWriter(prefs PreferenceWriter) Opt {
	return func(rt *Runtime) { rt.prefs = prefs }
}

func WithUIResolver(resolver *ui.Resolver) Opt {
	return func(rt *Runtime) { rt.resolver = resolver }
}

func WithTracer(tracer trace.Tracer) Opt {
	return func(rt *Runtime) { rt.tracer = tracer }
}

func WithMaxRounds(n int) Opt {
	return func(rt *Runtime) { rt.maxRounds = n }
}

func New(agents *team.Team, sessions session.Store, broker *confirmation.Broker, opts ...Opt) *Runtime {
	rt := &Runtime{
		team:      agents,
		sessions:  sessions,
		broker:    broker,
		maxRounds: defaultMaxRounds,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Broker exposes the confirmation broker for the resolve endpoint.
func (rt *Runtime) Broker() *confirmation.Broker {
	return rt.broker
}

// RunStream executes one turn for sess and returns its event stream. The
// stream always ends with exactly one done or error frame and is closed
// afterwards. Cancelling ctx abandons the turn along with any pending
// confirmation.
func (rt *Runtime) RunStream(ctx context.Context, sess *session.Session) <-chan Event {
	events := make(chan Event, 256)

	go func() {
		defer close(events)

		events <- Thread(sess.ID)

		if _, err := rt.run(ctx, sess, events); err != nil {
			if ctx.Err() != nil {
				// Connection is gone; nobody is listening anymore.
				return
			}
			slog.Error("Turn failed", "session_id", sess.ID, "error", err)
			events <- Error(err.Error())
			return
		}

		rt.generateTitle(ctx, sess, events)
		events <- StreamDone()
	}()

	return events
}

// run executes the round loop and returns the turn's final text. Events are
// emitted as a side effect; terminal done/error frames are the caller's job.
func (rt *Runtime) run(ctx context.Context, sess *session.Session, events chan Event) (string, error) {
	a, err := rt.team.Agent(sess.AgentName)
	if err != nil {
		return "", err
	}

	events <- StreamStarted(a.Name())

	maxRounds := rt.maxRounds
	if a.MaxRounds() > 0 {
		maxRounds = a.MaxRounds()
	}
	if sess.MaxRounds > 0 {
		maxRounds = sess.MaxRounds
	}

	executor := newToolExecutor(rt, sess, a, events)

	var finalText strings.Builder
	var turnUsage chat.Usage

	for round := 1; round <= maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		slog.Debug("Starting round", "session_id", sess.ID, "agent", a.Name(), "round", round)

		agentTools, err := a.Tools(ctx)
		if err != nil {
			return "", err
		}

		stream, err := a.Provider().CreateChatCompletionStream(ctx, sess.GetMessages(a), agentTools)
		if err != nil {
			return "", fmt.Errorf("creating completion stream: %w", err)
		}

		text, toolCalls, usage, finishReason, err := rt.consumeStream(stream, a.Name(), events)
		stream.Close()
		if err != nil {
			return "", fmt.Errorf("reading completion stream: %w", err)
		}

		finalText.WriteString(text)

		if usage != nil {
			turnUsage.Add(usage)
			sess.InputTokens += usage.InputTokens
			sess.OutputTokens += usage.OutputTokens
			events <- TokenUsage(turnUsage, a.Name())
		}

		assistantMsg := chat.Message{
			Role:      chat.MessageRoleAssistant,
			Content:   text,
			ToolCalls: toolCalls,
			CreatedAt: time.Now().Format(time.RFC3339),
		}
		sess.AddMessage(session.AgentMessage(a.Name(), assistantMsg))
		rt.updateSession(ctx, sess)

		if len(toolCalls) == 0 || finishReason != chat.FinishReasonToolCalls {
			return finalText.String(), nil
		}

		if err := executor.processToolCalls(ctx, toolCalls, agentTools); err != nil {
			return "", err
		}
	}

	// Soft cutoff: surface the accumulated text as if the model had stopped.
	slog.Debug("Round cap reached", "session_id", sess.ID, "agent", a.Name(), "max_rounds", maxRounds)
	events <- MaxRoundsReached(maxRounds, a.Name())
	return finalText.String(), nil
}

// consumeStream drains one completion stream, forwarding text deltas as
// events in emission order and assembling tool call fragments into complete
// calls.
func (rt *Runtime) consumeStream(stream chat.MessageStream, agentName string, events chan Event) (string, []tools.ToolCall, *chat.Usage, chat.FinishReason, error) {
	var (
		text         strings.Builder
		toolCalls    []tools.ToolCall
		usage        *chat.Usage
		finishReason chat.FinishReason
	)

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, nil, finishReason, err
		}

		if resp.Usage != nil {
			if usage == nil {
				usage = &chat.Usage{}
			}
			usage.Add(resp.Usage)
		}

		for _, choice := range resp.Choices {
			if choice.FinishReason != chat.FinishReasonNull {
				finishReason = choice.FinishReason
			}
			if choice.Delta.Content != "" {
				text.WriteString(choice.Delta.Content)
				events <- Delta(choice.Delta.Content, agentName)
			}
			for _, fragment := range choice.Delta.ToolCalls {
				toolCalls = mergeToolCall(toolCalls, fragment)
			}
		}
	}

	return text.String(), toolCalls, usage, finishReason, nil
}

// mergeToolCall folds one streamed fragment into the accumulated calls.
// OpenAI-style streams key fragments by index; Anthropic-style streams open a
// call with an id and follow with argument fragments carrying the same id.
func mergeToolCall(calls []tools.ToolCall, fragment tools.ToolCall) []tools.ToolCall {
	if fragment.Index != nil {
		for i := range calls {
			if calls[i].Index != nil && *calls[i].Index == *fragment.Index {
				appendFragment(&calls[i], fragment)
				return calls
			}
		}
		return append(calls, fragment)
	}

	// An id-less fragment continues the most recently opened call.
	if fragment.ID == "" && len(calls) > 0 {
		appendFragment(&calls[len(calls)-1], fragment)
		return calls
	}
	for i := range calls {
		if calls[i].ID == fragment.ID {
			appendFragment(&calls[i], fragment)
			return calls
		}
	}
	return append(calls, fragment)
}

func appendFragment(call *tools.ToolCall, fragment tools.ToolCall) {
	if fragment.ID != "" {
		call.ID = fragment.ID
	}
	if fragment.Function.Name != "" {
		call.Function.Name = fragment.Function.Name
	}
	call.Function.Arguments += fragment.Function.Arguments
}

func (rt *Runtime) updateSession(ctx context.Context, sess *session.Session) {
	if err := rt.sessions.Update(context.WithoutCancel(ctx), sess); err != nil {
		slog.Error("Failed to update session", "session_id", sess.ID, "error", err)
	}
}
