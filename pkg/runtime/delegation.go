package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/threadkit/threadkit/pkg/agent"
	"github.com/threadkit/threadkit/pkg/session"
	"github.com/threadkit/threadkit/pkg/tools"
)

// delegate runs a sub-agent as a blocking tool call: it spawns a fresh
// sub-thread seeded with the delegated task, runs the same round loop on it,
// and re-tags the child's events with the sub-thread id before forwarding
// them onto the parent's stream. The child's final text becomes the parent's
// tool result; a child failure becomes an error result, never a crashed
// parent turn.
func (rt *Runtime) delegate(ctx context.Context, sess *session.Session, parent *agent.Agent, toolCall tools.ToolCall, events chan Event) (*tools.ToolCallResult, error) {
	var args tools.DelegateArgs
	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &args); err != nil {
		return tools.ResultError(fmt.Sprintf("Invalid delegation arguments: %v", err)), nil
	}

	if !parent.IsSubAgent(args.Agent) {
		return tools.ResultError(fmt.Sprintf("Agent '%s' cannot delegate to '%s'.", parent.Name(), args.Agent)), nil
	}

	sub := session.New(
		session.WithParent(sess.ID),
		session.WithAgentName(args.Agent),
		session.WithOwner(sess.UserID, sess.TeamID),
		session.WithUserMessage(args.Task),
	)
	if err := rt.sessions.Create(context.WithoutCancel(ctx), sub); err != nil {
		slog.Error("Failed to create sub-thread session", "parent_id", sess.ID, "error", err)
	}

	slog.Debug("Starting delegation", "parent_id", sess.ID, "sub_thread_id", sub.ID, "agent", args.Agent)
	events <- SubThreadStarted(sub.ID, args.Agent)

	childEvents := make(chan Event, 64)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for ev := range childEvents {
			if retagged := retagSubThreadEvent(ev, sub.ID); retagged != nil {
				events <- retagged
			}
		}
	}()

	finalText, err := rt.run(ctx, sub, childEvents)
	close(childEvents)
	<-forwarded

	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		slog.Error("Sub-thread failed", "sub_thread_id", sub.ID, "error", err)
		events <- SubThreadError(sub.ID, err.Error(), args.Agent)
		return tools.ResultError(fmt.Sprintf("Delegated agent '%s' failed: %v", args.Agent, err)), nil
	}

	events <- SubThreadDone(sub.ID, finalText, args.Agent)
	return tools.ResultSuccess(finalText), nil
}

// retagSubThreadEvent rewraps a child loop's events so they interleave with
// the parent's stream but stay distinguishable by sub-thread id. Confirmation
// events pass through untouched; usage and round-cap frames gain the
// sub-thread id; the child's start frame is subsumed by sub_thread_start and
// dropped.
func retagSubThreadEvent(ev Event, subThreadID string) Event {
	switch e := ev.(type) {
	case *DeltaEvent:
		return SubThreadDelta(subThreadID, e.Content, e.AgentName)
	case *ToolUseEvent:
		return SubThreadToolUse(subThreadID, e.ToolCall, e.AgentName)
	case *ToolResultEvent:
		return SubThreadToolResult(subThreadID, e.ToolCall, e.Result, e.AgentName)
	case *UsageEvent:
		tagged := *e
		tagged.SubThreadID = subThreadID
		return &tagged
	case *MaxRoundsReachedEvent:
		tagged := *e
		tagged.SubThreadID = subThreadID
		return &tagged
	case *StreamStartedEvent:
		return nil
	default:
		return ev
	}
}
