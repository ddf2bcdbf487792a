package runtime

import (
	"github.com/threadkit/threadkit/pkg/chat"
	"github.com/threadkit/threadkit/pkg/confirmation"
	"github.com/threadkit/threadkit/pkg/permissions"
	"github.com/threadkit/threadkit/pkg/tools"
)

// Event is one frame of the outbound stream. Every variant carries a Type tag
// that discriminates it on the wire.
type Event interface {
	isEvent()
}

// AgentContext carries optional agent attribution for an event.
type AgentContext struct {
	AgentName string `json:"agent_name,omitempty"`
}

// ThreadEvent announces the thread id serving this stream. Always the first
// frame so clients can route follow-up calls (confirmations) to the thread.
type ThreadEvent struct {
	Type     string `json:"type"`
	ThreadID string `json:"thread_id"`
}

func Thread(threadID string) Event {
	return &ThreadEvent{Type: "thread", ThreadID: threadID}
}

func (e *ThreadEvent) isEvent() {}

// StreamStartedEvent marks the beginning of the turn.
type StreamStartedEvent struct {
	Type string `json:"type"`
	AgentContext
}

func StreamStarted(agentName string) Event {
	return &StreamStartedEvent{Type: "start", AgentContext: AgentContext{AgentName: agentName}}
}

func (e *StreamStartedEvent) isEvent() {}

// DeltaEvent carries one text fragment, forwarded in model emission order.
type DeltaEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	AgentContext
}

func Delta(content, agentName string) Event {
	return &DeltaEvent{Type: "delta", Content: content, AgentContext: AgentContext{AgentName: agentName}}
}

func (e *DeltaEvent) isEvent() {}

// ToolUseEvent is emitted when a tool call starts executing.
type ToolUseEvent struct {
	Type     string         `json:"type"`
	ToolCall tools.ToolCall `json:"tool_call"`
	AgentContext
}

func ToolUse(toolCall tools.ToolCall, agentName string) Event {
	return &ToolUseEvent{Type: "tool_use", ToolCall: toolCall, AgentContext: AgentContext{AgentName: agentName}}
}

func (e *ToolUseEvent) isEvent() {}

// ToolResultEvent carries the outcome of one tool call, exactly one per call
// that reached execution, plus synthetic results for denied calls.
type ToolResultEvent struct {
	Type     string                `json:"type"`
	ToolCall tools.ToolCall        `json:"tool_call"`
	Result   *tools.ToolCallResult `json:"result"`
	AgentContext
}

func ToolResult(toolCall tools.ToolCall, result *tools.ToolCallResult, agentName string) Event {
	return &ToolResultEvent{
		Type:         "tool_result",
		ToolCall:     toolCall,
		Result:       result,
		AgentContext: AgentContext{AgentName: agentName},
	}
}

func (e *ToolResultEvent) isEvent() {}

// ToolPendingConfirmationEvent asks the user to approve a tool call. The
// confirmation id is resolved out-of-band through the confirmation endpoint.
type ToolPendingConfirmationEvent struct {
	Type           string         `json:"type"`
	ConfirmationID string         `json:"confirmation_id"`
	ToolCall       tools.ToolCall `json:"tool_call"`
	AgentContext
}

func ToolPendingConfirmation(confirmationID string, toolCall tools.ToolCall, agentName string) Event {
	return &ToolPendingConfirmationEvent{
		Type:           "tool_pending_confirmation",
		ConfirmationID: confirmationID,
		ToolCall:       toolCall,
		AgentContext:   AgentContext{AgentName: agentName},
	}
}

func (e *ToolPendingConfirmationEvent) isEvent() {}

// ToolConfirmedEvent reports the user's answer to a pending confirmation.
type ToolConfirmedEvent struct {
	Type           string             `json:"type"`
	ConfirmationID string             `json:"confirmation_id"`
	Approved       bool               `json:"approved"`
	Scope          confirmation.Scope `json:"scope,omitempty"`
	AgentContext
}

func ToolConfirmed(confirmationID string, approved bool, scope confirmation.Scope, agentName string) Event {
	return &ToolConfirmedEvent{
		Type:           "tool_confirmed",
		ConfirmationID: confirmationID,
		Approved:       approved,
		Scope:          scope,
		AgentContext:   AgentContext{AgentName: agentName},
	}
}

func (e *ToolConfirmedEvent) isEvent() {}

// ToolAutoApprovedEvent reports that a tool call skipped confirmation, with
// the allow tier that made the decision.
type ToolAutoApprovedEvent struct {
	Type     string             `json:"type"`
	ToolCall tools.ToolCall     `json:"tool_call"`
	Reason   permissions.Source `json:"reason"`
	AgentContext
}

func ToolAutoApproved(toolCall tools.ToolCall, reason permissions.Source, agentName string) Event {
	return &ToolAutoApprovedEvent{
		Type:         "tool_auto_approved",
		ToolCall:     toolCall,
		Reason:       reason,
		AgentContext: AgentContext{AgentName: agentName},
	}
}

func (e *ToolAutoApprovedEvent) isEvent() {}

// Sub-thread events wrap a delegated agent's stream. They interleave with the
// parent's events but stay distinguishable by sub-thread id.

type SubThreadStartedEvent struct {
	Type        string `json:"type"`
	SubThreadID string `json:"sub_thread_id"`
	AgentContext
}

func SubThreadStarted(subThreadID, agentName string) Event {
	return &SubThreadStartedEvent{
		Type:         "sub_thread_start",
		SubThreadID:  subThreadID,
		AgentContext: AgentContext{AgentName: agentName},
	}
}

func (e *SubThreadStartedEvent) isEvent() {}

type SubThreadDeltaEvent struct {
	Type        string `json:"type"`
	SubThreadID string `json:"sub_thread_id"`
	Content     string `json:"content"`
	AgentContext
}

func SubThreadDelta(subThreadID, content, agentName string) Event {
	return &SubThreadDeltaEvent{
		Type:         "sub_thread_delta",
		SubThreadID:  subThreadID,
		Content:      content,
		AgentContext: AgentContext{AgentName: agentName},
	}
}

func (e *SubThreadDeltaEvent) isEvent() {}

type SubThreadToolUseEvent struct {
	Type        string         `json:"type"`
	SubThreadID string         `json:"sub_thread_id"`
	ToolCall    tools.ToolCall `json:"tool_call"`
	AgentContext
}

func SubThreadToolUse(subThreadID string, toolCall tools.ToolCall, agentName string) Event {
	return &SubThreadToolUseEvent{
		Type:         "sub_thread_tool_use",
		SubThreadID:  subThreadID,
		ToolCall:     toolCall,
		AgentContext: AgentContext{AgentName: agentName},
	}
}

func (e *SubThreadToolUseEvent) isEvent() {}

type SubThreadToolResultEvent struct {
	Type        string                `json:"type"`
	SubThreadID string                `json:"sub_thread_id"`
	ToolCall    tools.ToolCall        `json:"tool_call"`
	Result      *tools.ToolCallResult `json:"result"`
	AgentContext
}

func SubThreadToolResult(subThreadID string, toolCall tools.ToolCall, result *tools.ToolCallResult, agentName string) Event {
	return &SubThreadToolResultEvent{
		Type:         "sub_thread_tool_result",
		SubThreadID:  subThreadID,
		ToolCall:     toolCall,
		Result:       result,
		AgentContext: AgentContext{AgentName: agentName},
	}
}

func (e *SubThreadToolResultEvent) isEvent() {}

type SubThreadDoneEvent struct {
	Type        string `json:"type"`
	SubThreadID string `json:"sub_thread_id"`
	Content     string `json:"content"`
	AgentContext
}

func SubThreadDone(subThreadID, content, agentName string) Event {
	return &SubThreadDoneEvent{
		Type:         "sub_thread_done",
		SubThreadID:  subThreadID,
		Content:      content,
		AgentContext: AgentContext{AgentName: agentName},
	}
}

func (e *SubThreadDoneEvent) isEvent() {}

type SubThreadErrorEvent struct {
	Type        string `json:"type"`
	SubThreadID string `json:"sub_thread_id"`
	Error       string `json:"error"`
	AgentContext
}

func SubThreadError(subThreadID, errorMsg, agentName string) Event {
	return &SubThreadErrorEvent{
		Type:         "sub_thread_error",
		SubThreadID:  subThreadID,
		Error:        errorMsg,
		AgentContext: AgentContext{AgentName: agentName},
	}
}

func (e *SubThreadErrorEvent) isEvent() {}

// UsageEvent reports token usage accumulated so far in this turn. Usage from
// a delegated turn carries the sub-thread id.
type UsageEvent struct {
	Type        string     `json:"type"`
	Usage       chat.Usage `json:"usage"`
	SubThreadID string     `json:"sub_thread_id,omitempty"`
	AgentContext
}

func TokenUsage(usage chat.Usage, agentName string) Event {
	return &UsageEvent{Type: "usage", Usage: usage, AgentContext: AgentContext{AgentName: agentName}}
}

func (e *UsageEvent) isEvent() {}

// MaxRoundsReachedEvent reports the soft cutoff of the round cap. The turn
// still terminates with a normal done frame. A delegated turn hitting its cap
// carries the sub-thread id.
type MaxRoundsReachedEvent struct {
	Type        string `json:"type"`
	Rounds      int    `json:"rounds"`
	SubThreadID string `json:"sub_thread_id,omitempty"`
	AgentContext
}

func MaxRoundsReached(rounds int, agentName string) Event {
	return &MaxRoundsReachedEvent{
		Type:         "max_rounds_reached",
		Rounds:       rounds,
		AgentContext: AgentContext{AgentName: agentName},
	}
}

func (e *MaxRoundsReachedEvent) isEvent() {}

// ThreadTitleEvent carries the generated title for a fresh thread.
type ThreadTitleEvent struct {
	Type  string `json:"type"`
	Title string `json:"title"`
}

func ThreadTitle(title string) Event {
	return &ThreadTitleEvent{Type: "thread_title", Title: title}
}

func (e *ThreadTitleEvent) isEvent() {}

// StreamDoneEvent terminates a successful stream. Exactly one of done or
// error ends every stream; nothing follows either.
type StreamDoneEvent struct {
	Type string `json:"type"`
}

func StreamDone() Event {
	return &StreamDoneEvent{Type: "done"}
}

func (e *StreamDoneEvent) isEvent() {}

// ErrorEvent terminates a failed stream.
type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func Error(errorMsg string) Event {
	return &ErrorEvent{Type: "error", Error: errorMsg}
}

func (e *ErrorEvent) isEvent() {}
