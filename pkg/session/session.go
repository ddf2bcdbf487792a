// Package session holds per-thread conversation state and its storage.
package session

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/threadkit/threadkit/pkg/agent"
	"github.com/threadkit/threadkit/pkg/chat"
)

// Session is one thread: its history, owner, and the approvals accumulated
// during the current turn. A session with ParentID set is a sub-thread
// created by delegation.
type Session struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	Title    string `json:"title,omitempty"`

	UserID string `json:"user_id,omitempty"`
	TeamID string `json:"team_id,omitempty"`

	// AgentName is the agent identity this thread talks to.
	AgentName string `json:"agent_name,omitempty"`

	Messages []Message `json:"messages"`

	// ContextParts are injected context strings (team, project, mention
	// resolution) prepended to the system prompt for every round.
	ContextParts []string `json:"context_parts,omitempty"`

	// ApprovedTools is the thread-scoped allow-list, grown when the user
	// approves a confirmation with scope "thread". It only ever grows.
	ApprovedTools []string `json:"approved_tools,omitempty"`

	// MaxRounds caps model round-trips per turn; 0 means the default.
	MaxRounds int `json:"max_rounds,omitempty"`

	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`

	CreatedAt time.Time `json:"created_at"`
}

// Message is one history entry with the agent that produced it.
type Message struct {
	ID        int64        `json:"id,omitempty"`
	AgentName string       `json:"agent_name,omitempty"`
	Message   chat.Message `json:"message"`
}

func UserMessage(content string) *Message {
	return &Message{
		Message: chat.Message{
			Role:      chat.MessageRoleUser,
			Content:   content,
			CreatedAt: time.Now().Format(time.RFC3339),
		},
	}
}

func AgentMessage(agentName string, msg chat.Message) *Message {
	return &Message{
		AgentName: agentName,
		Message:   msg,
	}
}

type Opt func(s *Session)

func WithUserMessage(content string) Opt {
	return func(s *Session) {
		s.AddMessage(UserMessage(content))
	}
}

func WithAgentName(name string) Opt {
	return func(s *Session) { s.AgentName = name }
}

func WithOwner(userID, teamID string) Opt {
	return func(s *Session) {
		s.UserID = userID
		s.TeamID = teamID
	}
}

func WithContextParts(parts ...string) Opt {
	return func(s *Session) {
		s.ContextParts = append(s.ContextParts, parts...)
	}
}

func WithMaxRounds(n int) Opt {
	return func(s *Session) { s.MaxRounds = n }
}

func WithParent(parentID string) Opt {
	return func(s *Session) { s.ParentID = parentID }
}

// New creates a session with a fresh id.
func New(opts ...Opt) *Session {
	s := &Session{
		ID:        uuid.New().String(),
		Messages:  make([]Message, 0),
		CreatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsSubThread reports whether this session was spawned by delegation.
func (s *Session) IsSubThread() bool {
	return s.ParentID != ""
}

func (s *Session) AddMessage(msg *Message) {
	s.Messages = append(s.Messages, *msg)
}

// AllowTool appends name to the thread allow-list. The list is monotonic
// within a turn; duplicates are ignored.
func (s *Session) AllowTool(name string) {
	for _, existing := range s.ApprovedTools {
		if strings.EqualFold(existing, name) {
			return
		}
	}
	s.ApprovedTools = append(s.ApprovedTools, name)
}

// GetMessages assembles the provider-facing history for a: system prompt,
// injected context, toolset instructions, then the thread history.
func (s *Session) GetMessages(a *agent.Agent) []chat.Message {
	messages := make([]chat.Message, 0, len(s.Messages)+2)

	system := a.Instruction()
	if len(s.ContextParts) > 0 {
		system += "\n\n" + strings.Join(s.ContextParts, "\n\n")
	}
	if a.HasSubAgents() {
		system += "\n\n" + delegationInstructions(a)
	}
	messages = append(messages, chat.Message{
		Role:    chat.MessageRoleSystem,
		Content: system,
	})

	for _, ts := range a.ToolSets() {
		if instructions := ts.Instructions(); instructions != "" {
			messages = append(messages, chat.Message{
				Role:    chat.MessageRoleSystem,
				Content: instructions,
			})
		}
	}

	for i := range s.Messages {
		messages = append(messages, s.Messages[i].Message)
	}

	return messages
}

func delegationInstructions(a *agent.Agent) string {
	var sb strings.Builder
	sb.WriteString("You can delegate tasks to these sub-agents using the delegate_to_agent function:\n")
	for _, sub := range a.SubAgents() {
		sb.WriteString("- " + sub + "\n")
	}
	sb.WriteString("Only delegate to the agents listed above. When delegating, do not generate any text other than the function call.")
	return sb.String()
}
