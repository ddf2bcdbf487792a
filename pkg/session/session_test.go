package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadkit/threadkit/pkg/agent"
	"github.com/threadkit/threadkit/pkg/chat"
)

func TestNewSession(t *testing.T) {
	t.Parallel()

	sess := New(
		WithAgentName("root"),
		WithOwner("alice", "team-1"),
		WithUserMessage("hello"),
		WithMaxRounds(5),
	)

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "root", sess.AgentName)
	assert.Equal(t, "alice", sess.UserID)
	assert.Equal(t, 5, sess.MaxRounds)
	assert.False(t, sess.IsSubThread())
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, chat.MessageRoleUser, sess.Messages[0].Message.Role)
}

func TestIsSubThread(t *testing.T) {
	t.Parallel()

	parent := New()
	sub := New(WithParent(parent.ID))
	assert.True(t, sub.IsSubThread())
	assert.Equal(t, parent.ID, sub.ParentID)
}

func TestAllowToolDeduplicates(t *testing.T) {
	t.Parallel()

	sess := New()
	sess.AllowTool("write_file")
	sess.AllowTool("Write_File")
	sess.AllowTool("shell")

	assert.Equal(t, []string{"write_file", "shell"}, sess.ApprovedTools)
}

func TestGetMessagesSystemPromptAssembly(t *testing.T) {
	t.Parallel()

	a := agent.New("root", agent.WithInstruction("You are helpful."))

	sess := New(
		WithAgentName("root"),
		WithContextParts("Team: platform", "Project: billing"),
		WithUserMessage("hello"),
	)

	messages := sess.GetMessages(a)
	require.Len(t, messages, 2)

	assert.Equal(t, chat.MessageRoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, "You are helpful.")
	assert.Contains(t, messages[0].Content, "Team: platform")
	assert.Contains(t, messages[0].Content, "Project: billing")

	assert.Equal(t, chat.MessageRoleUser, messages[1].Role)
	assert.Equal(t, "hello", messages[1].Content)
}

func TestGetMessagesDelegationInstructions(t *testing.T) {
	t.Parallel()

	plain := agent.New("root", agent.WithInstruction("base"))
	delegating := agent.New("root",
		agent.WithInstruction("base"),
		agent.WithSubAgents("researcher", "writer"),
	)

	sess := New(WithUserMessage("hello"))

	withoutSubs := sess.GetMessages(plain)
	assert.NotContains(t, withoutSubs[0].Content, "delegate_to_agent")

	withSubs := sess.GetMessages(delegating)
	assert.Contains(t, withSubs[0].Content, "delegate_to_agent")
	assert.Contains(t, withSubs[0].Content, "researcher")
	assert.Contains(t, withSubs[0].Content, "writer")
}

func TestGetMessagesPreservesHistoryOrder(t *testing.T) {
	t.Parallel()

	a := agent.New("root", agent.WithInstruction("base"))
	sess := New(WithUserMessage("first"))
	sess.AddMessage(AgentMessage("root", chat.Message{Role: chat.MessageRoleAssistant, Content: "reply"}))
	sess.AddMessage(UserMessage("second"))

	messages := sess.GetMessages(a)
	require.Len(t, messages, 4)
	assert.Equal(t, "first", messages[1].Content)
	assert.Equal(t, "reply", messages[2].Content)
	assert.Equal(t, "second", messages[3].Content)
}
