package runtime

import (
	"context"
	"log/slog"
	"strings"

	"github.com/threadkit/threadkit/pkg/chat"
	"github.com/threadkit/threadkit/pkg/session"
)

const titlePrompt = `Generate a short title (at most six words) summarizing the conversation so far. Respond with the title only, no quotes and no trailing punctuation.`

// generateTitle names a fresh thread after its first completed turn. Failures
// only cost the title; the turn itself already succeeded.
func (rt *Runtime) generateTitle(ctx context.Context, sess *session.Session, events chan Event) {
	if sess.Title != "" || sess.IsSubThread() {
		return
	}

	a, err := rt.team.Agent(sess.AgentName)
	if err != nil {
		return
	}

	messages := make([]chat.Message, 0, len(sess.Messages)+1)
	for i := range sess.Messages {
		messages = append(messages, sess.Messages[i].Message)
	}
	messages = append(messages, chat.Message{
		Role:    chat.MessageRoleUser,
		Content: titlePrompt,
	})

	title, err := a.Provider().CreateChatCompletion(ctx, messages)
	if err != nil {
		slog.Debug("Title generation failed", "session_id", sess.ID, "error", err)
		return
	}

	title = strings.TrimSpace(strings.Trim(strings.TrimSpace(title), `"`))
	if title == "" {
		return
	}

	sess.Title = title
	rt.updateSession(ctx, sess)
	events <- ThreadTitle(title)
}
