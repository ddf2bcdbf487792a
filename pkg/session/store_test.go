package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadkit/threadkit/pkg/chat"
	"github.com/threadkit/threadkit/pkg/tools"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewInMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			sess := New(
				WithAgentName("root"),
				WithOwner("alice", "team-1"),
				WithUserMessage("hello"),
			)
			sess.AddMessage(AgentMessage("root", chat.Message{
				Role:    chat.MessageRoleAssistant,
				Content: "hi there",
				ToolCalls: []tools.ToolCall{{
					ID:       "call-1",
					Type:     tools.ToolTypeFunction,
					Function: tools.FunctionCall{Name: "lookup", Arguments: `{"q":"x"}`},
				}},
			}))
			sess.AllowTool("write_file")
			sess.InputTokens = 42

			require.NoError(t, store.Create(ctx, sess))

			got, err := store.Get(ctx, sess.ID)
			require.NoError(t, err)
			assert.Equal(t, sess.ID, got.ID)
			assert.Equal(t, "root", got.AgentName)
			assert.Equal(t, "alice", got.UserID)
			assert.Equal(t, "team-1", got.TeamID)
			assert.Equal(t, []string{"write_file"}, got.ApprovedTools)
			assert.Equal(t, int64(42), got.InputTokens)

			require.Len(t, got.Messages, 2)
			assert.Equal(t, chat.MessageRoleUser, got.Messages[0].Message.Role)
			assert.Equal(t, "hello", got.Messages[0].Message.Content)
			require.Len(t, got.Messages[1].Message.ToolCalls, 1)
			assert.Equal(t, "call-1", got.Messages[1].Message.ToolCalls[0].ID)
		})
	}
}

func TestStoreUpdate(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			sess := New(WithAgentName("root"))
			require.NoError(t, store.Create(ctx, sess))

			sess.Title = "My thread"
			sess.AddMessage(UserMessage("more"))
			require.NoError(t, store.Update(ctx, sess))

			got, err := store.Get(ctx, sess.ID)
			require.NoError(t, err)
			assert.Equal(t, "My thread", got.Title)
			assert.Len(t, got.Messages, 1)
		})
	}
}

func TestStoreUpdateUnknown(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Update(context.Background(), New())
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreGetUnknown(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), "no-such-id")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreDelete(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			sess := New()
			require.NoError(t, store.Create(ctx, sess))
			require.NoError(t, store.Delete(ctx, sess.ID))

			_, err := store.Get(ctx, sess.ID)
			assert.ErrorIs(t, err, ErrNotFound)

			assert.ErrorIs(t, store.Delete(ctx, sess.ID), ErrNotFound)
		})
	}
}

func TestStoreListOrderedByCreation(t *testing.T) {
	t.Parallel()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first := New(WithAgentName("a"))
			second := New(WithAgentName("b"))
			second.CreatedAt = first.CreatedAt.Add(time.Second)

			require.NoError(t, store.Create(ctx, second))
			require.NoError(t, store.Create(ctx, first))

			got, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, first.ID, got[0].ID)
			assert.Equal(t, second.ID, got[1].ID)
		})
	}
}
