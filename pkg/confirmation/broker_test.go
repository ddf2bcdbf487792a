package confirmation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadkit/threadkit/pkg/tools"
)

func TestBrokerResolve(t *testing.T) {
	t.Parallel()

	b := NewBroker()
	id, ch := b.Create(Request{
		RequestID: "req-1",
		ThreadID:  "thread-1",
		UserID:    "alice",
		ToolCall:  tools.ToolCall{ID: "call-1", Function: tools.FunctionCall{Name: "write_file"}},
	})

	require.NotEmpty(t, id)
	assert.Equal(t, 1, b.Len())

	assert.True(t, b.Resolve(id, true, ScopeOnce))

	res, ok := <-ch
	require.True(t, ok)
	assert.True(t, res.Approved)
	assert.Equal(t, ScopeOnce, res.Scope)

	// The channel is closed after the single resolution.
	_, ok = <-ch
	assert.False(t, ok)
}

func TestBrokerResolveIdempotent(t *testing.T) {
	t.Parallel()

	b := NewBroker()
	id, _ := b.Create(Request{RequestID: "req-1"})

	assert.True(t, b.Resolve(id, true, ScopeOnce))
	assert.False(t, b.Resolve(id, true, ScopeOnce), "second resolve is a no-op")
	assert.False(t, b.Resolve(id, false, ScopeOnce), "flipping the answer must not work either")
}

func TestBrokerResolveUnknown(t *testing.T) {
	t.Parallel()

	b := NewBroker()
	assert.False(t, b.Resolve("no-such-id", true, ScopeOnce))
}

func TestBrokerGet(t *testing.T) {
	t.Parallel()

	b := NewBroker()
	id, _ := b.Create(Request{RequestID: "req-1", UserID: "alice"})

	req, ok := b.Get(id)
	require.True(t, ok)
	assert.Equal(t, id, req.ID)
	assert.Equal(t, "alice", req.UserID)
	assert.False(t, req.CreatedAt.IsZero())

	// Resolved entries stay visible until abandoned.
	b.Resolve(id, true, ScopeOnce)
	_, ok = b.Get(id)
	assert.True(t, ok)

	_, ok = b.Get("no-such-id")
	assert.False(t, ok)
}

func TestBrokerAbandon(t *testing.T) {
	t.Parallel()

	b := NewBroker()
	id, _ := b.Create(Request{RequestID: "req-1"})

	b.Abandon(id)
	assert.Equal(t, 0, b.Len())
	assert.False(t, b.Resolve(id, true, ScopeOnce), "abandoned entries cannot be resolved")

	// Abandoning twice or abandoning unknown ids is harmless.
	b.Abandon(id)
	b.Abandon("no-such-id")
}

func TestScopeValid(t *testing.T) {
	t.Parallel()

	assert.True(t, ScopeOnce.Valid())
	assert.True(t, ScopeThread.Valid())
	assert.True(t, ScopeAlways.Valid())
	assert.False(t, Scope("").Valid())
	assert.False(t, Scope("forever").Valid())
}
