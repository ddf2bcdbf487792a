package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadkit/threadkit/pkg/tools"
)

func call(name, args string) tools.ToolCall {
	return tools.ToolCall{
		ID:       "call-1",
		Type:     tools.ToolTypeFunction,
		Function: tools.FunctionCall{Name: name, Arguments: args},
	}
}

func handlerFor(t *testing.T, ts tools.ToolSet, name string) tools.ToolHandler {
	t.Helper()

	all, err := ts.Tools(context.Background())
	require.NoError(t, err)
	for _, tool := range all {
		if tool.Name == name {
			return tool.Handler
		}
	}
	t.Fatalf("tool %s not found", name)
	return nil
}

func TestTodoLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	todo := NewTodoTool()

	res, err := handlerFor(t, todo, "create_todo")(ctx, call("create_todo", `{"description":"write tests","priority":"high"}`))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, res.Output(), "todo_1")

	created, ok := res.Structured.(Todo)
	require.True(t, ok)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "high", created.Priority)

	res, err = handlerFor(t, todo, "update_todo")(ctx, call("update_todo", `{"id":"todo_1","status":"completed"}`))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = handlerFor(t, todo, "list_todos")(ctx, call("list_todos", `{}`))
	require.NoError(t, err)
	assert.Contains(t, res.Output(), "write tests")
	assert.Contains(t, res.Output(), "status: completed")

	items, ok := res.Structured.([]Todo)
	require.True(t, ok)
	require.Len(t, items, 1)
}

func TestTodoUpdateUnknown(t *testing.T) {
	t.Parallel()

	res, err := handlerFor(t, NewTodoTool(), "update_todo")(context.Background(), call("update_todo", `{"id":"todo_9","status":"completed"}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestTodoListIsReadOnly(t *testing.T) {
	t.Parallel()

	all, err := NewTodoTool().Tools(context.Background())
	require.NoError(t, err)

	for _, tool := range all {
		if tool.Name == "list_todos" {
			assert.True(t, tool.Annotations.ReadOnlyHint)
		} else {
			assert.False(t, tool.Annotations.ReadOnlyHint)
		}
	}
}

func TestTodoInstancesAreIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	first := NewTodoTool()
	second := NewTodoTool()

	_, err := handlerFor(t, first, "create_todo")(ctx, call("create_todo", `{"description":"x","priority":"low"}`))
	require.NoError(t, err)

	res, err := handlerFor(t, second, "list_todos")(ctx, call("list_todos", `{}`))
	require.NoError(t, err)
	items, ok := res.Structured.([]Todo)
	require.True(t, ok)
	assert.Empty(t, items)
}

func TestCurrentTime(t *testing.T) {
	t.Parallel()

	all, err := NewTimeTool().Tools(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Annotations.ReadOnlyHint)

	res, err := all[0].Handler(context.Background(), call("current_time", `{}`))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, res.Output(), "UTC")

	res, err = all[0].Handler(context.Background(), call("current_time", `{"timezone":"Not/AZone"}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestThink(t *testing.T) {
	t.Parallel()

	think := NewThinkTool()
	all, err := think.Tools(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Annotations.ReadOnlyHint)

	res, err := all[0].Handler(context.Background(), call("think", `{"thought":"hmm"}`))
	require.NoError(t, err)
	assert.Equal(t, "hmm", res.Output())

	_, err = all[0].Handler(context.Background(), call("think", `not json`))
	assert.Error(t, err)
}
