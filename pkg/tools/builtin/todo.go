// Package builtin provides the in-process toolsets shipped with threadkit.
package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/threadkit/threadkit/pkg/tools"
)

// TodoTool tracks a shared task list for one thread. State is in-memory and
// scoped to the toolset instance, so each thread gets its own list.
type TodoTool struct {
	handler *todoHandler
}

var _ tools.ToolSet = (*TodoTool)(nil)

type Todo struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Status      string `json:"status"`   // "pending", "in_progress", "completed"
	Priority    string `json:"priority"` // "high", "medium", "low"
}

type todoHandler struct {
	mu    sync.RWMutex
	todos map[string]Todo
	next  int
}

func NewTodoTool() *TodoTool {
	return &TodoTool{
		handler: &todoHandler{todos: make(map[string]Todo)},
	}
}

func (t *TodoTool) Instructions() string {
	return `## Using the todo tools

Track multi-step work with the todo tools: create a todo per major step with
create_todo, mark it "in_progress" when you start and "completed" when done
with update_todo, and check list_todos before answering to make sure nothing
was skipped.`
}

func (h *todoHandler) createTodo(_ context.Context, toolCall tools.ToolCall) (*tools.ToolCallResult, error) {
	var params struct {
		Description string `json:"description"`
		Priority    string `json:"priority"`
	}
	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	todo := Todo{
		ID:          fmt.Sprintf("todo_%d", h.next),
		Description: params.Description,
		Status:      "pending",
		Priority:    params.Priority,
	}
	h.todos[todo.ID] = todo

	res := tools.ResultSuccess(fmt.Sprintf("Created %s: %s (priority: %s)", todo.ID, todo.Description, todo.Priority))
	res.Structured = todo
	return res, nil
}

func (h *todoHandler) updateTodo(_ context.Context, toolCall tools.ToolCall) (*tools.ToolCallResult, error) {
	var params struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	todo, exists := h.todos[params.ID]
	if !exists {
		return tools.ResultError(fmt.Sprintf("todo %s not found", params.ID)), nil
	}
	todo.Status = params.Status
	h.todos[params.ID] = todo

	res := tools.ResultSuccess(fmt.Sprintf("Updated %s status to %s", params.ID, params.Status))
	res.Structured = todo
	return res, nil
}

func (h *todoHandler) listTodos(context.Context, tools.ToolCall) (*tools.ToolCallResult, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	items := make([]Todo, 0, len(h.todos))
	for _, todo := range h.todos {
		items = append(items, todo)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	var out strings.Builder
	out.WriteString("Current todos:\n")
	for _, todo := range items {
		fmt.Fprintf(&out, "- [%s] %s (priority: %s, status: %s)\n",
			todo.ID, todo.Description, todo.Priority, todo.Status)
	}

	res := tools.ResultSuccess(out.String())
	res.Structured = items
	return res, nil
}

func (t *TodoTool) Tools(context.Context) ([]tools.Tool, error) {
	return []tools.Tool{
		{
			Name:        "create_todo",
			Description: "Create a new todo item with a description and priority",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"description": map[string]any{
						"type":        "string",
						"description": "Description of the todo item",
					},
					"priority": map[string]any{
						"type":        "string",
						"description": "Priority level (high, medium, low)",
					},
				},
				"required": []string{"description", "priority"},
			},
			UIResourceRef: "todo_list",
			Handler:       t.handler.createTodo,
		},
		{
			Name:        "update_todo",
			Description: "Update the status of a todo item",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "string",
						"description": "ID of the todo item",
					},
					"status": map[string]any{
						"type":        "string",
						"description": "New status (pending, in_progress, completed)",
					},
				},
				"required": []string{"id", "status"},
			},
			UIResourceRef: "todo_list",
			Handler:       t.handler.updateTodo,
		},
		{
			Name:        "list_todos",
			Description: "List all current todos with their status",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
			Annotations: tools.ToolAnnotations{ReadOnlyHint: true},
			Handler:     t.handler.listTodos,
		},
	}, nil
}

func (t *TodoTool) Start(context.Context) error { return nil }
func (t *TodoTool) Stop() error                 { return nil }
