// Package api defines the request and response bodies of the HTTP surface.
package api

import "time"

type CreateSessionRequest struct {
	AgentName string `json:"agent_name,omitempty"`
	MaxRounds int    `json:"max_rounds,omitempty"`
}

type SessionResponse struct {
	ID           string    `json:"id"`
	ParentID     string    `json:"parent_id,omitempty"`
	Title        string    `json:"title,omitempty"`
	AgentName    string    `json:"agent_name"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	CreatedAt    time.Time `json:"created_at"`
}

// RunMessageRequest starts one turn. Context carries injected context strings
// (team/project/mention resolution) produced by the caller.
type RunMessageRequest struct {
	Content string   `json:"content"`
	Context []string `json:"context,omitempty"`
}

type ResolveConfirmationRequest struct {
	Approved bool   `json:"approved"`
	Scope    string `json:"scope,omitempty"`
}

// ResolveConfirmationResponse reports whether this call resolved the entry;
// false means the id was unknown or already resolved.
type ResolveConfirmationResponse struct {
	Resolved bool `json:"resolved"`
}

type AgentResponse struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	SubAgents   []string `json:"sub_agents,omitempty"`
}

type ToolResponse struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	ReadOnly      bool   `json:"read_only,omitempty"`
	UIResourceRef string `json:"ui_resource_ref,omitempty"`
}
