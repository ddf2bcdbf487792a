// Package agent defines the agent identity: its instruction, model provider,
// toolsets and the sub-agents it may delegate to.
package agent

import (
	"context"
	"fmt"
	"slices"

	"github.com/threadkit/threadkit/pkg/model/provider"
	"github.com/threadkit/threadkit/pkg/tools"
)

// Agent is one configured agent identity.
type Agent struct {
	name        string
	description string
	instruction string
	provider    provider.Provider
	toolsets    []tools.ToolSet
	subAgents   []string
	maxRounds   int
}

// New creates an agent with the given name and applies opts.
func New(name string, opts ...Opt) *Agent {
	a := &Agent{name: name}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agent) Name() string {
	return a.name
}

func (a *Agent) Description() string {
	return a.description
}

func (a *Agent) Instruction() string {
	return a.instruction
}

func (a *Agent) Provider() provider.Provider {
	return a.provider
}

func (a *Agent) ToolSets() []tools.ToolSet {
	return a.toolsets
}

// SubAgents returns the names of agents this agent may delegate to.
func (a *Agent) SubAgents() []string {
	return a.subAgents
}

func (a *Agent) HasSubAgents() bool {
	return len(a.subAgents) > 0
}

// IsSubAgent reports whether name is a valid delegation target.
func (a *Agent) IsSubAgent(name string) bool {
	return slices.Contains(a.subAgents, name)
}

// MaxRounds returns the configured per-turn round cap, or 0 when unset.
func (a *Agent) MaxRounds() int {
	return a.maxRounds
}

// Tools collects the tool definitions from every toolset, plus the delegation
// tool when the agent has sub-agents.
func (a *Agent) Tools(ctx context.Context) ([]tools.Tool, error) {
	var out []tools.Tool
	for _, ts := range a.toolsets {
		t, err := ts.Tools(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing tools for agent %s: %w", a.name, err)
		}
		out = append(out, t...)
	}
	if a.HasSubAgents() {
		out = append(out, tools.Delegate())
	}
	return out, nil
}

// StartToolSets starts every toolset; used for MCP toolsets that hold a
// client connection.
func (a *Agent) StartToolSets(ctx context.Context) error {
	for _, ts := range a.toolsets {
		if err := ts.Start(ctx); err != nil {
			return fmt.Errorf("starting toolset for agent %s: %w", a.name, err)
		}
	}
	return nil
}

// StopToolSets stops every toolset, returning the first error.
func (a *Agent) StopToolSets() error {
	var firstErr error
	for _, ts := range a.toolsets {
		if err := ts.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
