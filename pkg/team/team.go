// Package team holds the set of agents available to a deployment and looks
// them up by name for delegation.
package team

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/threadkit/threadkit/pkg/agent"
)

type Team struct {
	ID     string
	agents map[string]*agent.Agent
}

type Opt func(*Team)

func WithID(id string) Opt {
	return func(t *Team) {
		t.ID = id
	}
}

func WithAgents(agents ...*agent.Agent) Opt {
	return func(t *Team) {
		for _, a := range agents {
			t.agents[a.Name()] = a
		}
	}
}

func New(opts ...Opt) *Team {
	t := &Team{
		agents: make(map[string]*agent.Agent),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Team) AgentNames() []string {
	var names []string
	for name := range t.agents {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (t *Team) Agent(name string) (*agent.Agent, error) {
	if t.Size() == 0 {
		return nil, errors.New("no agents loaded; ensure your configuration defines at least one agent")
	}

	found, ok := t.agents[name]
	if !ok {
		return nil, fmt.Errorf("agent not found: %s (available agents: %s)", name, strings.Join(t.AgentNames(), ", "))
	}

	return found, nil
}

func (t *Team) Size() int {
	return len(t.agents)
}

func (t *Team) StopToolSets() error {
	for _, a := range t.agents {
		if err := a.StopToolSets(); err != nil {
			return fmt.Errorf("stopping tool sets: %w", err)
		}
	}
	return nil
}
