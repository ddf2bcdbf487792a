// Package teamloader builds the agent team from the yaml configuration.
package teamloader

import (
	"fmt"

	"github.com/threadkit/threadkit/pkg/agent"
	"github.com/threadkit/threadkit/pkg/config"
	"github.com/threadkit/threadkit/pkg/mcp"
	"github.com/threadkit/threadkit/pkg/model/provider"
	"github.com/threadkit/threadkit/pkg/team"
	"github.com/threadkit/threadkit/pkg/tools"
	"github.com/threadkit/threadkit/pkg/tools/builtin"
)

// Load constructs every configured agent with its provider and toolsets.
// Providers are shared between agents using the same model entry.
func Load(cfg *config.Config) (*team.Team, error) {
	providers := make(map[string]provider.Provider, len(cfg.Models))
	for name := range cfg.Models {
		mc := cfg.Models[name]
		p, err := provider.New(&mc)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
		providers[name] = p
	}

	agents := make([]*agent.Agent, 0, len(cfg.Agents))
	for name, ac := range cfg.Agents {
		toolsets, err := createToolsets(ac.Toolsets)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", name, err)
		}

		agents = append(agents, agent.New(name,
			agent.WithDescription(ac.Description),
			agent.WithInstruction(ac.Instruction),
			agent.WithProvider(providers[ac.Model]),
			agent.WithToolSets(toolsets...),
			agent.WithSubAgents(ac.SubAgents...),
			agent.WithMaxRounds(ac.MaxRounds),
		))
	}

	return team.New(team.WithAgents(agents...)), nil
}

func createToolsets(configs []config.ToolsetConfig) ([]tools.ToolSet, error) {
	toolsets := make([]tools.ToolSet, 0, len(configs))
	for _, tc := range configs {
		switch tc.Type {
		case "todo":
			toolsets = append(toolsets, builtin.NewTodoTool())
		case "think":
			toolsets = append(toolsets, builtin.NewThinkTool())
		case "time":
			toolsets = append(toolsets, builtin.NewTimeTool())
		case "mcp":
			if tc.Command != "" {
				toolsets = append(toolsets, mcp.NewCommandToolset(tc.Command, tc.Args, tc.Env, nil))
			} else {
				toolsets = append(toolsets, mcp.NewRemoteToolset(tc.URL, tc.Headers, nil))
			}
		default:
			return nil, fmt.Errorf("unknown toolset type: %s", tc.Type)
		}
	}
	return toolsets, nil
}
