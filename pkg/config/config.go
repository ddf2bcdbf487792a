// Package config loads the yaml deployment configuration: agents, models,
// MCP servers and the permission policy.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Config is the root of the yaml configuration file.
type Config struct {
	Agents map[string]AgentConfig `yaml:"agents"`
	Models map[string]ModelConfig `yaml:"models"`

	// Permissions is the administrator tool policy applied to every thread.
	Permissions PermissionsConfig `yaml:"permissions,omitempty"`

	// UIResources maps template names to renderable templates applied to a
	// tool result's structured payload. Merged over the builtin templates.
	UIResources map[string]string `yaml:"ui_resources,omitempty"`

	// Server configures the HTTP surface.
	Server ServerConfig `yaml:"server,omitempty"`
}

type AgentConfig struct {
	Model       string   `yaml:"model"`
	Description string   `yaml:"description,omitempty"`
	Instruction string   `yaml:"instruction"`
	SubAgents   []string `yaml:"sub_agents,omitempty"`
	MaxRounds   int      `yaml:"max_rounds,omitempty"`

	// Toolsets lists the tool providers available to the agent.
	Toolsets []ToolsetConfig `yaml:"toolsets,omitempty"`
}

type ModelConfig struct {
	// Provider selects the client implementation: "openai" or "anthropic".
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`

	BaseURL string `yaml:"base_url,omitempty"`
	// TokenEnv names the environment variable holding the API key; the
	// provider default is used when empty.
	TokenEnv string `yaml:"token_env,omitempty"`

	MaxTokens   int      `yaml:"max_tokens,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	TrackUsage  *bool    `yaml:"track_usage,omitempty"`
}

// ToolsetConfig selects one tool provider. Type is "todo", "think", "time" or
// "mcp"; the remaining fields apply to MCP toolsets only.
type ToolsetConfig struct {
	Type string `yaml:"type"`

	// Command spawns a local MCP server over stdio.
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`
	Env     []string `yaml:"env,omitempty"`

	// URL connects to a remote MCP server over streamable HTTP.
	URL     string            `yaml:"url,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

type PermissionsConfig struct {
	Allow []string `yaml:"allow,omitempty"`
	Deny  []string `yaml:"deny,omitempty"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr,omitempty"`
	// DatabasePath is the sqlite file for session persistence; in-memory
	// storage is used when empty.
	DatabasePath string `yaml:"database_path,omitempty"`
	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
	// UserPreferencesPath is the yaml file recording per-user always-allow
	// lists; preferences are kept in memory only when empty.
	UserPreferencesPath string `yaml:"user_preferences_path,omitempty"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse parses raw yaml. Unknown keys are rejected so typos fail loudly.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("config defines no agents")
	}
	for name, a := range c.Agents {
		if a.Model == "" {
			return fmt.Errorf("agent %s: model is required", name)
		}
		if _, ok := c.Models[a.Model]; !ok {
			return fmt.Errorf("agent %s references unknown model %s", name, a.Model)
		}
		for _, sub := range a.SubAgents {
			if _, ok := c.Agents[sub]; !ok {
				return fmt.Errorf("agent %s references unknown sub-agent %s", name, sub)
			}
		}
		for i, ts := range a.Toolsets {
			switch ts.Type {
			case "todo", "think", "time":
			case "mcp":
				if ts.Command == "" && ts.URL == "" {
					return fmt.Errorf("agent %s toolset %d: mcp toolset needs command or url", name, i)
				}
			default:
				return fmt.Errorf("agent %s toolset %d: unknown type %q", name, i, ts.Type)
			}
		}
	}
	for name, m := range c.Models {
		switch m.Provider {
		case "openai", "anthropic":
		default:
			return fmt.Errorf("model %s: unknown provider %q", name, m.Provider)
		}
	}
	return nil
}
