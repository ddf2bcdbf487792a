package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
agents:
  root:
    model: claude
    description: Root agent
    instruction: You are helpful.
    sub_agents:
      - helper
    toolsets:
      - type: todo
      - type: mcp
        command: docker
        args: ["mcp", "gateway", "run"]
  helper:
    model: gpt
    instruction: You help.
    max_rounds: 5

models:
  claude:
    provider: anthropic
    model: claude-sonnet-4-5
    max_tokens: 4096
  gpt:
    provider: openai
    model: gpt-5-mini
    temperature: 0.2

permissions:
  allow:
    - read_*
  deny:
    - shell:cmd=sudo*

server:
  listen_addr: "127.0.0.1:9000"
  database_path: /tmp/threads.db
`

func TestParseValid(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(validConfig))
	require.NoError(t, err)

	require.Len(t, cfg.Agents, 2)
	root := cfg.Agents["root"]
	assert.Equal(t, "claude", root.Model)
	assert.Equal(t, []string{"helper"}, root.SubAgents)
	require.Len(t, root.Toolsets, 2)
	assert.Equal(t, "todo", root.Toolsets[0].Type)
	assert.Equal(t, "docker", root.Toolsets[1].Command)

	assert.Equal(t, 5, cfg.Agents["helper"].MaxRounds)

	claude := cfg.Models["claude"]
	assert.Equal(t, "anthropic", claude.Provider)
	assert.Equal(t, 4096, claude.MaxTokens)

	gpt := cfg.Models["gpt"]
	require.NotNil(t, gpt.Temperature)
	assert.InDelta(t, 0.2, *gpt.Temperature, 0.0001)

	assert.Equal(t, []string{"read_*"}, cfg.Permissions.Allow)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.ListenAddr)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`
agents:
  root:
    model: m
    instrction: typo here
models:
  m:
    provider: openai
    model: gpt-5-mini
`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "no agents",
			yaml:    `models: {}`,
			wantErr: "no agents",
		},
		{
			name: "missing model reference",
			yaml: `
agents:
  root:
    model: nope
    instruction: x
models:
  m:
    provider: openai
    model: gpt-5-mini
`,
			wantErr: "unknown model",
		},
		{
			name: "unknown sub-agent",
			yaml: `
agents:
  root:
    model: m
    instruction: x
    sub_agents: [ghost]
models:
  m:
    provider: openai
    model: gpt-5-mini
`,
			wantErr: "unknown sub-agent",
		},
		{
			name: "unknown provider",
			yaml: `
agents:
  root:
    model: m
    instruction: x
models:
  m:
    provider: cohere
    model: x
`,
			wantErr: "unknown provider",
		},
		{
			name: "mcp toolset without command or url",
			yaml: `
agents:
  root:
    model: m
    instruction: x
    toolsets:
      - type: mcp
models:
  m:
    provider: openai
    model: gpt-5-mini
`,
			wantErr: "command or url",
		},
		{
			name: "unknown toolset type",
			yaml: `
agents:
  root:
    model: m
    instruction: x
    toolsets:
      - type: hammer
models:
  m:
    provider: openai
    model: gpt-5-mini
`,
			wantErr: "unknown type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
