package teamloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadkit/threadkit/pkg/config"
)

func TestLoad(t *testing.T) {
	cfg, err := config.Parse([]byte(`
agents:
  root:
    model: local
    instruction: You are helpful.
    sub_agents: [helper]
    toolsets:
      - type: todo
      - type: think
  helper:
    model: local
    instruction: You help.
    max_rounds: 3

models:
  local:
    provider: openai
    model: gpt-5-mini
    base_url: http://localhost:12434/v1
`))
	require.NoError(t, err)

	agents, err := Load(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, agents.Size())

	root, err := agents.Agent("root")
	require.NoError(t, err)
	assert.Equal(t, []string{"helper"}, root.SubAgents())
	assert.Len(t, root.ToolSets(), 2)
	assert.NotNil(t, root.Provider())

	helper, err := agents.Agent("helper")
	require.NoError(t, err)
	assert.Equal(t, 3, helper.MaxRounds())

	// Agents referencing the same model entry share one provider.
	assert.Equal(t, root.Provider(), helper.Provider())

	_, err = agents.Agent("ghost")
	assert.Error(t, err)
}
