package agent

import (
	"github.com/threadkit/threadkit/pkg/model/provider"
	"github.com/threadkit/threadkit/pkg/tools"
)

// Opt configures an Agent at construction time.
type Opt func(*Agent)

func WithDescription(description string) Opt {
	return func(a *Agent) { a.description = description }
}

func WithInstruction(instruction string) Opt {
	return func(a *Agent) { a.instruction = instruction }
}

func WithProvider(p provider.Provider) Opt {
	return func(a *Agent) { a.provider = p }
}

func WithToolSets(toolsets ...tools.ToolSet) Opt {
	return func(a *Agent) { a.toolsets = append(a.toolsets, toolsets...) }
}

func WithSubAgents(names ...string) Opt {
	return func(a *Agent) { a.subAgents = append(a.subAgents, names...) }
}

func WithMaxRounds(n int) Opt {
	return func(a *Agent) { a.maxRounds = n }
}
