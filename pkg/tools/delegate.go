package tools

// DelegateToolName is the tool the model calls to hand a task to a
// sub-agent. The runtime intercepts it; it is never dispatched to a toolset.
const DelegateToolName = "delegate_to_agent"

// DelegateArgs is the argument payload of a delegate_to_agent call.
type DelegateArgs struct {
	Agent string `json:"agent"`
	Task  string `json:"task"`
}

// Delegate returns the delegation tool definition offered to agents that
// have sub-agents.
func Delegate() Tool {
	return Tool{
		Name: DelegateToolName,
		Description: `Use this function to delegate a task to the named sub-agent.
You must provide a clear and concise description of the task the sub-agent should achieve AND the expected output.`,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"agent": map[string]any{
					"type":        "string",
					"description": "The name of the agent to delegate the task to.",
				},
				"task": map[string]any{
					"type":        "string",
					"description": "A clear and concise description of the task the agent should achieve.",
				},
			},
			"required": []string{"agent", "task"},
		},
	}
}
