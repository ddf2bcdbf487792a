package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubPrefs struct {
	tools []string
}

func (s *stubPrefs) AlwaysAllowedTools(string) []string { return s.tools }

func TestCheckTiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		allow       []string
		deny        []string
		userTools   []string
		threadAllow []string
		tool        string
		args        map[string]any
		decision    Decision
		source      Source
	}{
		{
			name:     "no rules asks",
			tool:     "write_file",
			decision: Ask,
		},
		{
			name:     "admin allow",
			allow:    []string{"read_*"},
			tool:     "read_file",
			decision: Allow,
			source:   SourceAdmin,
		},
		{
			name:     "admin deny",
			deny:     []string{"delete_*"},
			tool:     "delete_repo",
			decision: Deny,
		},
		{
			name:     "deny beats allow",
			allow:    []string{"*"},
			deny:     []string{"shell"},
			tool:     "shell",
			decision: Deny,
		},
		{
			name:        "deny beats thread allow-list",
			deny:        []string{"shell"},
			threadAllow: []string{"shell"},
			tool:        "shell",
			decision:    Deny,
		},
		{
			name:        "thread allow-list wins before admin allow",
			allow:       []string{"write_file"},
			threadAllow: []string{"write_file"},
			tool:        "write_file",
			decision:    Allow,
			source:      SourceThread,
		},
		{
			name:        "thread allow-list is case-insensitive",
			threadAllow: []string{"Write_File"},
			tool:        "write_file",
			decision:    Allow,
			source:      SourceThread,
		},
		{
			name:      "user preference",
			userTools: []string{"write_file"},
			tool:      "write_file",
			decision:  Allow,
			source:    SourceUser,
		},
		{
			name:     "glob matches case-insensitively",
			allow:    []string{"MCP:GitHub:*"},
			tool:     "mcp:github:create_issue",
			decision: Allow,
			source:   SourceAdmin,
		},
		{
			name:     "argument condition matches",
			allow:    []string{"shell:cmd=ls*"},
			tool:     "shell",
			args:     map[string]any{"cmd": "ls -la"},
			decision: Allow,
			source:   SourceAdmin,
		},
		{
			name:     "argument condition rejects other args",
			allow:    []string{"shell:cmd=ls*"},
			tool:     "shell",
			args:     map[string]any{"cmd": "rm -rf /"},
			decision: Ask,
		},
		{
			name:     "argument condition needs the arg present",
			allow:    []string{"shell:cmd=ls*"},
			tool:     "shell",
			args:     map[string]any{"other": "x"},
			decision: Ask,
		},
		{
			name:     "deny with argument condition",
			deny:     []string{"shell:cmd=sudo*"},
			tool:     "shell",
			args:     map[string]any{"cmd": "sudo rm -rf /"},
			decision: Deny,
		},
		{
			name:     "numeric argument",
			allow:    []string{"scale:replicas=3"},
			tool:     "scale",
			args:     map[string]any{"replicas": float64(3)},
			decision: Allow,
			source:   SourceAdmin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			checker := NewChecker(tt.allow, tt.deny, &stubPrefs{tools: tt.userTools})
			decision, source := checker.Check(tt.tool, tt.args, "alice", tt.threadAllow)
			assert.Equal(t, tt.decision, decision)
			assert.Equal(t, tt.source, source)
		})
	}
}

func TestCheckNilPreferences(t *testing.T) {
	t.Parallel()

	checker := NewChecker(nil, nil, nil)
	decision, _ := checker.Check("anything", nil, "alice", nil)
	assert.Equal(t, Ask, decision)
}

func TestParsePattern(t *testing.T) {
	t.Parallel()

	tool, args := parsePattern("shell:cmd=ls*:user=root")
	assert.Equal(t, "shell", tool)
	assert.Equal(t, map[string]string{"cmd": "ls*", "user": "root"}, args)

	tool, args = parsePattern("mcp:github:create_issue")
	assert.Equal(t, "mcp:github:create_issue", tool)
	assert.Empty(t, args)

	tool, args = parsePattern("mcp:github:*:title=bug*")
	assert.Equal(t, "mcp:github:*", tool)
	assert.Equal(t, map[string]string{"title": "bug*"}, args)
}

func TestMatchGlob(t *testing.T) {
	t.Parallel()

	assert.True(t, matchGlob("read_*", "read_file"))
	assert.True(t, matchGlob("READ_*", "read_file"))
	assert.True(t, matchGlob("sudo*", "sudo rm -rf /"), "trailing star matches across spaces")
	assert.True(t, matchGlob("exact", "EXACT"))
	assert.False(t, matchGlob("read_*", "write_file"))
	assert.False(t, matchGlob("", "anything"))
}
