// Package permissions evaluates whether a tool call may run without user
// confirmation. The decision walks the allow tiers in order: the thread's
// accumulated allow-list, the administrator's always-allow patterns, then the
// user's persisted preferences; the first match wins and anything else asks.
// Administrator deny patterns are checked before all tiers.
package permissions

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Decision is the outcome of a permission check for one tool call.
type Decision int

const (
	// Ask means the tool requires user approval.
	Ask Decision = iota
	// Allow means the tool is auto-approved without confirmation.
	Allow
	// Deny means the tool is rejected and must not execute.
	Deny
)

func (d Decision) String() string {
	switch d {
	case Ask:
		return "ask"
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

// Source names the allow tier that produced an Allow decision; it is
// surfaced to the client as the auto-approve reason.
type Source string

const (
	SourceNone   Source = ""
	SourceThread Source = "thread_allowlist"
	SourceAdmin  Source = "admin_config"
	SourceUser   Source = "user_preference"
	// SourceReadOnly is used by callers that skip confirmation for tools
	// annotated as read-only; the checker itself never returns it.
	SourceReadOnly Source = "read_only"
)

// UserPreferences is the read-only view of a user's persisted always-allow
// tools. The "always" confirmation scope writes through a collaborator, not
// through this package.
type UserPreferences interface {
	AlwaysAllowedTools(userID string) []string
}

// Checker evaluates tool permissions against configured patterns.
//
// Patterns support glob-style tool names ("read_*", "mcp:github:*") and
// argument conditions ("shell:cmd=ls*" matches only when the cmd argument
// starts with "ls"). Matching is case-insensitive.
type Checker struct {
	allowPatterns []string
	denyPatterns  []string
	prefs         UserPreferences
}

// NewChecker builds a checker from administrator patterns and an optional
// user preference store.
func NewChecker(allow, deny []string, prefs UserPreferences) *Checker {
	return &Checker{
		allowPatterns: allow,
		denyPatterns:  deny,
		prefs:         prefs,
	}
}

// Check evaluates the decision for toolName called with args, on behalf of
// userID, with threadAllow being the thread's accumulated allow-list.
func (c *Checker) Check(toolName string, args map[string]any, userID string, threadAllow []string) (Decision, Source) {
	for _, pattern := range c.denyPatterns {
		if matchToolPattern(pattern, toolName, args) {
			return Deny, SourceNone
		}
	}

	for _, allowed := range threadAllow {
		if strings.EqualFold(allowed, toolName) {
			return Allow, SourceThread
		}
	}

	for _, pattern := range c.allowPatterns {
		if matchToolPattern(pattern, toolName, args) {
			return Allow, SourceAdmin
		}
	}

	if c.prefs != nil {
		for _, pattern := range c.prefs.AlwaysAllowedTools(userID) {
			if matchToolPattern(pattern, toolName, args) {
				return Allow, SourceUser
			}
		}
	}

	return Ask, SourceNone
}

// parsePattern splits a pattern into the tool-name part and argument
// conditions. Format: "toolname" or "toolname:arg1=val1:arg2=val2". The
// split happens at the first ":key=value" segment so tool names containing
// colons (like "mcp:github:create_issue") keep working.
func parsePattern(pattern string) (toolPattern string, argPatterns map[string]string) {
	argPatterns = make(map[string]string)

	parts := strings.Split(pattern, ":")
	toolParts := []string{parts[0]}

	for _, part := range parts[1:] {
		if key, value, found := strings.Cut(part, "="); found && key != "" {
			argPatterns[key] = value
		} else if len(argPatterns) == 0 {
			toolParts = append(toolParts, part)
		}
	}

	return strings.Join(toolParts, ":"), argPatterns
}

func matchToolPattern(pattern, toolName string, args map[string]any) bool {
	toolPattern, argPatterns := parsePattern(pattern)

	if !matchGlob(toolPattern, toolName) {
		return false
	}
	if len(argPatterns) == 0 {
		return true
	}
	if args == nil {
		return false
	}

	for argName, argPattern := range argPatterns {
		argValue, exists := args[argName]
		if !exists {
			return false
		}
		if !matchGlob(argPattern, argToString(argValue)) {
			return false
		}
	}
	return true
}

func argToString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return fmt.Sprintf("%t", val)
	case float64:
		// JSON numbers arrive as float64; format integers without decimals
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// matchGlob matches value against a filepath.Match-style pattern,
// case-insensitively. A trailing "*" falls back to plain prefix matching so
// "sudo*" matches "sudo rm -rf /" even though "*" normally stops at path
// separators.
func matchGlob(pattern, value string) bool {
	pattern = strings.ToLower(pattern)
	value = strings.ToLower(value)

	if strings.HasSuffix(pattern, "*") && !strings.HasSuffix(pattern, "\\*") {
		prefix := pattern[:len(pattern)-1]
		if !strings.ContainsAny(prefix, "*?[") {
			return strings.HasPrefix(value, prefix)
		}
	}

	matched, err := filepath.Match(pattern, value)
	return err == nil && matched
}
