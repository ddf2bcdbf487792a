// Package ui renders the renderable artifacts attached to tool results.
// A tool declares a template by name; after execution the resolver renders
// the template against the result's structured payload.
package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/google/uuid"

	"github.com/threadkit/threadkit/pkg/tools"
)

const mimeTypeHTML = "text/html"

// todoListTemplate renders the builtin todo tools' structured payload.
const todoListTemplate = `<div class="todo-list">{{if .}}<ul>{{range aslist .}}<li data-status="{{.status}}" data-priority="{{.priority}}">{{.description}}</li>{{end}}</ul>{{else}}<p>No todos yet.</p>{{end}}</div>`

// Resolver maps template names to renderable templates.
type Resolver struct {
	templates map[string]*template.Template
}

// NewResolver parses the builtin templates plus overrides. Override templates
// replace builtins with the same name.
func NewResolver(overrides map[string]string) (*Resolver, error) {
	sources := map[string]string{
		"todo_list": todoListTemplate,
	}
	for name, text := range overrides {
		sources[name] = text
	}

	r := &Resolver{templates: make(map[string]*template.Template, len(sources))}
	for name, text := range sources {
		tmpl, err := template.New(name).Funcs(template.FuncMap{"aslist": asList}).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parsing ui template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}
	return r, nil
}

// Resolve renders the template named ref against the result's structured
// payload. Unknown refs and render failures return an error; callers degrade
// to no resource.
func (r *Resolver) Resolve(ref string, result *tools.ToolCallResult) (*tools.UIResource, error) {
	tmpl, ok := r.templates[ref]
	if !ok {
		return nil, fmt.Errorf("unknown ui resource template: %s", ref)
	}

	// Round-trip through JSON so templates always see maps and slices,
	// whatever concrete type the tool attached.
	var payload any
	if result.Structured != nil {
		raw, err := json.Marshal(result.Structured)
		if err != nil {
			return nil, fmt.Errorf("marshaling structured payload: %w", err)
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("unmarshaling structured payload: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, payload); err != nil {
		return nil, fmt.Errorf("rendering ui resource %s: %w", ref, err)
	}

	return &tools.UIResource{
		URI:      fmt.Sprintf("ui://%s/%s", ref, uuid.New().String()),
		MimeType: mimeTypeHTML,
		Text:     buf.String(),
	}, nil
}

// asList normalizes the structured payload so the template can always range:
// a single object becomes a one-element list.
func asList(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	default:
		return []any{val}
	}
}
