package tools

import (
	"encoding/json"
	"fmt"
)

// ConvertSchema re-marshals a tool parameter schema into the provider's
// native schema type. Providers pass a pointer to their own param struct.
func ConvertSchema(params, out any) error {
	if params == nil {
		params = map[string]any{"type": "object"}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshaling tool parameters: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("converting tool parameters: %w", err)
	}
	return nil
}
