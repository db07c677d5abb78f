package schema

// ParameterSchema renders the action's parameters as a JSON Schema object.
// The catalog compiles it to validate tool arguments and the prompt shows it
// to the reasoning service.
func (a GameAction) ParameterSchema() map[string]any {
	props := make(map[string]any, len(a.Parameters))
	required := []string{}
	for _, p := range a.Parameters {
		prop := map[string]any{"type": string(p.Type)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			enum := make([]any, 0, len(p.Enum))
			for _, v := range p.Enum {
				enum = append(enum, v)
			}
			prop["enum"] = enum
		}
		if p.Pattern != "" {
			prop["pattern"] = p.Pattern
		}
		if p.Minimum != nil {
			prop["minimum"] = *p.Minimum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	out := map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// WithDefaults returns a copy of args with missing optional parameters filled
// from their declared defaults.
func (a GameAction) WithDefaults(args map[string]any) map[string]any {
	out := make(map[string]any, len(args)+len(a.Parameters))
	for k, v := range args {
		out[k] = v
	}
	for _, p := range a.Parameters {
		if _, ok := out[p.Name]; ok || p.Default == nil {
			continue
		}
		out[p.Name] = p.Default
	}
	return out
}
