package authgate

import "fmt"

// ApplyInput filters client-supplied entity data through the plugin
// schema: only registered input fields pass, and every required input
// field must be present. Unregistered keys are dropped, so a plugin
// field only flows in once some plugin declared it. Pure over the
// registry built at construction.
func (e *Engine) ApplyInput(entity string, data map[string]any) (map[string]any, error) {
	fields := e.schema[entity]

	out := make(map[string]any, len(data))
	for name, value := range data {
		if f, ok := fields[name]; ok && f.Input {
			out[name] = value
		}
	}

	for name, f := range fields {
		if !f.Required || !f.Input {
			continue
		}
		if _, ok := out[name]; !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrMissingRequiredField, entity, name)
		}
	}
	return out, nil
}

// ApplyOutput strips non-returned schema fields from an entity record
// before it leaves the engine. Keys outside the registry (the entity's
// own columns) pass through untouched.
func (e *Engine) ApplyOutput(entity string, record map[string]any) map[string]any {
	fields := e.schema[entity]

	out := make(map[string]any, len(record))
	for name, value := range record {
		if f, ok := fields[name]; ok && !f.Returned {
			continue
		}
		out[name] = value
	}
	return out
}
