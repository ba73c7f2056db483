package builder

import (
	"maps"

	"github.com/adamwoolhether/restbuilder/internal/rules"
	"github.com/adamwoolhether/restbuilder/spec"
)

// resolve applies defaults, enforces required fields and runs the
// field validators. It returns the values the engines encode.
func (b *Builder) resolve() (map[string]any, error) {
	if len(b.pending) > 0 {
		return nil, b.pending[0].err
	}

	fields := b.spec.Fields()
	values := maps.Clone(b.values)

	for _, f := range fields {
		if _, ok := values[f.Name]; !ok {
			if def, ok := f.DefaultValue(); ok {
				v, err := spec.Coerce(def, f.Type, f.Convert)
				if err != nil {
					return nil, &ValidationError{Field: f.Name, Reason: "default: " + err.Error(), Err: err}
				}
				if _, ok := indirect(v); ok {
					values[f.Name] = v
				}
			}
		}

		// Path fields are reported by the path engine.
		if _, ok := values[f.Name]; !ok && !f.Optional && f.Role != spec.RolePath {
			return nil, &MissingFieldError{Field: f.Name}
		}
	}

	for _, f := range fields {
		v, ok := values[f.Name]
		if !ok {
			continue
		}

		for _, fn := range f.Validators {
			if err := fn(v); err != nil {
				return nil, &ValidationError{Field: f.Name, Reason: err.Error(), Err: err}
			}
		}

		if f.Rules != "" {
			if err := rules.Apply(v, f.Rules); err != nil {
				return nil, &ValidationError{Field: f.Name, Reason: err.Error(), Err: err}
			}
		}
	}

	return values, nil
}
