package converge

import "fmt"

// ValidationError describes a single problem with a desired state.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a desired state before anything is sent to the server.
// Returns nil if valid.
func (d *Desired) Validate() []ValidationError {
	var errs []ValidationError

	if !d.Kind.Valid() {
		errs = append(errs, ValidationError{Field: "kind", Message: fmt.Sprintf("unsupported kind %q", d.Kind)})
	}

	switch d.State {
	case StatePresent, StateAbsent:
		if d.Name == "" {
			errs = append(errs, ValidationError{Field: "name", Message: fmt.Sprintf("required when state is %s", d.State)})
		}
	case StateQuery:
	default:
		errs = append(errs, ValidationError{Field: "state", Message: fmt.Sprintf("invalid state %q", d.State)})
	}

	for _, key := range d.Properties.Keys() {
		if key == "" {
			errs = append(errs, ValidationError{Field: "properties", Message: "empty property name"})
			continue
		}
		if key == "name" {
			// Renames are not supported.
			if v, ok := d.Properties[key].(string); !ok || v != d.Name {
				errs = append(errs, ValidationError{
					Field:   "properties.name",
					Message: fmt.Sprintf("must equal the resource name %q", d.Name),
				})
			}
			continue
		}
		if f, ok := d.Kind.Lookup(key); ok && f.ReadOnly {
			errs = append(errs, ValidationError{
				Field:   "properties." + key,
				Message: fmt.Sprintf("%s is read-only on a %s", key, d.Kind),
			})
		}
	}

	return errs
}
