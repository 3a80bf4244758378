package desired

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/micahrl/cobsync/internal/resource"
)

// ParseAssignments turns "key=value" strings into typed properties for kind.
// Values are coerced using the kind's field schema, so enable_menu=true is a
// bool and virt_ram=512 an integer. A later assignment to the same key wins.
func ParseAssignments(kind resource.Kind, assignments []string) (resource.Properties, error) {
	if len(assignments) == 0 {
		return nil, nil
	}
	props := make(resource.Properties, len(assignments))
	for i, a := range assignments {
		key, raw, ok := strings.Cut(a, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.Errorf("invalid property assignment %d: %q (want key=value)", i+1, a)
		}
		value, err := kind.Coerce(key, raw)
		if err != nil {
			return nil, err
		}
		props[key] = value
	}
	return props, nil
}

// Merge combines file properties with command-line properties.
// Command-line properties take precedence, key by key.
func Merge(fileProps, flagProps resource.Properties) resource.Properties {
	if len(fileProps) == 0 && len(flagProps) == 0 {
		return nil
	}
	merged := make(resource.Properties, len(fileProps)+len(flagProps))

	// File entries first (lower priority)
	for k, v := range fileProps {
		merged[k] = v
	}

	// Flag entries override
	for k, v := range flagProps {
		merged[k] = v
	}

	return merged
}
