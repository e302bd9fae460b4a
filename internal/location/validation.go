package location

import (
	"fmt"
	"strings"
)

const (
	maxNameLength     = 100
	maxMetaKeys       = 50
	maxStringValueLen = 1024
	maxNestingDepth   = 10
)

// ValidateName checks if an area name is valid.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// Slugify derives an area slug from its name: lowercased, trimmed, with each
// run of whitespace replaced by a single underscore.
//
//	Slugify("  North Wing ") == "north_wing"
func Slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

// ValidateMeta checks that a metadata map does not exceed size limits.
func ValidateMeta(m Meta) error {
	if m == nil {
		return nil
	}
	if len(m) > maxMetaKeys {
		return fmt.Errorf("%w: exceeds max keys (%d)", ErrInvalidMeta, maxMetaKeys)
	}
	for k := range m {
		if k == "" || strings.ContainsRune(k, '"') {
			return fmt.Errorf("%w: key %q must be non-empty and contain no double quote", ErrInvalidMeta, k)
		}
	}
	return validateMapSize(m, 0)
}

func validateMapSize(m map[string]any, depth int) error {
	if depth > maxNestingDepth {
		return fmt.Errorf("%w: exceeds maximum nesting depth", ErrInvalidMeta)
	}
	for k, v := range m {
		if len(k) > maxStringValueLen {
			return fmt.Errorf("%w: key too long", ErrInvalidMeta)
		}
		if err := validateValueSize(v, depth); err != nil {
			return err
		}
	}
	return nil
}

func validateValueSize(v any, depth int) error {
	switch val := v.(type) {
	case string:
		if len(val) > maxStringValueLen {
			return fmt.Errorf("%w: string value too long", ErrInvalidMeta)
		}
	case map[string]any:
		if len(val) > maxMetaKeys {
			return fmt.Errorf("%w: nested map too large", ErrInvalidMeta)
		}
		return validateMapSize(val, depth+1)
	case []any:
		if len(val) > maxMetaKeys {
			return fmt.Errorf("%w: array too large", ErrInvalidMeta)
		}
		for _, elem := range val {
			if err := validateValueSize(elem, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
