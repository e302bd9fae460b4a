package device

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	maxNameLength     = 100
	maxMetaKeys       = 50
	maxStringValueLen = 1024
	maxNestingDepth   = 10

	// idSuffixLength is the number of random base36 characters in a device id.
	idSuffixLength = 6

	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// GenerateID returns a new device id of the form
// "device-<base36 unix millis><6 random base36 chars>".
func GenerateID() string {
	return generateIDAt(time.Now())
}

func generateIDAt(now time.Time) string {
	random := uuid.New()
	var suffix strings.Builder
	suffix.Grow(idSuffixLength)
	for i := 0; i < idSuffixLength; i++ {
		suffix.WriteByte(base36Alphabet[int(random[i])%len(base36Alphabet)])
	}
	return "device-" + strconv.FormatInt(now.UnixMilli(), 36) + suffix.String()
}

// BinID returns the id of the compartment of the given type on a device.
func BinID(deviceID, binType string) string {
	return deviceID + "-" + binType
}

// ValidateName checks if a device name is valid.
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

// ValidateBinType checks that binType is one of allowed.
func ValidateBinType(binType string, allowed []string) error {
	if !slices.Contains(allowed, binType) {
		return fmt.Errorf("%w: %q (allowed: %s)", ErrInvalidBinType, binType, strings.Join(allowed, ", "))
	}
	return nil
}

// ValidateBinTypes checks a device compartment set: non-empty, every type
// known, no type repeated.
func ValidateBinTypes(types []string) error {
	if len(types) == 0 {
		return fmt.Errorf("%w: compartment set is empty", ErrInvalidBinType)
	}
	seen := make(map[string]struct{}, len(types))
	for _, t := range types {
		if err := ValidateBinType(t, KnownBinTypes); err != nil {
			return err
		}
		if _, dup := seen[t]; dup {
			return fmt.Errorf("%w: %q listed twice", ErrInvalidBinType, t)
		}
		seen[t] = struct{}{}
	}
	return nil
}

// ParseStatus converts a reported status string. Only online and offline
// can be reported; unknown is the initial state and never a target.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusOnline:
		return StatusOnline, true
	case StatusOffline:
		return StatusOffline, true
	default:
		return "", false
	}
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
