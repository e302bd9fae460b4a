package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidJSONKey is returned for metadata keys that cannot be addressed by
// an SQLite JSON path.
var ErrInvalidJSONKey = errors.New("invalid json key")

// ShallowMergeSQL returns an SQL expression that sets every top-level key of
// patch on the JSON object in column, plus the matching query arguments.
//
// Each value replaces the stored one whole: nested objects are not merged and
// a nil value is stored as JSON null rather than removing the key. An empty
// patch yields column unchanged.
func ShallowMergeSQL(column string, patch map[string]any) (string, []any, error) {
	keys := make([]string, 0, len(patch))
	for k := range patch {
		if k == "" || strings.ContainsRune(k, '"') {
			return "", nil, fmt.Errorf("%w: %q", ErrInvalidJSONKey, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	expr := column
	args := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		v, err := json.Marshal(patch[k])
		if err != nil {
			return "", nil, fmt.Errorf("marshalling %q: %w", k, err)
		}
		expr = "json_set(" + expr + ", ?, json(?))"
		args = append(args, `$."`+k+`"`, string(v))
	}
	return expr, args, nil
}
