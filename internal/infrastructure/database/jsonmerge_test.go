package database

import (
	"context"
	"errors"
	"testing"
)

func TestShallowMergeSQL(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	const stored = `{"loc":{"floor":1,"room":"a"},"keep":"x","drop":"y"}`

	tests := []struct {
		name  string
		patch map[string]any
		want  string
	}{
		{"empty patch", nil, stored},
		{"nested object replaced whole", map[string]any{"loc": map[string]any{"room": "b"}},
			`{"loc":{"room":"b"},"keep":"x","drop":"y"}`},
		{"nil stored as null", map[string]any{"drop": nil},
			`{"loc":{"floor":1,"room":"a"},"keep":"x","drop":null}`},
		{"new keys added", map[string]any{"a.b": true, "n": 2.5},
			`{"loc":{"floor":1,"room":"a"},"keep":"x","drop":"y","a.b":true,"n":2.5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, args, err := ShallowMergeSQL("m", tt.patch)
			if err != nil {
				t.Fatalf("ShallowMergeSQL() error = %v", err)
			}
			var got string
			// Placeholders in the select list precede the subquery's.
			query := "SELECT " + expr + " FROM (SELECT ? AS m)"
			if err := db.QueryRowContext(context.Background(), query, append(args, stored)...).Scan(&got); err != nil {
				t.Fatalf("query %q error = %v", query, err)
			}
			if got != tt.want {
				t.Errorf("merged = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestShallowMergeSQL_InvalidKey(t *testing.T) {
	for _, key := range []string{"", `a"b`} {
		if _, _, err := ShallowMergeSQL("meta", map[string]any{key: 1}); !errors.Is(err, ErrInvalidJSONKey) {
			t.Errorf("ShallowMergeSQL(%q) error = %v, want ErrInvalidJSONKey", key, err)
		}
	}
}
