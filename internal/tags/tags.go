// Package tags parses the key=value;key=value argument used to annotate
// platform jobs. Parsing happens before any network call so malformed
// input never reaches the platform.
package tags

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for tag parsing
var (
	ErrMalformedPair = errors.New("tag must be in key=value form")
	ErrEmptyKey      = errors.New("tag key cannot be empty")
	ErrDuplicateKey  = errors.New("duplicate tag key")
)

// Tag is a single key/value annotation. Order is preserved so platform
// requests are deterministic.
type Tag struct {
	Key   string
	Value string
}

// Parse splits a "key=value;key=value" string into tags. An empty input
// yields nil, which callers treat as "no tags". Empty pairs produced by
// trailing or doubled separators are skipped.
func Parse(s string) ([]Tag, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	seen := make(map[string]struct{})
	var out []Tag
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMalformedPair, pair)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			return nil, fmt.Errorf("%w: %q", ErrEmptyKey, pair)
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		}
		seen[key] = struct{}{}
		out = append(out, Tag{Key: key, Value: value})
	}
	return out, nil
}
