package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// MaxPathDepth bounds the number of segments in a dotted lookup path.
const MaxPathDepth = 16

var ErrPathTooDeep = errors.New("path exceeds maximum depth")

// SplitPath splits a dotted path and enforces MaxPathDepth.
func SplitPath(path string) ([]string, error) {
	trimmed := strings.Trim(strings.TrimSpace(path), ".")
	if trimmed == "" {
		return nil, nil
	}
	parts := strings.Split(trimmed, ".")
	if len(parts) > MaxPathDepth {
		return nil, fmt.Errorf("%w: %d segments in %q", ErrPathTooDeep, len(parts), path)
	}
	return parts, nil
}

// LookupPath walks value by its JSON shape. Segments are matched literally;
// numeric segments index arrays.
func LookupPath(value any, segments []string) (any, bool, error) {
	if len(segments) > MaxPathDepth {
		return nil, false, ErrPathTooDeep
	}
	if value == nil {
		return nil, false, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, false, fmt.Errorf("encode lookup source: %w", err)
	}
	if len(segments) == 0 {
		var out any
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, false, fmt.Errorf("decode lookup source: %w", err)
		}
		return out, true, nil
	}
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = gjson.Escape(s)
	}
	res := gjson.GetBytes(raw, strings.Join(escaped, "."))
	if !res.Exists() {
		return nil, false, nil
	}
	return res.Value(), true, nil
}
