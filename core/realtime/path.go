package realtime

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// illegalKeyChars cannot appear in a path segment.
const illegalKeyChars = ".#$[]"

// Split returns the non-empty segments of path.
func Split(path string) []string {
	raw := strings.Split(path, "/")
	segs := raw[:0]
	for _, s := range raw {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// Join builds a path from segments, ignoring empty ones.
func Join(segs ...string) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		parts = append(parts, Split(s)...)
	}
	return strings.Join(parts, "/")
}

// ValidatePath checks every segment of path is a legal key.
func ValidatePath(path string) error {
	for _, seg := range Split(path) {
		if strings.ContainsAny(seg, illegalKeyChars) {
			return errors.Wrapf(ErrInvalidPath, "%q contains one of %q", path, illegalKeyChars)
		}
	}
	return nil
}

// SanitizeKey replaces characters that are not allowed in a key (including "/") with "_".
func SanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || strings.ContainsRune(illegalKeyChars, r) {
			return '_'
		}
		return r
	}, key)
}

// IsAncestor reports whether a is b or one of its ancestors.
func IsAncestor(a, b string) bool {
	as, bs := Split(a), Split(b)
	if len(as) > len(bs) {
		return false
	}
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// Normalize converts any JSON-encodable value to the plain tree representation
// (map[string]interface{}, []interface{}, float64, string, bool, nil).
func Normalize(value interface{}) (interface{}, error) {
	switch value.(type) {
	case nil, string, bool, float64:
		return value, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling value")
	}
	var tree interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, errors.Wrap(err, "unmarshalling value")
	}
	return tree, nil
}

// ToFloat converts numbers and numeric strings to float64.
func ToFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
