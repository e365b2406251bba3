// Package realtime defines the hierarchical key-value store the rig, the sessions and the
// questions are kept in. Values are JSON-like trees addressed by slash separated paths
// ("sensor/angulo", "simulacoes/{id}/dados"); listeners are pushed every change.
package realtime

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

var (
	ErrInvalidPath = errors.New("invalid path")
	ErrNotFound    = errors.New("no value at path")
)

type (
	// Store is a realtime hierarchical document store with last-write-wins semantics.
	Store interface {
		// Get returns the value at path. A missing path yields a Value that does not exist.
		Get(ctx context.Context, path string) (Value, error)
		// Set replaces the value at path. Setting nil removes it.
		Set(ctx context.Context, path string, value interface{}) error
		// Update sets every child path of `path` in `values` in one atomic write.
		// Keys may be nested paths ("simulacoes/abc/status").
		Update(ctx context.Context, path string, values map[string]interface{}) error
		// Push stores value under a new, time ordered child key of path and returns the key.
		Push(ctx context.Context, path string, value interface{}) (string, error)
		// NewKey reserves a new time ordered key without writing anything.
		NewKey() string
		Remove(ctx context.Context, path string) error
		// Subscribe calls listener with the current value at path and again every time
		// something at, above or below path changes. The returned func releases the subscription.
		Subscribe(path string, listener Listener) (unsubscribe func())
	}

	Listener func(Value)

	// Value is a snapshot of the tree at Path.
	Value struct {
		Path string
		Raw  interface{}
	}
)

// Exists reports whether anything is stored at the snapshot's path.
func (v Value) Exists() bool { return v.Raw != nil }

// Key is the last path segment.
func (v Value) Key() string {
	segs := Split(v.Path)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// Decode maps the raw tree onto dst (a pointer to a tagged struct, map, slice...).
func (v Value) Decode(dst interface{}) error {
	if !v.Exists() {
		return errors.Wrap(ErrNotFound, v.Path)
	}
	data, err := json.Marshal(v.Raw)
	if err != nil {
		return errors.Wrap(err, "marshalling value")
	}
	return errors.Wrap(json.Unmarshal(data, dst), "decoding value at "+v.Path)
}

// Children returns the direct children of an object value, or nil.
func (v Value) Children() map[string]Value {
	obj, ok := v.Raw.(map[string]interface{})
	if !ok {
		return nil
	}
	children := make(map[string]Value, len(obj))
	for k, raw := range obj {
		children[k] = Value{Path: Join(v.Path, k), Raw: raw}
	}
	return children
}

// Float returns the value as a float64, parsing numeric strings.
func (v Value) Float() (float64, bool) {
	return ToFloat(v.Raw)
}
