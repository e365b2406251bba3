package realtime

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Tree is the in-memory form of a store: a JSON-like object holding normalized values.
type Tree map[string]interface{}

// Write is one path assignment of an update. A nil Value removes the path.
type Write struct {
	Path  string
	Value interface{}
}

// PrepareUpdate validates and normalizes the writes of an update at path, parents first so a
// nested key is not clobbered by its parent's write.
func PrepareUpdate(path string, values map[string]interface{}) ([]Write, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	writes := make([]Write, 0, len(values))
	for k, v := range values {
		full := Join(path, k)
		if err := ValidatePath(full); err != nil {
			return nil, err
		}
		nv, err := Normalize(v)
		if err != nil {
			return nil, errors.Wrapf(err, "normalizing %q", full)
		}
		if full == "" && nv != nil {
			if _, ok := nv.(map[string]interface{}); !ok {
				return nil, errors.Wrap(ErrInvalidPath, "only objects can be stored at the root")
			}
		}
		writes = append(writes, Write{Path: full, Value: nv})
	}
	sort.SliceStable(writes, func(i, j int) bool {
		return len(Split(writes[i].Path)) < len(Split(writes[j].Path))
	})
	return writes, nil
}

// Paths returns the paths touched by writes.
func Paths(writes []Write) []string {
	paths := make([]string, len(writes))
	for i, w := range writes {
		paths[i] = w.Path
	}
	return paths
}

// Affects reports whether a listener at path must hear about a write to any of paths.
func Affects(path string, paths []string) bool {
	for _, p := range paths {
		if IsAncestor(path, p) || IsAncestor(p, path) {
			return true
		}
	}
	return false
}

// Lookup returns the value at path, nil when missing. Empty objects count as missing.
func (t Tree) Lookup(path string) interface{} {
	var node interface{} = map[string]interface{}(t)
	for _, seg := range Split(path) {
		switch n := node.(type) {
		case map[string]interface{}:
			node = n[seg]
		case []interface{}:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(n) {
				return nil
			}
			node = n[i]
		default:
			return nil
		}
		if node == nil {
			return nil
		}
	}
	if m, ok := node.(map[string]interface{}); ok && len(m) == 0 {
		return nil
	}
	return node
}

// Write stores value at path, creating intermediate objects. A nil value deletes the path
// and prunes parents left empty.
func (t Tree) Write(path string, value interface{}) {
	segs := Split(path)
	if len(segs) == 0 {
		for k := range t {
			delete(t, k)
		}
		if obj, ok := value.(map[string]interface{}); ok {
			for k, v := range obj {
				t[k] = v
			}
		}
		return
	}

	parents := make([]map[string]interface{}, 0, len(segs))
	node := map[string]interface{}(t)
	for _, seg := range segs[:len(segs)-1] {
		parents = append(parents, node)
		child, ok := node[seg].(map[string]interface{})
		if !ok {
			if value == nil {
				return // nothing to delete
			}
			child = asObject(node[seg])
			node[seg] = child
		}
		node = child
	}

	last := segs[len(segs)-1]
	if value != nil {
		node[last] = value
		return
	}
	delete(node, last)
	for i := len(parents) - 1; i >= 0 && len(node) == 0; i-- {
		delete(parents[i], segs[i])
		node = parents[i]
	}
}

// Apply runs writes in order.
func (t Tree) Apply(writes []Write) {
	for _, w := range writes {
		t.Write(w.Path, w.Value)
	}
}

// asObject turns an array node into an index keyed object so it can take children.
func asObject(node interface{}) map[string]interface{} {
	obj := make(map[string]interface{})
	if arr, ok := node.([]interface{}); ok {
		for i, v := range arr {
			if v != nil {
				obj[strconv.Itoa(i)] = v
			}
		}
	}
	return obj
}

// DeepCopy copies a normalized value so callers cannot reach into the tree.
func DeepCopy(node interface{}) interface{} {
	switch n := node.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(n))
		for k, v := range n {
			out[k] = DeepCopy(v)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(n))
		for i, v := range n {
			out[i] = DeepCopy(v)
		}
		return out
	default:
		return n
	}
}

// KeyGen makes push keys: time ordered, and strictly increasing within a process.
type KeyGen struct {
	Now func() time.Time

	mu   sync.Mutex
	last int64
}

// NewKey returns a key that sorts after every key the generator made before.
func (g *KeyGen) NewKey() string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	g.mu.Lock()
	n := now().UnixNano()
	if n <= g.last {
		n = g.last + 1
	}
	g.last = n
	g.mu.Unlock()
	return fmt.Sprintf("%016x-%s", n, uuid.New().String()[:8])
}
