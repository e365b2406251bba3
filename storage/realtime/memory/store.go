// Package memstore is an in-process realtime.Store.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/projetogalileu/galileu/core/realtime"
)

var nowFunc = time.Now // mockable

type subscription struct {
	path     string
	listener realtime.Listener
}

type Store struct {
	keys realtime.KeyGen

	mu     sync.RWMutex
	root   realtime.Tree
	subs   map[int]subscription
	nextID int
}

var _ realtime.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		keys: realtime.KeyGen{Now: func() time.Time { return nowFunc() }},
		root: make(realtime.Tree),
		subs: make(map[int]subscription),
	}
}

func (s *Store) Get(_ context.Context, path string) (realtime.Value, error) {
	if err := realtime.ValidatePath(path); err != nil {
		return realtime.Value{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return realtime.Value{Path: realtime.Join(path), Raw: realtime.DeepCopy(s.root.Lookup(path))}, nil
}

func (s *Store) Set(ctx context.Context, path string, value interface{}) error {
	return s.Update(ctx, path, map[string]interface{}{"": value})
}

func (s *Store) Update(_ context.Context, path string, values map[string]interface{}) error {
	writes, err := realtime.PrepareUpdate(path, values)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.root.Apply(writes)
	notifications := s.pending(realtime.Paths(writes))
	s.mu.Unlock()

	dispatch(notifications)
	return nil
}

func (s *Store) Push(ctx context.Context, path string, value interface{}) (string, error) {
	key := s.NewKey()
	if err := s.Set(ctx, realtime.Join(path, key), value); err != nil {
		return "", err
	}
	return key, nil
}

// NewKey returns a key that sorts after every key generated before it.
func (s *Store) NewKey() string {
	return s.keys.NewKey()
}

func (s *Store) Remove(ctx context.Context, path string) error {
	return s.Set(ctx, path, nil)
}

func (s *Store) Subscribe(path string, listener realtime.Listener) func() {
	path = realtime.Join(path)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = subscription{path: path, listener: listener}
	current := realtime.Value{Path: path, Raw: realtime.DeepCopy(s.root.Lookup(path))}
	s.mu.Unlock()

	listener(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Store) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

type notification struct {
	listener realtime.Listener
	value    realtime.Value
}

// pending collects the snapshots owed to listeners affected by a write to any of paths.
// Must be called with the write lock held.
func (s *Store) pending(paths []string) []notification {
	ids := make([]int, 0, len(s.subs))
	for id, sub := range s.subs {
		if realtime.Affects(sub.path, paths) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids) // subscription order

	out := make([]notification, 0, len(ids))
	for _, id := range ids {
		sub := s.subs[id]
		out = append(out, notification{
			listener: sub.listener,
			value:    realtime.Value{Path: sub.path, Raw: realtime.DeepCopy(s.root.Lookup(sub.path))},
		})
	}
	return out
}

func dispatch(notifications []notification) {
	for _, n := range notifications {
		n.listener(n.value)
	}
}
