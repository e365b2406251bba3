// Package redisstore is a realtime.Store kept in redis so every API instance shares the rig,
// the sessions and the questions.
//
// The tree lives in one hash: each top level key ("sensor", "simulacoes", ...) is a field
// holding that subtree as JSON. Writes are optimistic transactions on the hash. After each
// commit the changed paths are published so the other instances can notify their listeners.
package redisstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/realtime"
)

const (
	DefaultKey   = "galileu:realtime"
	maxTxRetries = 50
)

var ErrTxRetries = errors.New("realtime write kept conflicting")

type (
	subscription struct {
		path     string
		listener realtime.Listener
	}

	// change is what gets published after a commit.
	change struct {
		Origin string   `json:"origin"`
		Paths  []string `json:"paths"`
	}
)

type Store struct {
	client  *redis.Client
	key     string
	channel string
	origin  string
	keys    realtime.KeyGen
	logger  core.Logger

	mu     sync.RWMutex
	subs   map[int]subscription
	nextID int

	pubsub *redis.PubSub
	done   chan struct{}
}

var _ realtime.Store = (*Store)(nil)

// New returns a store kept under the hash key and starts listening to the other instances'
// changes. Close releases the subscription.
func New(ctx context.Context, client *redis.Client, key string, logger core.Logger) (*Store, error) {
	if key == "" {
		key = DefaultKey
	}
	s := &Store{
		client:  client,
		key:     key,
		channel: key + ":changes",
		origin:  uuid.New().String(),
		logger:  logger,
		subs:    make(map[int]subscription),
		done:    make(chan struct{}),
	}

	s.pubsub = client.Subscribe(ctx, s.channel)
	if _, err := s.pubsub.Receive(ctx); err != nil {
		_ = s.pubsub.Close()
		return nil, errors.Wrap(err, "subscribing to realtime changes")
	}
	go s.listen(s.pubsub.Channel())
	return s, nil
}

func (s *Store) Close() error {
	err := s.pubsub.Close()
	<-s.done
	return errors.Wrap(err, "closing realtime subscription")
}

func (s *Store) Get(ctx context.Context, path string) (realtime.Value, error) {
	if err := realtime.ValidatePath(path); err != nil {
		return realtime.Value{}, err
	}
	segs := realtime.Split(path)
	var roots []string
	if len(segs) > 0 {
		roots = segs[:1]
	}
	tree, _, err := s.load(ctx, s.client, roots)
	if err != nil {
		return realtime.Value{}, err
	}
	return realtime.Value{Path: realtime.Join(path), Raw: tree.Lookup(path)}, nil
}

func (s *Store) Set(ctx context.Context, path string, value interface{}) error {
	return s.Update(ctx, path, map[string]interface{}{"": value})
}

func (s *Store) Update(ctx context.Context, path string, values map[string]interface{}) error {
	writes, err := realtime.PrepareUpdate(path, values)
	if err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}
	roots := rootsOf(writes)

	txf := func(tx *redis.Tx) error {
		tree, loaded, err := s.load(ctx, tx, roots)
		if err != nil {
			return err
		}
		tree.Apply(writes)

		touched := roots
		if touched == nil {
			touched = union(loaded, tree)
		}
		set := make(map[string]interface{}, len(touched))
		var del []string
		for _, root := range touched {
			node := tree.Lookup(root)
			if node == nil {
				del = append(del, root)
				continue
			}
			data, err := json.Marshal(node)
			if err != nil {
				return errors.Wrapf(err, "marshalling %q", root)
			}
			set[root] = string(data)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(set) > 0 {
				pipe.HSet(ctx, s.key, set)
			}
			if len(del) > 0 {
				pipe.HDel(ctx, s.key, del...)
			}
			return nil
		})
		return err
	}

	if err := s.commit(ctx, txf); err != nil {
		return err
	}

	paths := realtime.Paths(writes)
	s.publish(ctx, paths)
	s.notify(ctx, paths)
	return nil
}

func (s *Store) commit(ctx context.Context, txf func(*redis.Tx) error) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, s.key)
		if err == nil {
			return nil
		}
		if err == redis.TxFailedErr {
			continue
		}
		return errors.Wrap(err, "writing realtime tree")
	}
	return ErrTxRetries
}

func (s *Store) Push(ctx context.Context, path string, value interface{}) (string, error) {
	key := s.NewKey()
	if err := s.Set(ctx, realtime.Join(path, key), value); err != nil {
		return "", err
	}
	return key, nil
}

// NewKey returns a key ordered by the local clock; instances with skewed clocks interleave.
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
	s.mu.Unlock()

	listener(s.snapshot(context.Background(), path))

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

// load reads the given top level subtrees, or all of them when roots is nil. It returns the
// fields found.
func (s *Store) load(ctx context.Context, c redis.Cmdable, roots []string) (realtime.Tree, []string, error) {
	tree := make(realtime.Tree)
	var found []string
	decode := func(root, data string) error {
		var node interface{}
		if err := json.Unmarshal([]byte(data), &node); err != nil {
			return errors.Wrapf(err, "decoding %q", root)
		}
		tree[root] = node
		found = append(found, root)
		return nil
	}

	if roots == nil {
		all, err := c.HGetAll(ctx, s.key).Result()
		if err != nil {
			return nil, nil, errors.Wrap(err, "reading realtime tree")
		}
		for root, data := range all {
			if err := decode(root, data); err != nil {
				return nil, nil, err
			}
		}
		return tree, found, nil
	}

	vals, err := c.HMGet(ctx, s.key, roots...).Result()
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading realtime tree")
	}
	for i, v := range vals {
		data, ok := v.(string)
		if !ok {
			continue
		}
		if err := decode(roots[i], data); err != nil {
			return nil, nil, err
		}
	}
	return tree, found, nil
}

func (s *Store) snapshot(ctx context.Context, path string) realtime.Value {
	v, err := s.Get(ctx, path)
	if err != nil {
		s.logger.Error("reading "+path+" for listeners", err)
		return realtime.Value{Path: path}
	}
	return v
}

func (s *Store) publish(ctx context.Context, paths []string) {
	data, err := json.Marshal(change{Origin: s.origin, Paths: paths})
	if err == nil {
		err = s.client.Publish(ctx, s.channel, data).Err()
	}
	if err != nil {
		s.logger.Error("publishing realtime change", err)
	}
}

// notify calls the listeners affected by a write to paths, in subscription order, with the
// current values.
func (s *Store) notify(ctx context.Context, paths []string) {
	s.mu.RLock()
	ids := make([]int, 0, len(s.subs))
	for id, sub := range s.subs {
		if realtime.Affects(sub.path, paths) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	subs := make([]subscription, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	s.mu.RUnlock()

	for _, sub := range subs {
		sub.listener(s.snapshot(ctx, sub.path))
	}
}

// listen relays the other instances' changes to the local listeners.
func (s *Store) listen(messages <-chan *redis.Message) {
	defer close(s.done)
	for msg := range messages {
		var c change
		if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
			s.logger.Error("decoding realtime change", err)
			continue
		}
		if c.Origin == s.origin {
			continue
		}
		s.notify(context.Background(), c.Paths)
	}
}

// rootsOf returns the top level keys writes touch, nil when one of them replaces the root.
func rootsOf(writes []realtime.Write) []string {
	seen := make(map[string]bool)
	var roots []string
	for _, w := range writes {
		segs := realtime.Split(w.Path)
		if len(segs) == 0 {
			return nil
		}
		if !seen[segs[0]] {
			seen[segs[0]] = true
			roots = append(roots, segs[0])
		}
	}
	return roots
}

func union(loaded []string, tree realtime.Tree) []string {
	out := append([]string(nil), loaded...)
	for root := range tree {
		if !contains(loaded, root) {
			out = append(out, root)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
