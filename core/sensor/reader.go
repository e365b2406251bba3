// Package sensor keeps the latest reading pushed by the inclined-plane rig.
package sensor

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/realtime"
)

var (
	NowFunc = time.Now // mockable

	ErrNoReading = errors.New("sensor not found")
)

type (
	// Cache shares the latest reading between API instances.
	Cache interface {
		SetReading(ctx context.Context, r Reading) error
		GetReading(ctx context.Context) (Reading, error)
	}

	// Source is anything that can provide the current reading.
	Source interface {
		Snapshot() Reading
		Chart() []ChartPoint
	}

	// Reader subscribes to the rig values in the realtime store, rounds them to 2 decimals on
	// arrival and keeps the latest one.
	Reader struct {
		store  realtime.Store
		cache  Cache
		logger core.Logger

		mu        sync.RWMutex
		reading   Reading
		chart     []ChartPoint
		listeners map[int]func(Reading)
		chartSubs map[int]func([]ChartPoint)
		nextID    int
		unsubs    []func()
	}
)

var _ Source = (*Reader)(nil)

func NewReader(store realtime.Store, cache Cache, logger core.Logger) *Reader {
	return &Reader{
		store:     store,
		cache:     cache,
		logger:    logger,
		listeners: make(map[int]func(Reading)),
		chartSubs: make(map[int]func([]ChartPoint)),
	}
}

// Start subscribes to every rig path. Calling it twice is a no-op.
func (r *Reader) Start() {
	r.mu.Lock()
	started := len(r.unsubs) > 0
	r.mu.Unlock()
	if started {
		return
	}

	unsubs := make([]func(), 0, len(ScalarKeys)+1)
	for _, key := range ScalarKeys {
		key := key
		unsubs = append(unsubs, r.store.Subscribe(Path(key), func(v realtime.Value) { r.onValue(key, v) }))
	}
	unsubs = append(unsubs, r.store.Subscribe(ChartPath, r.onChart))

	r.mu.Lock()
	r.unsubs = unsubs
	r.mu.Unlock()
}

// Close releases all subscriptions.
func (r *Reader) Close() {
	r.mu.Lock()
	unsubs := r.unsubs
	r.unsubs = nil
	r.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}

// Snapshot returns a copy of the latest reading.
func (r *Reader) Snapshot() Reading {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reading.copy()
}

// Latest returns the latest reading, falling back to the shared cache when this instance has
// not received anything yet.
func (r *Reader) Latest(ctx context.Context) (Reading, error) {
	reading := r.Snapshot()
	if !reading.IsEmpty() {
		return reading, nil
	}
	if r.cache != nil {
		cached, err := r.cache.GetReading(ctx)
		if err == nil && !cached.IsEmpty() {
			return cached, nil
		}
		if err != nil && errors.Cause(err) != ErrNoReading {
			r.logger.Warn("reading sensor cache", err)
		}
	}
	return Reading{}, ErrNoReading
}

// Chart returns a copy of the chart series.
func (r *Reader) Chart() []ChartPoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.chart == nil {
		return nil
	}
	return append([]ChartPoint(nil), r.chart...)
}

// OnChange registers fn to be called with every new reading.
func (r *Reader) OnChange(fn func(Reading)) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// OnChart registers fn to be called every time the chart series changes.
func (r *Reader) OnChart(fn func([]ChartPoint)) (cancel func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.chartSubs[id] = fn
	return func() {
		r.mu.Lock()
		delete(r.chartSubs, id)
		r.mu.Unlock()
	}
}

func (r *Reader) onValue(key string, v realtime.Value) {
	if !v.Exists() {
		return // keep the last value, the rig has not written this one yet
	}
	f, ok := v.Float()
	if !ok {
		r.logger.Debug("ignoring non numeric sensor value", map[string]interface{}{"path": v.Path, "value": v.Raw})
		return
	}

	r.mu.Lock()
	*r.reading.field(key) = core.Float(core.Round2(f))
	r.reading.Resultant = r.reading.Forces().Resultant
	r.reading.UpdatedAt = NowFunc().UTC()
	reading := r.reading.copy()
	listeners := make([]func(Reading), 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	r.mu.Unlock()

	if r.cache != nil {
		if err := r.cache.SetReading(context.Background(), reading); err != nil {
			r.logger.Warn("caching sensor reading", err)
		}
	}
	for _, fn := range listeners {
		fn(reading)
	}
}

func (r *Reader) onChart(v realtime.Value) {
	if !v.Exists() {
		return
	}
	var points []ChartPoint
	if err := v.Decode(&points); err != nil {
		r.logger.Warn("chart series is not a list of points", err)
		return
	}

	r.mu.Lock()
	r.chart = points
	subs := make([]func([]ChartPoint), 0, len(r.chartSubs))
	for _, fn := range r.chartSubs {
		subs = append(subs, fn)
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(append([]ChartPoint(nil), points...))
	}
}

func (r Reading) copy() Reading {
	out := Reading{UpdatedAt: r.UpdatedAt}
	for _, k := range ScalarKeys {
		if f := *r.field(k); f != nil {
			*out.field(k) = core.Float(*f)
		}
	}
	if r.Resultant != nil {
		out.Resultant = core.Float(*r.Resultant)
	}
	return out
}
