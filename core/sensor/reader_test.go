package sensor

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/storage/realtime/memory"
)

var logger = core.NewStdLogger(log.New(io.Discard, "", 0))

type cacheMock struct {
	mu      sync.Mutex
	reading *Reading
}

func (c *cacheMock) SetReading(_ context.Context, r Reading) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reading = &r
	return nil
}

func (c *cacheMock) GetReading(context.Context) (Reading, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reading == nil {
		return Reading{}, errors.Wrap(ErrNoReading, "cache miss")
	}
	return *c.reading, nil
}

func TestReader(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	NowFunc = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	defer func() { NowFunc = time.Now }()

	// a value already in the store is read on start
	require.NoError(t, store.Set(ctx, Path(KeyAngle), 30.004))

	cache := &cacheMock{}
	r := NewReader(store, cache, logger)
	r.Start()
	r.Start() // no-op
	defer r.Close()

	var seen []Reading
	cancel := r.OnChange(func(rd Reading) { seen = append(seen, rd) })
	defer cancel()

	got := r.Snapshot()
	require.NotNil(t, got.Angle)
	assert.Equal(t, 30.0, *got.Angle)
	assert.Nil(t, got.Distance)
	assert.Nil(t, got.Resultant)

	require.NoError(t, store.Set(ctx, Path(KeyDistance), "12.346"))
	require.NoError(t, store.Set(ctx, Path(KeyPy), 0.1472))
	require.NoError(t, store.Set(ctx, Path(KeyFriction), 0.05))
	require.NoError(t, store.Set(ctx, Path(KeyVelocity), "fast")) // ignored

	got = r.Snapshot()
	assert.Equal(t, 12.35, *got.Distance)
	assert.Equal(t, 0.15, *got.Py)
	assert.Equal(t, 0.05, *got.Friction)
	assert.Nil(t, got.Velocity)
	require.NotNil(t, got.Resultant)
	assert.Equal(t, 0.1, *got.Resultant)
	assert.Len(t, seen, 3)

	// a removed value keeps the last one seen
	require.NoError(t, store.Remove(ctx, Path(KeyDistance)))
	assert.Equal(t, 12.35, *r.Snapshot().Distance)

	// snapshots are copies
	*got.Distance = 99
	assert.Equal(t, 12.35, *r.Snapshot().Distance)

	// last reading cached
	cached, err := cache.GetReading(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.05, *cached.Friction)
}

func TestReader_Latest(t *testing.T) {
	ctx := context.Background()
	cache := &cacheMock{}
	r := NewReader(memstore.New(), cache, logger)
	r.Start()
	defer r.Close()

	_, err := r.Latest(ctx)
	assert.Equal(t, ErrNoReading, err)

	_ = cache.SetReading(ctx, Reading{Angle: core.Float(12)})
	got, err := r.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12.0, *got.Angle)
}

func TestReader_Chart(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	r := NewReader(store, nil, logger)
	r.Start()
	defer r.Close()

	assert.Nil(t, r.Chart())

	var mirrored []ChartPoint
	cancel := r.OnChart(func(points []ChartPoint) { mirrored = points })
	defer cancel()

	require.NoError(t, store.Set(ctx, ChartPath, DefaultChart()))
	assert.Len(t, r.Chart(), 91)
	assert.Len(t, mirrored, 91)

	// malformed series is ignored
	require.NoError(t, store.Set(ctx, ChartPath, "not a list"))
	assert.Len(t, r.Chart(), 91)
}

func TestReader_CloseReleasesSubscriptions(t *testing.T) {
	store := memstore.New()
	r := NewReader(store, nil, logger)
	r.Start()
	assert.Equal(t, len(ScalarKeys)+1, store.Subscribers())
	r.Close()
	assert.Equal(t, 0, store.Subscribers())
}

func TestDefaultChart(t *testing.T) {
	points := DefaultChart()
	require.Len(t, points, 91)
	assert.Equal(t, ChartPoint{Angle: 0, Acceleration: 0}, points[0])
	assert.Equal(t, ChartPoint{Angle: 30, Acceleration: 4.9}, points[30])
	assert.Equal(t, ChartPoint{Angle: 90, Acceleration: 9.8}, points[90])
}

func TestReading_Data(t *testing.T) {
	r := Reading{Angle: core.Float(30), Weight: core.Float(0.17), Friction: core.Float(0.05)}
	d := r.Data()
	assert.Equal(t, core.Float(30), d.Angle)
	assert.Equal(t, core.Float(0.15), d.Py)
	assert.Equal(t, core.Float(0.1), d.Resultant)
	assert.Nil(t, d.Distance)
	assert.Nil(t, d.Velocity)
	assert.Len(t, d.Fields(), 11)

	// a copy, not the reading's own values
	*r.Angle = 45
	assert.Equal(t, core.Float(30), d.Angle)

	// missing values go out as null, the resultant as 0
	data, err := json.Marshal(Reading{}.Data())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"distancia":null`)
	assert.Contains(t, string(data), `"forcaResultante":0`)

	assert.Equal(t, 0.0, Value(nil))
	assert.Equal(t, 2.5, Value(core.Float(2.5)))
}
