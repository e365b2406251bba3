package testutil

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projetogalileu/galileu/core/realtime"
)

// Recorder collects the values a listener is called with.
type Recorder struct {
	mu     sync.Mutex
	values []realtime.Value
}

func (r *Recorder) Listen(v realtime.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *Recorder) Last() realtime.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		return realtime.Value{}
	}
	return r.values[len(r.values)-1]
}

func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

// Keys returns the sorted keys of children.
func Keys(children map[string]realtime.Value) []string {
	out := make([]string, 0, len(children))
	for k := range children {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// StoreContract runs the behavior every realtime.Store implementation shares. newStore must
// return an empty store; listeners of writes made through it are expected to be called before
// the write returns.
func StoreContract(t *testing.T, newStore func(t *testing.T) realtime.Store) {
	ctx := context.Background()

	t.Run("set get", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "sensor/angulo", 30))
		require.NoError(t, s.Set(ctx, "sensor/distancia", 12.5))

		v, err := s.Get(ctx, "sensor/angulo")
		require.NoError(t, err)
		assert.True(t, v.Exists())
		assert.Equal(t, 30.0, v.Raw)
		assert.Equal(t, "angulo", v.Key())

		v, err = s.Get(ctx, "sensor")
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"angulo": 30.0, "distancia": 12.5}, v.Raw)

		v, err = s.Get(ctx, "sensor/velocidade")
		require.NoError(t, err)
		assert.False(t, v.Exists())

		v, err = s.Get(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"sensor"}, Keys(v.Children()))

		_, err = s.Get(ctx, "sensor/a.b")
		assert.ErrorIs(t, err, realtime.ErrInvalidPath)
		assert.ErrorIs(t, s.Set(ctx, "questoes/u1/a#b", 1), realtime.ErrInvalidPath)
		assert.ErrorIs(t, s.Set(ctx, "", 1), realtime.ErrInvalidPath)
	})

	t.Run("structs are normalized", func(t *testing.T) {
		s := newStore(t)
		type dados struct {
			Angulo float64  `json:"angulo"`
			Status string   `json:"status"`
			Peso   *float64 `json:"peso"`
		}
		require.NoError(t, s.Set(ctx, "simulacoes/s1", dados{Angulo: 15, Status: "iniciada"}))

		v, err := s.Get(ctx, "simulacoes/s1/status")
		require.NoError(t, err)
		assert.Equal(t, "iniciada", v.Raw)

		// null members read as missing
		v, err = s.Get(ctx, "simulacoes/s1/peso")
		require.NoError(t, err)
		assert.False(t, v.Exists())

		var got dados
		v, _ = s.Get(ctx, "simulacoes/s1")
		require.NoError(t, v.Decode(&got))
		assert.Equal(t, dados{Angulo: 15, Status: "iniciada"}, got)
	})

	t.Run("update is multi path", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "simulacoes/s1", map[string]interface{}{"status": "iniciada", "userName": "ana"}))

		rec := &Recorder{}
		unsub := s.Subscribe("", rec.Listen)
		defer unsub()

		err := s.Update(ctx, "", map[string]interface{}{
			"simulacoes/s1/status": "finalizada",
			"sensor/liberar":       false,
		})
		require.NoError(t, err)

		// initial + one notification for the whole update
		assert.Equal(t, 2, rec.Count())
		root := rec.Last().Raw.(map[string]interface{})
		s1 := root["simulacoes"].(map[string]interface{})["s1"].(map[string]interface{})
		assert.Equal(t, "finalizada", s1["status"])
		assert.Equal(t, "ana", s1["userName"])
		assert.Equal(t, false, root["sensor"].(map[string]interface{})["liberar"])

		// a parent and its child in one update: the child wins
		require.NoError(t, s.Update(ctx, "simulacoes", map[string]interface{}{
			"s2":        map[string]interface{}{"status": "iniciada"},
			"s2/status": "finalizada",
		}))
		v, _ := s.Get(ctx, "simulacoes/s2/status")
		assert.Equal(t, "finalizada", v.Raw)
	})

	t.Run("remove prunes parents", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "questoes/u1/q1", map[string]interface{}{"enunciado": "x"}))
		require.NoError(t, s.Set(ctx, "questoes/u2/q1", map[string]interface{}{"enunciado": "y"}))

		require.NoError(t, s.Remove(ctx, "questoes/u1/q1"))
		v, _ := s.Get(ctx, "questoes")
		assert.Equal(t, []string{"u2"}, Keys(v.Children()))

		// removing a missing path is a no-op
		assert.NoError(t, s.Remove(ctx, "questoes/u9/q9"))

		require.NoError(t, s.Remove(ctx, "questoes/u2"))
		v, _ = s.Get(ctx, "questoes")
		assert.False(t, v.Exists())
	})

	t.Run("arrays take children", func(t *testing.T) {
		s := newStore(t)
		series := []map[string]interface{}{{"angulo": 0, "aceleracao": 0}, {"angulo": 1, "aceleracao": 0.17}}
		require.NoError(t, s.Set(ctx, "sensor/dadosGrafico", series))

		v, _ := s.Get(ctx, "sensor/dadosGrafico/1/aceleracao")
		assert.Equal(t, 0.17, v.Raw)

		require.NoError(t, s.Set(ctx, "sensor/dadosGrafico/2", map[string]interface{}{"angulo": 2}))
		v, _ = s.Get(ctx, "sensor/dadosGrafico")
		assert.Equal(t, []string{"0", "1", "2"}, Keys(v.Children()))
	})

	t.Run("push", func(t *testing.T) {
		s := newStore(t)
		k1, err := s.Push(ctx, "simulacoes", map[string]interface{}{"n": 1})
		require.NoError(t, err)
		k2, err := s.Push(ctx, "simulacoes", map[string]interface{}{"n": 2})
		require.NoError(t, err)
		assert.Less(t, k1, k2)
		assert.Less(t, k2, s.NewKey())

		v, _ := s.Get(ctx, "simulacoes")
		assert.Equal(t, []string{k1, k2}, Keys(v.Children()))
	})

	t.Run("subscribe", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "sensor/angulo", 10))

		angle, sensor, other := &Recorder{}, &Recorder{}, &Recorder{}
		unsubAngle := s.Subscribe("sensor/angulo", angle.Listen)
		unsubSensor := s.Subscribe("sensor", sensor.Listen)
		unsubOther := s.Subscribe("simulacoes", other.Listen)
		defer unsubSensor()
		defer unsubOther()

		// current value delivered on subscribe
		require.Equal(t, 1, angle.Count())
		assert.Equal(t, 10.0, angle.Last().Raw)
		assert.False(t, other.Last().Exists())

		require.NoError(t, s.Set(ctx, "sensor/angulo", 20))
		assert.Equal(t, 20.0, angle.Last().Raw)
		assert.Equal(t, map[string]interface{}{"angulo": 20.0}, sensor.Last().Raw)
		assert.Equal(t, 1, other.Count())

		// parent write reaches the child listener
		require.NoError(t, s.Set(ctx, "sensor", map[string]interface{}{"angulo": 25, "distancia": 3}))
		assert.Equal(t, 25.0, angle.Last().Raw)

		unsubAngle()
		unsubAngle() // idempotent
		require.NoError(t, s.Set(ctx, "sensor/angulo", 40))
		assert.Equal(t, 25.0, angle.Last().Raw)
		assert.Equal(t, 40.0, sensor.Last().Children()["angulo"].Raw)
	})

	t.Run("listener may write", func(t *testing.T) {
		s := newStore(t)
		unsub := s.Subscribe("sensor/dadosGrafico", func(v realtime.Value) {
			if v.Exists() {
				_ = s.Set(ctx, "simulacoes/s1/grafico", v.Raw)
			}
		})
		defer unsub()

		series := []map[string]interface{}{{"angulo": 0, "aceleracao": 0}, {"angulo": 1, "aceleracao": 0.17}}
		require.NoError(t, s.Set(ctx, "sensor/dadosGrafico", series))

		v, _ := s.Get(ctx, "simulacoes/s1/grafico/1/aceleracao")
		assert.Equal(t, 0.17, v.Raw)
	})
}
