package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projetogalileu/galileu/core/realtime"
	"github.com/projetogalileu/galileu/tests"
)

func TestStore(t *testing.T) {
	testutil.StoreContract(t, func(*testing.T) realtime.Store { return New() })
}

func TestStore_PushKeysFollowTheClock(t *testing.T) {
	ctx := context.Background()
	s := New()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	i := 0
	nowFunc = func() time.Time { i++; return base.Add(time.Duration(i) * time.Millisecond) }
	defer func() { nowFunc = time.Now }()

	k1, err := s.Push(ctx, "simulacoes", map[string]interface{}{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, "17cb5b99f872c240", k1[:16])

	// a clock going backwards still yields later keys
	base = base.Add(-time.Hour)
	k2, err := s.Push(ctx, "simulacoes", map[string]interface{}{"n": 2})
	require.NoError(t, err)
	assert.Less(t, k1, k2)
}

func TestStore_Subscribers(t *testing.T) {
	s := New()
	rec := &testutil.Recorder{}
	unsub := s.Subscribe("sensor", rec.Listen)
	s.Subscribe("simulacoes", rec.Listen)
	assert.Equal(t, 2, s.Subscribers())

	unsub()
	unsub()
	assert.Equal(t, 1, s.Subscribers())
}

func TestStore_valuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Set(ctx, "sensor", map[string]interface{}{"angulo": 10}))

	v, _ := s.Get(ctx, "sensor")
	v.Raw.(map[string]interface{})["angulo"] = 99.0

	v, _ = s.Get(ctx, "sensor/angulo")
	assert.Equal(t, 10.0, v.Raw)
}
