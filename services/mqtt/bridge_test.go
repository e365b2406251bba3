package mqtt

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/sensor"
	"github.com/projetogalileu/galileu/storage/realtime/memory"
)

type published struct {
	mu       sync.Mutex
	payloads []string
}

func (p *published) publish(topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if topic == ReleaseTopic {
		p.payloads = append(p.payloads, string(payload))
	}
	return nil
}

func newBridge() (*Bridge, *memstore.Store, *published) {
	store := memstore.New()
	logger := core.NewStdLogger(log.New(io.Discard, "", 0))
	pub := &published{}
	b := NewBridge(Options{Broker: "tcp://localhost:1883", ClientID: "test", Topic: "sensor/#"}, store, logger)
	b.publish = pub.publish
	return b, store, pub
}

func get(t *testing.T, store *memstore.Store, key string) interface{} {
	t.Helper()
	v, err := store.Get(context.Background(), sensor.Path(key))
	require.NoError(t, err)
	return v.Raw
}

func TestBridge_HandleMessage(t *testing.T) {
	ctx := context.Background()
	b, store, _ := newBridge()

	tests := []struct {
		topic   string
		payload string
		key     string
		want    interface{}
	}{
		{"sensor/angulo", "30.5", "angulo", 30.5},
		{"sensor/distancia", `"0.42"`, "distancia", 0.42},
		{"sensor/tempo", " 1.5\n", "tempo", 1.5},
		{"sensor/velocidade", "abc", "velocidade", nil},
		{"sensor/desconhecido", "1", "desconhecido", nil},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			require.NoError(t, b.HandleMessage(ctx, tt.topic, []byte(tt.payload)))
			assert.Equal(t, tt.want, get(t, store, tt.key))
		})
	}

	t.Run("object", func(t *testing.T) {
		payload := `{"aceleracao": 4.9, "px": "0.09", "atrito": null, "dadosGrafico": [{"angulo": 0, "aceleracao": 0}, {"angulo": 30, "aceleracao": 4.9}]}`
		require.NoError(t, b.HandleMessage(ctx, "sensor", []byte(payload)))
		assert.Equal(t, 4.9, get(t, store, "aceleracao"))
		assert.Equal(t, 0.09, get(t, store, "px"))
		assert.Nil(t, get(t, store, "atrito"))
		assert.Len(t, get(t, store, "dadosGrafico"), 2)
		// earlier values are kept
		assert.Equal(t, 30.5, get(t, store, "angulo"))
	})

	t.Run("ignored", func(t *testing.T) {
		assert.Error(t, b.HandleMessage(ctx, "sensor", []byte("12")))
		assert.NoError(t, b.HandleMessage(ctx, "other/angulo", []byte("1")))
		require.NoError(t, b.HandleMessage(ctx, "sensor/liberar", []byte("true")))
		assert.Nil(t, get(t, store, "liberar"))
	})
}

func TestBridge_WatchRelease(t *testing.T) {
	ctx := context.Background()
	b, store, pub := newBridge()

	b.WatchRelease()
	b.WatchRelease() // no-op
	require.NoError(t, store.Set(ctx, sensor.ReleasePath, true))
	require.NoError(t, store.Set(ctx, sensor.ReleasePath, false))
	b.Close()
	require.NoError(t, store.Set(ctx, sensor.ReleasePath, true))

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, []string{"false", "true", "false"}, pub.payloads)
}
