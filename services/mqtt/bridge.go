// Package mqtt connects the inclined-plane rig to the realtime store: readings published by the
// rig on sensor/# are written to the store and the release flag is published back to the rig.
package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/realtime"
	"github.com/projetogalileu/galileu/core/sensor"
)

const (
	connectTimeout = 10 * time.Second
	writeTimeout   = 5 * time.Second
)

// ReleaseTopic is where the rig listens for the release flag.
var ReleaseTopic = sensor.Path(sensor.KeyRelease)

var knownKeys = func() map[string]bool {
	keys := map[string]bool{sensor.KeyChart: true}
	for _, k := range sensor.ScalarKeys {
		keys[k] = true
	}
	return keys
}()

type Options struct {
	Broker   string
	ClientID string
	Topic    string
	Username string
	Password string
	QoS      byte
}

type Bridge struct {
	client paho.Client
	store  realtime.Store
	logger core.Logger
	topic  string
	qos    byte

	publish func(topic string, payload []byte) error

	mu          sync.Mutex
	unsubscribe func()
}

func NewBridge(opts Options, store realtime.Store, logger core.Logger) *Bridge {
	co := paho.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(opts.ClientID)
	if strings.HasPrefix(opts.Broker, "ssl://") || strings.HasPrefix(opts.Broker, "wss://") {
		co.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}
	co.SetAutoReconnect(true)
	co.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("mqtt connection lost", err)
	})
	co.SetReconnectingHandler(func(paho.Client, *paho.ClientOptions) {
		logger.Info("reconnecting to mqtt broker")
	})

	b := &Bridge{
		store:  store,
		logger: logger,
		topic:  opts.Topic,
		qos:    opts.QoS,
	}
	// resubscribe on every (re)connection
	co.SetOnConnectHandler(func(paho.Client) {
		if err := b.subscribe(); err != nil {
			logger.Error("subscribing to rig topics", err)
		}
	})
	b.client = paho.NewClient(co)
	b.publish = b.publishMQTT
	return b
}

// Start connects to the broker and mirrors the release flag to the rig.
func (b *Bridge) Start() error {
	token := b.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return errors.New("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return errors.Wrap(err, "connecting to mqtt broker")
	}
	b.WatchRelease()
	return nil
}

func (b *Bridge) subscribe() error {
	token := b.client.Subscribe(b.topic, b.qos, func(_ paho.Client, msg paho.Message) {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := b.HandleMessage(ctx, msg.Topic(), msg.Payload()); err != nil {
			b.logger.Warn("handling rig message", err, map[string]interface{}{"topic": msg.Topic()})
		}
	})
	token.Wait()
	return errors.Wrapf(token.Error(), "subscribing to %s", b.topic)
}

func (b *Bridge) publishMQTT(topic string, payload []byte) error {
	token := b.client.Publish(topic, b.qos, true, payload)
	token.Wait()
	return token.Error()
}

// WatchRelease publishes every change of the release flag to ReleaseTopic (retained).
func (b *Bridge) WatchRelease() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.unsubscribe != nil {
		return
	}
	b.unsubscribe = b.store.Subscribe(sensor.ReleasePath, func(v realtime.Value) {
		released, _ := v.Raw.(bool)
		payload := []byte("false")
		if released {
			payload = []byte("true")
		}
		if err := b.publish(ReleaseTopic, payload); err != nil {
			b.logger.Error("publishing release flag", err)
		}
	})
}

// HandleMessage writes a rig message to the store. The payload is either a bare value for the
// key named by the topic suffix (sensor/angulo -> 30.5) or a JSON object of keys published on
// the topic root. Unknown keys and non numeric values are ignored.
func (b *Bridge) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	segs := realtime.Split(topic)
	if len(segs) == 0 || segs[0] != sensor.Root {
		return nil
	}

	var raw interface{}
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(string(payload))))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		raw = strings.TrimSpace(string(payload)) // bare unquoted text
	}

	values := make(map[string]interface{})
	switch {
	case len(segs) == 2:
		b.collect(values, segs[1], raw)
	case len(segs) == 1:
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return errors.Errorf("payload on %s is not an object", topic)
		}
		for k, v := range obj {
			b.collect(values, k, v)
		}
	}
	if len(values) == 0 {
		return nil
	}
	return errors.Wrap(b.store.Update(ctx, sensor.Root, values), "writing rig values")
}

func (b *Bridge) collect(values map[string]interface{}, key string, raw interface{}) {
	if !knownKeys[key] {
		return // sensor/liberar is ours
	}
	if key == sensor.KeyChart {
		if points, ok := chartPoints(raw); ok {
			values[key] = points
		}
		return
	}
	if f, ok := realtime.ToFloat(raw); ok {
		values[key] = f
		return
	}
	b.logger.Debug("ignoring non numeric rig value", map[string]interface{}{"key": key, "value": raw})
}

func chartPoints(raw interface{}) ([]sensor.ChartPoint, bool) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, false
	}
	points := make([]sensor.ChartPoint, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, false
		}
		angle, ok1 := realtime.ToFloat(obj["angulo"])
		accel, ok2 := realtime.ToFloat(obj["aceleracao"])
		if !ok1 || !ok2 {
			return nil, false
		}
		points = append(points, sensor.ChartPoint{Angle: angle, Acceleration: accel})
	}
	return points, true
}

// Close stops mirroring the release flag and disconnects.
func (b *Bridge) Close() {
	b.mu.Lock()
	unsub := b.unsubscribe
	b.unsubscribe = nil
	b.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	if b.client.IsConnected() {
		b.client.Disconnect(250)
	}
}
