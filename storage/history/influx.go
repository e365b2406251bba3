// Package history keeps every snapshot written for a simulation session in a time-series store.
package history

import (
	"context"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core/session"
)

type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxSink writes one point per snapshot, tagged with the session and the student.
type InfluxSink struct {
	client      influxdb2.Client
	writer      pointWriter
	measurement string
}

var _ session.HistorySink = (*InfluxSink)(nil)

func NewInfluxSink(url, token, org, bucket, measurement string) *InfluxSink {
	client := influxdb2.NewClient(url, token)
	return &InfluxSink{
		client:      client,
		writer:      client.WriteAPIBlocking(org, bucket),
		measurement: measurement,
	}
}

func (s *InfluxSink) Name() string { return "influx" }

func (s *InfluxSink) WriteSnapshot(ctx context.Context, snap session.Snapshot) error {
	fields := make(map[string]interface{}, 11)
	for k, v := range snap.Data.Fields() {
		if v != nil {
			fields[k] = *v
		}
	}
	p := influxdb2.NewPoint(
		s.measurement,
		map[string]string{"session_id": snap.SessionID, "user_name": snap.UserName},
		fields,
		snap.At,
	)
	return errors.Wrap(s.writer.WritePoint(ctx, p), "writing influx point")
}

func (s *InfluxSink) Close() {
	if s.client != nil {
		s.client.Close()
	}
}
