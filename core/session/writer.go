package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/realtime"
	"github.com/projetogalileu/galileu/core/sensor"
)

type (
	// HistorySink receives every snapshot written for a session (time-series storage).
	HistorySink interface {
		Name() string
		WriteSnapshot(ctx context.Context, snap Snapshot) error
	}

	// Snapshot is one periodic write of a running session.
	Snapshot struct {
		SessionID string
		UserName  string
		At        time.Time
		Data      sensor.Data
	}

	// Result is the outcome of one writer tick.
	Result struct {
		Snapshot Snapshot
		Err      error // error writing the session node
		// SinkErrs are per sink failures. Failed snapshots wait in the outbox for the next tick.
		SinkErrs map[string]error
		Retried  int // outbox entries delivered this tick
		Dropped  int // outbox entries discarded because it was full
	}

	// ErrorReporter is the single place write results end up.
	ErrorReporter interface {
		Report(Result)
	}
)

func (r Result) OK() bool { return r.Err == nil && len(r.SinkErrs) == 0 }

// LogReporter logs failed writes and drops them.
type LogReporter struct {
	Logger core.Logger
}

func (r LogReporter) Report(res Result) {
	if res.Err != nil {
		r.Logger.Error("writing simulation data", res.Err, map[string]interface{}{"session": res.Snapshot.SessionID})
	}
	for name, err := range res.SinkErrs {
		r.Logger.Warn("writing simulation history to "+name, err, map[string]interface{}{"session": res.Snapshot.SessionID})
	}
	if res.Dropped > 0 {
		r.Logger.Warn("simulation history outbox full", map[string]interface{}{"session": res.Snapshot.SessionID, "dropped": res.Dropped})
	}
}

type pendingWrite struct {
	sink string
	snap Snapshot
}

// Writer overwrites simulacoes/{id}/dados with the latest reading on a fixed interval and mirrors
// the chart series into simulacoes/{id}/grafico while the session runs.
type Writer struct {
	session  Session
	store    realtime.Store
	source   sensor.Source
	sinks    []HistorySink
	reporter ErrorReporter
	interval time.Duration

	mu         sync.Mutex
	outbox     []pendingWrite
	outboxSize int

	cancel     context.CancelFunc
	done       chan struct{}
	unsubChart func()
}

func newWriter(
	sess Session,
	store realtime.Store,
	source sensor.Source,
	sinks []HistorySink,
	reporter ErrorReporter,
	interval time.Duration,
	outboxSize int,
) *Writer {
	return &Writer{
		session:    sess,
		store:      store,
		source:     source,
		sinks:      sinks,
		reporter:   reporter,
		interval:   interval,
		outboxSize: outboxSize,
	}
}

// Start mirrors the chart and launches the periodic write loop.
func (w *Writer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.unsubChart = w.store.Subscribe(sensor.ChartPath, w.mirrorChart)

	// first write right away when the rig already has data
	if r := w.source.Snapshot(); r.Distance != nil && r.Angle != nil && r.Velocity != nil {
		w.reporter.Report(w.Flush(ctx))
	}

	go w.run(ctx)
}

// Stop ends the write loop and waits for it.
func (w *Writer) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.unsubChart()
	w.cancel = nil
}

func (w *Writer) run(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.reporter.Report(w.Flush(ctx))
		}
	}
}

// Flush writes the current reading once.
func (w *Writer) Flush(ctx context.Context) Result {
	snap := Snapshot{
		SessionID: w.session.ID,
		UserName:  w.session.UserName,
		At:        NowFunc().UTC(),
		Data:      w.source.Snapshot().Data(),
	}
	res := Result{Snapshot: snap}

	if err := w.store.Set(ctx, Path(w.session.ID, "dados"), snap.Data); err != nil {
		res.Err = errors.Wrap(err, "setting session data")
	}

	if len(w.sinks) == 0 {
		return res
	}

	w.mu.Lock()
	queue := w.outbox
	w.outbox = nil
	w.mu.Unlock()

	for _, sink := range w.sinks {
		queue = append(queue, pendingWrite{sink: sink.Name(), snap: snap})
	}

	var failed []pendingWrite
	for _, p := range queue {
		sink := w.sink(p.sink)
		if sink == nil {
			continue
		}
		if err := sink.WriteSnapshot(ctx, p.snap); err != nil {
			if res.SinkErrs == nil {
				res.SinkErrs = make(map[string]error)
			}
			res.SinkErrs[p.sink] = err
			failed = append(failed, p)
			continue
		}
		if !p.snap.At.Equal(snap.At) {
			res.Retried++
		}
	}

	if over := len(failed) - w.outboxSize; over > 0 {
		res.Dropped = over
		failed = failed[over:] // drop oldest
	}
	w.mu.Lock()
	w.outbox = failed
	w.mu.Unlock()
	return res
}

// Pending returns the number of snapshots waiting in the outbox.
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.outbox)
}

func (w *Writer) sink(name string) HistorySink {
	for _, s := range w.sinks {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func (w *Writer) mirrorChart(v realtime.Value) {
	if !v.Exists() {
		return
	}
	if _, ok := v.Raw.([]interface{}); !ok {
		return
	}
	err := w.store.Set(context.Background(), Path(w.session.ID, "grafico"), v.Raw)
	if err != nil {
		w.reporter.Report(Result{
			Snapshot: Snapshot{SessionID: w.session.ID, UserName: w.session.UserName, At: NowFunc().UTC()},
			Err:      errors.Wrap(err, "mirroring chart"),
		})
	}
}
