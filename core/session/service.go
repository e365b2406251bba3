// Package session records the timed runs of the rig: a session is created when a student starts
// the experiment, receives a snapshot of the readings every few seconds and is closed on stop.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/realtime"
	"github.com/projetogalileu/galileu/core/sensor"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound       = errors.New("simulation not found")
	ErrNotRunning     = errors.New("simulation is not running")
	ErrMalformed      = errors.New("malformed simulation record")
	errUserNameNeeded = errors.New("a user name is required to start a simulation")
)

type (
	Options struct {
		WriteInterval time.Duration
		OutboxSize    int
	}

	Service struct {
		store    realtime.Store
		source   sensor.Source
		sinks    []HistorySink
		reporter ErrorReporter
		validate *validator.Validate
		logger   core.Logger
		opts     Options

		mu     sync.Mutex
		active map[string]*Writer
	}
)

func NewService(
	store realtime.Store,
	source sensor.Source,
	reporter ErrorReporter,
	validate *validator.Validate,
	logger core.Logger,
	opts Options,
	sinks ...HistorySink,
) *Service {
	if opts.WriteInterval <= 0 {
		opts.WriteInterval = 5 * time.Second
	}
	return &Service{
		store:    store,
		source:   source,
		sinks:    sinks,
		reporter: reporter,
		validate: validate,
		logger:   logger,
		opts:     opts,
		active:   make(map[string]*Writer),
	}
}

// Start creates a session for userName, releases the rig and starts the periodic writer.
// The session record and the release flag are written in a single atomic update so a session
// is never visible without the rig being released.
func (svc *Service) Start(ctx context.Context, userName string) (Session, error) {
	userName = core.CleanString(userName)
	if userName == "" {
		return Session{}, core.NewValidationError(errUserNameNeeded)
	}

	sess := Session{
		ID:        svc.store.NewKey(),
		UserName:  userName,
		Timestamp: NowFunc().UTC(),
		Status:    StatusStarted,
		Data:      sensor.ZeroData(),
	}
	err := svc.store.Update(ctx, "", map[string]interface{}{
		Path(sess.ID):      sess.record(),
		sensor.ReleasePath: true,
	})
	if err != nil {
		return Session{}, errors.Wrap(err, "creating session")
	}

	if err := svc.ensureChart(ctx); err != nil {
		svc.logger.Error("generating chart series", err)
	}

	w := newWriter(sess, svc.store, svc.source, svc.sinks, svc.reporter, svc.opts.WriteInterval, svc.opts.OutboxSize)
	svc.mu.Lock()
	svc.active[sess.ID] = w
	svc.mu.Unlock()
	w.Start()

	return sess, nil
}

// ensureChart writes the theoretical a(θ) series when the rig has not provided one.
func (svc *Service) ensureChart(ctx context.Context) error {
	v, err := svc.store.Get(ctx, sensor.ChartPath)
	if err != nil {
		return errors.Wrap(err, "reading chart series")
	}
	if points, ok := v.Raw.([]interface{}); ok && len(points) > 0 {
		return nil
	}
	return errors.Wrap(svc.store.Set(ctx, sensor.ChartPath, sensor.DefaultChart()), "setting chart series")
}

// Stop locks the rig then marks the session as finished.
func (svc *Service) Stop(ctx context.Context, id string) (Session, error) {
	sess, err := svc.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if !sess.IsRunning() {
		return Session{}, core.NewValidationError(ErrNotRunning)
	}

	svc.stopWriter(id)

	if err := svc.store.Set(ctx, sensor.ReleasePath, false); err != nil {
		return Session{}, errors.Wrap(err, "locking rig")
	}
	if err := svc.store.Update(ctx, Path(id), map[string]interface{}{"status": StatusFinished}); err != nil {
		return Session{}, errors.Wrap(err, "finishing session")
	}
	sess.Status = StatusFinished
	return sess, nil
}

// Get returns the session, validated.
func (svc *Service) Get(ctx context.Context, id string) (Session, error) {
	if id == "" || realtime.ValidatePath(id) != nil {
		return Session{}, core.NewNotFoundError(ErrNotFound)
	}
	v, err := svc.store.Get(ctx, Path(id))
	if err != nil {
		return Session{}, errors.Wrap(err, "getting session")
	}
	if !v.Exists() {
		return Session{}, core.NewNotFoundError(ErrNotFound)
	}
	return svc.decode(v)
}

// Owner returns the userName of a session record, read from the raw record so malformed
// sessions still have one. It is empty when the record carries none.
func (svc *Service) Owner(ctx context.Context, id string) (string, error) {
	if id == "" || realtime.ValidatePath(id) != nil {
		return "", core.NewNotFoundError(ErrNotFound)
	}
	v, err := svc.store.Get(ctx, Path(id))
	if err != nil {
		return "", errors.Wrap(err, "getting session")
	}
	if !v.Exists() {
		return "", core.NewNotFoundError(ErrNotFound)
	}
	name, _ := v.Children()["userName"].Raw.(string)
	return name, nil
}

// ListByStudent returns the sessions of userName, newest first. Malformed records are skipped.
func (svc *Service) ListByStudent(ctx context.Context, userName string) ([]Session, error) {
	v, err := svc.store.Get(ctx, Root)
	if err != nil {
		return nil, errors.Wrap(err, "listing sessions")
	}

	sessions := make([]Session, 0)
	for _, child := range v.Children() {
		sess, err := svc.decode(child)
		if err != nil {
			svc.logger.Warn("skipping simulation record", err)
			continue
		}
		if sess.UserName == userName {
			sessions = append(sessions, sess)
		}
	}
	SortNewestFirst(sessions)
	return sessions, nil
}

// Delete removes a session, stopping it first when it is still running.
func (svc *Service) Delete(ctx context.Context, id string) error {
	sess, err := svc.Get(ctx, id)
	if err != nil && errors.Cause(err) != ErrMalformed {
		return err
	}
	if err == nil && sess.IsRunning() {
		if _, err := svc.Stop(ctx, id); err != nil {
			return errors.Wrap(err, "stopping session")
		}
	}
	svc.stopWriter(id)
	return errors.Wrap(svc.store.Remove(ctx, Path(id)), "removing session")
}

// Compare returns two sessions of the same student side by side.
func (svc *Service) Compare(ctx context.Context, idA, idB string) (Comparison, error) {
	a, err := svc.Get(ctx, idA)
	if err != nil {
		return Comparison{}, err
	}
	b, err := svc.Get(ctx, idB)
	if err != nil {
		return Comparison{}, err
	}
	return Compare(a, b), nil
}

// Writer returns the writer of a running session started by this instance.
func (svc *Service) Writer(id string) (*Writer, bool) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	w, ok := svc.active[id]
	return w, ok
}

// Close stops every writer. Sessions stay "iniciada" so another instance may stop them.
func (svc *Service) Close() {
	svc.mu.Lock()
	writers := svc.active
	svc.active = make(map[string]*Writer)
	svc.mu.Unlock()

	for _, w := range writers {
		w.Stop()
	}
}

func (svc *Service) stopWriter(id string) {
	svc.mu.Lock()
	w, ok := svc.active[id]
	delete(svc.active, id)
	svc.mu.Unlock()
	if ok {
		w.Stop()
	}
}

func (svc *Service) decode(v realtime.Value) (Session, error) {
	var sess Session
	if err := v.Decode(&sess); err != nil {
		return Session{}, errors.Wrap(ErrMalformed, err.Error())
	}
	sess.ID = v.Key()
	if err := svc.validate.Struct(sess); err != nil {
		return Session{}, errors.Wrapf(ErrMalformed, "%s: %v", v.Path, err)
	}
	return sess, nil
}
