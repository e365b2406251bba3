package quiz

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/question"
)

var newIDFunc = func() string { return uuid.New().String() } // mockable

type entry struct {
	quiz *Quiz
	stop chan struct{}
	done chan struct{}
}

// Manager keeps the running quizzes in memory and counts their timers down.
// Nothing is persisted: a restart drops every quiz.
type Manager struct {
	tick   time.Duration
	logger core.Logger

	mu      sync.Mutex
	quizzes map[string]*entry
	closed  bool
}

func NewManager(tick time.Duration, logger core.Logger) *Manager {
	if tick <= 0 {
		tick = time.Second
	}
	return &Manager{tick: tick, logger: logger, quizzes: make(map[string]*entry)}
}

// Start begins a quiz of studentID over the questions of a room.
func (m *Manager) Start(roomID, studentID string, questions []question.Question) (View, error) {
	q, err := New(newIDFunc(), roomID, studentID, questions)
	if err != nil {
		return View{}, err
	}

	e := &entry{quiz: q, stop: make(chan struct{}), done: make(chan struct{})}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return View{}, core.NewShutdownError("quiz manager closed")
	}
	m.quizzes[q.ID] = e
	m.mu.Unlock()

	go m.run(e)
	return q.View(), nil
}

func (m *Manager) run(e *entry) {
	defer close(e.done)
	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			if e.quiz.Tick() {
				m.logger.Debug("quiz question timed out", map[string]interface{}{"quiz": e.quiz.ID})
			}
		}
	}
}

// Get returns the quiz of studentID.
func (m *Manager) Get(id, studentID string) (*Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.quizzes[id]
	if !ok || e.quiz.StudentID != studentID {
		return nil, core.NewNotFoundError(ErrNotFound)
	}
	return e.quiz, nil
}

// Do applies action to the quiz of studentID and returns its new view.
func (m *Manager) Do(id, studentID string, action func(*Quiz) error) (View, error) {
	q, err := m.Get(id, studentID)
	if err != nil {
		return View{}, err
	}
	if err := action(q); err != nil {
		return View{}, err
	}
	return q.View(), nil
}

// Summary scores a quiz once it is no longer being answered.
func (m *Manager) Summary(id, studentID string) (Summary, error) {
	q, err := m.Get(id, studentID)
	if err != nil {
		return Summary{}, err
	}
	if q.State() == StateAnswering {
		return Summary{}, invalidMove()
	}
	return q.Summary(), nil
}

// Remove stops the timer of a quiz and forgets it.
func (m *Manager) Remove(id, studentID string) error {
	m.mu.Lock()
	e, ok := m.quizzes[id]
	if !ok || e.quiz.StudentID != studentID {
		m.mu.Unlock()
		return core.NewNotFoundError(ErrNotFound)
	}
	delete(m.quizzes, id)
	m.mu.Unlock()

	close(e.stop)
	<-e.done
	return nil
}

// Len returns the number of quizzes in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.quizzes)
}

// Close stops every quiz.
func (m *Manager) Close() {
	m.mu.Lock()
	quizzes := m.quizzes
	m.quizzes = make(map[string]*entry)
	m.closed = true
	m.mu.Unlock()

	for _, e := range quizzes {
		close(e.stop)
		<-e.done
	}
}
