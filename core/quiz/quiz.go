// Package quiz runs the timed multiple choice sessions students answer in a room.
package quiz

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/question"
)

type State string

const (
	StateAnswering State = "answering"
	StateFinished  State = "finished"
	StateReviewing State = "reviewing"
)

var (
	ErrNotFound     = errors.New("quiz not found")
	ErrNoQuestions  = errors.New("the class room has no questions")
	ErrInvalidMove  = errors.New("action not allowed in the current quiz state")
	ErrInvalidInput = errors.New("choice must be one of A, B, C, D or E")
)

type (
	// Quiz is the in-memory state of one student answering the questions of a room.
	Quiz struct {
		ID        string
		RoomID    string
		StudentID string

		mu        sync.Mutex
		questions []question.Question
		answers   []string // recorded answer per question, "" when unanswered
		index     int
		state     State
		selected  string
		remaining int // seconds left on the current question, 0 when untimed
	}

	// QuestionView is a question as shown to the student. The correct choice and the
	// resolution stay hidden until the quiz is finished.
	QuestionView struct {
		ID           string                `json:"id"`
		Statement    string                `json:"enunciado"`
		Alternatives question.Alternatives `json:"alternativas"`
		Attachment   string                `json:"anexo,omitempty"`
		Time         int                   `json:"tempo"`
		Correct      string                `json:"alternativaCorreta,omitempty"`
		Resolution   string                `json:"resolucao,omitempty"`
	}

	View struct {
		ID        string       `json:"id"`
		RoomID    string       `json:"salaId"`
		State     State        `json:"estado"`
		Index     int          `json:"indice"`
		Total     int          `json:"total"`
		Question  QuestionView `json:"questao"`
		Selected  string       `json:"selecionada,omitempty"`
		Remaining *int         `json:"tempoRestante"`
	}

	SummaryItem struct {
		QuestionID string `json:"questaoId"`
		Statement  string `json:"enunciado"`
		Answer     string `json:"resposta"`
		Correct    string `json:"alternativaCorreta"`
		IsCorrect  bool   `json:"acertou"`
		Resolution string `json:"resolucao"`
	}

	Summary struct {
		Correct int           `json:"acertos"`
		Total   int           `json:"total"`
		Items   []SummaryItem `json:"questoes"`
	}
)

// New starts a quiz on the first question.
func New(id, roomID, studentID string, questions []question.Question) (*Quiz, error) {
	if len(questions) == 0 {
		return nil, core.NewValidationError(ErrNoQuestions)
	}
	q := &Quiz{
		ID:        id,
		RoomID:    roomID,
		StudentID: studentID,
		questions: append([]question.Question(nil), questions...),
		answers:   make([]string, len(questions)),
		state:     StateAnswering,
	}
	q.enter(0)
	return q, nil
}

func invalidMove() error { return core.NewValidationError(ErrInvalidMove) }

// enter moves to question i, restoring its recorded answer and restarting its timer.
func (q *Quiz) enter(i int) {
	q.index = i
	q.selected = q.answers[i]
	q.remaining = 0
	if q.state == StateAnswering && q.questions[i].Time > 0 {
		q.remaining = q.questions[i].Time
	}
}

// advance records the selected answer, if any, and moves on; past the last question the quiz
// is finished.
func (q *Quiz) advance() {
	if q.selected != "" {
		q.answers[q.index] = q.selected
	}
	q.selected = ""
	if q.index < len(q.questions)-1 {
		q.enter(q.index + 1)
		return
	}
	q.state = StateFinished
	q.remaining = 0
}

// Select picks a choice for the current question. Only while answering.
func (q *Quiz) Select(choice string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != StateAnswering {
		return invalidMove()
	}
	if !core.IsChoice(choice) {
		return core.NewValidationError(ErrInvalidInput, core.FieldError{Field: "escolha", Error: ErrInvalidInput.Error()})
	}
	q.selected = choice
	return nil
}

// Next records the selection and moves to the next question. While reviewing it only navigates.
func (q *Quiz) Next() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch q.state {
	case StateAnswering:
		q.advance()
	case StateReviewing:
		if q.index < len(q.questions)-1 {
			q.enter(q.index + 1)
		}
	default:
		return invalidMove()
	}
	return nil
}

// Previous goes back one question while answering.
func (q *Quiz) Previous() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != StateAnswering {
		return invalidMove()
	}
	if q.index > 0 {
		q.enter(q.index - 1)
	}
	return nil
}

// Tick counts one second down on a timed question. When the time is up the quiz advances,
// recording an answer only if one was selected. Returns whether it advanced.
func (q *Quiz) Tick() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != StateAnswering || q.remaining <= 0 {
		return false
	}
	q.remaining--
	if q.remaining > 0 {
		return false
	}
	q.advance()
	return true
}

// Revisit opens the finished quiz for an untimed, read-only review. The current question stays
// current.
func (q *Quiz) Revisit() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != StateFinished {
		return invalidMove()
	}
	q.state = StateReviewing
	q.enter(q.index)
	return nil
}

// FinishReview closes the review.
func (q *Quiz) FinishReview() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.state != StateReviewing {
		return invalidMove()
	}
	q.state = StateFinished
	q.selected = ""
	return nil
}

func (q *Quiz) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

func (q *Quiz) View() View {
	q.mu.Lock()
	defer q.mu.Unlock()

	cur := q.questions[q.index]
	qv := QuestionView{
		ID:           cur.ID,
		Statement:    cur.Statement,
		Alternatives: cur.Alternatives,
		Attachment:   cur.Attachment,
		Time:         cur.Time,
	}
	if q.state != StateAnswering {
		qv.Correct = cur.Correct
		qv.Resolution = cur.Resolution
	}

	v := View{
		ID:       q.ID,
		RoomID:   q.RoomID,
		State:    q.state,
		Index:    q.index,
		Total:    len(q.questions),
		Question: qv,
		Selected: q.selected,
	}
	if q.state == StateReviewing {
		v.Selected = q.answers[q.index]
	}
	if q.remaining > 0 {
		remaining := q.remaining
		v.Remaining = &remaining
	}
	return v
}

// Summary scores the recorded answers.
func (q *Quiz) Summary() Summary {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Summary{Total: len(q.questions), Items: make([]SummaryItem, 0, len(q.questions))}
	for i, cur := range q.questions {
		item := SummaryItem{
			QuestionID: cur.ID,
			Statement:  cur.Statement,
			Answer:     q.answers[i],
			Correct:    cur.Correct,
			IsCorrect:  q.answers[i] != "" && q.answers[i] == cur.Correct,
			Resolution: cur.Resolution,
		}
		if item.IsCorrect {
			s.Correct++
		}
		s.Items = append(s.Items, item)
	}
	return s
}
