package quiz

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/question"
)

var logger = core.NewStdLogger(log.New(io.Discard, "", 0))

func questions() []question.Question {
	alts := question.Alternatives{A: "1", B: "2", C: "3", D: "4", E: "5"}
	return []question.Question{
		{ID: "q1", Statement: "um", Alternatives: alts, Correct: "A", Time: 3, Resolution: "r1"},
		{ID: "q2", Statement: "dois", Alternatives: alts, Correct: "B", Time: 2, Resolution: "r2"},
		{ID: "q3", Statement: "três", Alternatives: alts, Correct: "C", Resolution: "r3"}, // untimed
	}
}

func assertInvalidMove(t *testing.T, err error) {
	t.Helper()
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "got %T", err)
	assert.Equal(t, ErrInvalidMove, vErr.Err)
}

func TestNew(t *testing.T) {
	_, err := New("id", "room", "ana", nil)
	assert.Error(t, err)

	q, err := New("id", "room", "ana", questions())
	require.NoError(t, err)
	v := q.View()
	assert.Equal(t, StateAnswering, v.State)
	assert.Equal(t, 0, v.Index)
	assert.Equal(t, 3, v.Total)
	require.NotNil(t, v.Remaining)
	assert.Equal(t, 3, *v.Remaining)
	// answers hidden while answering
	assert.Empty(t, v.Question.Correct)
	assert.Empty(t, v.Question.Resolution)
}

func TestQuiz_AnswerAndFinish(t *testing.T) {
	q, _ := New("id", "room", "ana", questions())

	assert.Error(t, q.Select("F"))
	require.NoError(t, q.Select("A"))
	require.NoError(t, q.Next())
	assert.Equal(t, 1, q.View().Index)

	// back to the first: the recorded answer is restored and the timer restarted
	require.NoError(t, q.Previous())
	v := q.View()
	assert.Equal(t, "A", v.Selected)
	assert.Equal(t, 3, *v.Remaining)
	require.NoError(t, q.Next())

	require.NoError(t, q.Select("D"))
	require.NoError(t, q.Next())

	v = q.View()
	assert.Equal(t, 2, v.Index)
	assert.Nil(t, v.Remaining) // untimed
	assert.False(t, q.Tick())

	require.NoError(t, q.Select("C"))
	require.NoError(t, q.Next())
	assert.Equal(t, StateFinished, q.State())

	assertInvalidMove(t, q.Select("A"))
	assertInvalidMove(t, q.Next())
	assertInvalidMove(t, q.Previous())
	assertInvalidMove(t, q.FinishReview())

	s := q.Summary()
	assert.Equal(t, 2, s.Correct)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, "D", s.Items[1].Answer)
	assert.False(t, s.Items[1].IsCorrect)
}

func TestQuiz_TimeoutWithoutAnswer(t *testing.T) {
	q, _ := New("id", "room", "ana", questions())

	assert.False(t, q.Tick())
	assert.False(t, q.Tick())
	assert.True(t, q.Tick())

	v := q.View()
	assert.Equal(t, 1, v.Index)
	assert.Equal(t, 2, *v.Remaining)
	assert.Equal(t, "", q.Summary().Items[0].Answer)

	// a selection made before the timeout is kept
	require.NoError(t, q.Select("B"))
	q.Tick()
	assert.True(t, q.Tick())
	assert.Equal(t, "B", q.Summary().Items[1].Answer)
}

func TestQuiz_Review(t *testing.T) {
	q, _ := New("id", "room", "ana", questions())
	assertInvalidMove(t, q.Revisit())

	require.NoError(t, q.Select("A"))
	require.NoError(t, q.Next())
	require.NoError(t, q.Next())
	require.NoError(t, q.Select("C"))
	require.NoError(t, q.Next())
	require.Equal(t, StateFinished, q.State())

	require.NoError(t, q.Revisit())
	v := q.View()
	assert.Equal(t, StateReviewing, v.State)
	assert.Equal(t, 2, v.Index, "review starts where the quiz ended")
	assert.Nil(t, v.Remaining)
	assert.Equal(t, "C", v.Selected)
	assert.Equal(t, "C", v.Question.Correct)
	assert.Equal(t, "r3", v.Question.Resolution)

	// immutable, untimed, forward navigation only
	assertInvalidMove(t, q.Select("B"))
	assertInvalidMove(t, q.Previous())
	assert.False(t, q.Tick())
	require.NoError(t, q.Next())
	assert.Equal(t, 2, q.View().Index)
	assert.Equal(t, StateReviewing, q.State())

	require.NoError(t, q.FinishReview())
	assert.Equal(t, StateFinished, q.State())
	assert.Equal(t, 2, q.Summary().Correct)

	// a second review keeps the index too
	require.NoError(t, q.Revisit())
	assert.Equal(t, 2, q.View().Index)
}

func TestManager(t *testing.T) {
	m := NewManager(5*time.Millisecond, logger)
	defer m.Close()

	qs := questions()
	qs[0].Time = 1
	qs[1].Time = 0
	v, err := m.Start("room", "ana", qs)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	_, err = m.Get(v.ID, "bia")
	assert.True(t, core.IsNotFound(err))

	// the ticker times the first question out
	assert.Eventually(t, func() bool {
		q, _ := m.Get(v.ID, "ana")
		return q.View().Index == 1
	}, time.Second, 5*time.Millisecond)

	_, err = m.Summary(v.ID, "ana")
	assertInvalidMove(t, err)

	got, err := m.Do(v.ID, "ana", func(q *Quiz) error { return q.Select("B") })
	require.NoError(t, err)
	assert.Equal(t, "B", got.Selected)

	require.NoError(t, m.Remove(v.ID, "ana"))
	assert.Equal(t, 0, m.Len())
	assert.True(t, core.IsNotFound(m.Remove(v.ID, "ana")))
}

func TestManager_Close(t *testing.T) {
	m := NewManager(time.Hour, logger)
	_, err := m.Start("room", "ana", questions())
	require.NoError(t, err)

	m.Close()
	assert.Equal(t, 0, m.Len())
	_, err = m.Start("room", "ana", questions())
	assert.True(t, core.IsShutdown(err))
}
