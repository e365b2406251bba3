package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/projetogalileu/galileu/apps/api/echo"
	"github.com/projetogalileu/galileu/core/classroom"
	"github.com/projetogalileu/galileu/core/question"
	"github.com/projetogalileu/galileu/core/quiz"
	"github.com/projetogalileu/galileu/core/user"
	"github.com/projetogalileu/galileu/tests"
)

func Test_roomApi(t *testing.T) {
	env := setup(t)
	student := testutil.CreateUser(t, env.usrRepo, "Ana", "ana", "ana@escola.br", "", []string{user.RoleStudent}, true)
	prof := testutil.CreateUser(t, env.usrRepo, "Prof Carla", "carla", "carla@escola.br", "", []string{user.RoleTeacher}, true)
	other := testutil.CreateUser(t, env.usrRepo, "Prof Davi", "davi", "davi@escola.br", "", []string{user.RoleTeacher}, true)
	studentToken, profToken, otherToken := env.getToken(t, student), env.getToken(t, prof), env.getToken(t, other)

	// the owner's questions
	var questionIDs []string
	for _, statement := range []string{"Qual o valor de Px?", "Qual o valor de Py?"} {
		rec := env.do(http.MethodPost, "/v1/questions", profToken, marchallObj(t, newQuestion(statement)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var q question.Question
		unmarshal(t, rec, &q)
		questionIDs = append(questionIDs, q.ID)
	}

	runHTTPTests(t, env, []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/faq", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "FAQ", method: http.MethodGet, path: "/v1/faq", token: studentToken, wantCode: http.StatusOK, wantData: marchallObj(t, classroom.FAQ())},
		{
			name: "Teacher required", method: http.MethodPost, path: "/v1/rooms", token: studentToken,
			body: marchallObj(t, classroom.NewRoom{Name: "1º ano B"}), wantCode: http.StatusForbidden,
		},
		{
			name: "Blank name", method: http.MethodPost, path: "/v1/rooms", token: profToken,
			body: marchallObj(t, classroom.NewRoom{Name: "   "}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"nome": "this field cannot be blank"}),
		},
		{name: "Unknown code", method: http.MethodGet, path: "/v1/rooms/code/ZZZZZZ", token: studentToken, wantCode: http.StatusNotFound},
	})

	var room classroom.Room
	t.Run("create", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/rooms", profToken, marchallObj(t, classroom.NewRoom{Name: " 1º ano B "}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		unmarshal(t, rec, &room)
		assert.Equal(t, "1º ano B", room.Name)
		assert.Len(t, room.Code, 6)
		assert.Equal(t, prof.ID, room.OwnerID)
		assert.Empty(t, room.QuestionIDs)
	})

	t.Run("add questions", func(t *testing.T) {
		body := marchallObj(t, classroom.AddQuestions{IDs: questionIDs})
		rec := env.do(http.MethodPost, "/v1/rooms/"+room.ID+"/questions", otherToken, body)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: classroom.ErrNotOwner.Error()})}, rec)

		rec = env.do(http.MethodPost, "/v1/rooms/"+room.ID+"/questions", profToken, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		unmarshal(t, rec, &room)
		assert.Equal(t, questionIDs, room.QuestionIDs)

		// already there
		rec = env.do(http.MethodPost, "/v1/rooms/"+room.ID+"/questions", profToken, marchallObj(t, classroom.AddQuestions{IDs: questionIDs[:1]}))
		require.Equal(t, http.StatusOK, rec.Code)
		unmarshal(t, rec, &room)
		assert.Len(t, room.QuestionIDs, 2)
	})

	t.Run("retrieve", func(t *testing.T) {
		var got classroom.Room
		rec := env.do(http.MethodGet, "/v1/rooms/code/"+room.Code, studentToken)
		require.Equal(t, http.StatusOK, rec.Code)
		unmarshal(t, rec, &got)
		assert.Equal(t, room.ID, got.ID)

		rec = env.do(http.MethodGet, "/v1/rooms", profToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var rooms []classroom.Room
		unmarshal(t, rec, &rooms)
		assert.Len(t, rooms, 1)

		rec = env.do(http.MethodGet, "/v1/rooms", otherToken)
		unmarshal(t, rec, &rooms)
		assert.Empty(t, rooms)

		rec = env.do(http.MethodGet, "/v1/rooms/"+room.ID+"/questions", otherToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.do(http.MethodGet, "/v1/rooms/"+room.ID+"/questions", profToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var questions []question.Question
		unmarshal(t, rec, &questions)
		require.Len(t, questions, 2)
		assert.Equal(t, "A", questions[0].Correct)
	})

	t.Run("quiz", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/rooms/"+room.ID+"/quiz", studentToken)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var view quiz.View
		unmarshal(t, rec, &view)
		assert.Equal(t, quiz.StateAnswering, view.State)
		assert.Equal(t, 2, view.Total)
		assert.Empty(t, view.Question.Correct)
		base := "/v1/quiz/" + view.ID

		// quizzes are private
		rec = env.do(http.MethodGet, base, otherToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = env.do(http.MethodGet, base+"/summary", studentToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(http.MethodPost, base+"/select", studentToken, marchallObj(t, SelectRequest{Choice: "Z"}))
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"escolha": quiz.ErrInvalidInput.Error()})}, rec)

		rec = env.do(http.MethodPost, base+"/select", studentToken, marchallObj(t, SelectRequest{Choice: "A"}))
		require.Equal(t, http.StatusOK, rec.Code)
		unmarshal(t, rec, &view)
		assert.Equal(t, "A", view.Selected)

		rec = env.do(http.MethodPost, base+"/next", studentToken)
		require.Equal(t, http.StatusOK, rec.Code)
		unmarshal(t, rec, &view)
		assert.Equal(t, 1, view.Index)

		rec = env.do(http.MethodPost, base+"/select", studentToken, marchallObj(t, SelectRequest{Choice: "B"}))
		require.Equal(t, http.StatusOK, rec.Code)
		rec = env.do(http.MethodPost, base+"/next", studentToken)
		require.Equal(t, http.StatusOK, rec.Code)
		unmarshal(t, rec, &view)
		assert.Equal(t, quiz.StateFinished, view.State)

		rec = env.do(http.MethodGet, base+"/summary", studentToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var summary quiz.Summary
		unmarshal(t, rec, &summary)
		assert.Equal(t, 1, summary.Correct)
		assert.Equal(t, 2, summary.Total)

		rec = env.do(http.MethodPost, base+"/revisit", studentToken)
		require.Equal(t, http.StatusOK, rec.Code)
		unmarshal(t, rec, &view)
		assert.Equal(t, quiz.StateReviewing, view.State)
		assert.Equal(t, 1, view.Index)
		assert.Equal(t, "B", view.Selected)
		assert.Equal(t, "A", view.Question.Correct)

		rec = env.do(http.MethodDelete, base, studentToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = env.do(http.MethodGet, base, studentToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, 0, env.quizzes.Len())
	})

	t.Run("delete", func(t *testing.T) {
		rec := env.do(http.MethodDelete, "/v1/rooms/"+room.ID, otherToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.do(http.MethodDelete, "/v1/rooms/"+room.ID, profToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.do(http.MethodGet, "/v1/rooms/"+room.ID, profToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
