package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/classroom"
	"github.com/projetogalileu/galileu/core/quiz"
	"github.com/projetogalileu/galileu/core/user"
)

type (
	roomApi struct {
		svc     *classroom.Service
		quizzes *quiz.Manager
		users   *user.Service
	}

	SelectRequest struct {
		Choice string `json:"escolha"`
	}
)

func registerRoomAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *classroom.Service, quizzes *quiz.Manager, users *user.Service) {
	api := roomApi{svc: svc, quizzes: quizzes, users: users}
	teacher := teacherMiddleware()

	g.GET("/faq", api.faq, authed...)

	rg := g.Group("/rooms", authed...)
	rg.POST("", api.create, teacher)
	rg.GET("", api.list, teacher)
	rg.GET("/code/:code", api.retrieveByCode)
	rg.GET("/:id", api.retrieve)
	rg.DELETE("/:id", api.destroy, teacher)
	rg.POST("/:id/questions", api.addQuestions, teacher)
	rg.GET("/:id/questions", api.questions, teacher)
	rg.POST("/:id/quiz", api.startQuiz)

	qg := g.Group("/quiz", authed...)
	qg.GET("/:id", api.quiz)
	qg.DELETE("/:id", api.dropQuiz)
	qg.GET("/:id/summary", api.quizSummary)
	qg.POST("/:id/select", api.selectChoice)
	qg.POST("/:id/next", api.quizAction((*quiz.Quiz).Next))
	qg.POST("/:id/previous", api.quizAction((*quiz.Quiz).Previous))
	qg.POST("/:id/revisit", api.quizAction((*quiz.Quiz).Revisit))
	qg.POST("/:id/finish-review", api.quizAction((*quiz.Quiz).FinishReview))
}

func (api *roomApi) faq(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, classroom.FAQ())
}

func (api *roomApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	var data classroom.NewRoom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRoom")
	}

	room, err := api.svc.Create(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating room")
	}
	return ctx.JSON(http.StatusCreated, room)
}

func (api *roomApi) list(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	rooms, err := api.svc.ListByOwner(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "listing rooms")
	}
	if rooms == nil {
		rooms = []classroom.Room{}
	}
	return ctx.JSON(http.StatusOK, rooms)
}

func (api *roomApi) retrieve(ctx echo.Context) error {
	room, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, room)
}

func (api *roomApi) retrieveByCode(ctx echo.Context) error {
	room, err := api.svc.GetByCode(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, room)
}

func (api *roomApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id"), usr.ID); err != nil {
		return errors.Wrap(err, "deleting room")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *roomApi) addQuestions(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	var data classroom.AddQuestions
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AddQuestions")
	}

	room, err := api.svc.AddQuestions(ctx.Request().Context(), ctx.Param("id"), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "adding room questions")
	}
	return ctx.JSON(http.StatusOK, room)
}

// questions lists the resolved questions of a room, answers included. Owner only.
func (api *roomApi) questions(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	room, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if room.OwnerID != usr.ID {
		return core.NewPermissionError(classroom.ErrNotOwner)
	}

	questions, err := api.svc.Questions(ctx.Request().Context(), room)
	if err != nil {
		return errors.Wrap(err, "resolving room questions")
	}
	return ctx.JSON(http.StatusOK, questions)
}

// Quiz

func (api *roomApi) startQuiz(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	room, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	questions, err := api.svc.Questions(ctx.Request().Context(), room)
	if err != nil {
		return errors.Wrap(err, "resolving room questions")
	}

	view, err := api.quizzes.Start(room.ID, usr.ID, questions)
	if err != nil {
		return errors.Wrap(err, "starting quiz")
	}
	return ctx.JSON(http.StatusCreated, view)
}

func (api *roomApi) quiz(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	q, err := api.quizzes.Get(ctx.Param("id"), usr.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, q.View())
}

func (api *roomApi) quizSummary(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	summary, err := api.quizzes.Summary(ctx.Param("id"), usr.ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *roomApi) dropQuiz(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	if err := api.quizzes.Remove(ctx.Param("id"), usr.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *roomApi) selectChoice(ctx echo.Context) error {
	var data SelectRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SelectRequest")
	}
	return api.quizAction(func(q *quiz.Quiz) error { return q.Select(data.Choice) })(ctx)
}

func (api *roomApi) quizAction(action func(*quiz.Quiz) error) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, err := getContextUser(ctx, api.users)
		if err != nil {
			return err
		}
		view, err := api.quizzes.Do(ctx.Param("id"), usr.ID, action)
		if err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, view)
	}
}
