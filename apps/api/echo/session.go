package echoapi

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/sensor"
	"github.com/projetogalileu/galileu/core/session"
	"github.com/projetogalileu/galileu/core/user"
	"github.com/projetogalileu/galileu/services/render"
)

type sessionApi struct {
	svc   *session.Service
	users *user.Service
}

func registerSessionAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *session.Service, users *user.Service) {
	api := sessionApi{svc: svc, users: users}

	sg := g.Group("/sessions", authed...)
	sg.POST("", api.start)
	sg.GET("", api.list)
	sg.GET("/compare", api.compare)
	sg.GET("/:id", api.retrieve)
	sg.POST("/:id/stop", api.stop)
	sg.DELETE("/:id", api.destroy)
	sg.GET("/:id/chart.png", api.chartPNG)
}

// userName is the name a user signs sessions and questions with.
func userName(usr user.User) string {
	if usr.Name != "" {
		return usr.Name
	}
	return usr.Username
}

// object returns the session :id if the context user may see it. Teachers see every session.
func (api *sessionApi) object(ctx echo.Context, id string) (session.Session, error) {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return session.Session{}, err
	}
	sess, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return session.Session{}, err
	}
	if !canAccess(usr, sess.UserName) {
		return session.Session{}, core.NewNotFoundError(session.ErrNotFound)
	}
	return sess, nil
}

// canAccess hides other students' sessions from students.
func canAccess(usr user.User, owner string) bool {
	return owner == userName(usr) || usr.IsTeacher() || usr.IsAdmin()
}

func (api *sessionApi) start(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	sess, err := api.svc.Start(ctx.Request().Context(), userName(usr))
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *sessionApi) stop(ctx echo.Context) error {
	if _, err := api.object(ctx, ctx.Param("id")); err != nil {
		return err
	}
	sess, err := api.svc.Stop(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "stopping session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

// list returns the sessions of the context user, newest first unless ?ordering= says otherwise.
// Teachers may ask for a student with ?aluno=.
func (api *sessionApi) list(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	name := userName(usr)
	if student := ctx.QueryParam("aluno"); student != "" && (usr.IsTeacher() || usr.IsAdmin()) {
		name = student
	}
	sessions, err := api.svc.ListByStudent(ctx.Request().Context(), name)
	if err != nil {
		return errors.Wrap(err, "listing sessions")
	}
	ord := new(Ordering)
	ord.Bind(ctx)
	if err := ord.SortSessions(sessions); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *sessionApi) retrieve(ctx echo.Context) error {
	sess, err := api.object(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *sessionApi) destroy(ctx echo.Context) error {
	id := ctx.Param("id")
	_, err := api.object(ctx, id)
	if errors.Cause(err) == session.ErrMalformed {
		// malformed records can still be deleted, by their owner
		err = api.checkOwner(ctx, id)
	}
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) checkOwner(ctx echo.Context, id string) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return err
	}
	owner, err := api.svc.Owner(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	if !canAccess(usr, owner) {
		return core.NewNotFoundError(session.ErrNotFound)
	}
	return nil
}

func (api *sessionApi) compare(ctx echo.Context) error {
	a, b := ctx.QueryParam("a"), ctx.QueryParam("b")
	if a == "" || b == "" {
		return core.NewValidationError(nil,
			core.FieldError{Field: "a", Error: "this field is required"},
			core.FieldError{Field: "b", Error: "this field is required"},
		)
	}
	for _, id := range []string{a, b} {
		if _, err := api.object(ctx, id); err != nil {
			return err
		}
	}
	cmp, err := api.svc.Compare(ctx.Request().Context(), a, b)
	if err != nil {
		return errors.Wrap(err, "comparing sessions")
	}
	return ctx.JSON(http.StatusOK, cmp)
}

func (api *sessionApi) chartPNG(ctx echo.Context) error {
	sess, err := api.object(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	points := sess.Chart
	if len(points) == 0 {
		points = sensor.DefaultChart()
	}

	var current *sensor.ChartPoint
	if sess.Data.Angle != nil && sess.Data.Acceleration != nil {
		current = &sensor.ChartPoint{Angle: *sess.Data.Angle, Acceleration: *sess.Data.Acceleration}
	}
	var buf bytes.Buffer
	if err := render.Chart(&buf, "Simulação de "+sess.UserName, points, current); err != nil {
		return errors.Wrap(err, "rendering chart")
	}
	return ctx.Blob(http.StatusOK, "image/png", buf.Bytes())
}
