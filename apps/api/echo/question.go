package echoapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/question"
	"github.com/projetogalileu/galileu/core/user"
)

const (
	attachmentField  = "anexo"
	multipartPayload = "questao"
)

type (
	questionApi struct {
		svc   *question.Service
		users *user.Service
	}

	DestroyMultipleRequest struct {
		IDs []string `query:"id"`
	}
)

func registerQuestionAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *question.Service, users *user.Service) {
	api := questionApi{svc: svc, users: users}

	qg := g.Group("/questions", append(authed, teacherMiddleware())...)
	qg.POST("", api.create)
	qg.POST("/sensor", api.createFromSensor)
	qg.GET("", api.list)
	qg.GET("/:id", api.retrieve)
	qg.DELETE("", api.destroyMultiple)
}

func (api *questionApi) author(ctx echo.Context) (question.Author, error) {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return question.Author{}, err
	}
	return question.Author{ID: usr.ID, Name: userName(usr)}, nil
}

// create accepts either a JSON body or a multipart form holding the JSON in "questao" and the
// optional file in "anexo".
func (api *questionApi) create(ctx echo.Context) error {
	author, err := api.author(ctx)
	if err != nil {
		return err
	}

	var (
		data question.NewQuestion
		att  *question.Attachment
	)
	if strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		if err := json.Unmarshal([]byte(ctx.FormValue(multipartPayload)), &data); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: multipartPayload, Error: "invalid JSON"})
		}
		fh, err := ctx.FormFile(attachmentField)
		if err != nil && err != http.ErrMissingFile {
			return errors.Wrap(err, "reading attachment")
		}
		if fh != nil {
			f, err := fh.Open()
			if err != nil {
				return errors.Wrap(err, "opening attachment")
			}
			defer f.Close()
			att = &question.Attachment{Name: fh.Filename, ContentType: fh.Header.Get(echo.HeaderContentType), Body: f}
		}
	} else if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}

	q, err := api.svc.Create(ctx.Request().Context(), author, data, att)
	if err != nil {
		return errors.Wrap(err, "creating question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *questionApi) createFromSensor(ctx echo.Context) error {
	author, err := api.author(ctx)
	if err != nil {
		return err
	}
	var data question.NewSensorQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSensorQuestion")
	}

	q, err := api.svc.CreateFromSensor(ctx.Request().Context(), author, data)
	if err != nil {
		return errors.Wrap(err, "creating sensor question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *questionApi) list(ctx echo.Context) error {
	author, err := api.author(ctx)
	if err != nil {
		return err
	}
	questions, err := api.svc.ListByAuthor(ctx.Request().Context(), author.ID)
	if err != nil {
		return errors.Wrap(err, "listing questions")
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (api *questionApi) retrieve(ctx echo.Context) error {
	author, err := api.author(ctx)
	if err != nil {
		return err
	}
	q, err := api.svc.Get(ctx.Request().Context(), author.ID, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *questionApi) destroyMultiple(ctx echo.Context) error {
	author, err := api.author(ctx)
	if err != nil {
		return err
	}
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.Delete(ctx.Request().Context(), author.ID, query.IDs...); err != nil {
		return errors.Wrap(err, "deleting questions")
	}
	return ctx.NoContent(http.StatusNoContent)
}
