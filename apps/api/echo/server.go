// Package echoapi is the HTTP API of the lab: authentication, the live rig readings, simulation
// sessions, questions, class rooms and quizzes.
package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/account"
	"github.com/projetogalileu/galileu/core/classroom"
	"github.com/projetogalileu/galileu/core/question"
	"github.com/projetogalileu/galileu/core/quiz"
	"github.com/projetogalileu/galileu/core/sensor"
	"github.com/projetogalileu/galileu/core/session"
	"github.com/projetogalileu/galileu/core/user"
	"github.com/projetogalileu/galileu/storage/cache"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool

		// Denylist defaults to an in-memory one.
		Denylist Denylist
		// UploadsDir is served under /uploads when set.
		UploadsDir string

		UserSvc     *user.Service
		Sensor      *sensor.Reader
		SessionSvc  *session.Service
		QuestionSvc *question.Service
		RoomSvc     *classroom.Service
		Quizzes     *quiz.Manager
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	if deps.Denylist == nil {
		deps.Denylist = cache.NewMemoryDenylist()
	}
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(corsMiddleware(conf.Server.AllowedOrigins))
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)
	if s.deps.UploadsDir != "" {
		s.app.Static("/uploads", s.deps.UploadsDir)
	}

	v1 := s.app.Group("/v1")
	jwtCfg := newJWTConfig(conf, "header:"+echo.HeaderAuthorization)
	authed := []echo.MiddlewareFunc{middleware.JWTWithConfig(jwtCfg), sessionMiddleware(s.deps.Denylist)}

	// browsers cannot set headers on websocket requests
	wsCfg := newJWTConfig(conf, "query:token")
	wsAuthed := []echo.MiddlewareFunc{middleware.JWTWithConfig(wsCfg), sessionMiddleware(s.deps.Denylist)}

	registerUserAPI(v1, authed, conf, s.deps.UserSvc, s.deps.Validate)
	registerSensorAPI(v1, authed, wsAuthed, s.deps.Sensor, conf.Realtime.StreamPingInterval, s.deps.Logger)
	registerSessionAPI(v1, authed, s.deps.SessionSvc, s.deps.UserSvc)
	registerQuestionAPI(v1, authed, s.deps.QuestionSvc, s.deps.UserSvc)
	registerRoomAPI(v1, authed, s.deps.RoomSvc, s.deps.Quizzes, s.deps.UserSvc)
	registerAccountAPI(v1, authed, account.NewService(
		s.deps.UserSvc,
		tokenSession{users: s.deps.UserSvc, denylist: s.deps.Denylist},
		s.deps.Logger,
	))
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Bem-vindo à API do Projeto Galileu!")
}
