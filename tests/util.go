// Package testutil holds the fixtures shared by the API and CLI tests.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/user"
)

// Logger discards everything.
var Logger = core.NewStdLogger(log.New(io.Discard, "", 0))

// NewValidate returns a validator with every custom tag registered, and the translator holding its texts.
func NewValidate() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	if err := core.InitValidators(validate, translator); err != nil {
		panic(err)
	}
	if err := user.InitValidators(validate, translator); err != nil {
		panic(err)
	}
	return validate, translator
}

// NewConfig returns the TEST configuration without reading the environment.
func NewConfig() *core.Config {
	conf := &core.Config{
		AppName:   "Galileu",
		Env:       "TEST",
		TestMode:  true,
		SecretKey: "test-secret",
	}
	conf.Server.JWTExpirationDelta = time.Hour
	conf.Server.JWTRefreshExpirationDelta = 4 * time.Hour
	conf.Server.AllowedOrigins = []string{"*"}
	conf.Realtime.WriteInterval = time.Hour
	conf.Realtime.StreamPingInterval = time.Second
	conf.Realtime.QuizTickInterval = time.Hour
	return conf
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}
