// Package logsvc forwards the app logs to Rollbar on top of a std logger.
package logsvc

import (
	"log"
	"sync"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/user"
)

type RollbarLogger struct {
	std   *log.Logger
	debug bool

	// rollbar keeps the person globally
	personMu *sync.Mutex
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger reports to Rollbar outside debug mode. Debug messages are only printed in
// debug mode.
func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(!conf.Debug && conf.RollbarToken != "")
	return &RollbarLogger{std: std, debug: conf.Debug, personMu: &sync.Mutex{}}
}

// prepare moves the first user.User of args to the Rollbar person and merges the maps into one
// extras map. expected args: error, map[string]interface{}, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var (
		person *user.User
		extras map[string]interface{}
		err    error
	)
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			if person == nil {
				a := a
				person = &a
			}
		case map[string]interface{}:
			if extras == nil {
				extras = make(map[string]interface{}, len(a))
			}
			for k, v := range a {
				extras[k] = v
			}
		case error:
			if err == nil {
				err = a
			}
		}
	}

	if person != nil {
		rollbar.SetPerson(person.ID, person.DisplayName(), person.Email)
	} else {
		rollbar.ClearPerson()
	}

	out := []interface{}{msg}
	if err != nil {
		out = append(out, err)
	}
	if extras != nil {
		out = append(out, extras)
	}
	return out
}

func (l RollbarLogger) report(level string, msg string, args []interface{}) {
	l.personMu.Lock()
	defer l.personMu.Unlock()
	rollbar.Log(level, l.prepare(msg, args)...)
}

func (l RollbarLogger) print(level, msg string, args []interface{}) {
	l.std.Println(level + " " + msg)
	for _, arg := range args {
		if usr, ok := arg.(user.User); ok {
			l.std.Printf("user=%s\n", usr.ID)
			continue
		}
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.print("DEBUG", msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.report(rollbar.INFO, msg, args)
	l.print("INFO", msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.report(rollbar.WARN, msg, args)
	l.print("WARN", msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.report(rollbar.ERR, msg, args)
	l.print("ERROR", msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.CRIT, msg, args)
	rollbar.Wait()
	l.print("FATAL", msg, args)
	l.std.Fatal(msg)
}
