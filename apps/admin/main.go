package main

import (
	"log"
	"os"

	"github.com/projetogalileu/galileu/apps/shared"
	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/classroom"
	"github.com/projetogalileu/galileu/core/question"
	"github.com/projetogalileu/galileu/core/user"
	memstore "github.com/projetogalileu/galileu/storage/realtime/memory"
)

func main() {
	conf := core.NewConfig()
	logger := core.NewStdLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile))

	// set up DB
	db, err := shared.OpenDB(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()

	validate, _, err := shared.NewValidator()
	if err != nil {
		logger.Fatal("setting up validator", err)
	}

	// room questions are only resolved by the api
	questions := question.NewService(memstore.New(), nil, nil, validate, logger)

	// start CLI
	cli := commandLine{
		usrSvc:  user.NewService(db.Users, validate),
		roomSvc: classroom.NewService(db.Rooms, questions, validate, logger),
		migrate: db.Migrate,
		out:     os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}
