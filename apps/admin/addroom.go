package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core/classroom"
)

var errNotTeacher = errors.New("only teachers can own a class room")

// addRoom creates a class room for a teacher and prints its join code.
func (cli *commandLine) addRoom(ctx context.Context, owner, name string) error {
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, owner)
	if err != nil {
		return err
	}
	if !usr.IsTeacher() && !usr.IsAdmin() {
		return errNotTeacher
	}
	room, err := cli.roomSvc.Create(ctx, usr.ID, classroom.NewRoom{Name: name})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "class room %q created, code: %s\n", room.Name, room.Code)
	return nil
}
