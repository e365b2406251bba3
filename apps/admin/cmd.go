package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/projetogalileu/galileu/core/classroom"
	"github.com/projetogalileu/galileu/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")

	roleFlags = map[string]string{
		"student": user.RoleStudent,
		"teacher": user.RoleTeacher,
		"admin":   user.RoleAdmin,
	}
)

type commandLine struct {
	usrSvc  *user.Service
	roomSvc *classroom.Service
	migrate func(ctx context.Context) error
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate - create the missing tables")
	fmt.Fprintln(cli.out, "  adduser -name NAME -username USERNAME -email EMAIL -role student|teacher|admin - create a user")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  addroom -owner USERNAME|EMAIL -name NAME - create a class room and print its code")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserUname := addUserCmd.String("username", "", "The user's username. The password will be prompted next.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserRole := addUserCmd.String("role", "student", "One of student, teacher or admin.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	addRoomCmd := flag.NewFlagSet("addroom", flag.ContinueOnError)
	addRoomCmd.SetOutput(cli.out)
	addRoomOwner := addRoomCmd.String("owner", "", "The teacher's username or email.")
	addRoomName := addRoomCmd.String("name", "", "The class room name.")

	switch args[1] {
	case "migrate":
		return cli.migrate(ctx)

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		role, ok := roleFlags[*addUserRole]
		if *addUserName == "" || (*addUserUname == "" && *addUserEmail == "") || !ok {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(ctx, user.NewUser{
			Name:            *addUserName,
			Username:        *addUserUname,
			Email:           *addUserEmail,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           []string{role},
		})

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(ctx, *resetPasswordUname, pwd)

	case "addroom":
		if err := addRoomCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addRoomOwner == "" || *addRoomName == "" {
			addRoomCmd.Usage()
			return errHelp
		}
		return cli.addRoom(ctx, *addRoomOwner, *addRoomName)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	return string(pwd), err
}
