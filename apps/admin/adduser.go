package main

import (
	"context"
	"fmt"

	"github.com/projetogalileu/galileu/core/user"
)

// addUser creates an active user.User.
func (cli *commandLine) addUser(ctx context.Context, nu user.NewUser) error {
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %q created with roles %v\n", usr.Name, usr.Roles)
	return nil
}
