package main

import (
	"context"

	"github.com/projetogalileu/galileu/core/user"
)

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd string) error {
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	_, err = cli.usrSvc.SetPassword(ctx, usr, user.NewPassword{Password: pwd, PasswordConfirm: pwd})
	return err
}
