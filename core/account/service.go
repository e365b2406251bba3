// Package account holds the profile operations of the signed in user.
package account

import (
	"context"

	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/user"
)

// DeleteConfirmation must be typed verbatim to delete an account.
const DeleteConfirmation = "DELETAR"

var (
	ErrDeleteNotConfirmed      = errors.New(`Digite "DELETAR" para confirmar a exclusão da conta.`)
	ErrCurrentPasswordRequired = errors.New("Por favor, insira sua senha atual.")
	ErrPasswordTooShort        = errors.New("Nova senha deve ter pelo menos 6 caracteres.")
	ErrPasswordMismatch        = errors.New("As senhas não correspondem.")
	ErrWrongPassword           = errors.New("Senha atual incorreta.")
)

type (
	// UserSession resolves the user behind a request and ends its session.
	UserSession interface {
		Current(ctx context.Context) (user.User, error)
		Clear(ctx context.Context) error
	}

	Users interface {
		SetPassword(ctx context.Context, usr user.User, np user.NewPassword) (user.User, error)
		Delete(ctx context.Context, ids ...string) (int, error)
	}

	ChangePassword struct {
		Current string `json:"senhaAtual"`
		New     string `json:"novaSenha"`
		Confirm string `json:"confirmarSenha"`
	}

	Service struct {
		users   Users
		session UserSession
		logger  core.Logger
	}
)

func NewService(users Users, session UserSession, logger core.Logger) *Service {
	return &Service{users: users, session: session, logger: logger}
}

// Me returns the signed in user.
func (svc *Service) Me(ctx context.Context) (user.User, error) {
	return svc.session.Current(ctx)
}

// Logout ends the current session.
func (svc *Service) Logout(ctx context.Context) error {
	return errors.Wrap(svc.session.Clear(ctx), "clearing session")
}

// DeleteAccount removes the signed in user and ends the session. Anything but the exact
// confirmation word is refused.
func (svc *Service) DeleteAccount(ctx context.Context, confirm string) error {
	if confirm != DeleteConfirmation {
		return core.NewValidationError(ErrDeleteNotConfirmed, core.FieldError{Field: "confirmacao", Error: ErrDeleteNotConfirmed.Error()})
	}
	usr, err := svc.session.Current(ctx)
	if err != nil {
		return err
	}
	if _, err := svc.users.Delete(ctx, usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	if err := svc.session.Clear(ctx); err != nil {
		svc.logger.Warn("clearing session of deleted user", err, usr)
	}
	return nil
}

// ChangePassword checks the current password then stores the new one.
func (svc *Service) ChangePassword(ctx context.Context, cp ChangePassword) error {
	fieldErr := func(err error, field string) error {
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	switch {
	case cp.Current == "":
		return fieldErr(ErrCurrentPasswordRequired, "senhaAtual")
	case len([]rune(cp.New)) < user.PasswordMinLen:
		return fieldErr(ErrPasswordTooShort, "novaSenha")
	case cp.New != cp.Confirm:
		return fieldErr(ErrPasswordMismatch, "confirmarSenha")
	}

	usr, err := svc.session.Current(ctx)
	if err != nil {
		return err
	}
	if usr.CheckPassword(cp.Current) != nil {
		return fieldErr(ErrWrongPassword, "senhaAtual")
	}
	_, err = svc.users.SetPassword(ctx, usr, user.NewPassword{Password: cp.New, PasswordConfirm: cp.Confirm})
	return err
}
