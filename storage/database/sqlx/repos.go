// Package sqlxrepos implements the user and class room repositories with sqlx.
package sqlxrepos

import (
	"github.com/jmoiron/sqlx"

	"github.com/projetogalileu/galileu/core/classroom"
	"github.com/projetogalileu/galileu/core/user"
)

type Repos struct {
	Users user.Repository
	Rooms classroom.Repository
}

func New(db *sqlx.DB) *Repos {
	return &Repos{Users: NewUserRepository(db), Rooms: NewRoomRepository(db)}
}
