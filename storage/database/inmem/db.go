package inmemdb

import (
	"sync"

	"github.com/projetogalileu/galileu/core/classroom"
	"github.com/projetogalileu/galileu/core/user"
)

type (
	DB struct {
		user *userTable
		room *roomTable
	}

	userTable struct {
		table map[string]*user.User
		mutex sync.RWMutex
	}

	roomTable struct {
		table map[string]*classroom.Room
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
		room: &roomTable{table: make(map[string]*classroom.Room)},
	}
}
