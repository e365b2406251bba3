package gormdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/classroom"
	"github.com/projetogalileu/galileu/core/user"
	"github.com/projetogalileu/galileu/storage/database/gormdb"
)

func TestRepositories(t *testing.T) {
	ctx := context.Background()
	db, err := gormdb.Open("file::memory:?cache=shared", false)
	require.NoError(t, err)
	require.NoError(t, gormdb.Migrate(db))
	users := gormdb.NewUserRepository(db)
	rooms := gormdb.NewRoomRepository(db)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	bia, err := users.CreateUser(ctx, user.User{
		Name: "Bia", Email: "bia@escola.br", IsActive: true, Roles: []string{user.RoleStudent},
		PasswordHash: []byte("hash"), CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	assert.Equal(t, user.ErrEmailExists, users.CheckUsernameUniqueness(ctx, "", "bia@escola.br"))
	assert.NoError(t, users.CheckUsernameUniqueness(ctx, "", "bia@escola.br", bia))

	got, err := users.GetUser(ctx, user.GetFilter{Email: "bia@escola.br"})
	require.NoError(t, err)
	assert.Equal(t, []string{user.RoleStudent}, got.Roles)

	n, err := users.DeleteUsersByID(ctx, bia.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = users.GetUser(ctx, user.GetFilter{ID: bia.ID})
	assert.True(t, core.IsNotFound(err))

	room, err := rooms.CreateRoom(ctx, classroom.Room{Name: "Turma", Code: "XYZ789", OwnerID: "prof-1", CreatedAt: now})
	require.NoError(t, err)
	_, err = rooms.CreateRoom(ctx, classroom.Room{Name: "Outra", Code: "XYZ789", OwnerID: "prof-1", CreatedAt: now})
	assert.Equal(t, classroom.ErrCodeExists, err)

	_, err = rooms.SetRoomQuestions(ctx, room.ID, []string{"q1", "s1"})
	require.NoError(t, err)
	list, err := rooms.QueryRooms(ctx, "prof-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"q1", "s1"}, list[0].QuestionIDs)

	require.NoError(t, rooms.DeleteRoom(ctx, room.ID))
	assert.True(t, core.IsNotFound(rooms.DeleteRoom(ctx, room.ID)))
}
