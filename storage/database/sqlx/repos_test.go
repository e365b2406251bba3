package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/classroom"
	"github.com/projetogalileu/galileu/core/user"
	"github.com/projetogalileu/galileu/storage/database"
	"github.com/projetogalileu/galileu/storage/database/sqlx"
)

func openDB(t *testing.T) *sqlxrepos.Repos {
	t.Helper()
	conf := &core.Config{}
	conf.Database.DSN = ":memory:"
	db, err := database.Open(conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return sqlxrepos.New(db)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := openDB(t).Users

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ana, err := repo.CreateUser(ctx, user.User{
		Name: "Ana", Username: "ana", Email: "ana@escola.br", IsActive: true,
		Roles: []string{user.RoleTeacher}, PasswordHash: []byte("hash"), CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	require.NotEmpty(t, ana.ID)

	assert.Equal(t, user.ErrUsernameExists, repo.CheckUsernameUniqueness(ctx, "ana", ""))
	assert.Equal(t, user.ErrEmailExists, repo.CheckUsernameUniqueness(ctx, "other", "ana@escola.br"))
	assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "ana", "ana@escola.br", ana))
	assert.NoError(t, repo.CheckUsernameUniqueness(ctx, "bia", "bia@escola.br"))

	got, err := repo.GetUser(ctx, user.GetFilter{UsernameOrEmail: "ana@escola.br"})
	require.NoError(t, err)
	assert.Equal(t, ana.ID, got.ID)
	assert.Equal(t, []string{user.RoleTeacher}, got.Roles)
	assert.True(t, got.CreatedAt.Equal(now))

	got.Name = "Ana Lima"
	got.LastLogin = now.Add(time.Hour)
	_, err = repo.UpdateUser(ctx, got)
	require.NoError(t, err)

	users, err := repo.QueryUsers(ctx, &user.QueryFilter{Search: "lima"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, users[0].LastLogin.Equal(now.Add(time.Hour)))

	_, err = repo.UpdateUser(ctx, user.User{ID: "missing"})
	assert.True(t, core.IsNotFound(err))

	n, err := repo.DeleteUsersByID(ctx, ana.ID, "missing")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = repo.GetUser(ctx, user.GetFilter{ID: ana.ID})
	assert.True(t, core.IsNotFound(err))
}

func TestRoomRepository(t *testing.T) {
	ctx := context.Background()
	repo := openDB(t).Rooms

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	room, err := repo.CreateRoom(ctx, classroom.Room{Name: "Turma A", Code: "ABC234", OwnerID: "prof-1", CreatedAt: now})
	require.NoError(t, err)
	assert.Empty(t, room.QuestionIDs)

	_, err = repo.CreateRoom(ctx, classroom.Room{Name: "Turma B", Code: "ABC234", OwnerID: "prof-1", CreatedAt: now})
	assert.Equal(t, classroom.ErrCodeExists, err)

	_, err = repo.SetRoomQuestions(ctx, room.ID, []string{"q2", "q1"})
	require.NoError(t, err)

	got, err := repo.GetRoom(ctx, classroom.GetFilter{Code: "ABC234"})
	require.NoError(t, err)
	assert.Equal(t, []string{"q2", "q1"}, got.QuestionIDs)
	assert.Equal(t, "prof-1", got.OwnerID)

	rooms, err := repo.QueryRooms(ctx, "prof-2")
	require.NoError(t, err)
	assert.Empty(t, rooms)

	require.NoError(t, repo.DeleteRoom(ctx, room.ID))
	assert.True(t, core.IsNotFound(repo.DeleteRoom(ctx, room.ID)))
	_, err = repo.GetRoom(ctx, classroom.GetFilter{ID: room.ID})
	assert.True(t, core.IsNotFound(err))
}
