package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/classroom"
)

type roomRepository struct {
	db *roomTable
}

var _ classroom.Repository = (*roomRepository)(nil) // interface compliance check

func NewRoomRepository(db *DB) *roomRepository {
	return &roomRepository{db: db.room}
}

func copyRoom(room classroom.Room) classroom.Room {
	room.QuestionIDs = append([]string{}, room.QuestionIDs...)
	return room
}

func (repo *roomRepository) CreateRoom(_ context.Context, room classroom.Room) (classroom.Room, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, r := range repo.db.table {
		if r.Code == room.Code {
			return classroom.Room{}, classroom.ErrCodeExists
		}
	}
	room.ID = uuid.New().String()
	stored := copyRoom(room)
	repo.db.table[room.ID] = &stored
	return copyRoom(room), nil
}

func (repo *roomRepository) GetRoom(_ context.Context, filter classroom.GetFilter) (classroom.Room, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != "" {
		if room, ok := repo.db.table[filter.ID]; ok {
			return copyRoom(*room), nil
		}
		return classroom.Room{}, core.NewNotFoundError(classroom.ErrNotFound)
	}
	if filter.Code != "" {
		for _, room := range repo.db.table {
			if room.Code == filter.Code {
				return copyRoom(*room), nil
			}
		}
	}
	return classroom.Room{}, core.NewNotFoundError(classroom.ErrNotFound)
}

func (repo *roomRepository) QueryRooms(_ context.Context, ownerID string) ([]classroom.Room, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rooms := make([]classroom.Room, 0)
	for _, room := range repo.db.table {
		if ownerID == "" || room.OwnerID == ownerID {
			rooms = append(rooms, copyRoom(*room))
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].CreatedAt.After(rooms[j].CreatedAt) })
	return rooms, nil
}

func (repo *roomRepository) SetRoomQuestions(_ context.Context, id string, questionIDs []string) (classroom.Room, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	room, ok := repo.db.table[id]
	if !ok {
		return classroom.Room{}, core.NewNotFoundError(classroom.ErrNotFound)
	}
	room.QuestionIDs = append([]string{}, questionIDs...)
	return copyRoom(*room), nil
}

func (repo *roomRepository) DeleteRoom(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return core.NewNotFoundError(classroom.ErrNotFound)
	}
	delete(repo.db.table, id)
	return nil
}
