package gormdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/classroom"
)

func (m roomModel) room() classroom.Room {
	ids := append([]string{}, m.QuestionIDs...)
	return classroom.Room{
		ID:          m.ID,
		Name:        m.Name,
		Code:        m.Code,
		OwnerID:     m.OwnerID,
		QuestionIDs: ids,
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

type roomRepository struct {
	db *gorm.DB
}

var _ classroom.Repository = (*roomRepository)(nil) // interface compliance check

func NewRoomRepository(db *gorm.DB) *roomRepository {
	return &roomRepository{db: db}
}

func (repo *roomRepository) CreateRoom(ctx context.Context, room classroom.Room) (classroom.Room, error) {
	m := roomModel{
		ID:          uuid.New().String(),
		Name:        room.Name,
		Code:        room.Code,
		OwnerID:     room.OwnerID,
		QuestionIDs: append([]string{}, room.QuestionIDs...),
		CreatedAt:   room.CreatedAt,
	}
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&roomModel{}).Where("code = ?", room.Code).Count(&taken).Error; err != nil {
			return errors.Wrap(err, "checking room code")
		}
		if taken > 0 {
			return classroom.ErrCodeExists
		}
		return errors.Wrap(tx.Create(&m).Error, "inserting room")
	})
	if err != nil {
		return classroom.Room{}, err
	}
	return m.room(), nil
}

func (repo *roomRepository) GetRoom(ctx context.Context, filter classroom.GetFilter) (classroom.Room, error) {
	q := repo.db.WithContext(ctx)
	switch {
	case filter.ID != "":
		q = q.Where("id = ?", filter.ID)
	case filter.Code != "":
		q = q.Where("code = ?", filter.Code)
	default:
		return classroom.Room{}, core.NewNotFoundError(classroom.ErrNotFound)
	}

	var m roomModel
	if err := q.Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return classroom.Room{}, core.NewNotFoundError(classroom.ErrNotFound)
		}
		return classroom.Room{}, errors.Wrap(err, "getting room")
	}
	return m.room(), nil
}

func (repo *roomRepository) QueryRooms(ctx context.Context, ownerID string) ([]classroom.Room, error) {
	q := repo.db.WithContext(ctx).Order("created_at DESC")
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	var models []roomModel
	if err := q.Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "querying rooms")
	}
	rooms := make([]classroom.Room, 0, len(models))
	for _, m := range models {
		rooms = append(rooms, m.room())
	}
	return rooms, nil
}

func (repo *roomRepository) SetRoomQuestions(ctx context.Context, id string, questionIDs []string) (classroom.Room, error) {
	var m roomModel
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&m, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return core.NewNotFoundError(classroom.ErrNotFound)
			}
			return errors.Wrap(err, "getting room")
		}
		m.QuestionIDs = append([]string{}, questionIDs...)
		return errors.Wrap(tx.Save(&m).Error, "updating room questions")
	})
	if err != nil {
		return classroom.Room{}, err
	}
	return m.room(), nil
}

func (repo *roomRepository) DeleteRoom(ctx context.Context, id string) error {
	res := repo.db.WithContext(ctx).Delete(&roomModel{}, "id = ?", id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "deleting room")
	}
	if res.RowsAffected == 0 {
		return core.NewNotFoundError(classroom.ErrNotFound)
	}
	return nil
}
