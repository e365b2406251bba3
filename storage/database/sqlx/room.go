package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/classroom"
)

type roomRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Code      string    `db:"code"`
	OwnerID   string    `db:"owner_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (r roomRow) room(questionIDs []string) classroom.Room {
	if questionIDs == nil {
		questionIDs = []string{}
	}
	return classroom.Room{
		ID:          r.ID,
		Name:        r.Name,
		Code:        r.Code,
		OwnerID:     r.OwnerID,
		CreatedAt:   r.CreatedAt.UTC(),
		QuestionIDs: questionIDs,
	}
}

type roomRepository struct {
	db *sqlx.DB
}

var _ classroom.Repository = (*roomRepository)(nil) // interface compliance check

func NewRoomRepository(db *sqlx.DB) *roomRepository {
	return &roomRepository{db: db}
}

func (repo *roomRepository) CreateRoom(ctx context.Context, room classroom.Room) (classroom.Room, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return classroom.Room{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var taken int
	if err := tx.GetContext(ctx, &taken, `SELECT COUNT(*) FROM rooms WHERE code = ?`, room.Code); err != nil {
		return classroom.Room{}, errors.Wrap(err, "checking room code")
	}
	if taken > 0 {
		return classroom.Room{}, classroom.ErrCodeExists
	}

	room.ID = uuid.New().String()
	row := roomRow{ID: room.ID, Name: room.Name, Code: room.Code, OwnerID: room.OwnerID, CreatedAt: room.CreatedAt}
	q := `INSERT INTO rooms (id, name, code, owner_id, created_at) VALUES (:id, :name, :code, :owner_id, :created_at)`
	if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
		return classroom.Room{}, errors.Wrap(err, "inserting room")
	}
	if err := insertQuestions(ctx, tx, room.ID, room.QuestionIDs); err != nil {
		return classroom.Room{}, err
	}
	if err := tx.Commit(); err != nil {
		return classroom.Room{}, errors.Wrap(err, "committing room")
	}
	return row.room(append([]string(nil), room.QuestionIDs...)), nil
}

func insertQuestions(ctx context.Context, tx *sqlx.Tx, roomID string, ids []string) error {
	for i, id := range ids {
		_, err := tx.ExecContext(ctx, `INSERT INTO room_questions (room_id, position, question_id) VALUES (?, ?, ?)`, roomID, i, id)
		if err != nil {
			return errors.Wrap(err, "inserting room question")
		}
	}
	return nil
}

func (repo *roomRepository) questionIDs(ctx context.Context, q sqlx.QueryerContext, roomID string) ([]string, error) {
	ids := make([]string, 0)
	err := sqlx.SelectContext(ctx, q, &ids, `SELECT question_id FROM room_questions WHERE room_id = ? ORDER BY position`, roomID)
	return ids, errors.Wrap(err, "querying room questions")
}

func (repo *roomRepository) GetRoom(ctx context.Context, filter classroom.GetFilter) (classroom.Room, error) {
	var (
		row roomRow
		err error
	)
	switch {
	case filter.ID != "":
		err = repo.db.GetContext(ctx, &row, `SELECT id, name, code, owner_id, created_at FROM rooms WHERE id = ?`, filter.ID)
	case filter.Code != "":
		err = repo.db.GetContext(ctx, &row, `SELECT id, name, code, owner_id, created_at FROM rooms WHERE code = ?`, filter.Code)
	default:
		err = sql.ErrNoRows
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return classroom.Room{}, core.NewNotFoundError(classroom.ErrNotFound)
		}
		return classroom.Room{}, errors.Wrap(err, "getting room")
	}

	ids, err := repo.questionIDs(ctx, repo.db, row.ID)
	if err != nil {
		return classroom.Room{}, err
	}
	return row.room(ids), nil
}

func (repo *roomRepository) QueryRooms(ctx context.Context, ownerID string) ([]classroom.Room, error) {
	var rows []roomRow
	q := `SELECT id, name, code, owner_id, created_at FROM rooms WHERE (? = '' OR owner_id = ?) ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, ownerID, ownerID); err != nil {
		return nil, errors.Wrap(err, "querying rooms")
	}

	rooms := make([]classroom.Room, 0, len(rows))
	for _, row := range rows {
		ids, err := repo.questionIDs(ctx, repo.db, row.ID)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, row.room(ids))
	}
	return rooms, nil
}

func (repo *roomRepository) SetRoomQuestions(ctx context.Context, id string, questionIDs []string) (classroom.Room, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return classroom.Room{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var row roomRow
	if err := tx.GetContext(ctx, &row, `SELECT id, name, code, owner_id, created_at FROM rooms WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return classroom.Room{}, core.NewNotFoundError(classroom.ErrNotFound)
		}
		return classroom.Room{}, errors.Wrap(err, "getting room")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM room_questions WHERE room_id = ?`, id); err != nil {
		return classroom.Room{}, errors.Wrap(err, "clearing room questions")
	}
	if err := insertQuestions(ctx, tx, id, questionIDs); err != nil {
		return classroom.Room{}, err
	}
	if err := tx.Commit(); err != nil {
		return classroom.Room{}, errors.Wrap(err, "committing room questions")
	}
	return row.room(append([]string(nil), questionIDs...)), nil
}

func (repo *roomRepository) DeleteRoom(ctx context.Context, id string) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM room_questions WHERE room_id = ?`, id); err != nil {
		return errors.Wrap(err, "deleting room questions")
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "deleting room")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.NewNotFoundError(classroom.ErrNotFound)
	}
	return errors.Wrap(tx.Commit(), "committing room deletion")
}
