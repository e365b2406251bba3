// Package classroom groups questions of a teacher into rooms students join with a short code.
package classroom

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/question"
)

const (
	codeLength   = 6
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeAttempts = 5
)

var (
	NowFunc     = time.Now // mockable
	newCodeFunc = newCode  // mockable

	// errors
	ErrNotFound   = errors.New("class room not found")
	ErrCodeExists = errors.New("a class room with this code already exists")
	ErrNotOwner   = errors.New("only the teacher who created the class room can change it")
)

type (
	Room struct {
		ID          string    `json:"id"`
		Name        string    `json:"nome"`
		Code        string    `json:"codigo"`
		QuestionIDs []string  `json:"questoes_firebase_ids"`
		OwnerID     string    `json:"created_by_user_id"`
		CreatedAt   time.Time `json:"criadoEm"`
	}

	NewRoom struct {
		Name string `json:"nome" validate:"notblank,max=100"`
	}

	AddQuestions struct {
		IDs []string `json:"ids" validate:"notblank,dive,notblank"`
	}

	GetFilter struct {
		ID   string
		Code string
	}

	Repository interface {
		// CreateRoom returns ErrCodeExists when the join code is taken.
		CreateRoom(ctx context.Context, room Room) (Room, error)
		GetRoom(ctx context.Context, filter GetFilter) (Room, error)
		QueryRooms(ctx context.Context, ownerID string) ([]Room, error)
		SetRoomQuestions(ctx context.Context, id string, questionIDs []string) (Room, error)
		DeleteRoom(ctx context.Context, id string) error
	}

	// Questions finds a question of an author, hand written ones first.
	Questions interface {
		Get(ctx context.Context, authorID, id string) (question.Question, error)
	}

	Service struct {
		repo      Repository
		questions Questions
		validate  *validator.Validate
		logger    core.Logger
	}
)

func NewService(repo Repository, questions Questions, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{repo: repo, questions: questions, validate: validate, logger: logger}
}

func newCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// Create makes a room owned by ownerID with a fresh join code.
func (svc *Service) Create(ctx context.Context, ownerID string, nr NewRoom) (Room, error) {
	nr.Name = core.CleanString(nr.Name)
	if err := svc.validate.Struct(nr); err != nil {
		return Room{}, err
	}

	room := Room{
		Name:        nr.Name,
		OwnerID:     ownerID,
		QuestionIDs: []string{},
		CreatedAt:   NowFunc().UTC(),
	}
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := newCodeFunc()
		if err != nil {
			return Room{}, errors.Wrap(err, "generating join code")
		}
		room.Code = code

		created, err := svc.repo.CreateRoom(ctx, room)
		if errors.Cause(err) == ErrCodeExists {
			continue
		}
		return created, err
	}
	return Room{}, ErrCodeExists
}

func (svc *Service) Get(ctx context.Context, id string) (Room, error) {
	return svc.repo.GetRoom(ctx, GetFilter{ID: id})
}

// GetByCode looks a room up by its join code, case-insensitively.
func (svc *Service) GetByCode(ctx context.Context, code string) (Room, error) {
	code = strings.ToUpper(core.CleanString(code))
	if len(code) != codeLength {
		return Room{}, core.NewNotFoundError(ErrNotFound)
	}
	return svc.repo.GetRoom(ctx, GetFilter{Code: code})
}

func (svc *Service) ListByOwner(ctx context.Context, ownerID string) ([]Room, error) {
	return svc.repo.QueryRooms(ctx, ownerID)
}

// AddQuestions appends question ids to the room, ignoring the ones it already has.
func (svc *Service) AddQuestions(ctx context.Context, id, ownerID string, aq AddQuestions) (Room, error) {
	if err := svc.validate.Struct(aq); err != nil {
		return Room{}, err
	}
	room, err := svc.Get(ctx, id)
	if err != nil {
		return Room{}, err
	}
	if room.OwnerID != ownerID {
		return Room{}, core.NewPermissionError(ErrNotOwner)
	}

	seen := make(map[string]bool, len(room.QuestionIDs))
	ids := make([]string, 0, len(room.QuestionIDs)+len(aq.IDs))
	for _, qid := range append(room.QuestionIDs, aq.IDs...) {
		qid = strings.TrimSpace(qid)
		if seen[qid] {
			continue
		}
		seen[qid] = true
		ids = append(ids, qid)
	}
	return svc.repo.SetRoomQuestions(ctx, id, ids)
}

// Delete removes a room of ownerID.
func (svc *Service) Delete(ctx context.Context, id, ownerID string) error {
	room, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if room.OwnerID != ownerID {
		return core.NewPermissionError(ErrNotOwner)
	}
	return svc.repo.DeleteRoom(ctx, id)
}

// Questions resolves the questions of a room from the owner's questions: hand written ones
// first, then the sensor-based ones, each in room order. Missing questions are skipped.
func (svc *Service) Questions(ctx context.Context, room Room) ([]question.Question, error) {
	manual := make([]question.Question, 0, len(room.QuestionIDs))
	bySensor := make([]question.Question, 0)

	for _, id := range room.QuestionIDs {
		q, err := svc.questions.Get(ctx, room.OwnerID, id)
		if err != nil {
			if core.IsNotFound(err) {
				continue
			}
			svc.logger.Warn("resolving room question", err, map[string]interface{}{"room": room.ID, "question": id})
			continue
		}
		if q.Kind == question.KindSensor {
			bySensor = append(bySensor, q)
		} else {
			manual = append(manual, q)
		}
	}
	return append(manual, bySensor...), nil
}
