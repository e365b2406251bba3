// Package question stores the multiple choice questions teachers write, by hand or from a rig reading.
package question

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/realtime"
	"github.com/projetogalileu/galileu/core/sensor"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound        = errors.New("question not found")
	ErrInvalidUnknown  = errors.New("unknown quantity not supported")
	ErrAttachmentEmpty = errors.New("attachment has no name")
)

type (
	// Blobs stores attachments and returns their public URL.
	Blobs interface {
		Upload(ctx context.Context, path, contentType string, body io.Reader) (url string, err error)
	}

	// Readings provides the latest rig reading.
	Readings interface {
		Latest(ctx context.Context) (sensor.Reading, error)
	}

	Attachment struct {
		Name        string
		ContentType string
		Body        io.Reader
	}

	Service struct {
		store    realtime.Store
		readings Readings
		blobs    Blobs
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(store realtime.Store, readings Readings, blobs Blobs, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{
		store:    store,
		readings: readings,
		blobs:    blobs,
		validate: validate,
		logger:   logger,
	}
}

// Create validates nq, uploads the attachment if any and writes the question at
// questoes/{authorId}/{slug}. A question with the same slug is overwritten.
func (svc *Service) Create(ctx context.Context, author Author, nq NewQuestion, att *Attachment) (Question, error) {
	if err := svc.validate.Struct(nq); err != nil {
		return Question{}, err
	}

	now := NowFunc().UTC()
	rec := record{
		Statement:    nq.Statement,
		Resolution:   nq.Resolution,
		Alternatives: nq.Alternatives,
		Correct:      nq.Correct,
		CreatedAt:    now,
		Author:       author.Name,
		AuthorID:     author.ID,
		Time:         Seconds(nq.Minutes, nq.Seconds),
	}

	if nq.UseSensorData {
		reading, err := svc.readings.Latest(ctx)
		if err != nil {
			return Question{}, core.NewValidationError(err)
		}
		sd := SensorData{ReadAt: reading.UpdatedAt}
		if reading.Distance != nil {
			sd.Distance = *reading.Distance
		}
		if reading.Angle != nil {
			sd.Angle = *reading.Angle
		}
		rec.Statement = WithSensorData(rec.Statement, sd)
		rec.SensorData = &sd
	}

	if att != nil {
		url, err := svc.upload(ctx, author.ID, now, att)
		if err != nil {
			return Question{}, err
		}
		rec.Attachment = url
	}

	slug := Slug(rec.Statement)
	if err := svc.store.Set(ctx, Path(author.ID, slug), rec); err != nil {
		return Question{}, errors.Wrap(err, "saving question")
	}
	return rec.question(slug), nil
}

// WithSensorData appends the reading to a statement.
func WithSensorData(statement string, sd SensorData) string {
	return fmt.Sprintf("%s\n\nDados do sensor: Distância: %sm, Ângulo: %s°",
		statement, formatFloat(sd.Distance), formatFloat(sd.Angle))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (svc *Service) upload(ctx context.Context, authorID string, now time.Time, att *Attachment) (string, error) {
	// keep the file name with its extension, drop any directory part
	name := core.CleanString(att.Name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "", core.NewValidationError(ErrAttachmentEmpty, core.FieldError{Field: "anexo", Error: ErrAttachmentEmpty.Error()})
	}
	path := fmt.Sprintf("%s/%s/%d-%s", Root, authorID, now.UnixNano()/int64(time.Millisecond), name)
	url, err := svc.blobs.Upload(ctx, path, att.ContentType, att.Body)
	return url, errors.Wrap(err, "uploading attachment")
}

// CreateFromSensor pushes a question built on the current reading to
// questoesComBaseNosSensores/{authorId}.
func (svc *Service) CreateFromSensor(ctx context.Context, author Author, nq NewSensorQuestion) (Question, error) {
	if err := svc.validate.Struct(nq); err != nil {
		return Question{}, err
	}
	if !IsUnknown(nq.Unknown) {
		return Question{}, core.NewValidationError(ErrInvalidUnknown, core.FieldError{Field: "incognita", Error: ErrInvalidUnknown.Error()})
	}

	reading, err := svc.readings.Latest(ctx)
	if err != nil {
		return Question{}, core.NewValidationError(err)
	}
	data := reading.Data()

	rec := sensorRecord{
		Statement:  nq.Statement,
		Resolution: nq.Resolution,
		Time:       Seconds(nq.Minutes, nq.Seconds),
		CreatedAt:  NowFunc().UTC(),
		Author:     author.Name,
		AuthorID:   author.ID,
		UsedData: UsedData{
			Acceleration: sensor.Value(data.Acceleration),
			Distance:     sensor.Value(data.Distance),
			Angle:        sensor.Value(data.Angle),
			Time:         sensor.Value(data.Time),
		},
		Unknown:      nq.Unknown,
		Alternatives: nq.Alternatives,
		Correct:      nq.Correct,
	}

	key, err := svc.store.Push(ctx, SensorPath(author.ID), rec)
	if err != nil {
		return Question{}, errors.Wrap(err, "saving sensor question")
	}
	return rec.question(key), nil
}

// ListByAuthor returns the questions of both kinds written by authorID, newest first.
// Malformed records are skipped.
func (svc *Service) ListByAuthor(ctx context.Context, authorID string) ([]Question, error) {
	if realtime.ValidatePath(authorID) != nil {
		return []Question{}, nil
	}
	questions := make([]Question, 0)

	manual, err := svc.store.Get(ctx, Path(authorID))
	if err != nil {
		return nil, errors.Wrap(err, "listing questions")
	}
	for _, child := range manual.Children() {
		q, err := svc.decode(child, KindManual)
		if err != nil {
			svc.logger.Warn("skipping question record", err)
			continue
		}
		questions = append(questions, q)
	}

	bySensor, err := svc.store.Get(ctx, SensorPath(authorID))
	if err != nil {
		return nil, errors.Wrap(err, "listing sensor questions")
	}
	for _, child := range bySensor.Children() {
		q, err := svc.decode(child, KindSensor)
		if err != nil {
			svc.logger.Warn("skipping sensor question record", err)
			continue
		}
		questions = append(questions, q)
	}

	SortNewestFirst(questions)
	return questions, nil
}

// Get looks a question up under its author, hand written first.
func (svc *Service) Get(ctx context.Context, authorID, id string) (Question, error) {
	if authorID == "" || id == "" || realtime.ValidatePath(realtime.Join(authorID, id)) != nil {
		return Question{}, core.NewNotFoundError(ErrNotFound)
	}
	for _, kind := range []Kind{KindManual, KindSensor} {
		path := Path(authorID, id)
		if kind == KindSensor {
			path = SensorPath(authorID, id)
		}
		v, err := svc.store.Get(ctx, path)
		if err != nil {
			return Question{}, errors.Wrap(err, "getting question")
		}
		if v.Exists() {
			return svc.decode(v, kind)
		}
	}
	return Question{}, core.NewNotFoundError(ErrNotFound)
}

// Delete removes the given questions of authorID from both paths in one update.
func (svc *Service) Delete(ctx context.Context, authorID string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := realtime.ValidatePath(authorID); err != nil || authorID == "" {
		return core.NewNotFoundError(ErrNotFound)
	}
	values := make(map[string]interface{}, len(ids)*2)
	for _, id := range ids {
		if id == "" || realtime.ValidatePath(id) != nil {
			continue
		}
		values[Path(authorID, id)] = nil
		values[SensorPath(authorID, id)] = nil
	}
	return errors.Wrap(svc.store.Update(ctx, "", values), "deleting questions")
}

func (svc *Service) decode(v realtime.Value, kind Kind) (Question, error) {
	if kind == KindSensor {
		var rec sensorRecord
		if err := v.Decode(&rec); err != nil {
			return Question{}, err
		}
		if err := svc.validate.Struct(rec); err != nil {
			return Question{}, errors.Wrap(err, v.Path)
		}
		return rec.question(v.Key()), nil
	}

	var rec record
	if err := v.Decode(&rec); err != nil {
		return Question{}, err
	}
	if err := svc.validate.Struct(rec); err != nil {
		return Question{}, errors.Wrap(err, v.Path)
	}
	return rec.question(v.Key()), nil
}
