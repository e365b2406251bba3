package question

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/sensor"
	"github.com/projetogalileu/galileu/storage/realtime/memory"
)

var (
	logger     = core.NewStdLogger(log.New(io.Discard, "", 0))
	translator = core.NewTranslator()
	validate   = newValidate()
	prof       = Author{ID: "prof-1", Name: "Prof. Ana"}
	now        = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

func newValidate() *validator.Validate {
	v := validator.New()
	if err := core.InitValidators(v, translator); err != nil {
		panic(err)
	}
	return v
}

type readingsMock struct {
	reading *sensor.Reading
}

func (m readingsMock) Latest(context.Context) (sensor.Reading, error) {
	if m.reading == nil {
		return sensor.Reading{}, sensor.ErrNoReading
	}
	return *m.reading, nil
}

type blobsMock struct {
	path, contentType, body string
	err                     error
}

func (m *blobsMock) Upload(_ context.Context, path, contentType string, body io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, _ := io.ReadAll(body)
	m.path, m.contentType, m.body = path, contentType, string(data)
	return "https://files.example.com/" + path, nil
}

func validQuestion() NewQuestion {
	return NewQuestion{
		Statement:    "Um bloco desce o plano inclinado",
		Resolution:   "a = g·sinθ",
		Alternatives: Alternatives{A: "1", B: "2", C: "3", D: "4", E: "5"},
		Correct:      "C",
		Minutes:      1,
		Seconds:      30,
	}
}

func mockNow(t *testing.T) {
	NowFunc = func() time.Time { return now }
	t.Cleanup(func() { NowFunc = time.Now })
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Um bloco   desce o plano  ", "Um_bloco_desce_o_p"},
		{"curto", "curto"},
		{"a.b#c$d[e]f/g", "a_b_c_d_e_f_g"},
		{"Ângulo de 30°\tqual é", "Ângulo_de_30°_qual_é"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slug(tt.in), tt.in)
	}
}

func TestSeconds(t *testing.T) {
	tests := []struct {
		min, sec, want int
	}{
		{1, 30, 90},
		{0, 75, 59},
		{2, -5, 120},
		{-1, 10, 0},
		{0, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Seconds(tt.min, tt.sec))
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	mockNow(t)

	t.Run("invalid", func(t *testing.T) {
		store := memstore.New()
		svc := NewService(store, readingsMock{}, &blobsMock{}, validate, logger)

		nq := validQuestion()
		nq.Statement = "  "
		nq.Alternatives.D = ""
		nq.Correct = "F"
		_, err := svc.Create(ctx, prof, nq, nil)
		vErrs, ok := err.(validator.ValidationErrors)
		require.True(t, ok, "got %T", err)

		got := make(map[string]string)
		for _, fe := range core.TranslateErrors(vErrs, translator) {
			got[fe.Field] = fe.Error
		}
		assert.Equal(t, map[string]string{
			"enunciado":          "this field cannot be blank",
			"alternativas.D":     "this field cannot be blank",
			"alternativaCorreta": "must be one of A, B, C, D or E",
		}, got)

		// nothing written
		v, _ := store.Get(ctx, Root)
		assert.False(t, v.Exists())
	})

	t.Run("valid", func(t *testing.T) {
		store := memstore.New()
		svc := NewService(store, readingsMock{}, &blobsMock{}, validate, logger)

		q, err := svc.Create(ctx, prof, validQuestion(), nil)
		require.NoError(t, err)
		assert.Equal(t, "Um_bloco_desce_o_pla", q.ID)
		assert.Equal(t, 90, q.Time)
		assert.Equal(t, KindManual, q.Kind)
		assert.Equal(t, now, q.CreatedAt)

		got, err := svc.Get(ctx, prof.ID, q.ID)
		require.NoError(t, err)
		assert.Equal(t, q, got)

		// same slug overwrites
		nq := validQuestion()
		nq.Correct = "A"
		_, err = svc.Create(ctx, prof, nq, nil)
		require.NoError(t, err)
		got, _ = svc.Get(ctx, prof.ID, q.ID)
		assert.Equal(t, "A", got.Correct)
	})

	t.Run("with sensor data", func(t *testing.T) {
		reading := &sensor.Reading{Distance: core.Float(0.5), Angle: core.Float(30), UpdatedAt: now}
		svc := NewService(memstore.New(), readingsMock{reading: reading}, &blobsMock{}, validate, logger)

		nq := validQuestion()
		nq.UseSensorData = true
		q, err := svc.Create(ctx, prof, nq, nil)
		require.NoError(t, err)
		assert.Equal(t, "Um bloco desce o plano inclinado\n\nDados do sensor: Distância: 0.5m, Ângulo: 30°", q.Statement)
		require.NotNil(t, q.SensorData)
		assert.Equal(t, SensorData{Distance: 0.5, Angle: 30, ReadAt: now}, *q.SensorData)
		assert.Equal(t, "Um_bloco_desce_o_pla", q.ID)

		// a short statement takes the sensor text into its slug
		nq.Statement = "Rampa"
		q, err = svc.Create(ctx, prof, nq, nil)
		require.NoError(t, err)
		assert.Equal(t, "Rampa_Dados_do_sens", q.ID)
		_, err = svc.Get(ctx, prof.ID, "Rampa_Dados_do_sens")
		assert.NoError(t, err)
	})

	t.Run("sensor data unavailable", func(t *testing.T) {
		store := memstore.New()
		svc := NewService(store, readingsMock{}, &blobsMock{}, validate, logger)

		nq := validQuestion()
		nq.UseSensorData = true
		_, err := svc.Create(ctx, prof, nq, nil)
		require.Error(t, err)
		assert.Equal(t, "sensor not found", err.Error())
		v, _ := store.Get(ctx, Root)
		assert.False(t, v.Exists())
	})

	t.Run("attachment", func(t *testing.T) {
		blobs := &blobsMock{}
		svc := NewService(memstore.New(), readingsMock{}, blobs, validate, logger)

		att := &Attachment{Name: "plano.png", ContentType: "image/png", Body: strings.NewReader("png")}
		q, err := svc.Create(ctx, prof, validQuestion(), att)
		require.NoError(t, err)
		assert.Equal(t, "questoes/prof-1/1714564800000-plano.png", blobs.path)
		assert.Equal(t, "image/png", blobs.contentType)
		assert.Equal(t, "png", blobs.body)
		assert.Equal(t, "https://files.example.com/questoes/prof-1/1714564800000-plano.png", q.Attachment)
	})

	t.Run("attachment name keeps its extension", func(t *testing.T) {
		for name, want := range map[string]string{
			"relatorio final.v2.pdf":  "1714564800000-relatorio final.v2.pdf",
			"../../fotos/plano.png":   "1714564800000-plano.png",
			`C:\Users\prof\rampa.jpg`: "1714564800000-rampa.jpg",
		} {
			blobs := &blobsMock{}
			svc := NewService(memstore.New(), readingsMock{}, blobs, validate, logger)
			att := &Attachment{Name: name, Body: strings.NewReader("x")}
			_, err := svc.Create(ctx, prof, validQuestion(), att)
			require.NoError(t, err, name)
			assert.Equal(t, "questoes/prof-1/"+want, blobs.path, name)
		}

		svc := NewService(memstore.New(), readingsMock{}, &blobsMock{}, validate, logger)
		_, err := svc.Create(ctx, prof, validQuestion(), &Attachment{Name: "fotos/", Body: strings.NewReader("x")})
		assert.Error(t, err)
	})

	t.Run("attachment upload fails", func(t *testing.T) {
		store := memstore.New()
		svc := NewService(store, readingsMock{}, &blobsMock{err: errors.New("bucket down")}, validate, logger)

		att := &Attachment{Name: "plano.png", Body: strings.NewReader("png")}
		_, err := svc.Create(ctx, prof, validQuestion(), att)
		assert.EqualError(t, errors.Cause(err), "bucket down")
		v, _ := store.Get(ctx, Root)
		assert.False(t, v.Exists())
	})
}

func TestService_CreateFromSensor(t *testing.T) {
	ctx := context.Background()
	mockNow(t)

	nq := NewSensorQuestion{
		Statement:    "Qual a aceleração?",
		Unknown:      "aceleração",
		Alternatives: Alternatives{A: "1", B: "2", C: "3", D: "4", E: "5"},
		Correct:      "B",
		Seconds:      45,
	}

	svc := NewService(memstore.New(), readingsMock{}, &blobsMock{}, validate, logger)
	_, err := svc.CreateFromSensor(ctx, prof, nq)
	assert.EqualError(t, err, "sensor not found")

	bad := nq
	bad.Unknown = "massa"
	_, err = svc.CreateFromSensor(ctx, prof, bad)
	assert.Equal(t, ErrInvalidUnknown, errors.Cause(err).(*core.ValidationError).Err)

	reading := &sensor.Reading{
		Distance:     core.Float(0.5),
		Angle:        core.Float(30),
		Acceleration: core.Float(4.9),
		Time:         core.Float(1.2),
	}
	svc = NewService(memstore.New(), readingsMock{reading: reading}, &blobsMock{}, validate, logger)
	q, err := svc.CreateFromSensor(ctx, prof, nq)
	require.NoError(t, err)
	assert.Equal(t, KindSensor, q.Kind)
	assert.Equal(t, "B", q.Correct)
	assert.Equal(t, 45, q.Time)
	assert.Equal(t, &UsedData{Acceleration: 4.9, Distance: 0.5, Angle: 30, Time: 1.2}, q.UsedData)

	got, err := svc.Get(ctx, prof.ID, q.ID)
	require.NoError(t, err)
	assert.Equal(t, q, got)
}

func TestService_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	reading := &sensor.Reading{Angle: core.Float(30)}
	svc := NewService(store, readingsMock{reading: reading}, &blobsMock{}, validate, logger)

	at := now
	NowFunc = func() time.Time { return at }
	defer func() { NowFunc = time.Now }()

	first, err := svc.Create(ctx, prof, validQuestion(), nil)
	require.NoError(t, err)

	at = now.Add(time.Minute)
	sq, err := svc.CreateFromSensor(ctx, prof, NewSensorQuestion{
		Statement:    "Qual a velocidade?",
		Unknown:      "velocidade",
		Alternatives: Alternatives{A: "1", B: "2", C: "3", D: "4", E: "5"},
		Correct:      "E",
	})
	require.NoError(t, err)

	at = now.Add(2 * time.Minute)
	nq := validQuestion()
	nq.Statement = "Outra questão"
	last, err := svc.Create(ctx, prof, nq, nil)
	require.NoError(t, err)

	// malformed and foreign records
	require.NoError(t, store.Set(ctx, Path(prof.ID, "quebrada"), map[string]interface{}{"enunciado": ""}))
	_, err = svc.Create(ctx, Author{ID: "prof-2", Name: "Prof. Bia"}, validQuestion(), nil)
	require.NoError(t, err)

	questions, err := svc.ListByAuthor(ctx, prof.ID)
	require.NoError(t, err)
	require.Len(t, questions, 3)
	assert.Equal(t, []string{last.ID, sq.ID, first.ID}, []string{questions[0].ID, questions[1].ID, questions[2].ID})

	require.NoError(t, svc.Delete(ctx, prof.ID, first.ID, sq.ID, "bad.id"))
	questions, err = svc.ListByAuthor(ctx, prof.ID)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, last.ID, questions[0].ID)

	_, err = svc.Get(ctx, prof.ID, sq.ID)
	assert.True(t, core.IsNotFound(err))

	// other author untouched
	questions, _ = svc.ListByAuthor(ctx, "prof-2")
	assert.Len(t, questions, 1)
}
