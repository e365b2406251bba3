package question

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/projetogalileu/galileu/core/realtime"
)

const (
	// Root holds the questions written by hand: questoes/{authorId}/{slug}.
	Root = "questoes"
	// SensorRoot holds the questions built from a rig reading: questoesComBaseNosSensores/{authorId}/{key}.
	SensorRoot = "questoesComBaseNosSensores"

	slugLength = 20
)

type Kind string

const (
	KindManual Kind = "manual"
	KindSensor Kind = "sensor"
)

// Unknowns are the quantities a sensor-based question may ask for.
var Unknowns = []string{"velocidade", "px", "py", "força normal", "força de atrito", "aceleração"}

var spaceRegex = regexp.MustCompile(`\s+`)

type (
	Alternatives struct {
		A string `json:"A" validate:"notblank"`
		B string `json:"B" validate:"notblank"`
		C string `json:"C" validate:"notblank"`
		D string `json:"D" validate:"notblank"`
		E string `json:"E" validate:"notblank"`
	}

	// SensorData is the reading appended to a statement.
	SensorData struct {
		Distance float64   `json:"distancia"`
		Angle    float64   `json:"angulo"`
		ReadAt   time.Time `json:"dataLeitura"`
	}

	// UsedData is the reading a sensor-based question is built on.
	UsedData struct {
		Acceleration float64 `json:"aceleracao"`
		Distance     float64 `json:"distancia"`
		Angle        float64 `json:"angulo"`
		Time         float64 `json:"tempo"`
	}

	// Question is a multiple choice question, either written by a teacher or built from a reading.
	Question struct {
		ID           string       `json:"id"`
		Kind         Kind         `json:"tipo"`
		Statement    string       `json:"enunciado"`
		Resolution   string       `json:"resolucao"`
		Alternatives Alternatives `json:"alternativas"`
		Correct      string       `json:"alternativaCorreta"`
		CreatedAt    time.Time    `json:"criadoEm"`
		Author       string       `json:"professor"`
		AuthorID     string       `json:"professorId"`
		Time         int          `json:"tempo"` // seconds
		Attachment   string       `json:"anexo,omitempty"`
		SensorData   *SensorData  `json:"sensorData,omitempty"`
		Unknown      string       `json:"incognita,omitempty"`
		UsedData     *UsedData    `json:"dados_usados,omitempty"`
	}

	NewQuestion struct {
		Statement     string       `json:"enunciado" validate:"notblank"`
		Resolution    string       `json:"resolucao" validate:"notblank"`
		Alternatives  Alternatives `json:"alternativas"`
		Correct       string       `json:"alternativaCorreta" validate:"notblank,choice"`
		Minutes       int          `json:"minutos"`
		Seconds       int          `json:"segundos"`
		UseSensorData bool         `json:"usarDadosSensor"`
	}

	NewSensorQuestion struct {
		Statement    string       `json:"enunciado" validate:"notblank"`
		Resolution   string       `json:"resolucao"`
		Unknown      string       `json:"incognita" validate:"notblank"`
		Alternatives Alternatives `json:"alternativas"`
		Correct      string       `json:"respostaCorreta" validate:"notblank,choice"`
		Minutes      int          `json:"minutos"`
		Seconds      int          `json:"segundos"`
	}

	// Author is who a question is created for.
	Author struct {
		ID   string
		Name string
	}

	// record is what is stored at questoes/{authorId}/{slug}.
	record struct {
		Statement    string       `json:"enunciado" validate:"notblank"`
		Resolution   string       `json:"resolucao"`
		Alternatives Alternatives `json:"alternativas"`
		Correct      string       `json:"alternativaCorreta" validate:"choice"`
		CreatedAt    time.Time    `json:"criadoEm"`
		Author       string       `json:"professor"`
		AuthorID     string       `json:"professorId"`
		Time         int          `json:"tempo" validate:"gte=0"`
		Attachment   string       `json:"anexo,omitempty"`
		SensorData   *SensorData  `json:"sensorData,omitempty"`
	}

	// sensorRecord is what is pushed to questoesComBaseNosSensores/{authorId}.
	sensorRecord struct {
		Statement    string       `json:"enunciado" validate:"notblank"`
		Resolution   string       `json:"resolucao"`
		Time         int          `json:"tempo" validate:"gte=0"`
		CreatedAt    time.Time    `json:"criadoEm"`
		Author       string       `json:"professor"`
		AuthorID     string       `json:"professorId"`
		UsedData     UsedData     `json:"dados_usados"`
		Unknown      string       `json:"incognita"`
		Alternatives Alternatives `json:"alternativas"`
		Correct      string       `json:"respostaCorreta" validate:"choice"`
	}
)

// Get returns the text of alternative letter.
func (a Alternatives) Get(letter string) string {
	switch letter {
	case "A":
		return a.A
	case "B":
		return a.B
	case "C":
		return a.C
	case "D":
		return a.D
	case "E":
		return a.E
	}
	return ""
}

// IsUnknown reports whether s is one of Unknowns.
func IsUnknown(s string) bool {
	for _, u := range Unknowns {
		if s == u {
			return true
		}
	}
	return false
}

// Seconds converts a minutes + seconds input to a non-negative duration in seconds.
// Seconds are clamped to [0, 59].
func Seconds(minutes, seconds int) int {
	if seconds < 0 {
		seconds = 0
	} else if seconds > 59 {
		seconds = 59
	}
	total := minutes*60 + seconds
	if total < 0 {
		return 0
	}
	return total
}

// Slug is the key of a question under its author: the first 20 characters of the trimmed
// statement, whitespace runs and characters the store rejects replaced with "_".
func Slug(statement string) string {
	s := []rune(strings.TrimSpace(statement))
	if len(s) > slugLength {
		s = s[:slugLength]
	}
	return realtime.SanitizeKey(spaceRegex.ReplaceAllString(string(s), "_"))
}

// Path returns the store path of a hand written question.
func Path(authorID string, id ...string) string {
	return realtime.Join(append([]string{Root, authorID}, id...)...)
}

// SensorPath returns the store path of a sensor-based question.
func SensorPath(authorID string, id ...string) string {
	return realtime.Join(append([]string{SensorRoot, authorID}, id...)...)
}

func (r record) question(id string) Question {
	return Question{
		ID:           id,
		Kind:         KindManual,
		Statement:    r.Statement,
		Resolution:   r.Resolution,
		Alternatives: r.Alternatives,
		Correct:      r.Correct,
		CreatedAt:    r.CreatedAt,
		Author:       r.Author,
		AuthorID:     r.AuthorID,
		Time:         r.Time,
		Attachment:   r.Attachment,
		SensorData:   r.SensorData,
	}
}

func (r sensorRecord) question(id string) Question {
	used := r.UsedData
	return Question{
		ID:           id,
		Kind:         KindSensor,
		Statement:    r.Statement,
		Resolution:   r.Resolution,
		Alternatives: r.Alternatives,
		Correct:      r.Correct,
		CreatedAt:    r.CreatedAt,
		Author:       r.Author,
		AuthorID:     r.AuthorID,
		Time:         r.Time,
		Unknown:      r.Unknown,
		UsedData:     &used,
	}
}

// SortNewestFirst orders questions by creation time, most recent first.
func SortNewestFirst(questions []Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].CreatedAt.After(questions[j].CreatedAt)
	})
}
