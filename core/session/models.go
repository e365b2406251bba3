package session

import (
	"sort"
	"time"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/realtime"
	"github.com/projetogalileu/galileu/core/sensor"
)

// Root is where sessions live in the realtime store.
const Root = "simulacoes"

type Status string

const (
	StatusStarted  Status = "iniciada"
	StatusFinished Status = "finalizada"
)

// Path returns the store path of a session (and optional children).
func Path(id string, children ...string) string {
	return realtime.Join(append([]string{Root, id}, children...)...)
}

// Session is one timed run of the rig by a student.
type Session struct {
	ID        string              `json:"id" validate:"-"`
	UserName  string              `json:"userName" validate:"notblank"`
	Timestamp time.Time           `json:"timestamp" validate:"required"`
	Status    Status              `json:"status" validate:"oneof=iniciada finalizada"`
	Data      sensor.Data         `json:"dados"`
	Chart     []sensor.ChartPoint `json:"grafico,omitempty"`
}

func (s Session) IsRunning() bool { return s.Status == StatusStarted }

// record is what gets written at simulacoes/{id}.
func (s Session) record() map[string]interface{} {
	return map[string]interface{}{
		"userName":  s.UserName,
		"timestamp": s.Timestamp.Format(time.RFC3339Nano),
		"status":    s.Status,
		"dados":     s.Data,
	}
}

// SortNewestFirst orders sessions by timestamp, most recent first.
func SortNewestFirst(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Timestamp.After(sessions[j].Timestamp)
	})
}

// Comparison holds two sessions side by side with the per-field difference (B − A). Fields
// missing from either session have no difference.
type Comparison struct {
	A    Session            `json:"a"`
	B    Session            `json:"b"`
	Diff map[string]float64 `json:"diferenca"`
}

func Compare(a, b Session) Comparison {
	af, bf := a.Data.Fields(), b.Data.Fields()
	diff := make(map[string]float64, len(af))
	for k, v := range bf {
		if v == nil || af[k] == nil {
			continue
		}
		diff[k] = core.Round2(*v - *af[k])
	}
	return Comparison{A: a, B: b, Diff: diff}
}
