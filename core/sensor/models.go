package sensor

import (
	"math"
	"time"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/physics"
	"github.com/projetogalileu/galileu/core/realtime"
)

// Store paths written by the rig.
const (
	Root = "sensor"

	KeyDistance     = "distancia"
	KeyAngle        = "angulo"
	KeyVelocity     = "velocidade"
	KeyPx           = "px"
	KeyPy           = "py"
	KeyTime         = "tempo"
	KeyAcceleration = "aceleracao"
	KeyWeight       = "peso"
	KeyNormal       = "normal"
	KeyFriction     = "atrito"

	KeyChart   = "dadosGrafico"
	KeyRelease = "liberar"
)

var (
	// ScalarKeys are the values the rig pushes, in display order.
	ScalarKeys = []string{
		KeyDistance, KeyAngle, KeyVelocity, KeyPx, KeyPy, KeyTime,
		KeyAcceleration, KeyWeight, KeyNormal, KeyFriction,
	}

	ChartPath   = realtime.Join(Root, KeyChart)
	ReleasePath = realtime.Join(Root, KeyRelease)
)

// Path returns the store path of a sensor key.
func Path(key string) string { return realtime.Join(Root, key) }

// Reading is the latest value of every rig scalar. Nil means not received yet.
// Values are independent: a stale angle can coexist with a fresh distance.
type Reading struct {
	Distance     *float64  `json:"distancia"`
	Angle        *float64  `json:"angulo"`
	Velocity     *float64  `json:"velocidade"`
	Px           *float64  `json:"px"`
	Py           *float64  `json:"py"`
	Time         *float64  `json:"tempo"`
	Acceleration *float64  `json:"aceleracao"`
	Weight       *float64  `json:"forcaPeso"`
	Normal       *float64  `json:"forcaNormal"`
	Friction     *float64  `json:"forcaAtrito"`
	Resultant    *float64  `json:"forcaResultante"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// field returns the address of the Reading field stored under key.
func (r *Reading) field(key string) **float64 {
	switch key {
	case KeyDistance:
		return &r.Distance
	case KeyAngle:
		return &r.Angle
	case KeyVelocity:
		return &r.Velocity
	case KeyPx:
		return &r.Px
	case KeyPy:
		return &r.Py
	case KeyTime:
		return &r.Time
	case KeyAcceleration:
		return &r.Acceleration
	case KeyWeight:
		return &r.Weight
	case KeyNormal:
		return &r.Normal
	case KeyFriction:
		return &r.Friction
	}
	return nil
}

// Forces returns the derived forces. The rig's own Px/Py win over the ones derived from the
// angle and weight.
func (r Reading) Forces() physics.Forces {
	f := physics.Decompose(physics.Inputs{Angle: r.Angle, Weight: r.Weight, Friction: r.Friction})
	if r.Px != nil {
		f.Px = r.Px
	}
	if r.Py != nil {
		f.Py = r.Py
	}
	f.Resultant = physics.Resultant(f.Py, r.Friction)
	return f.Rounded()
}

// IsEmpty reports whether nothing was received yet.
func (r Reading) IsEmpty() bool {
	for _, k := range ScalarKeys {
		if *r.field(k) != nil {
			return false
		}
	}
	return true
}

// Data flattens the reading for persistence. Missing values stay nil and are written as null,
// except the resultant force which falls back to 0.
func (r Reading) Data() Data {
	forces := r.Forces()
	resultant := forces.Resultant
	if resultant == nil {
		resultant = core.Float(0)
	}
	return Data{
		Distance:     clone(r.Distance),
		Angle:        clone(r.Angle),
		Velocity:     clone(r.Velocity),
		Px:           clone(forces.Px),
		Py:           clone(forces.Py),
		Time:         clone(r.Time),
		Acceleration: clone(r.Acceleration),
		Weight:       clone(r.Weight),
		Normal:       clone(r.Normal),
		Friction:     clone(r.Friction),
		Resultant:    clone(resultant),
	}
}

func clone(f *float64) *float64 {
	if f == nil {
		return nil
	}
	return core.Float(*f)
}

// Data is the snapshot persisted with a simulation session. Nil values were not received.
type Data struct {
	Distance     *float64 `json:"distancia"`
	Angle        *float64 `json:"angulo"`
	Velocity     *float64 `json:"velocidade"`
	Px           *float64 `json:"px"`
	Py           *float64 `json:"py"`
	Time         *float64 `json:"tempo"`
	Acceleration *float64 `json:"aceleracao"`
	Weight       *float64 `json:"forcaPeso"`
	Normal       *float64 `json:"forcaNormal"`
	Friction     *float64 `json:"forcaAtrito"`
	Resultant    *float64 `json:"forcaResultante"`
}

// ZeroData is what a new session starts with: every value 0.
func ZeroData() Data {
	return Data{
		Distance: core.Float(0), Angle: core.Float(0), Velocity: core.Float(0),
		Px: core.Float(0), Py: core.Float(0), Time: core.Float(0),
		Acceleration: core.Float(0), Weight: core.Float(0), Normal: core.Float(0),
		Friction: core.Float(0), Resultant: core.Float(0),
	}
}

// Value returns *f, or 0 when f is nil.
func Value(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// Fields returns the values keyed by their JSON names.
func (d Data) Fields() map[string]*float64 {
	return map[string]*float64{
		"distancia":       d.Distance,
		"angulo":          d.Angle,
		"velocidade":      d.Velocity,
		"px":              d.Px,
		"py":              d.Py,
		"tempo":           d.Time,
		"aceleracao":      d.Acceleration,
		"forcaPeso":       d.Weight,
		"forcaNormal":     d.Normal,
		"forcaAtrito":     d.Friction,
		"forcaResultante": d.Resultant,
	}
}

// ChartPoint is one (angle, acceleration) sample of the chart series.
type ChartPoint struct {
	Angle        float64 `json:"angulo"`
	Acceleration float64 `json:"aceleracao"`
}

// DefaultChart is the theoretical series a(θ) = g·sinθ for θ = 0..90°.
func DefaultChart() []ChartPoint {
	points := make([]ChartPoint, 0, 91)
	for i := 0; i <= 90; i++ {
		var acc float64
		if i > 0 {
			acc = core.Round2(physics.Gravity * math.Sin(physics.Radians(float64(i))))
		}
		points = append(points, ChartPoint{Angle: float64(i), Acceleration: acc})
	}
	return points
}
