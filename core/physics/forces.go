// Package physics holds the inclined-plane force decomposition and the vector geometry used to
// draw the force diagram.
package physics

import (
	"math"

	"github.com/projetogalileu/galileu/core"
)

// Inputs are the values the decomposition depends on.
// A nil field means the value has not been received yet.
type Inputs struct {
	Angle    *float64 `json:"angulo"`      // degrees
	Weight   *float64 `json:"forcaPeso"`   // N
	Friction *float64 `json:"forcaAtrito"` // N
}

// Forces are the derived values. Each one stays nil until everything it depends on is available.
type Forces struct {
	Px        *float64 `json:"px"`
	Py        *float64 `json:"py"`
	Resultant *float64 `json:"forcaResultante"`
}

// Ready reports whether every derived force is available.
func (f Forces) Ready() bool {
	return f.Px != nil && f.Py != nil && f.Resultant != nil
}

// Rounded returns a copy with every available value rounded to 2 decimals.
func (f Forces) Rounded() Forces {
	return Forces{
		Px:        round(f.Px),
		Py:        round(f.Py),
		Resultant: round(f.Resultant),
	}
}

// Decompose splits the weight into its components along (Px = P·sinθ) and across (Py = P·cosθ)
// the plane and computes the resultant Fr = Py − Ffriction.
func Decompose(in Inputs) Forces {
	var out Forces
	if in.Angle != nil && in.Weight != nil {
		rad := Radians(*in.Angle)
		out.Px = core.Float(*in.Weight * math.Sin(rad))
		out.Py = core.Float(*in.Weight * math.Cos(rad))
	}
	out.Resultant = Resultant(out.Py, in.Friction)
	return out
}

// Resultant computes Fr = Py − Ffriction, nil if either input is missing.
func Resultant(py, friction *float64) *float64 {
	if py == nil || friction == nil {
		return nil
	}
	return core.Float(*py - *friction)
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func round(f *float64) *float64 {
	if f == nil {
		return nil
	}
	return core.Float(core.Round2(*f))
}
