package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/projetogalileu/galileu/core"
)

const tolerance = 1e-9

func TestDecompose(t *testing.T) {
	f := core.Float

	tests := []struct {
		name          string
		in            Inputs
		wantPx        *float64
		wantPy        *float64
		wantResultant *float64
	}{
		{name: "nothing loaded", in: Inputs{}},
		{name: "angle only", in: Inputs{Angle: f(30)}},
		{name: "weight only", in: Inputs{Weight: f(0.17)}},
		{name: "no friction yet", in: Inputs{Angle: f(30), Weight: f(0.17)}, wantPx: f(0.09), wantPy: f(0.15)},
		{name: "friction without weight", in: Inputs{Angle: f(30), Friction: f(0.05)}},
		{
			name: "inclined plane scenario", in: Inputs{Angle: f(30), Weight: f(0.17), Friction: f(0.05)},
			wantPx: f(0.09), wantPy: f(0.15), wantResultant: f(0.1),
		},
		{name: "flat", in: Inputs{Angle: f(0), Weight: f(2), Friction: f(0)}, wantPx: f(0), wantPy: f(2), wantResultant: f(2)},
		{name: "vertical", in: Inputs{Angle: f(90), Weight: f(2), Friction: f(0.5)}, wantPx: f(2), wantPy: f(0), wantResultant: f(-0.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decompose(tt.in).Rounded()
			assertRounded(t, "Px", tt.wantPx, got.Px)
			assertRounded(t, "Py", tt.wantPy, got.Py)
			assertRounded(t, "Resultant", tt.wantResultant, got.Resultant)
			assert.Equal(t, tt.wantPx != nil && tt.wantResultant != nil, got.Ready())
		})
	}
}

// assertRounded allows one unit in the last place: 0.085 may land on either side of the half.
func assertRounded(t *testing.T, name string, want, got *float64) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got, name)
		return
	}
	if assert.NotNil(t, got, name) {
		assert.InDelta(t, *want, *got, 0.0100001, name)
		assert.Equal(t, core.Round2(*got), *got, name+" not rounded")
	}
}

func TestDecompose_scenarioUnrounded(t *testing.T) {
	got := Decompose(Inputs{Angle: core.Float(30), Weight: core.Float(0.17), Friction: core.Float(0.05)})
	assert.InDelta(t, 0.085, *got.Px, 1e-3)
	assert.InDelta(t, 0.147, *got.Py, 1e-3)
	assert.InDelta(t, 0.097, *got.Resultant, 1e-3)
}

func TestDecompose_pythagoras(t *testing.T) {
	for angle := 0.0; angle <= 90; angle += 0.5 {
		for _, weight := range []float64{0, 0.01, 0.17, 1, 9.8, 123.456} {
			got := Decompose(Inputs{Angle: core.Float(angle), Weight: core.Float(weight), Friction: core.Float(0)})
			px, py := *got.Px, *got.Py
			if d := math.Abs(px*px + py*py - weight*weight); d > tolerance*math.Max(1, weight*weight) {
				t.Fatalf("θ=%v P=%v: Px²+Py² - P² = %v", angle, weight, d)
			}
			// no friction: Fr = Py
			if *got.Resultant != py {
				t.Fatalf("θ=%v P=%v: Fr = %v; want Py %v", angle, weight, *got.Resultant, py)
			}
		}
	}
}

func TestResultant(t *testing.T) {
	assert.Nil(t, Resultant(nil, core.Float(1)))
	assert.Nil(t, Resultant(core.Float(1), nil))
	assert.Equal(t, 0.75, *Resultant(core.Float(1), core.Float(0.25)))
}
