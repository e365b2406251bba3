package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projetogalileu/galileu/core"
)

func vectorByName(t *testing.T, vs Vectors, name string) Vector {
	t.Helper()
	for _, v := range vs.Vectors {
		if v.Name == name {
			return v
		}
	}
	t.Fatalf("vector %q not found", name)
	return Vector{}
}

func TestDiagram(t *testing.T) {
	vs := Diagram(30, 6.9)
	require.Len(t, vs.Vectors, 4)

	rad := math.Pi / 6
	weight := CartMass * Gravity
	normal := weight * math.Cos(rad)
	friction := FrictionCoef * normal

	assert.InDelta(t, 0.17, weight, 0.001)
	assert.InDelta(t, 0.05, friction, 0.01)

	center := Point{X: DiagramCenterX, Y: DiagramCenterY}
	tests := []struct {
		name   string
		wantDx float64
		wantDy float64
	}{
		{name: VectorWeight, wantDx: 0, wantDy: DiagramScale * weight},
		{name: VectorNormal, wantDx: -DiagramScale * normal * math.Sin(rad), wantDy: -DiagramScale * normal * math.Cos(rad)},
		// accelerating: friction points back up the plane
		{name: VectorFriction, wantDx: -DiagramScale * friction * math.Cos(rad), wantDy: -DiagramScale * friction * math.Sin(rad)},
		{name: VectorResultant, wantDx: DiagramScale * CartMass * 6.9 * math.Cos(rad), wantDy: DiagramScale * CartMass * 6.9 * math.Sin(rad)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := vectorByName(t, vs, tt.name)
			assert.Equal(t, center, v.From)
			assert.InDelta(t, tt.wantDx, v.To.X-center.X, 1e-9)
			assert.InDelta(t, tt.wantDy, v.To.Y-center.Y, 1e-9)
		})
	}
}

func TestDiagram_frictionDirection(t *testing.T) {
	still := vectorByName(t, Diagram(30, 0), VectorFriction)
	moving := vectorByName(t, Diagram(30, 1), VectorFriction)
	assert.Greater(t, still.To.X, DiagramCenterX)
	assert.Less(t, moving.To.X, DiagramCenterX)
}

func TestDiagram_options(t *testing.T) {
	t.Run("angle clamped", func(t *testing.T) {
		assert.Equal(t, 90.0, Diagram(120, 0).Angle)
		assert.Equal(t, 0.0, Diagram(-5, 0).Angle)
	})
	t.Run("visible subset", func(t *testing.T) {
		vs := Diagram(30, 1, WithVisible(VectorWeight, VectorResultant))
		require.Len(t, vs.Vectors, 2)
		assert.Equal(t, VectorWeight, vs.Vectors[0].Name)
		assert.Equal(t, VectorResultant, vs.Vectors[1].Name)
	})
	t.Run("measured forces", func(t *testing.T) {
		vs := Diagram(0, 0, WithMeasuredForces(core.Float(1), core.Float(0.8), core.Float(0.2)), WithScale(100))
		assert.Equal(t, 1.0, vs.Weight)
		assert.Equal(t, 0.8, vs.Normal)
		assert.Equal(t, 0.2, vs.Friction)
		assert.InDelta(t, DiagramCenterY+100, vectorByName(t, vs, VectorWeight).To.Y, 1e-9)
		assert.InDelta(t, DiagramCenterY-80, vectorByName(t, vs, VectorNormal).To.Y, 1e-9)
	})
}
