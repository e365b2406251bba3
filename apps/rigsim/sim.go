package main

import (
	"math"
	"time"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/physics"
	"github.com/projetogalileu/galileu/core/sensor"
)

// rig is a block sliding down an inclined plane of a given length. Once the block reaches the
// end of the plane it is put back at the top.
type rig struct {
	angle  float64 // degrees
	weight float64 // N
	mu     float64 // kinetic friction coefficient
	length float64 // m

	elapsed time.Duration
}

// acceleration is g·(sinθ − μ·cosθ), zero when friction holds the block.
func (r *rig) acceleration() float64 {
	rad := physics.Radians(r.angle)
	a := physics.Gravity * (math.Sin(rad) - r.mu*math.Cos(rad))
	if a < 0 {
		return 0
	}
	return a
}

// step advances the block by dt and returns the values the rig publishes on sensor/.
func (r *rig) step(dt time.Duration) map[string]interface{} {
	a := r.acceleration()
	r.elapsed += dt
	t := r.elapsed.Seconds()
	d := a * t * t / 2
	if d > r.length {
		r.elapsed = 0
		t, d = 0, 0
	}

	forces := physics.Decompose(physics.Inputs{Angle: &r.angle, Weight: &r.weight})
	normal := *forces.Py
	friction := r.mu * normal

	return map[string]interface{}{
		sensor.KeyAngle:        core.Round2(r.angle),
		sensor.KeyDistance:     core.Round2(d),
		sensor.KeyTime:         core.Round2(t),
		sensor.KeyVelocity:     core.Round2(a * t),
		sensor.KeyAcceleration: core.Round2(a),
		sensor.KeyWeight:       core.Round2(r.weight),
		sensor.KeyPx:           core.Round2(*forces.Px),
		sensor.KeyPy:           core.Round2(*forces.Py),
		sensor.KeyNormal:       core.Round2(normal),
		sensor.KeyFriction:     core.Round2(friction),
	}
}

// chart is the a(θ) series of the rig for every whole angle in [0, 90].
func (r *rig) chart() []sensor.ChartPoint {
	sample := *r
	points := make([]sensor.ChartPoint, 0, 91)
	for i := 0; i <= 90; i++ {
		sample.angle = float64(i)
		points = append(points, sensor.ChartPoint{Angle: float64(i), Acceleration: core.Round2(sample.acceleration())})
	}
	return points
}
