package physics

import "math"

// Diagram defaults, tuned for the rig's cart.
const (
	DiagramScale   = 500.0
	DiagramCenterX = 150.0
	DiagramCenterY = 150.0

	CartMass     = 0.01735 // kg
	Gravity      = 9.8     // m/s²
	FrictionCoef = 0.294   // gives friction ≈ 0.05 N

	MinAngle = 0.0
	MaxAngle = 90.0
)

// Vector names
const (
	VectorWeight    = "peso"
	VectorNormal    = "normal"
	VectorFriction  = "atrito"
	VectorResultant = "resultante"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Vector is a force drawn as a segment starting at the diagram center.
type Vector struct {
	Name      string  `json:"name"`
	Label     string  `json:"label"`
	From      Point   `json:"from"`
	To        Point   `json:"to"`
	Magnitude float64 `json:"magnitude"` // N
}

// Vectors is the diagram state for one angle/acceleration pair.
type Vectors struct {
	Angle        float64  `json:"angulo"`
	Acceleration float64  `json:"aceleracao"`
	Weight       float64  `json:"forcaPeso"`
	WeightX      float64  `json:"componentePesoX"`
	WeightY      float64  `json:"componentePesoY"`
	Normal       float64  `json:"forcaNormal"`
	Friction     float64  `json:"forcaAtrito"`
	Vectors      []Vector `json:"vetores"`
}

type diagramOptions struct {
	scale    float64
	center   Point
	mass     float64
	weight   *float64
	normal   *float64
	friction *float64
	visible  map[string]bool
}

// DiagramOption customizes Diagram.
type DiagramOption func(*diagramOptions)

// WithMeasuredForces replaces the modelled magnitudes with live readings. Nil values keep the model.
func WithMeasuredForces(weight, normal, friction *float64) DiagramOption {
	return func(o *diagramOptions) {
		o.weight = weight
		o.normal = normal
		o.friction = friction
	}
}

// WithVisible restricts the diagram to the named vectors. No names means all of them.
func WithVisible(names ...string) DiagramOption {
	return func(o *diagramOptions) {
		if len(names) == 0 {
			return
		}
		o.visible = make(map[string]bool, len(names))
		for _, n := range names {
			o.visible[n] = true
		}
	}
}

// WithScale sets the pixels-per-newton factor.
func WithScale(scale float64) DiagramOption {
	return func(o *diagramOptions) { o.scale = scale }
}

// WithMass sets the cart mass in kg.
func WithMass(mass float64) DiagramOption {
	return func(o *diagramOptions) { o.mass = mass }
}

// ClampAngle keeps angle within the rig's range.
func ClampAngle(angle float64) float64 {
	return math.Max(MinAngle, math.Min(MaxAngle, angle))
}

// Diagram maps the forces acting on the cart to screen segments (y grows downwards).
//   weight:    (0, S·P)
//   normal:    (−S·N·sinθ, −S·N·cosθ)
//   friction:  (S·Fa·cosθ·d, S·Fa·sinθ·d), d = −1 when accelerating, 1 otherwise
//   resultant: (S·m·a·cosθ, S·m·a·sinθ)
func Diagram(angle, acceleration float64, opts ...DiagramOption) Vectors {
	o := diagramOptions{
		scale:  DiagramScale,
		center: Point{X: DiagramCenterX, Y: DiagramCenterY},
		mass:   CartMass,
	}
	for _, opt := range opts {
		opt(&o)
	}

	angle = ClampAngle(angle)
	rad := Radians(angle)
	sin, cos := math.Sin(rad), math.Cos(rad)

	weight := o.mass * Gravity
	if o.weight != nil {
		weight = *o.weight
	}
	weightX := weight * sin
	weightY := weight * cos

	normal := weightY
	if o.normal != nil {
		normal = *o.normal
	}
	friction := FrictionCoef * normal
	if o.friction != nil {
		friction = *o.friction
	}

	direction := 1.0
	if acceleration > 0 {
		direction = -1
	}
	resultant := o.mass * acceleration

	s := o.scale
	all := []Vector{
		o.vector(VectorWeight, "P", 0, s*weight, weight),
		o.vector(VectorNormal, "N", -s*normal*sin, -s*normal*cos, normal),
		o.vector(VectorFriction, "Fat", s*friction*cos*direction, s*friction*sin*direction, friction),
		o.vector(VectorResultant, "Fr", s*resultant*cos, s*resultant*sin, math.Abs(resultant)),
	}

	vectors := make([]Vector, 0, len(all))
	for _, v := range all {
		if o.visible == nil || o.visible[v.Name] {
			vectors = append(vectors, v)
		}
	}

	return Vectors{
		Angle:        angle,
		Acceleration: acceleration,
		Weight:       weight,
		WeightX:      weightX,
		WeightY:      weightY,
		Normal:       normal,
		Friction:     friction,
		Vectors:      vectors,
	}
}

func (o diagramOptions) vector(name, label string, dx, dy, magnitude float64) Vector {
	return Vector{
		Name:      name,
		Label:     label,
		From:      o.center,
		To:        Point{X: o.center.X + dx, Y: o.center.Y + dy},
		Magnitude: magnitude,
	}
}
