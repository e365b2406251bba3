// Package render draws the chart series and the force diagram as PNG images.
package render

import (
	"image/color"
	"io"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/projetogalileu/galileu/core/physics"
	"github.com/projetogalileu/galileu/core/sensor"
)

var ErrNoPoints = errors.New("nothing to plot")

const dpi = 96

var vectorColors = map[string]color.Color{
	physics.VectorWeight:    color.RGBA{R: 220, G: 38, B: 38, A: 255},
	physics.VectorNormal:    color.RGBA{R: 37, G: 99, B: 235, A: 255},
	physics.VectorFriction:  color.RGBA{R: 234, G: 179, B: 8, A: 255},
	physics.VectorResultant: color.RGBA{R: 22, G: 163, B: 74, A: 255},
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.Title.Padding = vg.Points(8)
	p.X.Label.TextStyle.Font.Size = vg.Points(11)
	p.Y.Label.TextStyle.Font.Size = vg.Points(11)
	p.X.Padding = vg.Points(6)
	p.Y.Padding = vg.Points(6)
	p.Add(plotter.NewGrid())
}

func writePNG(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	c := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(dpi))
	p.Draw(draw.New(c))
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return errors.Wrap(err, "writing png")
	}
	return nil
}

// Chart draws the acceleration by angle series. current, if given, is highlighted.
func Chart(w io.Writer, title string, points []sensor.ChartPoint, current *sensor.ChartPoint) error {
	if len(points) == 0 {
		return ErrNoPoints
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Ângulo (°)"
	p.Y.Label.Text = "Aceleração (m/s²)"
	stylePlot(p)

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X = pt.Angle
		xys[i].Y = pt.Acceleration
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return errors.Wrap(err, "building chart line")
	}
	line.LineStyle.Width = vg.Points(2)
	line.LineStyle.Color = vectorColors[physics.VectorNormal]
	p.Add(line)

	if current != nil {
		sc, err := plotter.NewScatter(plotter.XYs{{X: current.Angle, Y: current.Acceleration}})
		if err != nil {
			return errors.Wrap(err, "building current point")
		}
		sc.GlyphStyle.Color = vectorColors[physics.VectorWeight]
		sc.GlyphStyle.Radius = vg.Points(4)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
	}
	return writePNG(w, p, 8*vg.Inch, 5*vg.Inch)
}

// Diagram draws the inclined plane and the force vectors. Diagram coordinates grow downwards,
// so Y is flipped.
func Diagram(w io.Writer, v physics.Vectors) error {
	p := plot.New()
	p.Title.Text = "Diagrama de forças"
	p.HideAxes()
	stylePlot(p)

	center := physics.Point{X: physics.DiagramCenterX, Y: physics.DiagramCenterY}
	if len(v.Vectors) > 0 {
		center = v.Vectors[0].From
	}
	plane, err := plotter.NewLine(planeXYs(center, v.Angle))
	if err != nil {
		return errors.Wrap(err, "building plane")
	}
	plane.LineStyle.Width = vg.Points(1.5)
	plane.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(plane)

	labels := plotter.XYLabels{}
	for _, vec := range v.Vectors {
		l, err := plotter.NewLine(plotter.XYs{{X: vec.From.X, Y: -vec.From.Y}, {X: vec.To.X, Y: -vec.To.Y}})
		if err != nil {
			return errors.Wrap(err, "building vector "+vec.Name)
		}
		l.LineStyle.Width = vg.Points(2.5)
		if c, ok := vectorColors[vec.Name]; ok {
			l.LineStyle.Color = c
		}
		p.Add(l)

		tip, err := plotter.NewScatter(plotter.XYs{{X: vec.To.X, Y: -vec.To.Y}})
		if err != nil {
			return errors.Wrap(err, "building vector tip")
		}
		tip.GlyphStyle.Shape = draw.PyramidGlyph{}
		tip.GlyphStyle.Color = l.LineStyle.Color
		p.Add(tip)

		labels.XYs = append(labels.XYs, plotter.XY{X: vec.To.X, Y: -vec.To.Y})
		labels.Labels = append(labels.Labels, vec.Label)
	}
	if len(labels.XYs) > 0 {
		lbl, err := plotter.NewLabels(labels)
		if err != nil {
			return errors.Wrap(err, "building labels")
		}
		p.Add(lbl)
	}
	return writePNG(w, p, 6*vg.Inch, 6*vg.Inch)
}

// planeXYs is a ramp through center at angle degrees, rising to the left.
func planeXYs(center physics.Point, angle float64) plotter.XYs {
	const half = 150.0
	rad := physics.Radians(angle)
	dx, dy := half*math.Cos(rad), half*math.Sin(rad)
	return plotter.XYs{
		{X: center.X - dx, Y: -(center.Y - dy)},
		{X: center.X + dx, Y: -(center.Y + dy)},
	}
}
