package viz

import (
	"math"

	"github.com/san-kum/rigsim/internal/dynamo"
	"github.com/san-kum/rigsim/internal/rig"
	"github.com/san-kum/rigsim/internal/sim"
)

// Scene is the static geometry needed to draw the rig from the side.
type Scene struct {
	WheelRadius float64
	BodySize    dynamo.Vec3
	Base        float64
	Obstacles   []rig.Obstacle
	// Span and Top bound the visible window in metres, horizontally
	// around the body and vertically above the floor.
	Span float64
	Top  float64
}

func SceneOf(r *rig.Rig) Scene {
	body := r.Body(rig.SprungBody)
	size := body.Shape.Size
	return Scene{
		WheelRadius: r.WheelRadius(),
		BodySize:    size,
		Base:        r.SuspensionBase(),
		Obstacles:   r.Obstacles(),
		Span:        math.Max(6, 4*r.WheelRadius()),
		Top:         body.Position.Y + size.Y/2 + 0.5,
	}
}

type projection struct {
	cx, scale float64
	w, h      int
	floor     int
}

func (s Scene) project(c *Canvas, focusX float64) projection {
	w, h := c.Pixels()
	p := projection{cx: focusX, w: w, h: h, floor: h - 3}
	sx := float64(w) / s.Span
	sy := float64(p.floor) / math.Max(s.Top, 1)
	p.scale = math.Min(sx, sy)
	return p
}

func (p projection) point(x, y float64) (int, int) {
	px := float64(p.w)/2 + (x-p.cx)*p.scale
	py := float64(p.floor) - y*p.scale
	return int(math.Round(px)), int(math.Round(py))
}

func (p projection) length(l float64) int { return int(math.Round(l * p.scale)) }

// Draw renders the floor, obstacles, wheel, spring and body for one sample
// onto a cleared canvas, following the body horizontally.
func (s Scene) Draw(c *Canvas, sample *sim.Sample) {
	c.Clear()
	p := s.project(c, sample.Body.X)

	c.DrawLine(0, p.floor, p.w-1, p.floor)
	left := p.cx - s.Span
	for x := math.Floor(left); x <= p.cx+s.Span; x++ {
		px, _ := p.point(x, 0)
		c.DrawLine(px, p.floor, px-1, p.floor+2)
	}

	for _, o := range s.Obstacles {
		x0, y0 := p.point(o.Center.X-o.Size.X/2, o.Center.Y+o.Size.Y/2)
		x1, y1 := p.point(o.Center.X+o.Size.X/2, o.Center.Y-o.Size.Y/2)
		c.DrawRect(x0, y0, x1, y1)
	}

	wx, wy := p.point(sample.Wheel.X, sample.Wheel.Y)
	c.DrawCircle(wx, wy, p.length(s.WheelRadius))
	c.Set(wx, wy)

	bx0, by0 := p.point(sample.Body.X-s.BodySize.X/2, sample.Body.Y+s.BodySize.Y/2)
	bx1, by1 := p.point(sample.Body.X+s.BodySize.X/2, sample.Body.Y-s.BodySize.Y/2)
	c.DrawRect(bx0, by0, bx1, by1)

	ax, ay := p.point(sample.Axle.X, sample.Axle.Y)
	turns := int(math.Max(2, s.Base*2))
	c.DrawZigzag(ax, ay, by1, 2, turns)
}

// Travel is the suspension deflection from rest for a sample.
func (s Scene) Travel(sample *sim.Sample) float64 {
	return sample.Body.Y - sample.Axle.Y - s.Base
}
