package physics

import (
	"math"

	"github.com/ByteArena/box2d"

	"github.com/san-kum/rigsim/internal/rig"
)

// Terrain is the static ground profile under the wheel: the floor slab and
// any obstacles, projected onto the x-y plane and held in a box2d world.
type Terrain struct {
	world  box2d.B2World
	top    float64
	bottom float64
	slabs  int
}

// NewTerrain builds the terrain from the rig's floor and obstacles.
func NewTerrain(r *rig.Rig) *Terrain {
	t := &Terrain{world: box2d.MakeB2World(box2d.MakeB2Vec2(0, 0))}

	floor := r.Body(rig.Floor)
	t.addSlab(floor.Position.X, floor.Position.Y, floor.Shape.Size.X, floor.Shape.Size.Y)
	for _, o := range r.Obstacles() {
		t.addSlab(o.Center.X, o.Center.Y, o.Size.X, o.Size.Y)
	}
	return t
}

func (t *Terrain) addSlab(cx, cy, w, h float64) {
	def := box2d.MakeB2BodyDef()
	def.Position = box2d.MakeB2Vec2(cx, cy)
	body := t.world.CreateBody(&def)
	body.SetUserData(t.slabs)

	shape := box2d.MakeB2PolygonShape()
	shape.SetAsBox(w/2, h/2)
	body.CreateFixture(&shape, 0.0)

	if t.slabs == 0 {
		t.top, t.bottom = cy+h/2, cy-h/2
	}
	t.top = math.Max(t.top, cy+h/2)
	t.bottom = math.Min(t.bottom, cy-h/2)
	t.slabs++
}

// HeightAt returns the highest surface under x. ok is false when nothing is
// there, e.g. past the floor edge.
func (t *Terrain) HeightAt(x float64) (height float64, ok bool) {
	from := box2d.MakeB2Vec2(x, t.top+1)
	to := box2d.MakeB2Vec2(x, t.bottom-1)

	best := 2.0
	t.world.RayCast(func(_ *box2d.B2Fixture, point, _ box2d.B2Vec2, fraction float64) float64 {
		if fraction < best {
			best = fraction
			height = point.Y
			ok = true
		}
		return fraction
	}, from, to)
	return height, ok
}

func (t *Terrain) Slabs() int { return t.slabs }
