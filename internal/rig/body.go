package rig

import (
	"fmt"
	"math"

	"github.com/san-kum/rigsim/internal/dynamo"
)

type BodyID int

const (
	Floor BodyID = iota
	Wheel
	Axle
	SprungBody
	numBodies
)

var bodyNames = [...]string{"floor", "wheel", "axle", "body"}

func (id BodyID) String() string {
	if id < 0 || id >= numBodies {
		return fmt.Sprintf("BodyID(%d)", int(id))
	}
	return bodyNames[id]
}

// BodyIDs lists every body in construction order.
func BodyIDs() []BodyID {
	return []BodyID{Floor, Wheel, SprungBody, Axle}
}

type ShapeKind int

const (
	Point ShapeKind = iota
	Box
	Cylinder
)

func (k ShapeKind) String() string {
	switch k {
	case Box:
		return "box"
	case Cylinder:
		return "cylinder"
	default:
		return "point"
	}
}

// Shape holds either full box extents or cylinder radius and height.
type Shape struct {
	Kind   ShapeKind
	Size   dynamo.Vec3
	Radius float64
	Height float64
}

func BoxShape(x, y, z float64) Shape {
	return Shape{Kind: Box, Size: dynamo.V3(x, y, z)}
}

func CylinderShape(r, h float64) Shape {
	return Shape{Kind: Cylinder, Radius: r, Height: h}
}

func (s Shape) Volume() float64 {
	switch s.Kind {
	case Box:
		return s.Size.X * s.Size.Y * s.Size.Z
	case Cylinder:
		return math.Pi * s.Radius * s.Radius * s.Height
	default:
		return 0
	}
}

func (s Shape) String() string {
	switch s.Kind {
	case Box:
		return fmt.Sprintf("box %gx%gx%g", s.Size.X, s.Size.Y, s.Size.Z)
	case Cylinder:
		return fmt.Sprintf("cylinder r=%g h=%g", s.Radius, s.Height)
	default:
		return "point"
	}
}

type Body struct {
	ID       BodyID
	Position dynamo.Vec3
	Velocity dynamo.Vec3
	Shape    Shape
	Density  float64
	Mass     float64
	Fixed    bool
}

func newBody(id BodyID, pos dynamo.Vec3, shape Shape, density float64) *Body {
	return &Body{
		ID:       id,
		Position: pos,
		Shape:    shape,
		Density:  density,
		Mass:     density * shape.Volume(),
	}
}
