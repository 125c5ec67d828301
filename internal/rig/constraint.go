package rig

import (
	"strings"

	"github.com/san-kum/rigsim/internal/dynamo"
)

// DOF is a mask of locked degrees of freedom.
type DOF uint8

const (
	TX DOF = 1 << iota
	TY
	TZ
	RX
	RY
	RZ

	Translations = TX | TY | TZ
	Rotations    = RX | RY | RZ
	AllDOF       = Translations | Rotations
)

func (d DOF) Locked(axis DOF) bool { return d&axis == axis }

func (d DOF) String() string {
	if d == 0 {
		return "none"
	}
	var parts []string
	for i, name := range []string{"TX", "TY", "TZ", "RX", "RY", "RZ"} {
		if d&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

type ConstraintKind int

const (
	WheelAxle ConstraintKind = iota
	BodyOrientation
	BodyTranslation
)

func (k ConstraintKind) String() string {
	switch k {
	case WheelAxle:
		return "wheel-axle"
	case BodyOrientation:
		return "body-orientation"
	case BodyTranslation:
		return "body-translation"
	}
	return "unknown"
}

// Constraint couples two bodies at a shared world anchor. Anchors are kept
// in each body's local frame as captured at construction.
type Constraint struct {
	Kind    ConstraintKind
	A, B    BodyID
	AnchorA dynamo.Vec3
	AnchorB dynamo.Vec3
	Locked  DOF
}

func newConstraint(kind ConstraintKind, a, b *Body, anchor dynamo.Vec3, locked DOF) Constraint {
	return Constraint{
		Kind:    kind,
		A:       a.ID,
		B:       b.ID,
		AnchorA: anchor.Sub(a.Position),
		AnchorB: anchor.Sub(b.Position),
		Locked:  locked,
	}
}
