package telemetry

import (
	"github.com/san-kum/rigsim/internal/dynamo"
	"github.com/san-kum/rigsim/internal/sim"
)

// Frame is the JSON message sent to viewers once per published step.
type Frame struct {
	Step   int        `json:"step"`
	Time   float64    `json:"t"`
	Wheel  [3]float64 `json:"wheel"`
	Axle   [3]float64 `json:"axle"`
	Body   [3]float64 `json:"body"`
	Camera Camera     `json:"camera"`
}

type Camera struct {
	Position [3]float64 `json:"position"`
	Target   [3]float64 `json:"target"`
}

// FollowCamera keeps offset from the sprung body along x only, so the rig
// drives across the view without the camera bobbing with the suspension.
func FollowCamera(offset, body dynamo.Vec3) Camera {
	return Camera{
		Position: dynamo.V3(body.X+offset.X, offset.Y, offset.Z).Array(),
		Target:   body.Array(),
	}
}

func NewFrame(s *sim.Sample, camera dynamo.Vec3) Frame {
	return Frame{
		Step:   s.Step,
		Time:   s.Time,
		Wheel:  s.Wheel.Array(),
		Axle:   s.Axle.Array(),
		Body:   s.Body.Array(),
		Camera: FollowCamera(camera, s.Body),
	}
}
