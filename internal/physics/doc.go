// Package physics advances the quarter-vehicle rig in time.
//
// The rig's three constraints leave three translational degrees of freedom,
// so the model integrates a lumped system rather than a general multibody
// solver:
//
//   - [QuarterCar]: the reduced [dynamo.System] over horizontal travel,
//     wheel centre height and sprung body height
//   - [Terrain]: floor and obstacle slabs in a box2d world, queried by ray
//     cast for the ground height under the wheel
//   - [Engine]: binds a rig, the system and an integrator and writes body
//     state back after every step
//
// The wheel meets the ground through a one-sided penalty spring-damper. The
// suspension force acts on the sprung body and, with opposite sign, on the
// wheel and axle together.
//
//	eng := physics.NewEngine(r, integrators.NewRK4())
//	for i := 0; i < n; i++ {
//	    if err := eng.Step(0.001); err != nil {
//	        return err
//	    }
//	}
package physics
