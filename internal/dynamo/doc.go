// Package dynamo provides the numeric primitives shared by the rig, the
// physics backend and the co-simulation loop.
//
//   - [Vec3]: 3D vector for body positions, velocities and anchors
//   - [State]: generalised state vector (positions first, velocities second)
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: fixed-step numerical integrator interface
//   - [Controller]: maps an observed vector to a control vector
//   - [Metric]: run statistic fed once per co-simulation step
//
// # Thread Safety
//
// None of the types here are safe for concurrent use. The co-simulation loop
// owns every instance exclusively.
package dynamo
