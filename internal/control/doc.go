// Package control provides the controllers run by the reference peer.
//
// A controller sees the harness signals as its state vector, wheel height
// first and sprung body height second, and returns the one-element control
// signal sent back as the actuator correction:
//
//   - [None]: always zero
//   - [Constant]: a fixed, settable signal
//   - [PID]: tracks a target height on one signal
//   - [Feedback]: linear state feedback u = -K(x - target)
//
// # Usage
//
//	pid := control.NewPID(800, 50, 120, 0.5) // Kp, Ki, Kd, setpoint
//	peer.Serve(ctx, control.Handler(pid))
//
// [PID] implements [Tunable] for adjustment at run time.
package control
