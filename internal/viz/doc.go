// Package viz provides the terminal monitor for a running co-simulation.
//
// A [Feed] is registered as an observer of the step loop and forwards a
// thinned stream of samples to a Bubble Tea program without ever blocking
// the loop. The [Model] draws a side view of the rig on a Braille [Canvas],
// the current signals in a stats panel, and a sparkline of suspension
// travel.
//
// # Key Bindings
//
//	Space - Freeze/unfreeze the view (the run keeps going)
//	T     - Cycle color themes
//	?     - Show help
//	Q     - Stop the run and quit
package viz
