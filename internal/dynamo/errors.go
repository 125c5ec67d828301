package dynamo

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Domain errors for integration.
var (
	// ErrUnstable indicates the integration produced NaN or Inf.
	ErrUnstable = eris.New("dynamo: simulation unstable (state diverged)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = eris.New("dynamo: parameter out of valid bounds")
)

// SimulationError wraps an error with the step and time it surfaced at.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
