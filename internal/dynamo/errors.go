package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrDidNotConverge indicates the Riccati iteration hit its bound before
	// meeting the tolerance.
	ErrDidNotConverge = errors.New("dynamo: riccati iteration did not converge")

	// ErrSingularGainMatrix indicates R + BᵀPB could not be inverted.
	ErrSingularGainMatrix = errors.New("dynamo: singular gain matrix")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrInvalidState indicates a state with NaN or Inf components.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrUnknownController indicates an unrecognised controller kind.
	ErrUnknownController = errors.New("dynamo: unknown controller kind")
)

// SimulationError wraps an error with the tick and body it happened on.
type SimulationError struct {
	Tick    int
	Body    string
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("%s: tick %d: %v", e.Body, e.Tick, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
