package temporal

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSTPSolution indicates the solver found a negative cycle: the
	// network has no consistent schedule. Callers roll back the offending
	// insertion.
	ErrNoSTPSolution = errors.New("no solution for the simple temporal problem")

	// ErrTaskNotFound indicates the requested task is not in the network.
	ErrTaskNotFound = errors.New("task not in temporal network")

	// ErrUnknownTimepoint indicates a timepoint name outside
	// navigation/start/finish.
	ErrUnknownTimepoint = errors.New("unknown timepoint name")

	// ErrUnknownSolver indicates an unrecognised stp_solver identifier.
	ErrUnknownSolver = errors.New("unknown STP solver")
)

// InvalidPositionError reports an insert or remove outside the valid
// position range. Positions are contiguous starting at 1; position 0 is the
// zero timepoint.
type InvalidPositionError struct {
	Position int
	Max      int
}

func (e *InvalidPositionError) Error() string {
	return fmt.Sprintf("invalid STN position %d: valid range is 1..%d", e.Position, e.Max)
}
