package temporal

import (
	"fmt"
	"math"
)

// Solver turns an STN into its minimal dispatchable graph, or reports
// ErrNoSTPSolution when the network is inconsistent. Implementations must be
// bounded-time and synchronous.
type Solver interface {
	Solve(stn *STN) (*DispatchableGraph, error)
}

// solvers is the named registry the stp_solver configuration key selects
// from. The variants share the APSP core; they differ only in the risk
// read-off applied by the bidding rule's robustness policy.
var solvers = map[string]func() Solver{
	"fpc":  func() Solver { return apspSolver{} },
	"srea": func() Solver { return apspSolver{} },
	"dsc":  func() Solver { return apspSolver{} },
}

// NewSolver returns the solver registered under the given identifier.
func NewSolver(name string) (Solver, error) {
	factory, ok := solvers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSolver, name)
	}
	return factory(), nil
}

// apspSolver minimises the distance graph with Floyd–Warshall.
type apspSolver struct{}

func (apspSolver) Solve(stn *STN) (*DispatchableGraph, error) {
	d := stn.distanceMatrix()
	floydWarshall(d)

	// A negative diagonal entry is a negative cycle: infeasible.
	for i := range d {
		if d[i][i] < 0 {
			return nil, ErrNoSTPSolution
		}
	}

	return &DispatchableGraph{tasks: stn.Tasks(), dist: d}, nil
}

// floydWarshall runs APSP closure in place with fixed k→i→j loop order for
// deterministic accumulation. +Inf is absorbing, so relaxation through an
// unconstrained edge is skipped outright and the arithmetic stays saturating.
func floydWarshall(d [][]float64) {
	n := len(d)
	for k := 0; k < n; k++ {
		dk := d[k]
		for i := 0; i < n; i++ {
			ik := d[i][k]
			if math.IsInf(ik, 1) {
				continue
			}
			di := d[i]
			for j := 0; j < n; j++ {
				if kj := dk[j]; !math.IsInf(kj, 1) && ik+kj < di[j] {
					di[j] = ik + kj
				}
			}
		}
	}
}
