// Package auction implements the TeSSI-style auction: the auctioneer that
// runs rounds, the per-robot bidder, and the pluggable bidding rule that
// scores candidate insertions.
package auction

import (
	"fmt"

	"github.com/andrescamacho/mrta-go/internal/domain/allocation"
	"github.com/andrescamacho/mrta-go/internal/domain/task"
	"github.com/andrescamacho/mrta-go/internal/domain/temporal"
	"github.com/andrescamacho/mrta-go/internal/domain/timetable"
)

// RobustnessFunc computes the risk metric of a candidate schedule from its
// dispatchable graph.
type RobustnessFunc func(after *temporal.DispatchableGraph) float64

// TemporalFunc computes the temporal metric, in seconds, from the makespan
// before insertion and the dispatchable graph after it.
type TemporalFunc func(makespanBefore float64, after *temporal.DispatchableGraph) float64

// Named policy registries keyed by the bidding_rule configuration strings.
var (
	robustnessPolicies = map[string]RobustnessFunc{
		// Full path consistency carries no probabilistic information: every
		// consistent schedule is equally acceptable.
		"fpc": func(*temporal.DispatchableGraph) float64 { return 1 },

		// More slack means more robustness to delay, so less risk.
		"srea": func(g *temporal.DispatchableGraph) float64 {
			return 1 / (1 + g.TotalSlack())
		},

		// Degree of schedule compression: slack relative to the schedule span.
		"dsc": func(g *temporal.DispatchableGraph) float64 {
			slack := g.TotalSlack()
			span := g.Makespan() + slack
			if span == 0 {
				return 0
			}
			return 1 - slack/span
		},
	}

	temporalPolicies = map[string]TemporalFunc{
		"completion_time": func(before float64, g *temporal.DispatchableGraph) float64 {
			return g.Makespan() - before
		},
		"makespan": func(_ float64, g *temporal.DispatchableGraph) float64 {
			return g.Makespan()
		},
		"idle_time": func(_ float64, g *temporal.DispatchableGraph) float64 {
			return g.IdleTime()
		},
	}
)

// BiddingRule scores a (task, position) candidate as a (risk, temporal)
// cost pair. It is a pure pairing of two named policies; no state survives
// between calls.
type BiddingRule struct {
	robustnessName string
	temporalName   string
	robustness     RobustnessFunc
	temporal       TemporalFunc
}

// NewBiddingRule looks up the named robustness and temporal policies.
func NewBiddingRule(robustness, temporal string) (*BiddingRule, error) {
	robustnessFn, ok := robustnessPolicies[robustness]
	if !ok {
		return nil, fmt.Errorf("unknown robustness policy %q", robustness)
	}
	temporalFn, ok := temporalPolicies[temporal]
	if !ok {
		return nil, fmt.Errorf("unknown temporal policy %q", temporal)
	}
	return &BiddingRule{
		robustnessName: robustness,
		temporalName:   temporal,
		robustness:     robustnessFn,
		temporal:       temporalFn,
	}, nil
}

func (r *BiddingRule) String() string {
	return r.robustnessName + "/" + r.temporalName
}

// ComputeBid scores the insertion of the task at the given position. The
// trial runs on a clone of the timetable, so the committed schedule and its
// dispatchable graph are never touched; the solved candidate travels inside
// the returned bid and is what the bidder commits on ALLOCATION. On
// infeasibility temporal.ErrNoSTPSolution is returned.
func (r *BiddingRule) ComputeBid(robotID, roundID string, t *task.Task, position int, makespanBefore float64, tt *timetable.Timetable) (*allocation.Bid, error) {
	candidate := tt.Clone()
	if err := candidate.AddTask(t, position); err != nil {
		return nil, err
	}
	if err := candidate.SolveSTP(); err != nil {
		return nil, err
	}

	graph := candidate.DispatchableGraph
	bid := &allocation.Bid{
		RobotID:         robotID,
		RoundID:         roundID,
		TaskID:          t.TaskID,
		Position:        position,
		RiskMetric:      r.robustness(graph),
		TemporalMetric:  r.temporal(makespanBefore, graph),
		HardConstraints: t.Constraints.Hard,
		Timetable:       candidate,
	}

	// Soft-constraint bids propose the earliest feasible start so the
	// operator can confirm the alternative timeslot.
	if !t.Constraints.Hard {
		if start, err := candidate.EarliestStart(t.TaskID); err == nil {
			bid.AlternativeStartTime = &start
		}
	}

	return bid, nil
}
