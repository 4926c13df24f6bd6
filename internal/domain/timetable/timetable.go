// Package timetable binds a robot's STN, its zero timepoint, and the solved
// dispatchable graph. One timetable has a single writer: the owning bidder
// for the committed copy, the auctioneer for its mirror.
package timetable

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/andrescamacho/mrta-go/internal/domain/shared"
	"github.com/andrescamacho/mrta-go/internal/domain/task"
	"github.com/andrescamacho/mrta-go/internal/domain/temporal"
)

// ErrMissingPickupConstraint indicates a task without the mandatory pickup
// timepoint window.
var ErrMissingPickupConstraint = errors.New("task has no pickup timepoint constraint")

// Schedule is the immediate-next committed dispatch, set by an external
// scheduler. The allocator treats it as opaque and only checks its presence.
type Schedule struct {
	TaskID    string    `json:"task_id"`
	StartTime time.Time `json:"start_time"`
}

// Timetable is one robot's committed schedule. EarliestAdmissibleTime
// anchors soft-constraint insertions: a task whose original window was
// dropped may start any time from it onwards.
type Timetable struct {
	RobotID                string
	ZeroTimepoint          time.Time
	EarliestAdmissibleTime time.Time
	STN                    *temporal.STN
	DispatchableGraph      *temporal.DispatchableGraph
	Schedule               *Schedule

	solver temporal.Solver
}

// New returns an empty timetable for the robot using the given STP solver.
func New(robotID string, solver temporal.Solver) *Timetable {
	return &Timetable{
		RobotID: robotID,
		STN:     temporal.NewSTN(),
		solver:  solver,
	}
}

// SetSolver attaches the STP solver; needed after deserialisation.
func (t *Timetable) SetSolver(solver temporal.Solver) {
	t.solver = solver
}

// AddTask translates the task's absolute constraints to offsets from the
// zero timepoint and splices the three task timepoints into the STN at the
// given position. The network is not re-solved; callers follow up with
// SolveSTP and roll back with RemoveTask on infeasibility.
func (t *Timetable) AddTask(tk *task.Task, position int) error {
	pickup, ok := tk.Constraints.TimepointConstraint(task.TimepointPickup)
	if !ok {
		return fmt.Errorf("task %s: %w", tk.TaskID, ErrMissingPickupConstraint)
	}
	startEarliest, startLatest := pickup.RelativeToZTP(t.ZeroTimepoint)

	// A soft task dropped its original window: it may start any time from
	// the earliest admissible time onwards.
	if !tk.Constraints.Hard {
		startEarliest = shared.RelativeTo(t.ZeroTimepoint, t.EarliestAdmissibleTime)
		startLatest = math.Inf(1)
	}

	entry := temporal.TaskEntry{
		TaskID:             tk.TaskID,
		NavigationEarliest: 0,
		NavigationLatest:   temporal.Seconds(math.Inf(1)),
		StartEarliest:      temporal.Seconds(startEarliest),
		StartLatest:        temporal.Seconds(startLatest),
		FinishEarliest:     0,
		FinishLatest:       temporal.Seconds(math.Inf(1)),
	}

	if delivery, ok := tk.Constraints.TimepointConstraint(task.TimepointDelivery); ok {
		finishEarliest, finishLatest := delivery.RelativeToZTP(t.ZeroTimepoint)
		entry.FinishEarliest = temporal.Seconds(finishEarliest)
		entry.FinishLatest = temporal.Seconds(finishLatest)
	}

	if travel, ok := tk.Constraints.InterTimepointConstraint(task.InterTimepointTravelTime); ok {
		entry.TravelTime = temporal.Distribution{Mean: travel.Mean, Variance: travel.Variance}
	}
	if work, ok := tk.Constraints.InterTimepointConstraint(task.InterTimepointWorkTime); ok {
		entry.WorkTime = temporal.Distribution{Mean: work.Mean, Variance: work.Variance}
	}

	return t.STN.Insert(entry, position)
}

// RemoveTask drops the task at the given position from the STN.
func (t *Timetable) RemoveTask(position int) error {
	return t.STN.Remove(position)
}

// SolveSTP runs the STP solver over the current STN. On success the minimal
// dispatchable graph is stored; on infeasibility temporal.ErrNoSTPSolution
// is returned and the caller is responsible for rolling back.
func (t *Timetable) SolveSTP() error {
	graph, err := t.solver.Solve(t.STN)
	if err != nil {
		return err
	}
	t.DispatchableGraph = graph
	return nil
}

// Tasks returns the allocated task ids in position order.
func (t *Timetable) Tasks() []string {
	return t.STN.Tasks()
}

// IsScheduled reports whether the first task is committed for execution, in
// which case insertion at position 1 is blocked.
func (t *Timetable) IsScheduled() bool {
	return t.Schedule != nil
}

// EarliestStart returns the earliest start time of the task as an absolute
// datetime read from the dispatchable graph.
func (t *Timetable) EarliestStart(taskID string) (time.Time, error) {
	if t.DispatchableGraph == nil {
		return time.Time{}, temporal.ErrTaskNotFound
	}
	seconds, err := t.DispatchableGraph.GetTime(taskID, temporal.TimepointStart, true)
	if err != nil {
		return time.Time{}, err
	}
	return shared.AbsoluteTime(t.ZeroTimepoint, seconds), nil
}

// Clone returns a deep copy sharing only the (stateless) solver. Bids carry
// clones so snapshots transfer by value.
func (t *Timetable) Clone() *Timetable {
	clone := &Timetable{
		RobotID:                t.RobotID,
		ZeroTimepoint:          t.ZeroTimepoint,
		EarliestAdmissibleTime: t.EarliestAdmissibleTime,
		STN:                    t.STN.Clone(),
		solver:                 t.solver,
	}
	if t.DispatchableGraph != nil {
		clone.DispatchableGraph = t.DispatchableGraph.Clone()
	}
	if t.Schedule != nil {
		schedule := *t.Schedule
		clone.Schedule = &schedule
	}
	return clone
}

type timetableJSON struct {
	RobotID                string                      `json:"robot_id"`
	ZeroTimepoint          time.Time                   `json:"zero_timepoint"`
	EarliestAdmissibleTime time.Time                   `json:"earliest_admissible_time"`
	STN                    *temporal.STN               `json:"stn"`
	DispatchableGraph      *temporal.DispatchableGraph `json:"dispatchable_graph,omitempty"`
	Schedule               *Schedule                   `json:"schedule,omitempty"`
}

func (t *Timetable) MarshalJSON() ([]byte, error) {
	return json.Marshal(timetableJSON{
		RobotID:                t.RobotID,
		ZeroTimepoint:          t.ZeroTimepoint,
		EarliestAdmissibleTime: t.EarliestAdmissibleTime,
		STN:                    t.STN,
		DispatchableGraph:      t.DispatchableGraph,
		Schedule:               t.Schedule,
	})
}

func (t *Timetable) UnmarshalJSON(data []byte) error {
	var doc timetableJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	t.RobotID = doc.RobotID
	t.ZeroTimepoint = doc.ZeroTimepoint
	t.EarliestAdmissibleTime = doc.EarliestAdmissibleTime
	t.STN = doc.STN
	if t.STN == nil {
		t.STN = temporal.NewSTN()
	}
	t.DispatchableGraph = doc.DispatchableGraph
	t.Schedule = doc.Schedule
	return nil
}
