// Package task holds the transportation task model: the request a task was
// created from, its temporal constraints relative to the auction's zero
// timepoint, and the slice of the status lifecycle the allocator touches.
package task

import (
	"github.com/google/uuid"
)

// Status is the allocation-visible slice of the task lifecycle.
type Status string

const (
	// StatusUnallocated marks a task waiting in the auctioneer's queue.
	StatusUnallocated Status = "UNALLOCATED"

	// StatusAllocated marks a task committed to a robot's timetable.
	StatusAllocated Status = "ALLOCATED"
)

// Task is a transportation task competing in the auction. TaskID is stable
// and unique; tie-breaks compare it lexicographically.
type Task struct {
	TaskID         string                `json:"task_id"`
	Request        TransportationRequest `json:"request"`
	Constraints    TemporalConstraints   `json:"constraints"`
	Status         Status                `json:"status"`
	AssignedRobots []string              `json:"assigned_robots,omitempty"`
}

// FromRequest builds a task from a transportation request, deriving the
// initial pickup window and the travel_time/work_time distributions. The
// work_time mean defaults to the width of the pickup window until a better
// estimate is available.
func FromRequest(req TransportationRequest) *Task {
	constraints := TemporalConstraints{
		Hard: req.HardConstraints,
		Timepoint: []TimepointConstraint{
			{Name: TimepointPickup, EarliestTime: req.EarliestPickupTime, LatestTime: req.LatestPickupTime},
		},
		InterTimepoint: []InterTimepointConstraint{
			{Name: InterTimepointTravelTime},
			{Name: InterTimepointWorkTime, Mean: req.LatestPickupTime.Sub(req.EarliestPickupTime).Seconds(), Variance: 0.1},
		},
	}

	return &Task{
		TaskID:      uuid.NewString(),
		Request:     req,
		Constraints: constraints,
		Status:      StatusUnallocated,
	}
}

// SetSoftConstraints marks the task as acceptable outside its original
// window. Flipped by the round when every robot no-bids and alternative
// timeslots are enabled.
func (t *Task) SetSoftConstraints() {
	t.Constraints.Hard = false
	t.Request.HardConstraints = false
}

// AssignRobots records the robots the task was allocated to.
func (t *Task) AssignRobots(robotIDs ...string) {
	t.AssignedRobots = append(t.AssignedRobots, robotIDs...)
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	clone := *t
	clone.Constraints.Timepoint = append([]TimepointConstraint(nil), t.Constraints.Timepoint...)
	clone.Constraints.InterTimepoint = append([]InterTimepointConstraint(nil), t.Constraints.InterTimepoint...)
	clone.AssignedRobots = append([]string(nil), t.AssignedRobots...)
	return &clone
}
