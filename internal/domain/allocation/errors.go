package allocation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NoAllocationError reports a round whose election found no finite-cost bid.
// The round finishes without allocating; pending tasks stay queued.
type NoAllocationError struct {
	RoundID uuid.UUID
}

func (e *NoAllocationError) Error() string {
	return fmt.Sprintf("no allocation in round %s", e.RoundID)
}

// AlternativeTimeSlotError reports a winning bid outside the task's original
// hard window. The allocation needs operator confirmation before dispatch.
type AlternativeTimeSlotError struct {
	TaskID               string
	RobotID              string
	AlternativeStartTime *time.Time
}

func (e *AlternativeTimeSlotError) Error() string {
	return fmt.Sprintf("task %s allocated to %s in an alternative timeslot", e.TaskID, e.RobotID)
}
