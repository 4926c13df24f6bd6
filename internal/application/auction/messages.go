package auction

import (
	"time"

	"github.com/andrescamacho/mrta-go/internal/domain/task"
)

// Message types carried in the envelope header.
const (
	MsgTaskAnnouncement = "TASK-ANNOUNCEMENT"
	MsgBid              = "BID"
	MsgAllocation       = "ALLOCATION"
	MsgFinishRound      = "FINISH-ROUND"
)

// TaskAnnouncement opens a round: the auctioneer broadcasts every pending
// task together with the session's zero timepoint.
type TaskAnnouncement struct {
	RoundID                string                `json:"round_id"`
	ZeroTimepoint          time.Time             `json:"zero_timepoint"`
	EarliestAdmissibleTime time.Time             `json:"earliest_admissible_time"`
	Tasks                  map[string]*task.Task `json:"tasks"`
}

// AllocationMessage claims a winning bid: the named robot won the task.
type AllocationMessage struct {
	TaskID  string `json:"task_id"`
	RobotID string `json:"robot_id"`
}

// FinishRound is the winning bidder's acknowledgement that it committed its
// timetable; the auctioneer may close the round.
type FinishRound struct {
	RobotID string `json:"robot_id"`
}
