package allocation

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/andrescamacho/mrta-go/internal/domain/shared"
	"github.com/andrescamacho/mrta-go/internal/domain/task"
)

// roundState is the tagged variant behind the round lifecycle. A round is in
// exactly one of fresh, open, closed, finished; transitions are guarded by
// the methods below.
type roundState int

const (
	stateFresh roundState = iota
	stateOpen
	stateClosed
	stateFinished
)

func (s roundState) String() string {
	switch s {
	case stateFresh:
		return "fresh"
	case stateOpen:
		return "open"
	case stateClosed:
		return "closed"
	default:
		return "finished"
	}
}

// Result is a successful round election.
type Result struct {
	Task           *task.Task
	RobotID        string
	Position       int
	WinningBid     *Bid
	RemainingTasks map[string]*task.Task
}

// Round aggregates bids for one auction iteration and elects at most one
// winning (task, robot, position) triple.
//
// opened: bid messages are processed.
// closed: late bids are silently dropped; election may run.
// finished: the election is over (or the round never started).
type Round struct {
	ID                   uuid.UUID
	tasksToAllocate      map[string]*task.Task
	roundTime            time.Duration
	nRobots              int
	alternativeTimeslots bool

	state          roundState
	openTime       time.Time
	closureTime    time.Time
	receivedBids   map[string]*Bid
	receivedNoBids map[string]int

	clock  shared.Clock
	logger *log.Logger
}

// NewRound constructs a fresh round over the given task queue. A fresh round
// reports finished=true until Start opens it.
func NewRound(tasks map[string]*task.Task, roundTime time.Duration, nRobots int, alternativeTimeslots bool, clock shared.Clock) *Round {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &Round{
		ID:                   uuid.New(),
		tasksToAllocate:      tasks,
		roundTime:            roundTime,
		nRobots:              nRobots,
		alternativeTimeslots: alternativeTimeslots,
		state:                stateFresh,
		receivedBids:         make(map[string]*Bid),
		receivedNoBids:       make(map[string]int),
		clock:                clock,
		logger:               log.New(log.Writer(), "auctioneer.round ", log.LstdFlags),
	}
}

// Opened reports whether the round is accepting bids.
func (r *Round) Opened() bool {
	return r.state == stateOpen
}

// Finished reports whether the round is over. Fresh rounds count as
// finished: the auctioneer may open the next round.
func (r *Round) Finished() bool {
	return r.state == stateFresh || r.state == stateFinished
}

// Start opens the round and computes its closure deadline.
func (r *Round) Start() error {
	if r.state != stateFresh {
		return fmt.Errorf("cannot start round %s from %s state", r.ID, r.state)
	}
	r.openTime = r.clock.Now()
	r.closureTime = r.openTime.Add(r.roundTime)
	r.state = stateOpen
	r.logger.Printf("round %s opened at %s, closes at %s", r.ID, r.openTime.Format(time.RFC3339), r.closureTime.Format(time.RFC3339))
	return nil
}

// ProcessBid records a bid. No-bids increment the per-task counter; finite
// bids replace the task's best bid only when strictly better under the cost
// order (robot-index tie-break), so the best bid is monotone non-increasing.
// Bids outside the open state are dropped.
func (r *Round) ProcessBid(bid *Bid) {
	if r.state != stateOpen {
		r.logger.Printf("round %s not open, dropping bid from %s", r.ID, bid.RobotID)
		return
	}

	if bid.IsNoBid() {
		r.receivedNoBids[bid.TaskID]++
		return
	}

	current, ok := r.receivedBids[bid.TaskID]
	if !ok || updateTaskBid(bid, current) {
		r.receivedBids[bid.TaskID] = bid
	}
}

// updateTaskBid decides whether the new bid replaces the old one for the
// same task: strictly lower cost, or equal cost from a lower robot index.
func updateTaskBid(newBid, oldBid *Bid) bool {
	if newBid.Less(oldBid) {
		return true
	}
	return newBid.EqualCost(oldBid) && newBid.RobotIndex() < oldBid.RobotIndex()
}

// TimeToClose transitions the round to closed once the deadline has passed
// and reports whether it did.
func (r *Round) TimeToClose() bool {
	if r.state != stateOpen {
		return false
	}
	now := r.clock.Now()
	if now.Before(r.closureTime) {
		return false
	}
	r.state = stateClosed
	r.logger.Printf("round %s closed at %s", r.ID, now.Format(time.RFC3339))
	return true
}

// GetResult runs the election over the received bids. When alternative
// timeslots are enabled, tasks that every robot no-bid have their
// constraints flipped to soft first. The winning task is removed from the
// queue; a winner with soft constraints surfaces as AlternativeTimeSlotError
// so the operator can confirm the proposed start time.
func (r *Round) GetResult() (*Result, error) {
	if r.state != stateClosed {
		return nil, fmt.Errorf("cannot elect in %s state", r.state)
	}

	if r.alternativeTimeslots {
		r.setSoftConstraints()
	}

	winner := r.electWinner()
	if winner == nil {
		return nil, &NoAllocationError{RoundID: r.ID}
	}

	allocated := r.tasksToAllocate[winner.TaskID]
	delete(r.tasksToAllocate, winner.TaskID)

	if !winner.HardConstraints {
		return nil, &AlternativeTimeSlotError{
			TaskID:               winner.TaskID,
			RobotID:              winner.RobotID,
			AlternativeStartTime: winner.AlternativeStartTime,
		}
	}

	return &Result{
		Task:           allocated,
		RobotID:        winner.RobotID,
		Position:       winner.Position,
		WinningBid:     winner,
		RemainingTasks: r.tasksToAllocate,
	}, nil
}

// Finish closes out the round after the election.
func (r *Round) Finish() error {
	if r.state != stateClosed {
		return fmt.Errorf("cannot finish round %s from %s state", r.ID, r.state)
	}
	r.state = stateFinished
	r.logger.Printf("round %s finished", r.ID)
	return nil
}

// setSoftConstraints flips a task to soft constraints when every robot
// returned a no-bid for it, signalling that no robot can meet the original
// window and a soft re-auction may follow.
func (r *Round) setSoftConstraints() {
	for taskID, noBids := range r.receivedNoBids {
		if noBids != r.nRobots {
			continue
		}
		if t, ok := r.tasksToAllocate[taskID]; ok {
			t.SetSoftConstraints()
			r.logger.Printf("setting soft constraints for task %s", taskID)
		}
	}
}

// electWinner returns the lowest bid across all tasks, tie-broken by task
// id, or nil when no finite bid was received.
func (r *Round) electWinner() *Bid {
	var lowest *Bid
	for _, bid := range r.receivedBids {
		if lowest == nil || bid.Less(lowest) || (bid.EqualCost(lowest) && bid.TaskID < lowest.TaskID) {
			lowest = bid
		}
	}
	if lowest == nil {
		return nil
	}
	return lowest.Clone()
}

// OpenedAt returns when the round opened; zero for a fresh round.
func (r *Round) OpenedAt() time.Time {
	return r.openTime
}

// BestBid exposes the current best bid for a task; nil when none was
// received.
func (r *Round) BestBid(taskID string) *Bid {
	return r.receivedBids[taskID]
}

// NoBidCount exposes the number of no-bids received for a task.
func (r *Round) NoBidCount(taskID string) int {
	return r.receivedNoBids[taskID]
}
