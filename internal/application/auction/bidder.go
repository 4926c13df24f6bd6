package auction

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"

	"github.com/andrescamacho/mrta-go/internal/domain/allocation"
	"github.com/andrescamacho/mrta-go/internal/domain/task"
	"github.com/andrescamacho/mrta-go/internal/domain/temporal"
	"github.com/andrescamacho/mrta-go/internal/domain/timetable"
)

// Bidder runs next to one robot: it evaluates every insertion position for
// every announced task, publishes the single smallest bid (plus one no-bid
// per infeasible task), and commits the winning timetable on ALLOCATION.
type Bidder struct {
	robotID      string
	timetable    *timetable.Timetable
	rule         *BiddingRule
	auctioneerID string

	publisher  Publisher
	source     MessageSource
	tasks      TaskStore
	timetables TimetableStore

	bidPlaced *allocation.Bid
	logger    *log.Logger
}

// NewBidder wires a bidder for the given robot. The timetable is the
// robot's committed schedule; the bidder is its single writer.
func NewBidder(robotID string, tt *timetable.Timetable, rule *BiddingRule, auctioneerID string, publisher Publisher, source MessageSource, tasks TaskStore, timetables TimetableStore) *Bidder {
	return &Bidder{
		robotID:      robotID,
		timetable:    tt,
		rule:         rule,
		auctioneerID: auctioneerID,
		publisher:    publisher,
		source:       source,
		tasks:        tasks,
		timetables:   timetables,
		logger:       log.New(log.Writer(), "bidder."+robotID+" ", log.LstdFlags),
	}
}

// RobotID returns the robot this bidder speaks for.
func (b *Bidder) RobotID() string {
	return b.robotID
}

// Timetable returns the committed timetable.
func (b *Bidder) Timetable() *timetable.Timetable {
	return b.timetable
}

// Tick drains the bidder's message queue, handling announcements and
// allocations on the calling goroutine.
func (b *Bidder) Tick(ctx context.Context) {
	b.source.Drain(func(msgType string, payload []byte) {
		b.handle(ctx, msgType, payload)
	})
}

func (b *Bidder) handle(ctx context.Context, msgType string, payload []byte) {
	switch msgType {
	case MsgTaskAnnouncement:
		var announcement TaskAnnouncement
		if err := json.Unmarshal(payload, &announcement); err != nil {
			b.logger.Printf("dropping malformed task announcement: %v", err)
			return
		}
		b.onTaskAnnouncement(ctx, &announcement)

	case MsgAllocation:
		var msg AllocationMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			b.logger.Printf("dropping malformed allocation: %v", err)
			return
		}
		b.onAllocation(ctx, &msg)
	}
}

// onTaskAnnouncement adopts the announced zero timepoint and computes bids
// for every announced task.
func (b *Bidder) onTaskAnnouncement(ctx context.Context, announcement *TaskAnnouncement) {
	b.logger.Printf("received TASK-ANNOUNCEMENT for round %s (%d tasks)", announcement.RoundID, len(announcement.Tasks))
	b.timetable.ZeroTimepoint = announcement.ZeroTimepoint
	b.timetable.EarliestAdmissibleTime = announcement.EarliestAdmissibleTime
	b.computeBids(ctx, announcement)
}

// computeBids scores each announced task in a deterministic order and sends
// the single smallest bid, plus one no-bid per task with no feasible
// position.
func (b *Bidder) computeBids(ctx context.Context, announcement *TaskAnnouncement) {
	taskIDs := make([]string, 0, len(announcement.Tasks))
	for taskID := range announcement.Tasks {
		taskIDs = append(taskIDs, taskID)
	}
	sort.Strings(taskIDs)

	var smallest *allocation.Bid
	var noBids []*allocation.Bid

	for _, taskID := range taskIDs {
		t := announcement.Tasks[taskID]
		best := b.insertTask(t, announcement.RoundID)
		if best == nil {
			b.logger.Printf("no bid for task %s", taskID)
			noBids = append(noBids, allocation.NewNoBid(b.robotID, announcement.RoundID, taskID))
			continue
		}
		if smallest == nil || best.Less(smallest) || (best.EqualCost(smallest) && best.TaskID < smallest.TaskID) {
			smallest = best
		}
	}

	b.sendBids(ctx, smallest, noBids)
}

// insertTask tries the task at every position of the STN and returns the
// best-scoring feasible bid, or nil when every position is infeasible. Each
// trial scores a clone, so the committed timetable never changes here.
func (b *Bidder) insertTask(t *task.Task, roundID string) *allocation.Bid {
	var best *allocation.Bid

	makespanBefore := 0.0
	if b.timetable.DispatchableGraph != nil {
		makespanBefore = b.timetable.DispatchableGraph.Makespan()
	}

	n := b.timetable.STN.Len()
	for position := 1; position <= n+1; position++ {
		// The committed next task cannot be displaced.
		if position == 1 && b.timetable.IsScheduled() {
			b.logger.Printf("skipping position 1: first task is scheduled")
			continue
		}

		bid, err := b.rule.ComputeBid(b.robotID, roundID, t, position, makespanBefore, b.timetable)
		switch {
		case err == nil:
			if best == nil || bid.Less(best) {
				best = bid
			}

		case errors.Is(err, temporal.ErrNoSTPSolution):
			b.logger.Printf("no STP solution for task %s at position %d", t.TaskID, position)

		default:
			b.logger.Printf("cannot evaluate task %s at position %d: %v", t.TaskID, position, err)
		}
	}

	return best
}

// sendBids publishes the smallest bid to the auctioneer plus a no-bid per
// task that could not be accommodated.
func (b *Bidder) sendBids(ctx context.Context, bid *allocation.Bid, noBids []*allocation.Bid) {
	if bid != nil {
		b.bidPlaced = bid
		b.logger.Printf("placing bid for task %s at position %d (risk %v, temporal %v)",
			bid.TaskID, bid.Position, bid.RiskMetric, bid.TemporalMetric)
		if err := b.publisher.PublishToPeer(ctx, b.auctioneerID, MsgBid, bid); err != nil {
			b.logger.Printf("warning: could not publish bid: %v", err)
		}
	}

	for _, noBid := range noBids {
		if err := b.publisher.PublishToPeer(ctx, b.auctioneerID, MsgBid, noBid); err != nil {
			b.logger.Printf("warning: could not publish no-bid: %v", err)
		}
	}
}

// onAllocation commits the placed bid's timetable when this robot won and
// acknowledges with FINISH-ROUND. Allocations for other robots are no-ops.
func (b *Bidder) onAllocation(ctx context.Context, msg *AllocationMessage) {
	if msg.RobotID != b.robotID {
		return
	}
	if b.bidPlaced == nil || b.bidPlaced.TaskID != msg.TaskID {
		b.logger.Printf("warning: allocation for task %s does not match placed bid", msg.TaskID)
		return
	}

	b.timetable = b.bidPlaced.Timetable.Clone()
	b.logger.Printf("allocated task %s; timetable now %v", msg.TaskID, b.timetable.Tasks())

	if err := b.tasks.UpdateStatus(ctx, msg.TaskID, task.StatusAllocated); err != nil {
		b.logger.Printf("warning: could not update task status: %v", err)
	}
	if t, err := b.tasks.Get(ctx, msg.TaskID); err != nil {
		b.logger.Printf("warning: could not load task %s: %v", msg.TaskID, err)
	} else {
		t.AssignRobots(b.robotID)
		if err := b.tasks.Save(ctx, t); err != nil {
			b.logger.Printf("warning: could not save task %s: %v", msg.TaskID, err)
		}
	}
	if err := b.timetables.Save(ctx, b.timetable); err != nil {
		b.logger.Printf("warning: could not save timetable: %v", err)
	}

	b.sendFinishRound(ctx)
}

func (b *Bidder) sendFinishRound(ctx context.Context) {
	if err := b.publisher.PublishToGroup(ctx, GroupTaskAllocation, MsgFinishRound, FinishRound{RobotID: b.robotID}); err != nil {
		b.logger.Printf("warning: could not publish finish-round: %v", err)
	}
}
