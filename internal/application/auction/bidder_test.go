package auction_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/mrta-go/internal/adapters/bus"
	"github.com/andrescamacho/mrta-go/internal/application/auction"
	"github.com/andrescamacho/mrta-go/internal/domain/allocation"
	"github.com/andrescamacho/mrta-go/internal/domain/task"
	"github.com/andrescamacho/mrta-go/internal/domain/temporal"
	"github.com/andrescamacho/mrta-go/internal/domain/timetable"
)

type bidderHarness struct {
	bus             *bus.InProc
	auctioneerInbox *bus.Inbox
	bidder          *auction.Bidder
	tasks           *memTaskStore
	timetables      *memTimetableStore
}

func newBidderHarness(t *testing.T, robotID string) *bidderHarness {
	t.Helper()

	solver, err := temporal.NewSolver("fpc")
	require.NoError(t, err)
	rule, err := auction.NewBiddingRule("fpc", "completion_time")
	require.NoError(t, err)

	h := &bidderHarness{
		bus:        bus.NewInProc(),
		tasks:      newMemTaskStore(),
		timetables: newMemTimetableStore(),
	}
	h.auctioneerInbox = h.bus.Subscribe("auctioneer", auction.GroupTaskAllocation)
	inbox := h.bus.Subscribe(robotID, auction.GroupTaskAllocation)
	h.bidder = auction.NewBidder(robotID, timetable.New(robotID, solver), rule,
		"auctioneer", h.bus, inbox, h.tasks, h.timetables)
	return h
}

func (h *bidderHarness) announce(ctx context.Context, t *testing.T, tasks ...*task.Task) {
	t.Helper()
	byID := make(map[string]*task.Task, len(tasks))
	for _, tk := range tasks {
		byID[tk.TaskID] = tk
	}
	announcement := auction.TaskAnnouncement{
		RoundID:                "round-1",
		ZeroTimepoint:          ztp,
		EarliestAdmissibleTime: ztp.Add(9 * time.Hour),
		Tasks:                  byID,
	}
	require.NoError(t, h.bus.PublishToGroup(ctx, auction.GroupTaskAllocation, auction.MsgTaskAnnouncement, announcement))
	// The announcement also lands in the auctioneer's own inbox; drop it so
	// tests only see what the bidder sent back.
	h.auctioneerInbox.Drain(func(string, []byte) {})
}

// receivedBids drains the auctioneer inbox and decodes every BID.
func (h *bidderHarness) receivedBids(t *testing.T) []*allocation.Bid {
	t.Helper()
	var bids []*allocation.Bid
	h.auctioneerInbox.Drain(func(msgType string, payload []byte) {
		if msgType != auction.MsgBid {
			return
		}
		var b allocation.Bid
		require.NoError(t, json.Unmarshal(payload, &b))
		bids = append(bids, &b)
	})
	return bids
}

func TestBidder_PublishesSingleSmallestBid(t *testing.T) {
	ctx := context.Background()
	h := newBidderHarness(t, "robot_001")
	early := pickupTask("task-early", ztp.Add(10*time.Hour), ztp.Add(10*time.Hour+3*time.Minute))
	late := pickupTask("task-late", ztp.Add(12*time.Hour), ztp.Add(12*time.Hour+3*time.Minute))

	h.announce(ctx, t, late, early)
	h.bidder.Tick(ctx)

	// One bid per round, for the cheapest feasible task only.
	bids := h.receivedBids(t)
	require.Len(t, bids, 1)
	assert.Equal(t, "task-early", bids[0].TaskID)
	assert.Equal(t, "robot_001", bids[0].RobotID)
	assert.Equal(t, "round-1", bids[0].RoundID)
	assert.False(t, bids[0].IsNoBid())

	// Bidding is stateless until an allocation arrives: neither the STN nor
	// the dispatchable graph keeps any trial insertion.
	assert.Empty(t, h.bidder.Timetable().Tasks())
	assert.Nil(t, h.bidder.Timetable().DispatchableGraph)
}

func TestBidder_SendsNoBidPerInfeasibleTask(t *testing.T) {
	ctx := context.Background()
	h := newBidderHarness(t, "robot_001")
	feasible := pickupTask("task-ok", ztp.Add(10*time.Hour), ztp.Add(10*time.Hour+3*time.Minute))
	impossible := infeasibleTask("task-impossible")

	h.announce(ctx, t, feasible, impossible)
	h.bidder.Tick(ctx)

	bids := h.receivedBids(t)
	require.Len(t, bids, 2)

	byTask := make(map[string]*allocation.Bid, len(bids))
	for _, b := range bids {
		byTask[b.TaskID] = b
	}
	assert.False(t, byTask["task-ok"].IsNoBid())
	assert.True(t, byTask["task-impossible"].IsNoBid())
}

func TestBidder_AdoptsAnnouncedZeroTimepoint(t *testing.T) {
	ctx := context.Background()
	h := newBidderHarness(t, "robot_001")
	tk := pickupTask("task-a", ztp.Add(10*time.Hour), ztp.Add(10*time.Hour+3*time.Minute))

	h.announce(ctx, t, tk)
	h.bidder.Tick(ctx)

	tt := h.bidder.Timetable()
	assert.True(t, tt.ZeroTimepoint.Equal(ztp))
	assert.True(t, tt.EarliestAdmissibleTime.Equal(ztp.Add(9*time.Hour)))
}

func TestBidder_IgnoresAllocationForOtherRobot(t *testing.T) {
	ctx := context.Background()
	h := newBidderHarness(t, "robot_001")
	tk := pickupTask("task-a", ztp.Add(10*time.Hour), ztp.Add(10*time.Hour+3*time.Minute))
	require.NoError(t, h.tasks.Save(ctx, tk))

	h.announce(ctx, t, tk)
	h.bidder.Tick(ctx)
	h.receivedBids(t)

	msg := auction.AllocationMessage{TaskID: "task-a", RobotID: "robot_002"}
	require.NoError(t, h.bus.PublishToGroup(ctx, auction.GroupTaskAllocation, auction.MsgAllocation, msg))
	h.bidder.Tick(ctx)

	// Nothing committed, no finish-round acknowledgement.
	assert.Empty(t, h.bidder.Timetable().Tasks())
	h.auctioneerInbox.Drain(func(msgType string, _ []byte) {
		assert.NotEqual(t, auction.MsgFinishRound, msgType)
	})
}

func TestBidder_CommitsWinningBidAndAcknowledges(t *testing.T) {
	ctx := context.Background()
	h := newBidderHarness(t, "robot_001")
	tk := pickupTask("task-a", ztp.Add(10*time.Hour), ztp.Add(10*time.Hour+3*time.Minute))
	require.NoError(t, h.tasks.Save(ctx, tk))

	h.announce(ctx, t, tk)
	h.bidder.Tick(ctx)
	h.receivedBids(t)

	msg := auction.AllocationMessage{TaskID: "task-a", RobotID: "robot_001"}
	require.NoError(t, h.bus.PublishToGroup(ctx, auction.GroupTaskAllocation, auction.MsgAllocation, msg))
	h.bidder.Tick(ctx)

	assert.Equal(t, []string{"task-a"}, h.bidder.Timetable().Tasks())

	stored, err := h.tasks.Get(ctx, "task-a")
	require.NoError(t, err)
	assert.Equal(t, task.StatusAllocated, stored.Status)
	assert.Equal(t, []string{"robot_001"}, stored.AssignedRobots)

	saved, err := h.timetables.Get(ctx, "robot_001")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, []string{"task-a"}, saved.Tasks())

	var finishes int
	h.auctioneerInbox.Drain(func(msgType string, _ []byte) {
		if msgType == auction.MsgFinishRound {
			finishes++
		}
	})
	assert.Equal(t, 1, finishes)
}
