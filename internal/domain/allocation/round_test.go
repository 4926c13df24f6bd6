package allocation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/mrta-go/internal/domain/allocation"
	"github.com/andrescamacho/mrta-go/internal/domain/shared"
	"github.com/andrescamacho/mrta-go/internal/domain/task"
)

func taskQueue(ids ...string) map[string]*task.Task {
	tasks := make(map[string]*task.Task, len(ids))
	for _, id := range ids {
		tk := task.FromRequest(task.TransportationRequest{
			PickupLocation:     "AMK_D_L-1",
			DeliveryLocation:   "AMK_B_L-1",
			EarliestPickupTime: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
			LatestPickupTime:   time.Date(2026, 8, 25, 10, 3, 0, 0, time.UTC),
			HardConstraints:    true,
		})
		tk.TaskID = id
		tasks[id] = tk
	}
	return tasks
}

func openRound(t *testing.T, tasks map[string]*task.Task, nRobots int, altTimeslots bool, clock shared.Clock) *allocation.Round {
	t.Helper()
	round := allocation.NewRound(tasks, 5*time.Second, nRobots, altTimeslots, clock)
	require.NoError(t, round.Start())
	return round
}

func closeRound(t *testing.T, round *allocation.Round, clock *shared.MockClock) {
	t.Helper()
	clock.Advance(6 * time.Second)
	require.True(t, round.TimeToClose())
}

func roundBid(robotID, taskID string, risk, temporal float64) *allocation.Bid {
	return &allocation.Bid{
		RobotID:         robotID,
		TaskID:          taskID,
		Position:        1,
		RiskMetric:      risk,
		TemporalMetric:  temporal,
		HardConstraints: true,
	}
}

func TestRound_FreshCountsAsFinished(t *testing.T) {
	round := allocation.NewRound(nil, 0, 0, false, nil)
	assert.True(t, round.Finished())
	assert.False(t, round.Opened())
}

func TestRound_StartOpensOnce(t *testing.T) {
	clock := shared.NewMockClock(time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	round := allocation.NewRound(taskQueue("task-a"), 5*time.Second, 1, false, clock)

	require.NoError(t, round.Start())
	assert.True(t, round.Opened())
	assert.Error(t, round.Start())
}

func TestRound_TimeToCloseHonoursDeadline(t *testing.T) {
	clock := shared.NewMockClock(time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	round := openRound(t, taskQueue("task-a"), 1, false, clock)

	clock.Advance(4 * time.Second)
	assert.False(t, round.TimeToClose())

	clock.Advance(time.Second)
	assert.True(t, round.TimeToClose())
	assert.False(t, round.Opened())
}

func TestRound_ElectsLowestBid(t *testing.T) {
	clock := shared.NewMockClock(time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	tasks := taskQueue("task-a", "task-b")
	round := openRound(t, tasks, 2, false, clock)

	round.ProcessBid(roundBid("robot_001", "task-a", 1, 300))
	round.ProcessBid(roundBid("robot_002", "task-b", 1, 200))
	closeRound(t, round, clock)

	result, err := round.GetResult()
	require.NoError(t, err)
	assert.Equal(t, "task-b", result.Task.TaskID)
	assert.Equal(t, "robot_002", result.RobotID)

	// The winner leaves the queue; the rest stay for the next round.
	assert.Len(t, result.RemainingTasks, 1)
	assert.Contains(t, result.RemainingTasks, "task-a")
}

func TestRound_EqualCostTieBreaksOnRobotIndex(t *testing.T) {
	clock := shared.NewMockClock(time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	round := openRound(t, taskQueue("task-a"), 2, false, clock)

	round.ProcessBid(roundBid("robot_002", "task-a", 1, 100))
	round.ProcessBid(roundBid("robot_001", "task-a", 1, 100))
	closeRound(t, round, clock)

	result, err := round.GetResult()
	require.NoError(t, err)
	assert.Equal(t, "robot_001", result.RobotID)
}

func TestRound_EqualCostAcrossTasksTieBreaksOnTaskID(t *testing.T) {
	clock := shared.NewMockClock(time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	round := openRound(t, taskQueue("task-a", "task-b"), 2, false, clock)

	round.ProcessBid(roundBid("robot_001", "task-b", 1, 100))
	round.ProcessBid(roundBid("robot_002", "task-a", 1, 100))
	closeRound(t, round, clock)

	result, err := round.GetResult()
	require.NoError(t, err)
	assert.Equal(t, "task-a", result.Task.TaskID)
}

func TestRound_BestBidIsMonotone(t *testing.T) {
	clock := shared.NewMockClock(time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	round := openRound(t, taskQueue("task-a"), 2, false, clock)

	round.ProcessBid(roundBid("robot_001", "task-a", 1, 100))
	// A worse bid never displaces the current best.
	round.ProcessBid(roundBid("robot_002", "task-a", 1, 200))
	assert.Equal(t, "robot_001", round.BestBid("task-a").RobotID)

	round.ProcessBid(roundBid("robot_002", "task-a", 1, 50))
	assert.Equal(t, "robot_002", round.BestBid("task-a").RobotID)
}

func TestRound_DropsBidsOutsideOpenState(t *testing.T) {
	clock := shared.NewMockClock(time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	round := openRound(t, taskQueue("task-a"), 1, false, clock)
	closeRound(t, round, clock)

	round.ProcessBid(roundBid("robot_001", "task-a", 1, 100))

	_, err := round.GetResult()
	var noAlloc *allocation.NoAllocationError
	assert.ErrorAs(t, err, &noAlloc)
}

func TestRound_AllNoBidsYieldNoAllocation(t *testing.T) {
	clock := shared.NewMockClock(time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	round := openRound(t, taskQueue("task-a"), 2, false, clock)

	round.ProcessBid(allocation.NewNoBid("robot_001", "r", "task-a"))
	round.ProcessBid(allocation.NewNoBid("robot_002", "r", "task-a"))
	closeRound(t, round, clock)

	assert.Equal(t, 2, round.NoBidCount("task-a"))
	_, err := round.GetResult()
	var noAlloc *allocation.NoAllocationError
	assert.ErrorAs(t, err, &noAlloc)
}

func TestRound_UnanimousNoBidsFlipSoftConstraints(t *testing.T) {
	clock := shared.NewMockClock(time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	tasks := taskQueue("task-a")
	round := openRound(t, tasks, 2, true, clock)

	round.ProcessBid(allocation.NewNoBid("robot_001", "r", "task-a"))
	round.ProcessBid(allocation.NewNoBid("robot_002", "r", "task-a"))
	closeRound(t, round, clock)

	_, err := round.GetResult()
	var noAlloc *allocation.NoAllocationError
	require.ErrorAs(t, err, &noAlloc)

	// The task stays in the queue with its constraints softened for the
	// next announcement.
	assert.False(t, tasks["task-a"].Constraints.Hard)
}

func TestRound_SoftWinnerSurfacesAlternativeTimeSlot(t *testing.T) {
	clock := shared.NewMockClock(time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	tasks := taskQueue("task-a")
	round := openRound(t, tasks, 1, true, clock)

	alt := time.Date(2026, 8, 25, 11, 0, 0, 0, time.UTC)
	soft := roundBid("robot_001", "task-a", 1, 100)
	soft.HardConstraints = false
	soft.AlternativeStartTime = &alt
	round.ProcessBid(soft)
	closeRound(t, round, clock)

	_, err := round.GetResult()
	var altErr *allocation.AlternativeTimeSlotError
	require.ErrorAs(t, err, &altErr)
	assert.Equal(t, "task-a", altErr.TaskID)
	assert.Equal(t, "robot_001", altErr.RobotID)
	require.NotNil(t, altErr.AlternativeStartTime)
	assert.True(t, alt.Equal(*altErr.AlternativeStartTime))

	// The parked task is out of the queue either way.
	assert.Empty(t, tasks)
}

func TestRound_FinishRequiresClosedState(t *testing.T) {
	clock := shared.NewMockClock(time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	round := openRound(t, taskQueue("task-a"), 1, false, clock)

	assert.Error(t, round.Finish())
	closeRound(t, round, clock)
	require.NoError(t, round.Finish())
	assert.True(t, round.Finished())
}
