package timetable_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/mrta-go/internal/domain/task"
	"github.com/andrescamacho/mrta-go/internal/domain/temporal"
	"github.com/andrescamacho/mrta-go/internal/domain/timetable"
)

var ztp = time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

func newTimetable(t *testing.T) *timetable.Timetable {
	t.Helper()
	solver, err := temporal.NewSolver("fpc")
	require.NoError(t, err)
	tt := timetable.New("robot_001", solver)
	tt.ZeroTimepoint = ztp
	return tt
}

func pickupTask(id string, earliest, latest time.Time) *task.Task {
	tk := task.FromRequest(task.TransportationRequest{
		PickupLocation:     "AMK_D_L-1",
		DeliveryLocation:   "AMK_B_L-1",
		EarliestPickupTime: earliest,
		LatestPickupTime:   latest,
		HardConstraints:    true,
	})
	tk.TaskID = id
	return tk
}

func TestTimetable_AddTaskAndSolve(t *testing.T) {
	// Arrange
	tt := newTimetable(t)
	tk := pickupTask("task-a",
		ztp.Add(10*time.Hour),
		ztp.Add(10*time.Hour+3*time.Minute))

	// Act
	require.NoError(t, tt.AddTask(tk, 1))
	require.NoError(t, tt.SolveSTP())

	// Assert
	assert.Equal(t, []string{"task-a"}, tt.Tasks())
	require.NotNil(t, tt.DispatchableGraph)

	start, err := tt.EarliestStart("task-a")
	require.NoError(t, err)
	assert.Equal(t, ztp.Add(10*time.Hour), start)
}

func TestTimetable_AddTaskWithoutPickupConstraint(t *testing.T) {
	tt := newTimetable(t)
	tk := &task.Task{TaskID: "task-a"}

	err := tt.AddTask(tk, 1)
	assert.ErrorIs(t, err, timetable.ErrMissingPickupConstraint)
}

func TestTimetable_RemoveTaskRestoresNetwork(t *testing.T) {
	tt := newTimetable(t)
	first := pickupTask("task-a", ztp.Add(time.Hour), ztp.Add(time.Hour+3*time.Minute))
	require.NoError(t, tt.AddTask(first, 1))
	require.NoError(t, tt.SolveSTP())

	second := pickupTask("task-b", ztp.Add(2*time.Hour), ztp.Add(2*time.Hour+3*time.Minute))
	require.NoError(t, tt.AddTask(second, 2))
	require.NoError(t, tt.RemoveTask(2))

	assert.Equal(t, []string{"task-a"}, tt.Tasks())
}

func TestTimetable_SolveSTPInfeasible(t *testing.T) {
	tt := newTimetable(t)
	tk := pickupTask("task-a", ztp.Add(time.Hour), ztp.Add(time.Hour+3*time.Minute))
	// A delivery deadline before the pickup window opens cannot be met.
	tk.Constraints.SetTimepointConstraint(task.TimepointConstraint{
		Name:         task.TimepointDelivery,
		EarliestTime: ztp,
		LatestTime:   ztp.Add(30 * time.Minute),
	})

	require.NoError(t, tt.AddTask(tk, 1))
	err := tt.SolveSTP()
	assert.ErrorIs(t, err, temporal.ErrNoSTPSolution)
}

func TestTimetable_IsScheduled(t *testing.T) {
	tt := newTimetable(t)
	assert.False(t, tt.IsScheduled())

	tt.Schedule = &timetable.Schedule{TaskID: "task-a", StartTime: ztp.Add(time.Hour)}
	assert.True(t, tt.IsScheduled())
}

func TestTimetable_CloneIsIndependent(t *testing.T) {
	tt := newTimetable(t)
	tk := pickupTask("task-a", ztp.Add(time.Hour), ztp.Add(time.Hour+3*time.Minute))
	require.NoError(t, tt.AddTask(tk, 1))
	require.NoError(t, tt.SolveSTP())

	clone := tt.Clone()
	other := pickupTask("task-b", ztp.Add(2*time.Hour), ztp.Add(2*time.Hour+3*time.Minute))
	require.NoError(t, clone.AddTask(other, 2))

	assert.Equal(t, []string{"task-a"}, tt.Tasks())
	assert.Equal(t, []string{"task-a", "task-b"}, clone.Tasks())
}

func TestTimetable_JSONRoundTrip(t *testing.T) {
	tt := newTimetable(t)
	tk := pickupTask("task-a", ztp.Add(time.Hour), ztp.Add(time.Hour+3*time.Minute))
	require.NoError(t, tt.AddTask(tk, 1))
	require.NoError(t, tt.SolveSTP())
	tt.Schedule = &timetable.Schedule{TaskID: "task-a", StartTime: ztp.Add(time.Hour)}

	data, err := json.Marshal(tt)
	require.NoError(t, err)

	var decoded timetable.Timetable
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, tt.RobotID, decoded.RobotID)
	assert.True(t, tt.ZeroTimepoint.Equal(decoded.ZeroTimepoint))
	assert.Equal(t, tt.Tasks(), decoded.Tasks())
	require.NotNil(t, decoded.Schedule)
	assert.Equal(t, "task-a", decoded.Schedule.TaskID)

	// The solver does not survive serialisation; re-attach before solving.
	solver, err := temporal.NewSolver("fpc")
	require.NoError(t, err)
	decoded.SetSolver(solver)
	assert.NoError(t, decoded.SolveSTP())
}
