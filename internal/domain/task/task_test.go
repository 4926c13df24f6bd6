package task_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/mrta-go/internal/domain/task"
)

func request() task.TransportationRequest {
	return task.TransportationRequest{
		PickupLocation:     "AMK_D_L-1",
		DeliveryLocation:   "AMK_B_L-1",
		EarliestPickupTime: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		LatestPickupTime:   time.Date(2026, 8, 25, 10, 3, 0, 0, time.UTC),
		HardConstraints:    true,
	}
}

func TestFromRequest_DerivesConstraints(t *testing.T) {
	// Act
	tk := task.FromRequest(request())

	// Assert
	assert.NotEmpty(t, tk.TaskID)
	assert.Equal(t, task.StatusUnallocated, tk.Status)
	assert.True(t, tk.Constraints.Hard)

	pickup, ok := tk.Constraints.TimepointConstraint(task.TimepointPickup)
	require.True(t, ok)
	assert.Equal(t, tk.Request.EarliestPickupTime, pickup.EarliestTime)
	assert.Equal(t, tk.Request.LatestPickupTime, pickup.LatestTime)

	// Until a planner provides a better estimate, the work time defaults to
	// the width of the pickup window.
	work, ok := tk.Constraints.InterTimepointConstraint(task.InterTimepointWorkTime)
	require.True(t, ok)
	assert.InDelta(t, 180, work.Mean, 1e-9)
	assert.InDelta(t, 0.1, work.Variance, 1e-9)

	_, ok = tk.Constraints.InterTimepointConstraint(task.InterTimepointTravelTime)
	assert.True(t, ok)
}

func TestFromRequest_UniqueIDs(t *testing.T) {
	a := task.FromRequest(request())
	b := task.FromRequest(request())
	assert.NotEqual(t, a.TaskID, b.TaskID)
}

func TestSetSoftConstraints(t *testing.T) {
	tk := task.FromRequest(request())

	tk.SetSoftConstraints()

	assert.False(t, tk.Constraints.Hard)
	assert.False(t, tk.Request.HardConstraints)
}

func TestAssignRobots(t *testing.T) {
	tk := task.FromRequest(request())

	tk.AssignRobots("robot_001")
	tk.AssignRobots("robot_002")

	assert.Equal(t, []string{"robot_001", "robot_002"}, tk.AssignedRobots)
}

func TestClone_IsIndependent(t *testing.T) {
	tk := task.FromRequest(request())
	tk.AssignRobots("robot_001")

	clone := tk.Clone()
	clone.SetSoftConstraints()
	clone.AssignRobots("robot_002")

	assert.True(t, tk.Constraints.Hard)
	assert.Equal(t, []string{"robot_001"}, tk.AssignedRobots)
}

func TestSetTimepointConstraint_Replaces(t *testing.T) {
	tk := task.FromRequest(request())
	delivery := task.TimepointConstraint{
		Name:         task.TimepointDelivery,
		EarliestTime: time.Date(2026, 8, 25, 10, 5, 0, 0, time.UTC),
		LatestTime:   time.Date(2026, 8, 25, 10, 10, 0, 0, time.UTC),
	}

	tk.Constraints.SetTimepointConstraint(delivery)
	got, ok := tk.Constraints.TimepointConstraint(task.TimepointDelivery)
	require.True(t, ok)
	assert.Equal(t, delivery, got)

	// Replacing keeps one entry per name.
	delivery.LatestTime = delivery.LatestTime.Add(time.Minute)
	tk.Constraints.SetTimepointConstraint(delivery)
	assert.Len(t, tk.Constraints.Timepoint, 2)
}
