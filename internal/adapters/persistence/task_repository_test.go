package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/mrta-go/internal/adapters/persistence"
	"github.com/andrescamacho/mrta-go/internal/domain/task"
	"github.com/andrescamacho/mrta-go/test/helpers"
)

func transportationTask(id string) *task.Task {
	tk := task.FromRequest(task.TransportationRequest{
		PickupLocation:     "AMK_D_L-1",
		DeliveryLocation:   "AMK_B_L-1",
		EarliestPickupTime: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		LatestPickupTime:   time.Date(2026, 8, 25, 10, 3, 0, 0, time.UTC),
		HardConstraints:    true,
	})
	tk.TaskID = id
	return tk
}

func TestGormTaskRepository_SaveAndGet(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormTaskRepository(db)
	ctx := context.Background()
	tk := transportationTask("task-a")

	// Act
	err := repo.Save(ctx, tk)
	require.NoError(t, err)
	found, err := repo.Get(ctx, "task-a")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "task-a", found.TaskID)
	assert.Equal(t, task.StatusUnallocated, found.Status)
	assert.Equal(t, "AMK_D_L-1", found.Request.PickupLocation)
	assert.True(t, found.Constraints.Hard)

	pickup, ok := found.Constraints.TimepointConstraint(task.TimepointPickup)
	require.True(t, ok)
	assert.True(t, pickup.EarliestTime.Equal(tk.Request.EarliestPickupTime))
}

func TestGormTaskRepository_GetNotFound(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormTaskRepository(db)

	_, err := repo.Get(context.Background(), "missing")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "task not found")
}

func TestGormTaskRepository_SaveUpserts(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormTaskRepository(db)
	ctx := context.Background()

	tk := transportationTask("task-a")
	require.NoError(t, repo.Save(ctx, tk))

	tk.AssignRobots("robot_001")
	tk.Status = task.StatusAllocated
	require.NoError(t, repo.Save(ctx, tk))

	found, err := repo.Get(ctx, "task-a")
	require.NoError(t, err)
	assert.Equal(t, task.StatusAllocated, found.Status)
	assert.Equal(t, []string{"robot_001"}, found.AssignedRobots)
}

func TestGormTaskRepository_UpdateStatus(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormTaskRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, transportationTask("task-a")))

	err := repo.UpdateStatus(ctx, "task-a", task.StatusAllocated)

	require.NoError(t, err)
	found, err := repo.Get(ctx, "task-a")
	require.NoError(t, err)
	assert.Equal(t, task.StatusAllocated, found.Status)
}

func TestGormTaskRepository_UpdateStatusNotFound(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormTaskRepository(db)

	err := repo.UpdateStatus(context.Background(), "missing", task.StatusAllocated)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "task not found")
}

func TestGormTaskRepository_ListByStatus(t *testing.T) {
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormTaskRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, transportationTask("task-a")))
	require.NoError(t, repo.Save(ctx, transportationTask("task-b")))
	allocated := transportationTask("task-c")
	allocated.Status = task.StatusAllocated
	require.NoError(t, repo.Save(ctx, allocated))

	pending, err := repo.ListByStatus(ctx, task.StatusUnallocated)

	require.NoError(t, err)
	require.Len(t, pending, 2)
	ids := []string{pending[0].TaskID, pending[1].TaskID}
	assert.ElementsMatch(t, []string{"task-a", "task-b"}, ids)
}
