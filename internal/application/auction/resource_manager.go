package auction

import (
	"context"
	"log"

	"github.com/andrescamacho/mrta-go/internal/domain/task"
)

// ResourceManager composes the auctioneer with the fleet: it registers
// robots, feeds tasks into the auction, and picks up externally submitted
// tasks from the store on every tick.
type ResourceManager struct {
	auctioneer *Auctioneer
	tasks      TaskStore
	logger     *log.Logger
}

// NewResourceManager wires the resource manager around an auctioneer.
func NewResourceManager(auctioneer *Auctioneer, tasks TaskStore) *ResourceManager {
	return &ResourceManager{
		auctioneer: auctioneer,
		tasks:      tasks,
		logger:     log.New(log.Writer(), "resource-manager ", log.LstdFlags),
	}
}

// Auctioneer exposes the owned auctioneer.
func (rm *ResourceManager) Auctioneer() *Auctioneer {
	return rm.auctioneer
}

// RegisterRobot adds a robot identity to the fleet.
func (rm *ResourceManager) RegisterRobot(ctx context.Context, robotID string) {
	rm.logger.Printf("registering robot %s", robotID)
	rm.auctioneer.RegisterRobot(ctx, robotID)
}

// Allocate queues tasks for auction.
func (rm *ResourceManager) Allocate(ctx context.Context, tasks ...*task.Task) {
	rm.auctioneer.Allocate(ctx, tasks...)
}

// Tick polls the store for newly submitted tasks and advances the auction.
func (rm *ResourceManager) Tick(ctx context.Context) {
	rm.pollSubmittedTasks(ctx)
	rm.auctioneer.Tick(ctx)
}

// pollSubmittedTasks picks up UNALLOCATED tasks saved by other processes
// (e.g. the task submit command). Tasks already queued, parked, or allocated
// are skipped, so parked alternative-timeslot tasks are never re-announced.
func (rm *ResourceManager) pollSubmittedTasks(ctx context.Context) {
	pending, err := rm.tasks.ListByStatus(ctx, task.StatusUnallocated)
	if err != nil {
		rm.logger.Printf("warning: could not poll submitted tasks: %v", err)
		return
	}
	for _, t := range pending {
		if rm.auctioneer.Knows(t.TaskID) {
			continue
		}
		rm.logger.Printf("picked up submitted task %s", t.TaskID)
		rm.auctioneer.Allocate(ctx, t)
	}
}
