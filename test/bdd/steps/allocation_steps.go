package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/mrta-go/internal/adapters/bus"
	"github.com/andrescamacho/mrta-go/internal/adapters/persistence"
	"github.com/andrescamacho/mrta-go/internal/application/auction"
	"github.com/andrescamacho/mrta-go/internal/domain/shared"
	"github.com/andrescamacho/mrta-go/internal/domain/task"
	"github.com/andrescamacho/mrta-go/internal/domain/temporal"
	"github.com/andrescamacho/mrta-go/internal/domain/timetable"
	"github.com/andrescamacho/mrta-go/internal/infrastructure/database"
)

// allocationContext wires an auctioneer and bidders over an in-process bus
// against an in-memory database, the way the daemon does.
type allocationContext struct {
	ztp        time.Time
	clock      *shared.MockClock
	bus        *bus.InProc
	rm         *auction.ResourceManager
	auctioneer *auction.Auctioneer
	bidders    []*auction.Bidder
	tasks      *persistence.GormTaskRepository
	taskIDs    []string
}

func (c *allocationContext) reset() {
	*c = allocationContext{
		ztp:   time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
		clock: shared.NewMockClock(time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)),
	}
}

func (c *allocationContext) setupFleet(robots string, alternativeTimeslots bool) error {
	db, err := database.NewTestConnection()
	if err != nil {
		return fmt.Errorf("could not create test database: %w", err)
	}
	c.tasks = persistence.NewGormTaskRepository(db)
	timetables := persistence.NewGormTimetableRepository(db)

	solver, err := temporal.NewSolver("fpc")
	if err != nil {
		return err
	}
	rule, err := auction.NewBiddingRule("fpc", "completion_time")
	if err != nil {
		return err
	}

	c.bus = bus.NewInProc()
	inbox := c.bus.Subscribe("auctioneer", auction.GroupTaskAllocation)
	c.auctioneer = auction.NewAuctioneer(auction.AuctioneerConfig{
		RoundTime:            5 * time.Second,
		AlternativeTimeslots: alternativeTimeslots,
		Solver:               solver,
		ZeroTimepoint:        c.ztp,
	}, c.bus, inbox, c.tasks, timetables, nil, nil, c.clock)
	c.rm = auction.NewResourceManager(c.auctioneer, c.tasks)

	ctx := context.Background()
	for _, robotID := range strings.Split(robots, ",") {
		robotID = strings.TrimSpace(robotID)
		c.rm.RegisterRobot(ctx, robotID)
		robotInbox := c.bus.Subscribe(robotID, auction.GroupTaskAllocation)
		c.bidders = append(c.bidders, auction.NewBidder(
			robotID, timetable.New(robotID, solver), rule,
			"auctioneer", c.bus, robotInbox, c.tasks, timetables))
	}
	return nil
}

func (c *allocationContext) aFleetOfRobots(robots string) error {
	return c.setupFleet(robots, false)
}

func (c *allocationContext) aFleetWithAlternativeTimeslots(robots string) error {
	return c.setupFleet(robots, true)
}

func (c *allocationContext) clockTime(value string) (time.Time, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock time %q: %w", value, err)
	}
	return c.ztp.Add(time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute), nil
}

func (c *allocationContext) aTransportationTask(taskID, earliest, latest string) error {
	earliestTime, err := c.clockTime(earliest)
	if err != nil {
		return err
	}
	latestTime, err := c.clockTime(latest)
	if err != nil {
		return err
	}

	tk := task.FromRequest(task.TransportationRequest{
		PickupLocation:     "AMK_D_L-1",
		DeliveryLocation:   "AMK_B_L-1",
		EarliestPickupTime: earliestTime,
		LatestPickupTime:   latestTime,
		HardConstraints:    true,
	})
	tk.TaskID = taskID
	c.taskIDs = append(c.taskIDs, taskID)
	c.rm.Allocate(context.Background(), tk)
	return nil
}

func (c *allocationContext) anImpossibleTask(taskID string) error {
	if err := c.aTransportationTask(taskID, "10:00", "10:03"); err != nil {
		return err
	}
	// The delivery deadline expires before the work can finish.
	tk := c.auctioneer.TasksToAllocate()[taskID]
	tk.Constraints.SetTimepointConstraint(task.TimepointConstraint{
		Name:         task.TimepointDelivery,
		EarliestTime: c.ztp,
		LatestTime:   c.ztp.Add(10*time.Hour + time.Minute),
	})
	return nil
}

func (c *allocationContext) tick() {
	ctx := context.Background()
	c.rm.Tick(ctx)
	for _, b := range c.bidders {
		b.Tick(ctx)
	}
}

func (c *allocationContext) theAuctionRoundCompletes() error {
	return c.auctionRoundsComplete(1)
}

func (c *allocationContext) auctionRoundsComplete(rounds int) error {
	for i := 0; i < rounds; i++ {
		c.tick()
		c.clock.Advance(6 * time.Second)
		c.tick()
		c.tick()
	}
	return nil
}

func (c *allocationContext) taskShouldBeAllocatedTo(taskID, robotID string) error {
	for _, alloc := range c.auctioneer.Allocations() {
		if alloc.TaskID != taskID {
			continue
		}
		for _, winner := range alloc.RobotIDs {
			if winner == robotID {
				return nil
			}
		}
		return fmt.Errorf("task %s was allocated to %v, not %s", taskID, alloc.RobotIDs, robotID)
	}
	return fmt.Errorf("task %s was not allocated", taskID)
}

func (c *allocationContext) timetableShouldContain(robotID, taskID string) error {
	tt := c.auctioneer.Timetable(robotID)
	if tt == nil {
		return fmt.Errorf("robot %s has no timetable", robotID)
	}
	for _, id := range tt.Tasks() {
		if id == taskID {
			return nil
		}
	}
	return fmt.Errorf("timetable of %s is %v, missing %s", robotID, tt.Tasks(), taskID)
}

func (c *allocationContext) everyTaskShouldBeAllocated() error {
	if pending := c.auctioneer.TasksToAllocate(); len(pending) > 0 {
		return fmt.Errorf("%d task(s) still pending", len(pending))
	}
	for _, taskID := range c.taskIDs {
		stored, err := c.tasks.Get(context.Background(), taskID)
		if err != nil {
			return err
		}
		if stored.Status != task.StatusAllocated {
			return fmt.Errorf("task %s has status %s", taskID, stored.Status)
		}
	}
	return nil
}

func (c *allocationContext) taskShouldRemainUnallocated(taskID string) error {
	if _, ok := c.auctioneer.TasksToAllocate()[taskID]; !ok {
		return fmt.Errorf("task %s left the allocation queue", taskID)
	}
	stored, err := c.tasks.Get(context.Background(), taskID)
	if err != nil {
		return err
	}
	if stored.Status != task.StatusUnallocated {
		return fmt.Errorf("task %s has status %s", taskID, stored.Status)
	}
	return nil
}

func (c *allocationContext) taskShouldWaitForConfirmation(taskID string) error {
	for _, parked := range c.auctioneer.WaitingForUserConfirmation() {
		if parked.TaskID != taskID {
			continue
		}
		if parked.AlternativeStartTime == nil {
			return fmt.Errorf("task %s is parked without a proposed start time", taskID)
		}
		return nil
	}
	return fmt.Errorf("task %s is not waiting for user confirmation", taskID)
}

// InitializeAllocationScenario registers the auction allocation steps.
func InitializeAllocationScenario(sc *godog.ScenarioContext) {
	c := &allocationContext{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		c.reset()
		return ctx, nil
	})

	sc.Step(`^a fleet of robots "([^"]*)"$`, c.aFleetOfRobots)
	sc.Step(`^a fleet of robots "([^"]*)" with alternative timeslots enabled$`, c.aFleetWithAlternativeTimeslots)
	sc.Step(`^a transportation task "([^"]*)" with pickup window from "([^"]*)" to "([^"]*)"$`, c.aTransportationTask)
	sc.Step(`^a transportation task "([^"]*)" with an impossible delivery deadline$`, c.anImpossibleTask)
	sc.Step(`^the auction round completes$`, c.theAuctionRoundCompletes)
	sc.Step(`^(\d+) auction rounds complete$`, c.auctionRoundsComplete)
	sc.Step(`^task "([^"]*)" should be allocated to robot "([^"]*)"$`, c.taskShouldBeAllocatedTo)
	sc.Step(`^the timetable of robot "([^"]*)" should contain task "([^"]*)"$`, c.timetableShouldContain)
	sc.Step(`^every submitted task should be allocated$`, c.everyTaskShouldBeAllocated)
	sc.Step(`^task "([^"]*)" should remain unallocated$`, c.taskShouldRemainUnallocated)
	sc.Step(`^task "([^"]*)" should wait for user confirmation with a proposed start time$`, c.taskShouldWaitForConfirmation)
}
