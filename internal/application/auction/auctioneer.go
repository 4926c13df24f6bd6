package auction

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/andrescamacho/mrta-go/internal/domain/allocation"
	"github.com/andrescamacho/mrta-go/internal/domain/shared"
	"github.com/andrescamacho/mrta-go/internal/domain/task"
	"github.com/andrescamacho/mrta-go/internal/domain/temporal"
	"github.com/andrescamacho/mrta-go/internal/domain/timetable"
)

// Allocation records a completed round: one task claimed by its winners.
type Allocation struct {
	TaskID   string
	RobotIDs []string
}

// AlternativeAllocation parks an allocation outside the task's original
// window until an operator confirms it. Parked tasks are not re-announced.
type AlternativeAllocation struct {
	TaskID               string
	RobotID              string
	AlternativeStartTime *time.Time
}

// AuctioneerConfig carries the allocation settings the auctioneer honours.
type AuctioneerConfig struct {
	RoundTime            time.Duration
	AlternativeTimeslots bool
	Solver               temporal.Solver
	ZeroTimepoint        time.Time
}

// Auctioneer orchestrates auction rounds: it queues tasks, announces them,
// aggregates bids, elects winners, and keeps an authoritative mirror of
// every robot's timetable. Rounds are strictly sequential; only one is open
// at a time.
type Auctioneer struct {
	robotIDs   []string
	timetables map[string]*timetable.Timetable

	tasksToAllocate            map[string]*task.Task
	allocations                []Allocation
	waitingForUserConfirmation []AlternativeAllocation
	round                      *allocation.Round

	zeroTimepoint          time.Time
	earliestAdmissibleTime time.Time
	roundTime              time.Duration
	alternativeTimeslots   bool
	solver                 temporal.Solver

	publisher      Publisher
	source         MessageSource
	tasks          TaskStore
	timetableStore TimetableStore
	scheduler      Scheduler
	metrics        MetricsRecorder
	clock          shared.Clock
	logger         *log.Logger
}

// NewAuctioneer wires the central auctioneer. All collaborators are injected
// at construction; there are no runtime back-references.
func NewAuctioneer(cfg AuctioneerConfig, publisher Publisher, source MessageSource, tasks TaskStore, timetables TimetableStore, scheduler Scheduler, metrics MetricsRecorder, clock shared.Clock) *Auctioneer {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	ztp := cfg.ZeroTimepoint
	if ztp.IsZero() {
		ztp = shared.ZeroTimepoint(clock)
	}
	return &Auctioneer{
		timetables:           make(map[string]*timetable.Timetable),
		tasksToAllocate:      make(map[string]*task.Task),
		round:                allocation.NewRound(nil, 0, 0, false, clock),
		zeroTimepoint:        ztp,
		roundTime:            cfg.RoundTime,
		alternativeTimeslots: cfg.AlternativeTimeslots,
		solver:               cfg.Solver,
		publisher:            publisher,
		source:               source,
		tasks:                tasks,
		timetableStore:       timetables,
		scheduler:            scheduler,
		metrics:              metrics,
		clock:                clock,
		logger:               log.New(log.Writer(), "auctioneer ", log.LstdFlags),
	}
}

// RegisterRobot adds a robot to the fleet and loads (or creates) its
// mirrored timetable.
func (a *Auctioneer) RegisterRobot(ctx context.Context, robotID string) {
	a.robotIDs = append(a.robotIDs, robotID)

	tt, err := a.timetableStore.Get(ctx, robotID)
	if err != nil {
		a.logger.Printf("warning: could not load timetable for %s: %v", robotID, err)
	}
	if tt == nil {
		tt = timetable.New(robotID, a.solver)
	} else {
		tt.SetSolver(a.solver)
	}
	tt.ZeroTimepoint = a.zeroTimepoint
	a.timetables[robotID] = tt
}

// Allocate queues tasks for the next rounds and persists them.
func (a *Auctioneer) Allocate(ctx context.Context, tasks ...*task.Task) {
	for _, t := range tasks {
		a.tasksToAllocate[t.TaskID] = t
		if err := a.tasks.Save(ctx, t); err != nil {
			a.logger.Printf("warning: could not save task %s: %v", t.TaskID, err)
		}
	}
	a.logger.Printf("queued %d task(s), %d pending", len(tasks), len(a.tasksToAllocate))
}

// Knows reports whether the auctioneer already tracks the task: queued,
// parked for confirmation, or allocated.
func (a *Auctioneer) Knows(taskID string) bool {
	if _, ok := a.tasksToAllocate[taskID]; ok {
		return true
	}
	for _, parked := range a.waitingForUserConfirmation {
		if parked.TaskID == taskID {
			return true
		}
	}
	for _, alloc := range a.allocations {
		if alloc.TaskID == taskID {
			return true
		}
	}
	return false
}

// Tick drives the auction forward: it drains bus messages, opens a round
// when tasks are pending and no round is running, and closes/elects when the
// open round's deadline has passed.
func (a *Auctioneer) Tick(ctx context.Context) {
	a.source.Drain(func(msgType string, payload []byte) {
		a.handle(msgType, payload)
	})

	switch {
	case len(a.tasksToAllocate) > 0 && a.round.Finished():
		a.announceTasks(ctx)

	case a.round.Opened() && a.round.TimeToClose():
		a.closeRound(ctx)
	}
}

func (a *Auctioneer) handle(msgType string, payload []byte) {
	switch msgType {
	case MsgBid:
		var bid allocation.Bid
		if err := json.Unmarshal(payload, &bid); err != nil {
			a.logger.Printf("dropping malformed bid: %v", err)
			return
		}
		if a.metrics != nil {
			a.metrics.RecordBid(bid.IsNoBid())
		}
		a.round.ProcessBid(&bid)

	case MsgFinishRound:
		if err := a.round.Finish(); err != nil {
			a.logger.Printf("ignoring finish-round: %v", err)
		} else if a.metrics != nil {
			a.metrics.RecordRoundClosed(a.clock.Now().Sub(a.round.OpenedAt()))
		}
	}
}

// announceTasks opens a new round and broadcasts every pending task.
func (a *Auctioneer) announceTasks(ctx context.Context) {
	a.round = allocation.NewRound(a.tasksToAllocate, a.roundTime, len(a.robotIDs), a.alternativeTimeslots, a.clock)
	a.earliestAdmissibleTime = a.clock.Now()

	announcement := TaskAnnouncement{
		RoundID:                a.round.ID.String(),
		ZeroTimepoint:          a.zeroTimepoint,
		EarliestAdmissibleTime: a.earliestAdmissibleTime,
		Tasks:                  a.tasksToAllocate,
	}

	if err := a.round.Start(); err != nil {
		a.logger.Printf("could not start round: %v", err)
		return
	}
	a.logger.Printf("announcing %d task(s) in round %s", len(a.tasksToAllocate), a.round.ID)
	if a.metrics != nil {
		a.metrics.RecordRoundOpened(len(a.tasksToAllocate))
	}

	if err := a.publisher.PublishToGroup(ctx, GroupTaskAllocation, MsgTaskAnnouncement, announcement); err != nil {
		a.logger.Printf("warning: could not publish task announcement: %v", err)
	}
}

// closeRound runs the election and publishes the outcome.
func (a *Auctioneer) closeRound(ctx context.Context) {
	result, err := a.round.GetResult()

	var noAllocation *allocation.NoAllocationError
	var alternative *allocation.AlternativeTimeSlotError
	switch {
	case err == nil:
		a.processAllocation(ctx, result)

	case errors.As(err, &noAllocation):
		a.logger.Printf("no allocation in round %s", noAllocation.RoundID)
		if a.metrics != nil {
			a.metrics.RecordNoAllocation()
		}
		if err := a.round.Finish(); err != nil {
			a.logger.Printf("could not finish round: %v", err)
		}

	case errors.As(err, &alternative):
		a.processAlternativeAllocation(alternative)
		if err := a.round.Finish(); err != nil {
			a.logger.Printf("could not finish round: %v", err)
		}

	default:
		a.logger.Printf("round election failed: %v", err)
	}
}

// processAllocation records the winner, updates the mirror, and claims the
// task on the bus. The round stays closed until the winner's FINISH-ROUND.
func (a *Auctioneer) processAllocation(ctx context.Context, result *allocation.Result) {
	a.allocations = append(a.allocations, Allocation{TaskID: result.Task.TaskID, RobotIDs: []string{result.RobotID}})
	a.tasksToAllocate = result.RemainingTasks
	a.logger.Printf("allocation: task %s -> robot %s (position %d); %d task(s) left",
		result.Task.TaskID, result.RobotID, result.Position, len(a.tasksToAllocate))

	result.Task.Status = task.StatusAllocated
	result.Task.AssignRobots(result.RobotID)
	if err := a.tasks.UpdateStatus(ctx, result.Task.TaskID, task.StatusAllocated); err != nil {
		a.logger.Printf("warning: could not update task status: %v", err)
	}

	if err := a.updateTimetable(ctx, result.RobotID, result.Task, result.Position); err != nil {
		a.logger.Printf("could not update timetable for %s: %v", result.RobotID, err)
	}

	if a.metrics != nil {
		a.metrics.RecordAllocation()
	}

	msg := AllocationMessage{TaskID: result.Task.TaskID, RobotID: result.RobotID}
	if err := a.publisher.PublishToGroup(ctx, GroupTaskAllocation, MsgAllocation, msg); err != nil {
		a.logger.Printf("warning: could not publish allocation: %v", err)
	}
}

// updateTimetable is the authoritative mirror: the auctioneer re-applies the
// same deterministic insertion the bidder used, so both sides arrive at
// value-equal timetables.
func (a *Auctioneer) updateTimetable(ctx context.Context, robotID string, t *task.Task, position int) error {
	tt, ok := a.timetables[robotID]
	if !ok {
		return temporal.ErrTaskNotFound
	}
	// The mirror adopts the same anchors the bidders received with the
	// announcement, so the re-applied insertion is bit-identical.
	tt.ZeroTimepoint = a.zeroTimepoint
	tt.EarliestAdmissibleTime = a.earliestAdmissibleTime

	if err := tt.AddTask(t, position); err != nil {
		return err
	}
	if err := tt.SolveSTP(); err != nil {
		// The winning bid proved feasibility; an infeasible mirror means the
		// mirror diverged. Roll back and surface the error.
		_ = tt.RemoveTask(position)
		return err
	}

	if err := a.timetableStore.Save(ctx, tt); err != nil {
		a.logger.Printf("warning: could not save timetable for %s: %v", robotID, err)
	}

	// A committed next dispatch has to be re-planned against the new graph.
	if tt.IsScheduled() && a.scheduler != nil {
		a.scheduler.RequestReschedule(robotID)
	}
	return nil
}

func (a *Auctioneer) processAlternativeAllocation(err *allocation.AlternativeTimeSlotError) {
	a.logger.Printf("alternative timeslot for task %s: robot %s, start %v",
		err.TaskID, err.RobotID, err.AlternativeStartTime)
	a.waitingForUserConfirmation = append(a.waitingForUserConfirmation, AlternativeAllocation{
		TaskID:               err.TaskID,
		RobotID:              err.RobotID,
		AlternativeStartTime: err.AlternativeStartTime,
	})
	if a.metrics != nil {
		a.metrics.RecordAlternativeTimeSlot()
	}
}

// TaskSchedule reads the absolute start/finish window of an allocated task
// from the robot's mirrored dispatchable graph.
func (a *Auctioneer) TaskSchedule(taskID, robotID string) (start, finish time.Time, err error) {
	tt, ok := a.timetables[robotID]
	if !ok || tt.DispatchableGraph == nil {
		return time.Time{}, time.Time{}, temporal.ErrTaskNotFound
	}
	startNavigation, err := tt.DispatchableGraph.GetTime(taskID, temporal.TimepointNavigation, true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	latestFinish, err := tt.DispatchableGraph.GetTime(taskID, temporal.TimepointFinish, false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return shared.AbsoluteTime(a.zeroTimepoint, startNavigation), shared.AbsoluteTime(a.zeroTimepoint, latestFinish), nil
}

// Accessors used by the resource manager, the CLI, and tests.

func (a *Auctioneer) RobotIDs() []string {
	return append([]string(nil), a.robotIDs...)
}

func (a *Auctioneer) Timetable(robotID string) *timetable.Timetable {
	return a.timetables[robotID]
}

func (a *Auctioneer) TasksToAllocate() map[string]*task.Task {
	return a.tasksToAllocate
}

func (a *Auctioneer) Allocations() []Allocation {
	return append([]Allocation(nil), a.allocations...)
}

func (a *Auctioneer) WaitingForUserConfirmation() []AlternativeAllocation {
	return append([]AlternativeAllocation(nil), a.waitingForUserConfirmation...)
}

func (a *Auctioneer) Round() *allocation.Round {
	return a.round
}

func (a *Auctioneer) ZeroTimepoint() time.Time {
	return a.zeroTimepoint
}
