package auction

import (
	"context"
	"time"

	"github.com/andrescamacho/mrta-go/internal/domain/task"
	"github.com/andrescamacho/mrta-go/internal/domain/timetable"
)

// GroupTaskAllocation is the bus group all auction traffic flows through.
const GroupTaskAllocation = "TASK-ALLOCATION"

// Publisher sends messages over the bus, either broadcast to a group or
// directed at a single peer.
type Publisher interface {
	PublishToGroup(ctx context.Context, group, msgType string, payload any) error
	PublishToPeer(ctx context.Context, peer, msgType string, payload any) error
}

// MessageSource hands over the messages queued for one component. Drain
// invokes the handler for every pending message on the caller's goroutine,
// preserving the single-threaded cooperative model, and returns how many
// messages were handled.
type MessageSource interface {
	Drain(handle func(msgType string, payload []byte)) int
}

// TaskStore is the persistence interface for tasks. Connectivity failures
// are surfaced as errors the callers log as warnings; in-memory state stays
// authoritative during a session.
type TaskStore interface {
	Get(ctx context.Context, taskID string) (*task.Task, error)
	Save(ctx context.Context, t *task.Task) error
	UpdateStatus(ctx context.Context, taskID string, status task.Status) error
	ListByStatus(ctx context.Context, status task.Status) ([]*task.Task, error)
}

// TimetableStore persists per-robot timetables. Get returns (nil, nil) when
// the robot has no stored timetable; Archive is idempotent.
type TimetableStore interface {
	Get(ctx context.Context, robotID string) (*timetable.Timetable, error)
	Save(ctx context.Context, t *timetable.Timetable) error
	Archive(ctx context.Context, robotID string) error
}

// Scheduler receives re-scheduling requests for robots whose committed next
// dispatch is affected by a new allocation. Dispatching itself is outside
// the allocator.
type Scheduler interface {
	RequestReschedule(robotID string)
}

// MetricsRecorder observes auction events. Implementations must tolerate
// being nil-checked away; the auctioneer treats a nil recorder as a no-op.
type MetricsRecorder interface {
	RecordRoundOpened(nTasks int)
	RecordRoundClosed(duration time.Duration)
	RecordBid(noBid bool)
	RecordAllocation()
	RecordNoAllocation()
	RecordAlternativeTimeSlot()
}
