package task

import (
	"fmt"
	"math"
	"time"

	"github.com/andrescamacho/mrta-go/internal/domain/shared"
)

// Well-known constraint names. Every task starts with a pickup timepoint
// constraint plus travel_time and work_time duration distributions.
const (
	TimepointPickup   = "pickup"
	TimepointDelivery = "delivery"

	InterTimepointTravelTime = "travel_time"
	InterTimepointWorkTime   = "work_time"
)

// TimepointConstraint is a named absolute window. A far-future LatestTime
// means the timepoint has no upper bound.
type TimepointConstraint struct {
	Name         string    `json:"name"`
	EarliestTime time.Time `json:"earliest_time"`
	LatestTime   time.Time `json:"latest_time"`
}

// RelativeToZTP translates the window to seconds from the zero timepoint.
// Far-future limits become +Inf.
func (c TimepointConstraint) RelativeToZTP(ztp time.Time) (earliest, latest float64) {
	return shared.RelativeTo(ztp, c.EarliestTime), shared.RelativeTo(ztp, c.LatestTime)
}

func (c TimepointConstraint) String() string {
	return fmt.Sprintf("%s: [%s, %s]", c.Name, c.EarliestTime.Format(time.RFC3339), c.LatestTime.Format(time.RFC3339))
}

// InterTimepointConstraint is a named duration distribution N(mean, variance)
// in seconds.
type InterTimepointConstraint struct {
	Name     string  `json:"name"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
}

// StandardDev returns the standard deviation rounded to millisecond
// precision, matching how the distributions are quoted on the wire.
func (c InterTimepointConstraint) StandardDev() float64 {
	return math.Round(math.Sqrt(c.Variance)*1000) / 1000
}

func (c InterTimepointConstraint) String() string {
	return fmt.Sprintf("%s: N(%v, %v)", c.Name, c.Mean, c.StandardDev())
}

// TemporalConstraints bundles the temporal requirements of a task. Hard=false
// marks the task as eligible for an alternative timeslot.
type TemporalConstraints struct {
	Hard           bool                       `json:"hard"`
	Timepoint      []TimepointConstraint      `json:"timepoint_constraints"`
	InterTimepoint []InterTimepointConstraint `json:"inter_timepoint_constraints"`
}

// TimepointConstraint returns the named absolute window, or false when the
// task does not carry it.
func (tc *TemporalConstraints) TimepointConstraint(name string) (TimepointConstraint, bool) {
	for _, c := range tc.Timepoint {
		if c.Name == name {
			return c, true
		}
	}
	return TimepointConstraint{}, false
}

// InterTimepointConstraint returns the named duration distribution, or false
// when the task does not carry it.
func (tc *TemporalConstraints) InterTimepointConstraint(name string) (InterTimepointConstraint, bool) {
	for _, c := range tc.InterTimepoint {
		if c.Name == name {
			return c, true
		}
	}
	return InterTimepointConstraint{}, false
}

// SetTimepointConstraint inserts or replaces the named window.
func (tc *TemporalConstraints) SetTimepointConstraint(c TimepointConstraint) {
	for i := range tc.Timepoint {
		if tc.Timepoint[i].Name == c.Name {
			tc.Timepoint[i] = c
			return
		}
	}
	tc.Timepoint = append(tc.Timepoint, c)
}

// SetInterTimepointConstraint inserts or replaces the named distribution.
func (tc *TemporalConstraints) SetInterTimepointConstraint(c InterTimepointConstraint) {
	for i := range tc.InterTimepoint {
		if tc.InterTimepoint[i].Name == c.Name {
			tc.InterTimepoint[i] = c
			return
		}
	}
	tc.InterTimepoint = append(tc.InterTimepoint, c)
}
