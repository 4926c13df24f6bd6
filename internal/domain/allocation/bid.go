// Package allocation holds the auction primitives: bids with their total
// cost order and the single-round state machine.
package allocation

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/andrescamacho/mrta-go/internal/domain/temporal"
	"github.com/andrescamacho/mrta-go/internal/domain/timetable"
)

// Bid is a robot's feasibility and cost report for inserting one task at one
// position. Cost is ordered lexicographically on (risk, temporal) with +Inf
// larger than any finite value; a no-bid carries cost (+Inf, +Inf).
//
// The bid carries the full candidate timetable so the bidder can commit it
// verbatim on winning and the auctioneer can mirror it without replaying the
// insertion.
type Bid struct {
	RobotID              string
	RoundID              string
	TaskID               string
	Position             int
	RiskMetric           float64
	TemporalMetric       float64
	AlternativeStartTime *time.Time
	HardConstraints      bool
	Timetable            *timetable.Timetable
}

// NewNoBid reports that no feasible insertion position exists for the task.
func NewNoBid(robotID, roundID, taskID string) *Bid {
	return &Bid{
		RobotID:         robotID,
		RoundID:         roundID,
		TaskID:          taskID,
		RiskMetric:      math.Inf(1),
		TemporalMetric:  math.Inf(1),
		HardConstraints: true,
	}
}

// IsNoBid reports whether the bid carries infinite cost.
func (b *Bid) IsNoBid() bool {
	return math.IsInf(b.RiskMetric, 1) && math.IsInf(b.TemporalMetric, 1)
}

// Less orders bids lexicographically on (risk_metric, temporal_metric).
func (b *Bid) Less(other *Bid) bool {
	if b.RiskMetric != other.RiskMetric {
		return b.RiskMetric < other.RiskMetric
	}
	return b.TemporalMetric < other.TemporalMetric
}

// EqualCost reports whether both bids carry the same cost.
func (b *Bid) EqualCost(other *Bid) bool {
	return b.RiskMetric == other.RiskMetric && b.TemporalMetric == other.TemporalMetric
}

// RobotIndex returns the integer suffix of the robot id (r_003 → 3), used as
// the deterministic tie-break between equal-cost bids. Ids without a numeric
// suffix sort last.
func (b *Bid) RobotIndex() int {
	parts := strings.Split(b.RobotID, "_")
	index, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return math.MaxInt
	}
	return index
}

// Clone returns a deep copy of the bid including its timetable snapshot.
func (b *Bid) Clone() *Bid {
	clone := *b
	if b.AlternativeStartTime != nil {
		at := *b.AlternativeStartTime
		clone.AlternativeStartTime = &at
	}
	if b.Timetable != nil {
		clone.Timetable = b.Timetable.Clone()
	}
	return &clone
}

// bidJSON routes the metric fields through temporal.Seconds so that the
// infinite costs of a no-bid survive JSON.
type bidJSON struct {
	RobotID              string               `json:"robot_id"`
	RoundID              string               `json:"round_id"`
	TaskID               string               `json:"task_id"`
	Position             int                  `json:"position"`
	RiskMetric           temporal.Seconds     `json:"risk_metric"`
	TemporalMetric       temporal.Seconds     `json:"temporal_metric"`
	AlternativeStartTime *time.Time           `json:"alternative_start_time,omitempty"`
	HardConstraints      bool                 `json:"hard_constraints"`
	Timetable            *timetable.Timetable `json:"timetable,omitempty"`
}

func (b *Bid) MarshalJSON() ([]byte, error) {
	return json.Marshal(bidJSON{
		RobotID:              b.RobotID,
		RoundID:              b.RoundID,
		TaskID:               b.TaskID,
		Position:             b.Position,
		RiskMetric:           temporal.Seconds(b.RiskMetric),
		TemporalMetric:       temporal.Seconds(b.TemporalMetric),
		AlternativeStartTime: b.AlternativeStartTime,
		HardConstraints:      b.HardConstraints,
		Timetable:            b.Timetable,
	})
}

func (b *Bid) UnmarshalJSON(data []byte) error {
	var doc bidJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	b.RobotID = doc.RobotID
	b.RoundID = doc.RoundID
	b.TaskID = doc.TaskID
	b.Position = doc.Position
	b.RiskMetric = float64(doc.RiskMetric)
	b.TemporalMetric = float64(doc.TemporalMetric)
	b.AlternativeStartTime = doc.AlternativeStartTime
	b.HardConstraints = doc.HardConstraints
	b.Timetable = doc.Timetable
	return nil
}
