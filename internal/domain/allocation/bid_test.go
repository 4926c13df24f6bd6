package allocation_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/mrta-go/internal/domain/allocation"
)

func bid(robotID string, risk, temporal float64) *allocation.Bid {
	return &allocation.Bid{
		RobotID:         robotID,
		TaskID:          "task-a",
		Position:        1,
		RiskMetric:      risk,
		TemporalMetric:  temporal,
		HardConstraints: true,
	}
}

func TestBid_LessIsLexicographic(t *testing.T) {
	assert.True(t, bid("robot_001", 1, 500).Less(bid("robot_002", 2, 1)))
	assert.True(t, bid("robot_001", 1, 10).Less(bid("robot_002", 1, 20)))
	assert.False(t, bid("robot_001", 1, 20).Less(bid("robot_002", 1, 10)))
	assert.False(t, bid("robot_001", 1, 10).Less(bid("robot_002", 1, 10)))
}

func TestBid_FiniteBeatsNoBid(t *testing.T) {
	noBid := allocation.NewNoBid("robot_001", "round", "task-a")
	finite := bid("robot_002", 1, math.MaxFloat64)

	assert.True(t, finite.Less(noBid))
	assert.False(t, noBid.Less(finite))
	assert.True(t, noBid.IsNoBid())
	assert.False(t, finite.IsNoBid())
}

func TestBid_RobotIndex(t *testing.T) {
	assert.Equal(t, 3, bid("robot_003", 1, 1).RobotIndex())
	assert.Equal(t, 12, bid("fleet_a_012", 1, 1).RobotIndex())
	// Ids without a numeric suffix lose every tie-break.
	assert.Equal(t, math.MaxInt, bid("auctioneer", 1, 1).RobotIndex())
}

func TestBid_JSONRoundTripPreservesNoBidCost(t *testing.T) {
	noBid := allocation.NewNoBid("robot_001", "round-1", "task-a")

	data, err := json.Marshal(noBid)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Infinity"`)

	var decoded allocation.Bid
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.IsNoBid())
	assert.Equal(t, "robot_001", decoded.RobotID)
	assert.Equal(t, "round-1", decoded.RoundID)
}

func TestBid_CloneIsIndependent(t *testing.T) {
	original := bid("robot_001", 1, 10)
	clone := original.Clone()
	clone.TemporalMetric = 99

	assert.InDelta(t, 10, original.TemporalMetric, 1e-9)
}
