package bus_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/mrta-go/internal/adapters/bus"
)

type ping struct {
	Value string `json:"value"`
}

func drainAll(t *testing.T, inbox *bus.Inbox) []ping {
	t.Helper()
	var got []ping
	inbox.Drain(func(msgType string, payload []byte) {
		var p ping
		require.NoError(t, json.Unmarshal(payload, &p))
		got = append(got, p)
	})
	return got
}

func TestInProc_GroupFanOut(t *testing.T) {
	b := bus.NewInProc()
	one := b.Subscribe("robot_001", "fleet")
	two := b.Subscribe("robot_002", "fleet")
	outsider := b.Subscribe("robot_003", "other-group")

	err := b.PublishToGroup(context.Background(), "fleet", "PING", ping{Value: "hello"})
	require.NoError(t, err)

	assert.Len(t, drainAll(t, one), 1)
	assert.Len(t, drainAll(t, two), 1)
	assert.Empty(t, drainAll(t, outsider))
}

func TestInProc_PeerDelivery(t *testing.T) {
	b := bus.NewInProc()
	target := b.Subscribe("robot_001")
	other := b.Subscribe("robot_002")

	err := b.PublishToPeer(context.Background(), "robot_001", "PING", ping{Value: "direct"})
	require.NoError(t, err)

	got := drainAll(t, target)
	require.Len(t, got, 1)
	assert.Equal(t, "direct", got[0].Value)
	assert.Empty(t, drainAll(t, other))
}

func TestInProc_UnknownPeerIsDropped(t *testing.T) {
	b := bus.NewInProc()

	// Dropping beats failing: a late subscriber misses messages the same
	// way it would miss them over a real broker.
	err := b.PublishToPeer(context.Background(), "robot_404", "PING", ping{Value: "lost"})
	assert.NoError(t, err)
}

func TestInbox_DrainBatchesPendingMessages(t *testing.T) {
	b := bus.NewInProc()
	inbox := b.Subscribe("robot_001", "fleet")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, b.PublishToGroup(ctx, "fleet", "PING", ping{Value: "n"}))
	}

	handled := inbox.Drain(func(string, []byte) {})
	assert.Equal(t, 3, handled)
	assert.Equal(t, 0, inbox.Drain(func(string, []byte) {}))
}

func TestEnvelope_CarriesTypedHeader(t *testing.T) {
	env, err := bus.NewEnvelope("PING", ping{Value: "x"})
	require.NoError(t, err)

	assert.Equal(t, "PING", env.Header.Type)
	assert.Equal(t, bus.Metamodel, env.Header.Metamodel)
	assert.NotEmpty(t, env.Header.MsgID)
	assert.NotZero(t, env.Header.Timestamp)

	var p ping
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "x", p.Value)
}
