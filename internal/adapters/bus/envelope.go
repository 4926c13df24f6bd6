// Package bus carries the auction's publish/subscribe traffic. Messages are
// JSON envelopes with a typed header; adapters deliver them into
// per-component inboxes that each component drains on its own tick,
// preserving the single-threaded cooperative model.
package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Metamodel identifies the message schema carried in every header.
const Metamodel = "fleet-msg-schema-v1"

// Header describes a message on the wire.
type Header struct {
	Type      string `json:"type"`
	Metamodel string `json:"metamodel"`
	MsgID     string `json:"msgId"`
	Timestamp int64  `json:"timestamp"` // milliseconds since epoch
}

// Envelope is the wire frame: a header plus the raw JSON payload.
type Envelope struct {
	Header  Header          `json:"header"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope frames a payload for publication.
func NewEnvelope(msgType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return Envelope{
		Header: Header{
			Type:      msgType,
			Metamodel: Metamodel,
			MsgID:     uuid.NewString(),
			Timestamp: time.Now().UnixMilli(),
		},
		Payload: raw,
	}, nil
}

// Inbox is a component's buffered message queue. Drain hands every pending
// envelope to the handler on the caller's goroutine and returns how many
// were handled; messages arriving after the drain started wait for the next
// tick.
type Inbox struct {
	queue chan Envelope
}

func newInbox(size int) *Inbox {
	return &Inbox{queue: make(chan Envelope, size)}
}

// Drain implements the MessageSource port of the auction components.
func (in *Inbox) Drain(handle func(msgType string, payload []byte)) int {
	handled := 0
	for {
		select {
		case env := <-in.queue:
			handle(env.Header.Type, env.Payload)
			handled++
		default:
			return handled
		}
	}
}

// offer enqueues without blocking; a full inbox drops the message, which the
// auction tolerates the same way it tolerates a late bid.
func (in *Inbox) offer(env Envelope) bool {
	select {
	case in.queue <- env:
		return true
	default:
		return false
	}
}
