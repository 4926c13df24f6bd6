package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	groupChannelPrefix = "mrta:group:"
	peerChannelPrefix  = "mrta:peer:"
)

// Redis is the cross-process bus. Each group maps to one pub/sub channel and
// each peer to its own channel; a background goroutine feeds received
// envelopes into the local inbox so components keep draining on their tick.
type Redis struct {
	client  *redis.Client
	limiter *rate.Limiter
	logger  *log.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	inbox  *Inbox
	done   chan struct{}
}

// NewRedis connects a bus adapter to the given Redis address.
func NewRedis(addr string) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		// Publishes are paced so a burst of bids cannot saturate the broker.
		limiter: rate.NewLimiter(rate.Limit(100), 20),
		logger:  log.New(log.Writer(), "bus.redis ", log.LstdFlags),
	}
}

// Subscribe binds this process's peer name and groups to pub/sub channels
// and returns the inbox the receive loop feeds.
func (b *Redis) Subscribe(ctx context.Context, name string, groups ...string) (*Inbox, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pubsub != nil {
		return nil, fmt.Errorf("bus already subscribed")
	}

	channels := []string{peerChannelPrefix + name}
	for _, g := range groups {
		channels = append(channels, groupChannelPrefix+g)
	}
	b.pubsub = b.client.Subscribe(ctx, channels...)
	if _, err := b.pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("subscribe %v: %w", channels, err)
	}

	b.inbox = newInbox(defaultInboxSize)
	b.done = make(chan struct{})
	go b.receive()
	return b.inbox, nil
}

func (b *Redis) receive() {
	ch := b.pubsub.Channel()
	for {
		select {
		case <-b.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Printf("warning: dropping malformed message on %s: %v", msg.Channel, err)
				continue
			}
			if !b.inbox.offer(env) {
				b.logger.Printf("warning: inbox full, dropping %s", env.Header.Type)
			}
		}
	}
}

// PublishToGroup broadcasts on the group's channel.
func (b *Redis) PublishToGroup(ctx context.Context, group, msgType string, payload any) error {
	return b.publish(ctx, groupChannelPrefix+group, msgType, payload)
}

// PublishToPeer delivers on the peer's own channel.
func (b *Redis) PublishToPeer(ctx context.Context, peer, msgType string, payload any) error {
	return b.publish(ctx, peerChannelPrefix+peer, msgType, payload)
}

func (b *Redis) publish(ctx context.Context, channel, msgType string, payload any) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit publish: %w", err)
	}
	env, err := NewEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := b.client.Publish(ctx, channel, raw).Err(); err != nil {
		return fmt.Errorf("publish %s to %s: %w", msgType, channel, err)
	}
	return nil
}

// Close stops the receive loop and releases the connection.
func (b *Redis) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done != nil {
		close(b.done)
		b.done = nil
	}
	if b.pubsub != nil {
		if err := b.pubsub.Close(); err != nil {
			return err
		}
		b.pubsub = nil
	}
	return b.client.Close()
}
