package bus

import (
	"context"
	"log"
	"sync"
)

const defaultInboxSize = 256

// InProc is the in-process bus used when the auctioneer and all bidders
// share one process. Publishing copies the payload bytes into each
// subscriber's inbox, so no mutable state is ever shared across components.
type InProc struct {
	mu     sync.RWMutex
	subs   map[string]*inProcSubscriber
	logger *log.Logger
}

type inProcSubscriber struct {
	inbox  *Inbox
	groups map[string]struct{}
}

// NewInProc returns an empty in-process bus.
func NewInProc() *InProc {
	return &InProc{
		subs:   make(map[string]*inProcSubscriber),
		logger: log.New(log.Writer(), "bus.inproc ", log.LstdFlags),
	}
}

// Subscribe registers a named peer listening on the given groups and
// returns its inbox.
func (b *InProc) Subscribe(name string, groups ...string) *Inbox {
	b.mu.Lock()
	defer b.mu.Unlock()

	groupSet := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		groupSet[g] = struct{}{}
	}
	sub := &inProcSubscriber{inbox: newInbox(defaultInboxSize), groups: groupSet}
	b.subs[name] = sub
	return sub.inbox
}

// PublishToGroup broadcasts to every subscriber of the group, including the
// publisher's own peer if subscribed.
func (b *InProc) PublishToGroup(_ context.Context, group, msgType string, payload any) error {
	env, err := NewEnvelope(msgType, payload)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for name, sub := range b.subs {
		if _, ok := sub.groups[group]; !ok {
			continue
		}
		if !sub.inbox.offer(env) {
			b.logger.Printf("warning: inbox of %s full, dropping %s", name, msgType)
		}
	}
	return nil
}

// PublishToPeer delivers directly to one named subscriber.
func (b *InProc) PublishToPeer(_ context.Context, peer, msgType string, payload any) error {
	env, err := NewEnvelope(msgType, payload)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	sub, ok := b.subs[peer]
	if !ok {
		b.logger.Printf("warning: unknown peer %s, dropping %s", peer, msgType)
		return nil
	}
	if !sub.inbox.offer(env) {
		b.logger.Printf("warning: inbox of %s full, dropping %s", peer, msgType)
	}
	return nil
}
