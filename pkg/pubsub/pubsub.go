// Package pubsub provides in-process topic fan-out for swarm coordination
// events. Peer dispatch is fire-and-forget: publishing never blocks, and a
// subscriber whose buffer is full silently misses the message. That matches
// the partition-tolerance stance of the coordinator: a tick never waits for
// a specific peer to acknowledge anything.
package pubsub

import (
	"context"
	"sync"
)

// Topics used by the swarm coordination core.
const (
	TopicNominations = "swarm.nominations"
	TopicVotes       = "swarm.votes"
	TopicLeadership  = "swarm.leadership"
	TopicDecisions   = "swarm.decisions"
)

// Bus provides publish/subscribe fan-out between swarm participants
type Bus struct {
	subscribers map[string]map[*Subscription]bool
	mu          sync.RWMutex
	shutdown    chan struct{}
	shutdownMu  sync.Mutex
	isShutdown  bool
}

// Subscription represents a subscription to a topic
type Subscription struct {
	topic     string
	channel   chan any
	bus       *Bus
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once // Ensures channel is only closed once
}

// NewBus creates a new Bus instance
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string]map[*Subscription]bool),
		shutdown:    make(chan struct{}),
	}
}

// Subscribe creates a new subscription to a topic
func (b *Bus) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return nil, ErrBusClosed
	}
	b.shutdownMu.Unlock()

	// Create subscription with buffered channel
	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topic:   topic,
		channel: make(chan any, 128), // Buffer for messages
		bus:     b,
		ctx:     subCtx,
		cancel:  cancel,
	}

	// Add to subscribers
	b.mu.Lock()
	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[*Subscription]bool)
	}
	b.subscribers[topic][sub] = true
	b.mu.Unlock()

	// Monitor context cancellation
	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-b.shutdown:
			sub.close()
		}
	}()

	return sub, nil
}

// Publish sends a message to all subscribers of a topic.
// Uses a snapshot copy to avoid holding lock during channel sends.
func (b *Bus) Publish(topic string, message any) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.shutdownMu.Unlock()

	// Take a snapshot of subscribers under lock to avoid race condition
	// during iteration (concurrent Unsubscribe could modify the map)
	b.mu.RLock()
	topicSubs := b.subscribers[topic]
	if len(topicSubs) == 0 {
		b.mu.RUnlock()
		return
	}
	subs := make([]*Subscription, 0, len(topicSubs))
	for sub := range topicSubs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	// Send message to all subscribers (outside lock, never blocking)
	for _, sub := range subs {
		select {
		case sub.channel <- message:
			// Message sent
		default:
			// Channel full, skip (fire-and-forget)
		}
	}
}

// SubscriberCount returns the number of subscribers for a topic
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.subscribers[topic] == nil {
		return 0
	}

	return len(b.subscribers[topic])
}

// Shutdown closes all subscriptions and shuts down the bus
func (b *Bus) Shutdown() {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.isShutdown = true
	b.shutdownMu.Unlock()

	close(b.shutdown)

	// Close all subscription channels
	b.mu.Lock()
	for topic := range b.subscribers {
		for sub := range b.subscribers[topic] {
			sub.close()
		}
		delete(b.subscribers, topic)
	}
	b.mu.Unlock()
}

// Channel returns the subscription's message channel
func (s *Subscription) Channel() <-chan any {
	return s.channel
}

// TryRecv drains at most one pending message without blocking.
// Returns false when no message is waiting.
func (s *Subscription) TryRecv() (any, bool) {
	select {
	case msg, ok := <-s.channel:
		if !ok {
			return nil, false
		}
		return msg, true
	default:
		return nil, false
	}
}

// Unsubscribe removes the subscription
func (s *Subscription) Unsubscribe() {
	s.cancel()

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	if s.bus.subscribers[s.topic] != nil {
		delete(s.bus.subscribers[s.topic], s)
		if len(s.bus.subscribers[s.topic]) == 0 {
			delete(s.bus.subscribers, s.topic)
		}
	}

	s.close()
}

// close closes the subscription channel safely (idempotent)
func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}
