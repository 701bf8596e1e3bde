package events

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"roster/internal/graph"
	"roster/internal/services"
	"roster/pkg/logging"
)

// Cause identifies what drove a transition.
type Cause string

const (
	CauseInit         Cause = "init"
	CauseDeinit       Cause = "deinit"
	CauseForceDown    Cause = "force-down"
	CauseCascade      Cause = "cascade"
	CauseTaskResolved Cause = "task-resolved"
	CauseDataUpdate   Cause = "data-update"
	CauseShutdown     Cause = "shutdown"
)

// Event is the immutable record emitted once a transition has committed.
// It is appended to the bus strictly after the service node's state field
// has been updated, never before, so observers always see a state
// consistent with what they are told changed.
type Event struct {
	Node      graph.NodeID
	Previous  services.ServiceState
	New       services.ServiceState
	Cause     Cause
	Reason    services.DownReason
	Timestamp time.Time
}

// Filter restricts which events a subscription receives. Zero-valued
// fields match everything.
type Filter struct {
	// Node, when non-zero, matches only events for that service.
	Node graph.NodeID
	// NewState, when non-empty, matches only transitions into that state.
	NewState services.ServiceState
	// Cause, when non-empty, matches only that transition cause.
	Cause Cause
}

func (f Filter) matches(e Event) bool {
	if (f.Node != graph.NodeID{}) && f.Node != e.Node {
		return false
	}
	if f.NewState != "" && f.NewState != e.New {
		return false
	}
	if f.Cause != "" && f.Cause != e.Cause {
		return false
	}
	return true
}

// subscription pairs a delivery channel with its filter.
type subscription struct {
	id     string
	filter Filter
	ch     chan Event
}

const subscriberBufferSize = 100

// Bus decouples the pipeline from its observers. The pipeline only appends
// immutable event records; subscribers consume them independently over
// buffered channels. Publishing never blocks: a subscriber that cannot keep
// up has events dropped, which is logged but not an error.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]*subscription
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]*subscription)}
}

// Subscribe registers interest in events matching the filter and returns
// the subscription id together with the delivery channel.
func (b *Bus) Subscribe(filter Filter) (string, <-chan Event) {
	sub := &subscription{
		id:     uuid.NewString(),
		filter: filter,
		ch:     make(chan Event, subscriberBufferSize),
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()

	return sub.id, sub.ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()

	if ok {
		close(sub.ch)
	}
}

// Publish appends an event, delivering it to every matching subscriber.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		if !sub.filter.matches(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			logging.Debug("Events", "Subscriber %s blocked, dropping event for %s", sub.id, e.Node)
		}
	}
}

// Close unsubscribes everything. Called on host teardown.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[string]*subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		close(sub.ch)
	}
}
