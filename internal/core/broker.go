package core

import (
	"sync"

	"deskcore/pkg/domain"
)

// Event describes one committed row mutation delivered to subscribers.
// Module may be empty when the originating change carried no type information
// (partial delete payloads); filters must not drop such events.
type Event struct {
	Action domain.Action
	Module domain.ModuleType
	ID     string
	Before *domain.ModuleInstance
	After  *domain.ModuleInstance

	// BeforeData and AfterData hold cloned copies of the instance data JSON
	// on each side of the mutation. Subscribers may keep or mutate the Raw()
	// bytes without touching the committed instances.
	BeforeData domain.ChangePayload
	AfterData  domain.ChangePayload
}

// EventsFromChanges converts committed transaction changes into broker events.
func EventsFromChanges(changes []domain.Change) []Event {
	out := make([]Event, 0, len(changes))
	for _, c := range changes {
		ev := Event{
			Action: c.Action,
			Module: c.Module,
			ID:     c.ModuleID,
			Before: c.Before,
			After:  c.After,
		}
		if c.Before != nil {
			ev.BeforeData = domain.NewChangePayload(c.Before.Data)
		}
		if c.After != nil {
			ev.AfterData = domain.NewChangePayload(c.After.Data)
		}
		out = append(out, ev)
	}
	return out
}

// Broker fans committed change events out to scoped subscriptions. Delivery is
// at-least-once and events are never coalesced; subscribers must treat a
// notification as "something changed, re-fetch", never as a diff to apply.
type Broker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*Subscription
}

// NewBroker constructs an event broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]*Subscription)}
}

// SubscribeOption narrows which events a subscription receives.
type SubscribeOption func(*subscriptionFilter)

type subscriptionFilter struct {
	moduleType   domain.ModuleType
	hasType      bool
	context      domain.Context
	hasContext   bool
	watchedChild domain.DragPayload
	hasWatched   bool
}

// WithModuleType scopes the subscription to events of one module type.
// Events with an undetermined type still pass, to stay safe against partial
// delete payloads.
func WithModuleType(t domain.ModuleType) SubscribeOption {
	return func(f *subscriptionFilter) {
		f.moduleType = t
		f.hasType = true
	}
}

// WithContext scopes the subscription to mutations of the given parent row
// itself, catching changes to its association membership. Combined with
// WithModuleType the two scopes are unioned: an event passes when it touches
// the parent row or carries the subscribed type, so a context-scoped view
// sees membership changes and edits to the children it lists.
func WithContext(parent domain.Context) SubscribeOption {
	return func(f *subscriptionFilter) {
		f.context = parent
		f.hasContext = true
	}
}

// WithWatchedChild scopes the subscription to association membership
// transitions of one child instance: an event passes only when the watched id
// was added to or removed from the changed row's association list for the
// child's type.
func WithWatchedChild(childType domain.ModuleType, childID string) SubscribeOption {
	return func(f *subscriptionFilter) {
		f.watchedChild = domain.DragPayload{Type: childType, ID: childID}
		f.hasWatched = true
	}
}

func (f subscriptionFilter) matches(ev Event) bool {
	if f.hasType || f.hasContext {
		typeOK := f.hasType && (ev.Module == "" || ev.Module == f.moduleType)
		contextOK := f.hasContext && ev.ID == f.context.ID
		if !typeOK && !contextOK {
			return false
		}
	}
	if f.hasWatched {
		before := ev.Before.References(f.watchedChild.Type, f.watchedChild.ID)
		after := ev.After.References(f.watchedChild.Type, f.watchedChild.ID)
		if before == after {
			return false
		}
	}
	return true
}

// Subscribe registers fn for events passing the supplied filters. The returned
// subscription must be closed when the owning component is disposed; Close is
// idempotent.
func (b *Broker) Subscribe(fn func(Event), opts ...SubscribeOption) *Subscription {
	var filter subscriptionFilter
	for _, opt := range opts {
		opt(&filter)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{broker: b, id: b.nextID, fn: fn, filter: filter}
	b.subs[sub.id] = sub
	return sub
}

// Publish delivers the events to every matching subscription. Callbacks run
// synchronously on the publishing goroutine.
func (b *Broker) Publish(events ...Event) {
	b.mu.Lock()
	active := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		active = append(active, sub)
	}
	b.mu.Unlock()

	for _, ev := range events {
		for _, sub := range active {
			sub.deliver(ev)
		}
	}
}

func (b *Broker) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Subscription is a registered event listener with an idempotent Close.
type Subscription struct {
	broker *Broker
	id     int
	fn     func(Event)
	filter subscriptionFilter
	once   sync.Once
	mu     sync.Mutex
	closed bool
}

func (s *Subscription) deliver(ev Event) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed || !s.filter.matches(ev) {
		return
	}
	s.fn(ev)
}

// Close deregisters the subscription. Safe to call multiple times.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.broker.remove(s.id)
	})
}
