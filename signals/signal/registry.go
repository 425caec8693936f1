package signal

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/halcyonlabs/lib-signals/v2/signals/internal/nilcheck"
)

// Subscription is the opaque handle returned by Register. It uniquely
// identifies one listener registration so it can later be removed. Owned
// exclusively by the Registry.
type Subscription struct {
	id       uuid.UUID
	name     Name
	filter   Filter
	listener Listener
	seq      uint64
}

// ID returns the unique identifier of this subscription.
func (s *Subscription) ID() uuid.UUID {
	if s == nil {
		return uuid.Nil
	}

	return s.id
}

// Name returns the signal name this subscription listens for.
func (s *Subscription) Name() Name {
	if s == nil {
		return ""
	}

	return s.name
}

// Registry maintains, per signal name, the ordered list of registered
// listeners. Pure in-memory bookkeeping, no I/O.
//
// Reads take a consistent snapshot under a read-write lock, so a dispatch
// running concurrently with Register or Unregister observes the listener list
// either fully before or fully after the mutation, never a torn state.
type Registry struct {
	mu            sync.RWMutex
	subscriptions map[Name][]*Subscription
	seq           uint64
}

// NewRegistry creates an empty listener registry.
func NewRegistry() *Registry {
	return &Registry{subscriptions: make(map[Name][]*Subscription)}
}

// Register appends a listener to the ordered list for the given signal name.
// A nil filter matches every subject. The returned Subscription can be passed
// to Unregister.
func (registry *Registry) Register(name Name, filter Filter, listener Listener) (*Subscription, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}

	name = Name(strings.TrimSpace(string(name)))
	if name == "" {
		return nil, ErrNameRequired
	}

	if nilcheck.Interface(listener) {
		return nil, ErrListenerRequired
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if registry.subscriptions == nil {
		registry.subscriptions = make(map[Name][]*Subscription)
	}

	registry.seq++

	subscription := &Subscription{
		id:       uuid.New(),
		name:     name,
		filter:   filter,
		listener: listener,
		seq:      registry.seq,
	}

	registry.subscriptions[name] = append(registry.subscriptions[name], subscription)

	return subscription, nil
}

// Unregister removes the subscription from the registry. Removing an already
// removed (or nil) subscription is a no-op, not an error.
func (registry *Registry) Unregister(subscription *Subscription) {
	if registry == nil || subscription == nil {
		return
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	listed := registry.subscriptions[subscription.name]

	for i, candidate := range listed {
		if candidate != subscription {
			continue
		}

		replacement := make([]*Subscription, 0, len(listed)-1)
		replacement = append(replacement, listed[:i]...)
		replacement = append(replacement, listed[i+1:]...)

		if len(replacement) == 0 {
			delete(registry.subscriptions, subscription.name)
		} else {
			registry.subscriptions[subscription.name] = replacement
		}

		return
	}
}

// ListenersFor returns the subscriptions matching the given signal name and
// subject, in registration order. The returned slice is a snapshot: it is
// safe to iterate (and re-iterate) while other goroutines mutate the
// registry.
func (registry *Registry) ListenersFor(name Name, subject any) []*Subscription {
	if registry == nil {
		return nil
	}

	registry.mu.RLock()
	defer registry.mu.RUnlock()

	listed := registry.subscriptions[name]
	if len(listed) == 0 {
		return nil
	}

	matched := make([]*Subscription, 0, len(listed))

	for _, subscription := range listed {
		if subscription.filter.matches(subject) {
			matched = append(matched, subscription)
		}
	}

	return matched
}

// Len reports the number of subscriptions registered for the given name.
func (registry *Registry) Len(name Name) int {
	if registry == nil {
		return 0
	}

	registry.mu.RLock()
	defer registry.mu.RUnlock()

	return len(registry.subscriptions[name])
}
