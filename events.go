package datakit

import (
	"sync"
	"sync/atomic"
)

// ============================================================================
// Repository Events
// ============================================================================

// EventKind identifies a repository mutation.
type EventKind int

const (
	// EventAttached fires when a root is added to the forest.
	EventAttached EventKind = iota
	// EventDetached fires when a root is removed from the forest.
	EventDetached
	// EventOpened fires when a node's resources are opened.
	EventOpened
	// EventClosed fires when a node's resources are released.
	EventClosed
	// EventReloaded fires after a successful reload.
	EventReloaded
	// EventNodeError fires when a node transitions to error state.
	EventNodeError
	// EventFileChanged fires when the backing file of an attached root
	// changes on disk. The forest is not mutated; reloading is up to the
	// observer.
	EventFileChanged
)

// Event describes one observable change to the repository forest. Every
// mutating call publishes its events synchronously before returning, so all
// observers see mutations deterministically and immediately.
type Event struct {
	Kind EventKind
	Node *Node
	Err  error
}

// ============================================================================
// ChangeToken Implementations
// ============================================================================

// ChangeToken represents a single-use change notification. Consumers either
// poll HasChanged or register a callback.
type ChangeToken interface {
	// HasChanged returns true if a change has occurred.
	// Once true, it remains true (tokens are single-use).
	HasChanged() bool

	// ActiveChangeCallbacks indicates if the token proactively raises
	// callbacks. If false, consumers should poll HasChanged instead.
	ActiveChangeCallbacks() bool

	// RegisterChangeCallback registers a callback to be invoked when the
	// change occurs. Returns a function to unregister the callback.
	RegisterChangeCallback(callback func()) (unregister func())
}

// CallbackChangeToken is a ChangeToken that supports active callbacks. The
// repository hands one out per attached file-backed root; the watcher
// signals it when the backing file changes.
type CallbackChangeToken struct {
	mu        sync.RWMutex
	changed   atomic.Bool
	callbacks []func()
}

// NewCallbackChangeToken creates a new ChangeToken that supports active callbacks.
func NewCallbackChangeToken() *CallbackChangeToken {
	return &CallbackChangeToken{}
}

func (t *CallbackChangeToken) HasChanged() bool {
	return t.changed.Load()
}

func (t *CallbackChangeToken) ActiveChangeCallbacks() bool {
	return true
}

func (t *CallbackChangeToken) RegisterChangeCallback(callback func()) (unregister func()) {
	t.mu.Lock()
	t.callbacks = append(t.callbacks, callback)
	index := len(t.callbacks) - 1
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if index < len(t.callbacks) {
			// Set to nil instead of removing to avoid index shifting
			t.callbacks[index] = nil
		}
	}
}

// SignalChange marks the token as changed and invokes all callbacks.
func (t *CallbackChangeToken) SignalChange() {
	if t.changed.Swap(true) {
		return // Already changed
	}

	t.mu.RLock()
	callbacks := make([]func(), len(t.callbacks))
	copy(callbacks, t.callbacks)
	t.mu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb()
		}
	}
}

// NeverChangeToken is a ChangeToken that never changes. It is handed out for
// memory-attached roots, which have no backing file to watch.
type NeverChangeToken struct{}

func (NeverChangeToken) HasChanged() bool {
	return false
}

func (NeverChangeToken) ActiveChangeCallbacks() bool {
	return false
}

func (NeverChangeToken) RegisterChangeCallback(callback func()) func() {
	// Never call the callback
	return func() {}
}

var (
	_ ChangeToken = (*CallbackChangeToken)(nil)
	_ ChangeToken = NeverChangeToken{}
)
