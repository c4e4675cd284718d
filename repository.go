package datakit

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
)

// Repository is the process-wide forest of attached data containers. It is
// the single owner of all tree mutation: attach, detach, open, close and
// reload all serialize through it, so adapters are never entered
// concurrently for the same handle and every observer sees mutations
// deterministically, immediately after the mutating call returns.
type Repository struct {
	mu       sync.RWMutex
	registry *Registry
	cfg      *Config
	log      *slog.Logger
	roots    []*Node
	queue    []Event // pending events, guarded by mu, flushed after unlock

	subsMu sync.Mutex
	subs   []func(Event)

	watcher *rootWatcher
}

// NewRepository creates an empty repository. By default it uses the built-in
// config defaults, a registry holding every adapter registered at init time,
// and the default slog logger; see the With* options.
func NewRepository(opts ...RepositoryOption) (*Repository, error) {
	r := &Repository{
		cfg: DefaultConfig(),
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		registry, err := NewRegistry(r.cfg)
		if err != nil {
			return nil, err
		}
		r.registry = registry
	}
	return r, nil
}

// Registry returns the adapter registry backing this repository.
func (r *Repository) Registry() *Registry { return r.registry }

// ============================================================================
// Forest mutation
// ============================================================================

// Attach resolves an adapter for path and adds a closed root node for it to
// the forest. The resource itself is not opened until the first Open call on
// the returned node. Attach fails with ErrNoAdapterFound when no adapter
// matches and no forced adapter was given; the forest is unchanged in that
// case.
func (r *Repository) Attach(path string, opts ...AttachOption) (*Node, error) {
	var ao attachOptions
	for _, opt := range opts {
		opt(&ao)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("attach %s: %w", path, err)
	}

	forced := ao.adapterName
	if forced == "" {
		forced = r.cfg.ForceAdapter
	}
	adapter, err := r.registry.Resolve(abs, forced)
	if err != nil {
		return nil, err
	}

	name := ao.displayName
	if name == "" {
		name = filepath.Base(abs)
	}

	node := &Node{
		repo:       r,
		adapter:    adapter,
		name:       name,
		kind:       KindGroup,
		isRoot:     true,
		filePath:   abs,
		reopenable: true,
		childHint:  -1,
		token:      NewCallbackChangeToken(),
	}

	r.mu.Lock()
	r.roots = append(r.roots, node)
	r.enqueue(Event{Kind: EventAttached, Node: node})
	r.mu.Unlock()

	if r.cfg.WatchEnabled {
		if err := r.watchRoot(node); err != nil {
			r.log.Warn("watch unavailable", slog.String("path", abs), slog.Any("error", err))
		}
	}

	r.flush()
	return node, nil
}

// AttachMemory wraps an in-memory object tree as an open root node. The
// adapter registered under "memory" must support direct attachment. Such a
// root has no backing file: its change token never fires and reloading it
// after a close fails with ErrAdapterOpen.
func (r *Repository) AttachMemory(name string, data map[string]any) (*Node, error) {
	adapter, ok := r.registry.Adapter("memory")
	if !ok {
		return nil, fmt.Errorf("%w: memory adapter not registered", ErrNoAdapterFound)
	}
	attacher, ok := adapter.(MemoryAttacher)
	if !ok {
		return nil, fmt.Errorf("memory adapter: %w", ErrNotSupported)
	}

	handle, kids, err := attacher.AttachRoot(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAdapterOpen, err)
	}

	node := &Node{
		repo:      r,
		adapter:   adapter,
		name:      name,
		kind:      KindGroup,
		isRoot:    true,
		childHint: -1,
	}

	r.mu.Lock()
	node.handle = handle
	node.children = node.buildChildren(kids)
	node.open = true
	r.roots = append(r.roots, node)
	r.enqueue(Event{Kind: EventAttached, Node: node})
	r.enqueue(Event{Kind: EventOpened, Node: node})
	r.mu.Unlock()

	r.flush()
	return node, nil
}

// Detach closes a root node and removes it from the forest. Only roots can
// be detached; interior nodes disappear when their parent closes.
func (r *Repository) Detach(node *Node) error {
	if node == nil || node.repo != r {
		return ErrNotAttached
	}
	if !node.isRoot {
		return ErrNotRoot
	}

	r.mu.Lock()
	found := false
	for i, root := range r.roots {
		if root == node {
			r.roots = append(r.roots[:i], r.roots[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		r.mu.Unlock()
		return ErrNotAttached
	}
	node.closeLocked()
	r.enqueue(Event{Kind: EventDetached, Node: node})
	r.mu.Unlock()

	r.unwatchRoot(node)
	r.flush()
	return nil
}

// Close detaches every root and stops the file watcher.
func (r *Repository) Close() error {
	r.mu.Lock()
	roots := r.roots
	r.roots = nil
	for _, root := range roots {
		root.closeLocked()
		r.enqueue(Event{Kind: EventDetached, Node: root})
	}
	r.mu.Unlock()

	r.stopWatcher()
	r.flush()
	return nil
}

// ============================================================================
// Forest queries
// ============================================================================

// Roots returns the attached root nodes in attach order.
func (r *Repository) Roots() []*Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Node(nil), r.roots...)
}

// Lookup finds a node by its display path ("/data.h5/group/var"). It never
// forces expansion, so nodes below a closed group are not found.
func (r *Repository) Lookup(path string) (*Node, bool) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var current *Node
	for _, root := range r.roots {
		if root.name == segments[0] {
			current = root
			break
		}
	}
	if current == nil {
		return nil, false
	}

	for _, seg := range segments[1:] {
		var next *Node
		for _, child := range current.children {
			if child.name == seg {
				next = child
				break
			}
		}
		if next == nil {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Token returns the change token of a root node. Memory-attached roots get
// a token that never fires.
func (r *Repository) Token(node *Node) ChangeToken {
	if node == nil || !node.isRoot || node.token == nil {
		return NeverChangeToken{}
	}
	return node.token
}

// IsStale reports whether the backing file of an open, file-backed root has
// changed on disk since it was opened, by comparing content fingerprints.
func (r *Repository) IsStale(node *Node) (bool, error) {
	if node == nil || node.repo != r {
		return false, ErrNotAttached
	}
	if !node.isRoot {
		return false, ErrNotRoot
	}

	r.mu.RLock()
	open := node.open
	path := node.filePath
	recorded := node.fingerprint
	r.mu.RUnlock()

	if !open || path == "" || recorded == 0 {
		return false, nil
	}
	current, err := fingerprintFile(path)
	if err != nil {
		return false, err
	}
	return current != recorded, nil
}

// ============================================================================
// Event subscription
// ============================================================================

// Subscribe registers an observer for repository events. Events are
// delivered synchronously, in order, after each mutating call completes.
// Returns a function to unregister the observer.
func (r *Repository) Subscribe(fn func(Event)) (unsubscribe func()) {
	r.subsMu.Lock()
	r.subs = append(r.subs, fn)
	index := len(r.subs) - 1
	r.subsMu.Unlock()

	return func() {
		r.subsMu.Lock()
		defer r.subsMu.Unlock()
		if index < len(r.subs) {
			// Set to nil instead of removing to avoid index shifting
			r.subs[index] = nil
		}
	}
}

// enqueue appends an event to the pending queue. Callers hold r.mu.
func (r *Repository) enqueue(e Event) {
	r.queue = append(r.queue, e)
}

// flush delivers all pending events. Called after r.mu is released so that
// observers may call back into the repository.
func (r *Repository) flush() {
	r.mu.Lock()
	pending := r.queue
	r.queue = nil
	r.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	r.subsMu.Lock()
	subs := make([]func(Event), len(r.subs))
	copy(subs, r.subs)
	r.subsMu.Unlock()

	for _, e := range pending {
		for _, fn := range subs {
			if fn != nil {
				fn(e)
			}
		}
	}
}
