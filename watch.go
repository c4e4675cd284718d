package datakit

import (
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// rootWatcher monitors the backing files of attached roots with fsnotify and
// signals the corresponding change tokens. It never mutates the forest
// itself: reloading in response to a change is the observer's decision.
type rootWatcher struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	nodes   map[string]*Node
	done    chan struct{}
}

// watchRoot starts watching the backing file of a file-backed root. The
// watcher is created lazily on first use.
func (r *Repository) watchRoot(node *Node) error {
	if node.filePath == "" {
		return nil
	}

	r.mu.Lock()
	if r.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			r.mu.Unlock()
			return err
		}
		r.watcher = &rootWatcher{
			watcher: w,
			nodes:   make(map[string]*Node),
			done:    make(chan struct{}),
		}
		go r.watchLoop(r.watcher)
	}
	w := r.watcher
	r.mu.Unlock()

	w.mu.Lock()
	w.nodes[node.filePath] = node
	w.mu.Unlock()

	return w.watcher.Add(node.filePath)
}

func (r *Repository) unwatchRoot(node *Node) {
	r.mu.Lock()
	w := r.watcher
	r.mu.Unlock()
	if w == nil || node.filePath == "" {
		return
	}

	w.mu.Lock()
	delete(w.nodes, node.filePath)
	w.mu.Unlock()

	// Removing a path that fsnotify already dropped is harmless.
	_ = w.watcher.Remove(node.filePath)
}

func (r *Repository) stopWatcher() {
	r.mu.Lock()
	w := r.watcher
	r.watcher = nil
	r.mu.Unlock()
	if w == nil {
		return
	}
	_ = w.watcher.Close()
	<-w.done
}

func (r *Repository) watchLoop(w *rootWatcher) {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			node := w.nodes[event.Name]
			w.mu.Unlock()
			if node == nil {
				continue
			}
			if node.token != nil {
				node.token.SignalChange()
			}
			r.publish(Event{Kind: EventFileChanged, Node: node})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn("file watcher", slog.Any("error", err))
		}
	}
}

// publish enqueues and immediately flushes a single event. Used by the
// watcher goroutine, which never holds r.mu.
func (r *Repository) publish(e Event) {
	r.mu.Lock()
	r.enqueue(e)
	r.mu.Unlock()
	r.flush()
}
