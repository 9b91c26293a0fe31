package api

import "sync"

// notifier pings subscribers when the catalog changes. Listeners receive
// an empty struct and read the current version.
type notifier struct {
	mu        sync.RWMutex
	version   int
	listeners map[chan struct{}]struct{}
}

func newNotifier() *notifier {
	return &notifier{listeners: make(map[chan struct{}]struct{})}
}

// subscribe returns a channel that receives pings. The caller must call
// unsubscribe when done.
func (n *notifier) subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

func (n *notifier) unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	delete(n.listeners, ch)
	n.mu.Unlock()
	close(ch)
}

// broadcast bumps the version and pings every listener. A listener whose
// buffer is full is skipped; it reads the latest version on its next ping.
func (n *notifier) broadcast() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.version++
	for ch := range n.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (n *notifier) currentVersion() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.version
}
