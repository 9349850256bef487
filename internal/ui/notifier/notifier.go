// Package notifier provides a simple broadcast mechanism for SSE updates.
package notifier

import "sync"

// Notifier pings listeners when state they render has changed. Listeners
// subscribe to a topic (a browsing session id); Broadcast pings every topic.
// A ping carries no data: listeners re-read the state they render.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]string
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan struct{}]string),
	}
}

// Subscribe returns a channel that receives pings for topic.
// The caller must call Unsubscribe when done to prevent goroutine leaks.
func (n *Notifier) Subscribe(topic string) chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	n.listeners[ch] = topic
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	_, ok := n.listeners[ch]
	delete(n.listeners, ch)
	n.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Notify pings the listeners of one topic.
func (n *Notifier) Notify(topic string) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch, t := range n.listeners {
		if t == topic {
			ping(ch)
		}
	}
}

// Broadcast pings all listeners.
func (n *Notifier) Broadcast() {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		ping(ch)
	}
}

// Listeners returns the number of subscribed channels.
func (n *Notifier) Listeners() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

// ping is non-blocking: a full channel already has a pending ping.
func ping(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
