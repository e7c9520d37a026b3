package api

import (
	"net/http"
	"sync"
)

// Tracker is an http.RoundTripper that counts requests in flight. The count
// goes up before the request is sent and down once the transport returns,
// whether it failed or not.
type Tracker struct {
	next http.RoundTripper

	// notify serializes changes with their notifications, so watchers see
	// counts in the order they happened.
	notify   sync.Mutex
	mu       sync.Mutex
	active   int
	seq      int
	watchers map[int]func(active int)
}

// NewTracker wraps next; a nil next uses http.DefaultTransport.
func NewTracker(next http.RoundTripper) *Tracker {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Tracker{next: next, watchers: make(map[int]func(int))}
}

// RoundTrip implements http.RoundTripper. Errors from the wrapped transport
// are returned unchanged.
func (t *Tracker) RoundTrip(req *http.Request) (*http.Response, error) {
	t.add(1)
	defer t.add(-1)
	return t.next.RoundTrip(req)
}

// Active returns the number of requests currently in flight.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Watch registers fn to be called with the new count after every change.
// Calls are made one at a time, in the order of the changes; fn must not
// issue requests through the tracker. The returned func unregisters it.
func (t *Tracker) Watch(fn func(active int)) (cancel func()) {
	t.mu.Lock()
	id := t.seq
	t.seq++
	t.watchers[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.watchers, id)
		t.mu.Unlock()
	}
}

func (t *Tracker) add(delta int) {
	t.notify.Lock()
	defer t.notify.Unlock()

	t.mu.Lock()
	t.active += delta
	n := t.active
	fns := make([]func(int), 0, len(t.watchers))
	for _, fn := range t.watchers {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(n)
	}
}
