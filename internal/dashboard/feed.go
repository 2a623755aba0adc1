package dashboard

import (
	"sync"

	"github.com/zulandar/scriptyard/internal/models"
	"github.com/zulandar/scriptyard/internal/stats"
	"github.com/zulandar/scriptyard/internal/store"
)

// feedBuffer is the per-listener backlog. A listener that falls further
// behind misses events rather than stalling store writers.
const feedBuffer = 32

// scriptEvent is the payload of a "script" feed event.
type scriptEvent struct {
	Kind    store.ChangeKind `json:"kind"`
	Version uint64           `json:"version"`
	Script  models.Script    `json:"script"`
}

// Feed turns store changes into "script" and "stats" events for SSE
// listeners and the websocket hub.
type Feed struct {
	hub   *Hub
	unsub func()

	mu     sync.Mutex
	subs   map[chan sseEvent]struct{}
	closed bool
}

// NewFeed subscribes to st. hub may be nil.
func NewFeed(st *store.Store, hub *Hub) *Feed {
	f := &Feed{hub: hub, subs: make(map[chan sseEvent]struct{})}
	f.unsub = st.Subscribe(f.publish)
	return f
}

func (f *Feed) publish(c store.Change) {
	events := []sseEvent{
		{Event: "script", Data: scriptEvent{Kind: c.Kind, Version: c.Version, Script: c.Script}},
		{Event: "stats", Data: stats.Aggregate(c.Scripts)},
	}
	f.mu.Lock()
	for ch := range f.subs {
		for _, evt := range events {
			select {
			case ch <- evt:
			default:
			}
		}
	}
	f.mu.Unlock()

	if f.hub != nil {
		for _, evt := range events {
			f.hub.Broadcast(evt)
		}
	}
}

// Subscribe returns a channel of feed events and a func that ends the
// subscription and closes the channel.
func (f *Feed) Subscribe() (<-chan sseEvent, func()) {
	ch := make(chan sseEvent, feedBuffer)
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			if _, ok := f.subs[ch]; ok {
				delete(f.subs, ch)
				close(ch)
			}
			f.mu.Unlock()
		})
	}
}

// Close detaches from the store and closes every listener channel.
func (f *Feed) Close() {
	f.unsub()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for ch := range f.subs {
		delete(f.subs, ch)
		close(ch)
	}
}
