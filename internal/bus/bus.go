package bus

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Bus carries side notifications between the chat core, the feed service and
// whoever logs or flashes them. It never carries view state. Delivery is
// best effort: an event for a subscriber whose buffer is full is counted in
// Dropped and discarded.
type Bus struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscriber
	nextID  uint64
	dropped atomic.Uint64
}

type subscriber struct {
	prefixes []string
	ch       chan Event
}

func (s *subscriber) wants(kind string) bool {
	for _, p := range s.prefixes {
		if strings.HasPrefix(kind, p) {
			return true
		}
	}
	return false
}

func New() *Bus {
	return &Bus{subs: make(map[uint64]*subscriber)}
}

// Publish stamps evt when its Timestamp is zero and offers it to every
// matching subscriber without blocking. A nil Bus discards everything.
func (b *Bus) Publish(evt Event) {
	if b == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if !s.wants(evt.Kind) {
			continue
		}
		select {
		case s.ch <- evt:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe registers a buffered channel for events whose kind starts with
// any of prefixes; with no prefixes it receives everything. The returned
// cancel func is idempotent and does not close the channel.
func (b *Bus) Subscribe(bufSize int, prefixes ...string) (<-chan Event, func()) {
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}
	s := &subscriber{prefixes: prefixes, ch: make(chan Event, bufSize)}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = s
	b.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Dropped returns how many deliveries were discarded because a subscriber
// was not keeping up.
func (b *Bus) Dropped() uint64 {
	if b == nil {
		return 0
	}
	return b.dropped.Load()
}
