package chat

import "sync"

// observable holds the current ViewState and fans every change out to
// subscribers. Unlike the event bus it never drops a value: each Set is
// delivered to every subscriber, in order, before Set returns.
type observable struct {
	// deliverMu serializes Set and Subscribe so subscribers see one total order.
	deliverMu sync.Mutex

	mu    sync.RWMutex
	value ViewState
	subs  map[int]func(ViewState)
	next  int
}

func newObservable(initial ViewState) *observable {
	return &observable{
		value: initial,
		subs:  make(map[int]func(ViewState)),
	}
}

func (o *observable) Get() ViewState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value
}

func (o *observable) Set(v ViewState) {
	o.deliverMu.Lock()
	defer o.deliverMu.Unlock()

	o.mu.Lock()
	o.value = v
	fns := o.snapshot()
	o.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Subscribe calls fn with the current value, then with every later value.
// The returned function stops delivery.
func (o *observable) Subscribe(fn func(ViewState)) func() {
	o.deliverMu.Lock()
	defer o.deliverMu.Unlock()

	o.mu.Lock()
	id := o.next
	o.next++
	o.subs[id] = fn
	current := o.value
	o.mu.Unlock()

	fn(current)

	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

// snapshot returns subscribers in subscription order. Caller holds mu.
func (o *observable) snapshot() []func(ViewState) {
	fns := make([]func(ViewState), 0, len(o.subs))
	for id := 0; id < o.next; id++ {
		if fn, ok := o.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}
