package client

import "sync"

// Handler receives provider events.
type Handler func(Event)

// Dispatcher fans events out to subscribed handlers. Events are delivered
// one at a time, in emit order, to handlers in subscription order.
// The zero value is ready to use.
type Dispatcher struct {
	emitMu   sync.Mutex
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
	order    []int
}

// Subscribe registers h and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (d *Dispatcher) Subscribe(h Handler) (unsubscribe func()) {
	d.mu.Lock()
	if d.handlers == nil {
		d.handlers = make(map[int]Handler)
	}
	id := d.nextID
	d.nextID++
	d.handlers[id] = h
	d.order = append(d.order, id)
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			delete(d.handlers, id)
			for i, v := range d.order {
				if v == id {
					d.order = append(d.order[:i], d.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Emit delivers evt to every current subscriber before returning.
func (d *Dispatcher) Emit(evt Event) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	for _, h := range d.snapshot() {
		h(evt)
	}
}

// deliver sends evt to a single handler, serialized with Emit.
func (d *Dispatcher) deliver(h Handler, evt Event) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()
	h(evt)
}

// Len returns the number of subscribed handlers.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}

func (d *Dispatcher) snapshot() []Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	hs := make([]Handler, 0, len(d.order))
	for _, id := range d.order {
		hs = append(hs, d.handlers[id])
	}
	return hs
}
