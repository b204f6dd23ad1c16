package identity

import (
	"sync"

	"adminconsole/internal/auth/models"
)

// broadcaster delivers change events to subscribers one at a time, in
// emission order.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[uint64]func(models.ChangeEvent)
	order  []uint64
	nextID uint64

	// dispatch serializes deliveries across emitting goroutines.
	dispatch sync.Mutex
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[uint64]func(models.ChangeEvent))}
}

func (b *broadcaster) subscribe(fn func(models.ChangeEvent)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = fn
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (b *broadcaster) emit(event models.ChangeEvent) {
	b.dispatch.Lock()
	defer b.dispatch.Unlock()

	b.mu.Lock()
	fns := make([]func(models.ChangeEvent), 0, len(b.order))
	for _, id := range b.order {
		fns = append(fns, b.subs[id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}

func (b *broadcaster) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
