package notify

import (
	"sync"

	"go.uber.org/atomic"
)

// Mailbox is a bounded queue whose Put never blocks: when full, the oldest
// entry is discarded to make room.
type Mailbox[T any] struct {
	mu    sync.Mutex
	ch    chan T
	drops atomic.Uint64
}

// NewMailbox returns a Mailbox holding up to size entries (at least one).
func NewMailbox[T any](size int) *Mailbox[T] {
	return &Mailbox[T]{ch: make(chan T, max(size, 1))}
}

// Put enqueues v, dropping the oldest entry if the mailbox is full.
// It reports whether an entry was dropped.
func (m *Mailbox[T]) Put(v T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := false
	for {
		select {
		case m.ch <- v:
			return dropped
		default:
		}
		select {
		case <-m.ch:
			m.drops.Inc()
			dropped = true
		default:
		}
	}
}

// C is the receive side for consumers.
func (m *Mailbox[T]) C() <-chan T {
	return m.ch
}

// Drops counts entries discarded because consumers fell behind.
func (m *Mailbox[T]) Drops() uint64 {
	return m.drops.Load()
}
