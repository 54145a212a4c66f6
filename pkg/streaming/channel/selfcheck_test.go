package channel

import (
	"testing"
)

// Test-only access to channel internals. Living in a _test.go file keeps
// the raw indices out of the production API.

// indices returns the raw circular-buffer state.
func (ch *Channel[T]) indices() (front, back, capacity int) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.front, ch.back, ch.capacity
}

// slotAt returns the value stored in slot i without removing it.
func (ch *Channel[T]) slotAt(i int) T {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.slots[i]
}

// invalidate corrupts the channel so that the invariant check fails.
func (ch *Channel[T]) invalidate() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.capacity = -1
}

// checkedChannel asserts the invariants around every operation. It is only
// suitable for single-goroutine tests, since the size read after an
// operation is not atomic with that operation.
type checkedChannel[T any] struct {
	*Channel[T]
	t *testing.T
}

func newChecked[T any](t *testing.T, capacity int) *checkedChannel[T] {
	t.Helper()
	ch, err := New[T](capacity)
	if err != nil {
		t.Fatalf("New(%d): %v", capacity, err)
	}
	c := &checkedChannel[T]{Channel: ch, t: t}
	if _, _, got := ch.indices(); got != capacity {
		t.Fatalf("capacity = %d, want %d", got, capacity)
	}
	if c.size() != 0 {
		t.Fatalf("size = %d after construction, want 0", c.size())
	}
	return c
}

func (c *checkedChannel[T]) Send(value T) {
	c.t.Helper()
	before := c.size()
	c.Channel.Send(value)
	c.verify("Send")
	if got := c.size(); got != before+1 {
		c.t.Fatalf("size after Send = %d, want %d", got, before+1)
	}
}

func (c *checkedChannel[T]) Get() T {
	c.t.Helper()
	before := c.size()
	value := c.Channel.Get()
	c.verify("Get")
	if got := c.size(); got != before-1 {
		c.t.Fatalf("size after Get = %d, want %d", got, before-1)
	}
	return value
}

// size derives the element count from the raw indices.
func (c *checkedChannel[T]) size() int {
	front, back, capacity := c.indices()
	switch {
	case front == emptyFront:
		return 0
	case front == back:
		return capacity
	default:
		return (back - front + capacity) % capacity
	}
}

func (c *checkedChannel[T]) verify(op string) {
	c.t.Helper()
	if !c.IsConsistent() {
		front, back, capacity := c.indices()
		c.t.Fatalf("%s left channel inconsistent: front=%d back=%d capacity=%d", op, front, back, capacity)
	}
	if got, want := c.Len(), c.size(); got != want {
		c.t.Fatalf("%s: Len() = %d, index-derived size = %d", op, got, want)
	}
}
