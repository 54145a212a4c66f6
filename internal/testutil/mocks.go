package testutil

import (
	"sync"
	"sync/atomic"
	"testing"
)

// CallbackTracker records invocations of a hook for later assertions.
type CallbackTracker struct {
	mu    sync.Mutex
	count int
	value interface{}
}

// NewCallbackTracker creates a new CallbackTracker.
func NewCallbackTracker() *CallbackTracker {
	return &CallbackTracker{}
}

// Mark records one call, optionally remembering the last value passed.
func (c *CallbackTracker) Mark(v ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	if len(v) > 0 {
		c.value = v[0]
	}
}

// Called reports whether Mark has been called since creation or Reset.
func (c *CallbackTracker) Called() bool {
	return c.CallCount() > 0
}

// CallCount returns the number of recorded calls.
func (c *CallbackTracker) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Value returns the last recorded value.
func (c *CallbackTracker) Value() interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Reset clears all recorded calls.
func (c *CallbackTracker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = 0
	c.value = nil
}

// AssertCalled fails the test if the tracker was never called.
func (c *CallbackTracker) AssertCalled(t *testing.T) {
	t.Helper()
	if !c.Called() {
		t.Fatal("expected callback to be called")
	}
}

// AssertNotCalled fails the test if the tracker was called.
func (c *CallbackTracker) AssertNotCalled(t *testing.T) {
	t.Helper()
	if n := c.CallCount(); n != 0 {
		t.Fatalf("expected callback not to be called, got %d calls", n)
	}
}

// AssertCallCount fails the test unless the tracker was called exactly want times.
func (c *CallbackTracker) AssertCallCount(t *testing.T, want int) {
	t.Helper()
	if got := c.CallCount(); got != want {
		t.Fatalf("call count = %d, want %d", got, want)
	}
}

// LiveCounter tracks how many Counted values are alive. A value is alive
// from NewCounted until Release.
type LiveCounter struct {
	live int64
}

// Live returns the number of values created and not yet released.
func (lc *LiveCounter) Live() int64 {
	return atomic.LoadInt64(&lc.live)
}

// Counted is a payload that tracks its own live-instance count. It is
// meant to travel through a queue by pointer; only the final owner calls
// Release.
type Counted struct {
	Value    int
	counter  *LiveCounter
	released int32
}

// NewCounted creates a live value owned by lc.
func (lc *LiveCounter) NewCounted(v int) *Counted {
	atomic.AddInt64(&lc.live, 1)
	return &Counted{Value: v, counter: lc}
}

// Release ends the value's life. Releasing twice panics, which exposes a
// duplicated owner.
func (c *Counted) Release() {
	if !atomic.CompareAndSwapInt32(&c.released, 0, 1) {
		panic("testutil: Counted released twice")
	}
	atomic.AddInt64(&c.counter.live, -1)
}
