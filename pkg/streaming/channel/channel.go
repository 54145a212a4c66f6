package channel

import (
	"fmt"
	"sync"

	bcerrors "github.com/vnykmshr/boundchan/pkg/common/errors"
	"github.com/vnykmshr/boundchan/pkg/common/validation"
)

const (
	// DefaultCapacity is the capacity used by NewDefault and DefaultConfig.
	DefaultCapacity = 1

	// MaxCapacity is a sanity ceiling on capacity, not a hard domain limit.
	MaxCapacity = 1_000_000

	// emptyFront marks a channel holding no values.
	emptyFront = -1
)

// Sender is the producer side of a channel.
type Sender[T any] interface {
	// Send enqueues value, blocking while the channel is full.
	Send(value T)
}

// Receiver is the consumer side of a channel.
type Receiver[T any] interface {
	// Get dequeues the oldest value, blocking while the channel is empty.
	Get() T
}

// Queue is the full surface shared by Channel and MetricsChannel.
type Queue[T any] interface {
	Sender[T]
	Receiver[T]

	// IsConsistent reports whether the internal invariants hold.
	IsConsistent() bool

	// Len returns the number of queued values.
	Len() int

	// Cap returns the fixed capacity.
	Cap() int
}

// Stats holds a snapshot of channel activity.
type Stats struct {
	// SendCount is the total number of completed sends.
	SendCount int64

	// GetCount is the total number of completed gets.
	GetCount int64

	// BlockedSends counts suspensions of senders on a full channel.
	BlockedSends int64

	// BlockedGets counts suspensions of receivers on an empty channel.
	BlockedGets int64

	// Len is the number of values queued at snapshot time.
	Len int

	// Cap is the channel capacity.
	Cap int

	// Utilization is Len/Cap (0.0 to 1.0).
	Utilization float64
}

// Config holds configuration for Channel.
type Config struct {
	// Capacity is the fixed number of slots, in [1, MaxCapacity].
	Capacity int

	// OnSendBlock is called each time a sender is about to suspend.
	// It runs with the channel lock held and must not call back into the channel.
	OnSendBlock func()

	// OnGetBlock is called each time a receiver is about to suspend.
	// It runs with the channel lock held and must not call back into the channel.
	OnGetBlock func()
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Capacity: DefaultCapacity,
	}
}

// noCopy may be embedded into structs which must not be copied after first use.
// See https://golang.org/issues/8005#issuecomment-190753527; go vet's copylocks
// check reports copies.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Channel is a bounded, blocking FIFO queue safe for use by many goroutines.
//
// Slots form a circular buffer. back is where the next value is written and
// front is the oldest value, or -1 when the channel is empty; front == back
// therefore means full. A Channel must be shared by pointer and never copied.
type Channel[T any] struct {
	noCopy noCopy

	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	slots    []T
	capacity int
	front    int
	back     int

	onSendBlock func()
	onGetBlock  func()

	sendCount    int64
	getCount     int64
	blockedSends int64
	blockedGets  int64
}

var _ Queue[int] = (*Channel[int])(nil)

// New creates a Channel with the given capacity.
func New[T any](capacity int) (*Channel[T], error) {
	config := DefaultConfig()
	config.Capacity = capacity
	return NewWithConfig[T](config)
}

// NewDefault creates a Channel with DefaultCapacity.
func NewDefault[T any]() *Channel[T] {
	ch, err := New[T](DefaultCapacity)
	if err != nil {
		panic(err)
	}
	return ch
}

// NewWithConfig creates a Channel with the specified configuration.
// It returns an error wrapping errors.ErrInvalidCapacity when the capacity
// is outside [1, MaxCapacity].
func NewWithConfig[T any](config Config) (*Channel[T], error) {
	if err := validation.ValidateRange("channel", "capacity", config.Capacity, 1, MaxCapacity, bcerrors.ErrInvalidCapacity); err != nil {
		return nil, err
	}

	ch := &Channel[T]{
		slots:       make([]T, config.Capacity),
		capacity:    config.Capacity,
		front:       emptyFront,
		back:        0,
		onSendBlock: config.OnSendBlock,
		onGetBlock:  config.OnGetBlock,
	}
	ch.notFull = sync.NewCond(&ch.mu)
	ch.notEmpty = sync.NewCond(&ch.mu)

	return ch, nil
}

// Send moves value into the channel, blocking while it is full.
// The caller must not keep using a value it no longer owns.
func (ch *Channel[T]) Send(value T) {
	ch.mu.Lock()
	ch.assertConsistentLocked("Send")

	for ch.fullLocked() {
		ch.blockedSends++
		if ch.onSendBlock != nil {
			ch.onSendBlock()
		}
		ch.notFull.Wait()
	}

	ch.slots[ch.back] = value
	if ch.front == emptyFront {
		ch.front = ch.back
	}
	ch.back = (ch.back + 1) % ch.capacity
	ch.sendCount++

	ch.mu.Unlock()
	ch.notEmpty.Signal()
}

// Get removes and returns the oldest value, blocking while the channel is empty.
func (ch *Channel[T]) Get() T {
	ch.mu.Lock()
	ch.assertConsistentLocked("Get")

	for ch.emptyLocked() {
		ch.blockedGets++
		if ch.onGetBlock != nil {
			ch.onGetBlock()
		}
		ch.notEmpty.Wait()
	}

	value := ch.slots[ch.front]
	var zero T
	ch.slots[ch.front] = zero // drop the channel's reference
	ch.front = (ch.front + 1) % ch.capacity
	if ch.front == ch.back {
		ch.front = emptyFront
	}
	ch.getCount++

	ch.mu.Unlock()
	ch.notFull.Signal()
	return value
}

// IsConsistent reports whether the channel's internal invariants hold.
// It never blocks on channel state and must not be used to predict whether
// Send or Get would block.
func (ch *Channel[T]) IsConsistent() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.consistentLocked()
}

// Len returns the number of queued values.
func (ch *Channel[T]) Len() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.lenLocked()
}

// Cap returns the channel capacity.
func (ch *Channel[T]) Cap() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.capacity
}

// Stats returns a snapshot of channel activity.
func (ch *Channel[T]) Stats() Stats {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	stats := Stats{
		SendCount:    ch.sendCount,
		GetCount:     ch.getCount,
		BlockedSends: ch.blockedSends,
		BlockedGets:  ch.blockedGets,
		Len:          ch.lenLocked(),
		Cap:          ch.capacity,
	}
	if stats.Cap > 0 {
		stats.Utilization = float64(stats.Len) / float64(stats.Cap)
	}
	return stats
}

func (ch *Channel[T]) emptyLocked() bool {
	return ch.front == emptyFront
}

func (ch *Channel[T]) fullLocked() bool {
	return ch.front == ch.back
}

func (ch *Channel[T]) lenLocked() int {
	switch {
	case ch.emptyLocked():
		return 0
	case ch.fullLocked():
		return ch.capacity
	default:
		return (ch.back - ch.front + ch.capacity) % ch.capacity
	}
}

// consistentLocked evaluates the index invariants (must hold lock).
func (ch *Channel[T]) consistentLocked() bool {
	valid := 0 < ch.capacity && ch.capacity <= MaxCapacity
	valid = valid && 0 <= ch.back && ch.back < ch.capacity
	valid = valid && emptyFront <= ch.front && ch.front < ch.capacity
	return valid && ch.capacity == len(ch.slots)
}

// assertConsistentLocked panics with a ConsistencyError when the invariants
// are broken. The lock is released before panicking.
func (ch *Channel[T]) assertConsistentLocked(op string) {
	if ch.consistentLocked() {
		return
	}
	detail := fmt.Sprintf("front=%d back=%d capacity=%d slots=%d", ch.front, ch.back, ch.capacity, len(ch.slots))
	ch.mu.Unlock()
	panic(bcerrors.NewConsistencyError("channel", op, detail))
}
