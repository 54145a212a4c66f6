package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/boundchan/pkg/common/validation"
	"github.com/vnykmshr/boundchan/pkg/streaming/channel"
)

// Task represents a unit of work that can be executed by a worker.
type Task interface {
	// Execute runs the task with the given context.
	// It should respect context cancellation and return any error encountered.
	Execute(ctx context.Context) error
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func(ctx context.Context) error

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Result represents the result of a task execution.
type Result struct {
	// Task is the original task that was executed
	Task Task

	// Error is any error that occurred during task execution
	Error error

	// Duration is how long the task took to execute
	Duration time.Duration

	// WorkerID identifies which worker executed the task
	WorkerID int
}

// Pool represents a worker pool that executes tasks concurrently.
type Pool interface {
	// Submit adds a task to the pool for execution.
	// It blocks while the task queue is full.
	Submit(task Task) error

	// SubmitWithContext submits a task whose Execute receives ctx.
	// A context that is already done is rejected before queuing.
	SubmitWithContext(ctx context.Context, task Task) error

	// Shutdown initiates a graceful shutdown of the pool.
	// No new tasks are accepted, but queued tasks are completed.
	// Returns a channel that closes when every worker has exited.
	Shutdown() <-chan struct{}

	// Size returns the number of workers in the pool.
	Size() int

	// QueueSize returns the current number of queued tasks waiting for execution.
	QueueSize() int

	// ActiveWorkers returns the number of workers currently executing tasks.
	ActiveWorkers() int

	// TotalSubmitted returns the total number of tasks accepted by the pool.
	TotalSubmitted() int64

	// TotalCompleted returns the total number of tasks that finished, with or without error.
	TotalCompleted() int64
}

// Config holds configuration options for creating a worker pool.
type Config struct {
	// WorkerCount is the number of workers in the pool.
	// Must be greater than 0.
	WorkerCount int

	// QueueSize is the capacity of the bounded task queue.
	// Zero selects WorkerCount. Negative values are rejected.
	QueueSize int

	// TaskTimeout is the timeout applied to each task execution.
	// Zero means no timeout.
	TaskTimeout time.Duration

	// PanicHandler is called when a task panics.
	// If nil, the panic is converted into the task's Result.Error.
	PanicHandler func(task Task, recovered interface{})

	// OnWorkerStart is called when a worker starts.
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called when a worker stops.
	OnWorkerStop func(workerID int)

	// OnTaskStart is called before a task begins execution.
	OnTaskStart func(workerID int, task Task)

	// OnTaskComplete is called after a task completes (success or failure).
	OnTaskComplete func(workerID int, result Result)
}

// DefaultConfig returns a configuration with 4 workers and a queue of 4 tasks.
func DefaultConfig() Config {
	return Config{
		WorkerCount: 4,
		QueueSize:   4,
	}
}

// job is what travels through the task queue. A job with stop set tells
// the worker that receives it to exit.
type job struct {
	task Task
	ctx  context.Context
	stop bool
}

// workerPool implements the Pool interface.
type workerPool struct {
	config Config

	queue        *channel.Channel[job]
	done         chan struct{}
	shutdownOnce sync.Once

	// mu is held for reading across a queue Send. The goroutine that
	// enqueues stop markers takes it for writing first, so no marker can
	// overtake an accepted task. Shutdown itself never takes it.
	mu         sync.RWMutex
	isShutdown atomic.Bool

	activeWorkers  int32
	totalSubmitted int64
	totalCompleted int64

	workerWg sync.WaitGroup
}

// worker represents a single worker in the pool.
type worker struct {
	id   int
	pool *workerPool
}

// New creates a new worker pool with the specified number of workers and queue size.
func New(workerCount, queueSize int) (Pool, error) {
	return NewWithConfig(Config{
		WorkerCount: workerCount,
		QueueSize:   queueSize,
	})
}

// NewWithConfig creates a new worker pool with the specified configuration.
func NewWithConfig(config Config) (Pool, error) {
	if err := validation.ValidatePositive("workerpool", "worker_count", config.WorkerCount); err != nil {
		return nil, err
	}
	if config.QueueSize == 0 {
		config.QueueSize = config.WorkerCount
	}
	if err := validation.ValidatePositive("workerpool", "queue_size", config.QueueSize); err != nil {
		return nil, err
	}
	if config.TaskTimeout < 0 {
		return nil, validation.ValidatePositiveDuration("workerpool", "task_timeout", config.TaskTimeout)
	}

	// Stop markers share the queue with tasks, so it must be able to hold
	// at least one of them.
	queue, err := channel.New[job](config.QueueSize)
	if err != nil {
		return nil, err
	}

	pool := &workerPool{
		config: config,
		queue:  queue,
		done:   make(chan struct{}),
	}

	for i := 0; i < config.WorkerCount; i++ {
		w := &worker{id: i, pool: pool}
		pool.workerWg.Add(1)
		go w.run()
	}

	return pool, nil
}
