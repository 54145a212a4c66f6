/*
Package workerpool runs tasks on a fixed set of worker goroutines fed by a
bounded channel.

The task queue is a channel.Channel, so a full queue applies back-pressure:
Submit blocks until a worker takes a task. Nothing is dropped and memory use
is bounded by QueueSize.

Basic usage:

	pool, err := workerpool.New(4, 100) // 4 workers, queue size 100
	if err != nil {
		return err
	}
	defer func() { <-pool.Shutdown() }()

	task := workerpool.TaskFunc(func(ctx context.Context) error {
		// Do work
		return nil
	})

	if err := pool.Submit(task); err != nil {
		log.Printf("Failed to submit: %v", err)
	}

Task Interface:

	type Task interface {
		Execute(ctx context.Context) error
	}

TaskFunc adapts a plain function.

Configuration Options:

	pool, err := workerpool.NewWithConfig(workerpool.Config{
		WorkerCount: 8,
		QueueSize:   1000,
		TaskTimeout: 30 * time.Second,
		PanicHandler: func(task workerpool.Task, recovered interface{}) {
			log.Printf("Task panicked: %v", recovered)
		},
		OnTaskComplete: func(workerID int, result workerpool.Result) {
			log.Printf("Worker %d completed task in %v", workerID, result.Duration)
		},
	})

Invalid settings (WorkerCount <= 0, negative QueueSize or TaskTimeout, a
queue larger than channel.MaxCapacity) are reported as errors wrapping
errors.ErrInvalidConfiguration. A QueueSize of 0 selects WorkerCount.

Results:

Results are delivered through OnTaskComplete, which runs on the worker
goroutine after the task finishes. A panicking task is recovered; without a
PanicHandler its Result.Error carries the panic value and stack.

Submission:

SubmitWithContext passes its context to the task. A context that is already
done is rejected, but queuing itself blocks regardless of the context.

Graceful Shutdown:

Shutdown stops accepting tasks and queues one stop marker per worker behind
everything already accepted. Workers finish the queued tasks, take their
marker and exit; the returned channel closes after the last one.

	<-pool.Shutdown()

Submit after Shutdown returns an error wrapping errors.ErrPoolShutdown.

Monitoring:

	fmt.Printf("Queue size: %d\n", pool.QueueSize())
	fmt.Printf("Active workers: %d\n", pool.ActiveWorkers())
	fmt.Printf("Total completed: %d\n", pool.TotalCompleted())

NewWithMetrics and NewWithConfigAndMetrics return a MetricsPool that also
exports these values and per-task durations to Prometheus.

Thread Safety:

All pool operations are safe for concurrent use from multiple goroutines.
*/
package workerpool
