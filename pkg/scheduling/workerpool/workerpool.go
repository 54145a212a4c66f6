package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	bcerrors "github.com/vnykmshr/boundchan/pkg/common/errors"
	"github.com/vnykmshr/boundchan/pkg/common/validation"
)

// Submit adds a task to the pool for execution.
// The task will be executed with context.Background().
// Use SubmitWithContext to provide a custom context.
func (p *workerPool) Submit(task Task) error {
	return p.SubmitWithContext(context.Background(), task)
}

// SubmitWithContext adds a task to the pool for execution with the given context.
// The context is passed to the task's Execute method. If the pool has a
// TaskTimeout configured, the effective deadline is the earlier of the two.
//
// Queuing itself is not cancellable: once the context has been checked,
// SubmitWithContext blocks until the queue has room.
func (p *workerPool) SubmitWithContext(ctx context.Context, task Task) error {
	if err := validation.ValidateNotNil("workerpool", "task", task); err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cannot submit task: context canceled: %w", err)
	}

	// Checked before RLock too: a pending Shutdown barrier makes RLock
	// wait for submitters already blocked on a full queue.
	if p.isShutdown.Load() {
		return fmt.Errorf("cannot submit task: %w", bcerrors.ErrPoolShutdown)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.isShutdown.Load() {
		return fmt.Errorf("cannot submit task: %w", bcerrors.ErrPoolShutdown)
	}

	p.queue.Send(job{task: task, ctx: ctx})
	atomic.AddInt64(&p.totalSubmitted, 1)
	return nil
}

// Shutdown initiates a graceful shutdown of the pool and returns without
// blocking. Submissions already waiting for queue space are still accepted.
func (p *workerPool) Shutdown() <-chan struct{} {
	p.shutdownOnce.Do(func() {
		p.isShutdown.Store(true)

		// One stop marker per worker, queued behind every accepted task.
		go func() {
			// Wait out submitters still blocked on a full queue.
			p.mu.Lock()
			p.mu.Unlock()
			for i := 0; i < p.config.WorkerCount; i++ {
				p.queue.Send(job{stop: true})
			}
			p.workerWg.Wait()
			close(p.done)
		}()
	})

	return p.done
}

// Size returns the number of workers in the pool.
func (p *workerPool) Size() int {
	return p.config.WorkerCount
}

// QueueSize returns the current number of queued tasks waiting for execution.
func (p *workerPool) QueueSize() int {
	return p.queue.Len()
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (p *workerPool) ActiveWorkers() int {
	return int(atomic.LoadInt32(&p.activeWorkers))
}

// TotalSubmitted returns the total number of tasks accepted by the pool.
func (p *workerPool) TotalSubmitted() int64 {
	return atomic.LoadInt64(&p.totalSubmitted)
}

// TotalCompleted returns the total number of finished tasks.
func (p *workerPool) TotalCompleted() int64 {
	return atomic.LoadInt64(&p.totalCompleted)
}

// run is the main loop for a worker.
func (w *worker) run() {
	defer w.pool.workerWg.Done()

	if w.pool.config.OnWorkerStart != nil {
		w.pool.config.OnWorkerStart(w.id)
	}
	if w.pool.config.OnWorkerStop != nil {
		defer w.pool.config.OnWorkerStop(w.id)
	}

	for {
		j := w.pool.queue.Get()
		if j.stop {
			return
		}
		w.executeTask(j)
	}
}

// executeTask executes a single task with the provided context.
func (w *worker) executeTask(j job) {
	start := time.Now()
	var err error

	atomic.AddInt32(&w.pool.activeWorkers, 1)
	if w.pool.config.OnTaskStart != nil {
		w.pool.config.OnTaskStart(w.id, j.task)
	}

	defer func() {
		if r := recover(); r != nil {
			if w.pool.config.PanicHandler != nil {
				w.pool.config.PanicHandler(j.task, r)
			} else {
				err = fmt.Errorf("task panicked: %v\nStack trace:\n%s", r, debug.Stack())
			}
		}

		result := Result{
			Task:     j.task,
			Error:    err,
			Duration: time.Since(start),
			WorkerID: w.id,
		}

		atomic.AddInt32(&w.pool.activeWorkers, -1)
		atomic.AddInt64(&w.pool.totalCompleted, 1)

		if w.pool.config.OnTaskComplete != nil {
			w.pool.config.OnTaskComplete(w.id, result)
		}
	}()

	ctx := j.ctx
	if w.pool.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.pool.config.TaskTimeout)
		defer cancel()
	}

	err = j.task.Execute(ctx)
}
