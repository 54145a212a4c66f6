/*
Package boundchan provides a bounded, blocking channel for goroutines and the
pieces needed to run and watch concurrent stages built on it.

Streaming (pkg/streaming):
  - channel: Fixed-capacity FIFO with blocking Send and Get and a
    self-consistency check

Task Scheduling (pkg/scheduling):
  - workerpool: Background task processing over a bounded queue
  - scheduler: Cron and interval-based scheduling

Supporting packages:
  - audit: Periodic consistency checks of registered channels
  - sieve: One layer of a parallel prime sieve wired through channels
  - metrics: Prometheus instrumentation shared by the packages above

Example usage:

	import (
		"github.com/vnykmshr/boundchan/pkg/scheduling/workerpool"
		"github.com/vnykmshr/boundchan/pkg/streaming/channel"
	)

	ch, _ := channel.New[int](8)
	pool, _ := workerpool.New(2, 2)

	pool.Submit(workerpool.TaskFunc(func(context.Context) error {
		ch.Send(42)
		return nil
	}))
	v := ch.Get() // 42
*/
package boundchan
