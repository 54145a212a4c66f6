/*
Package channel provides a bounded, blocking FIFO channel for handing
ownership of values between goroutines.

Unlike Go's built-in channels, a Channel exposes its fill level, keeps
activity statistics, and can verify its own internal invariants on demand.
It is a deliberately small primitive: no close, no select, no timeouts.

Key Components:
  - Channel: generic fixed-capacity queue backed by a circular buffer
  - Queue, Sender, Receiver: interfaces accepted by pipeline stages
  - MetricsChannel: Channel wrapper reporting Prometheus metrics
  - Stats: activity snapshot (sends, gets, suspensions, utilization)

Creating Channels:

	ch, err := channel.New[int](100)
	if err != nil {
		// errors.Is(err, errors.ErrInvalidCapacity)
	}

	// Capacity 1, the smallest hand-off buffer
	ch := channel.NewDefault[string]()

Capacity must be between 1 and MaxCapacity (1,000,000). The ceiling is a
sanity check rather than a structural limit.

Sending and Receiving:

Send blocks while the channel is full and Get blocks while it is empty.
Neither can fail and neither can be cancelled: a Send on a channel nobody
reads from blocks forever. Build timeouts on top of this primitive if you
need them.

	go func() {
		for _, job := range jobs {
			ch.Send(job)
		}
	}()

	for range jobs {
		process(ch.Get())
	}

Values are moved, not shared. After Get returns, the channel holds no
reference to the value, so pointer payloads can be released by the
receiver.

Ordering:

The channel is a single FIFO over completed Send calls. With several
producers, each producer's own values arrive in the order it sent them;
values from different producers interleave in completion order.

Wakeups:

Each Send wakes at most one blocked Get and each Get wakes at most one
blocked Send. Waiters re-check their condition in a loop, so spurious or
stolen wakeups are harmless. There is no fairness among waiters.

Internal Consistency:

The circular buffer keeps a front index (oldest value) and a back index
(next write position). front is -1 while the channel is empty, which is
what distinguishes empty from full when the two indices coincide.

IsConsistent checks the index ranges and capacity. Send and Get run the
same check on entry and panic with an error wrapping
errors.ErrInconsistentState if it fails; that is only reachable if the
channel's memory has been corrupted.

Sharing:

A Channel carries its own mutex and condition variables, so it must not
be copied. Create it once and pass the pointer (or a Queue) to every
goroutine that uses it. go vet reports accidental copies.

Metrics:

	ch, err := channel.NewWithConfigAndMetrics[int](
		channel.Config{Capacity: 64},
		"jobs",
		metrics.Config{Enabled: true, Registry: prometheus.NewRegistry()},
	)

Exported series: boundchan_channel_sends_total, gets_total,
blocked_sends_total, blocked_gets_total, depth, capacity and
wait_duration_seconds, all labelled by channel name.
*/
package channel
