// Package metrics provides Prometheus instrumentation for boundchan components.
//
// # Overview
//
// A Registry holds one collector per metric family:
//   - Channels (sends, gets, blocked sends and gets, depth, capacity, wait time)
//   - Worker pools (size, active workers, queued, executed, failed, durations)
//   - Consistency audits (checks and failures per target)
//   - Sieve stages (candidates per stage)
//
// All families live under the "boundchan" namespace unless Config.Namespace
// overrides it.
//
// # Quick Start
//
// Use the metrics-enabled constructors:
//
//	ch, err := channel.NewWithMetrics[int](64, "jobs")
//	pool, err := workerpool.NewWithMetrics(4, "workers")
//
// Each call above uses a private Prometheus registry. To expose several
// components on one endpoint, pass the same registerer to all of them:
//
//	reg := prometheus.NewRegistry()
//	cfg := metrics.Config{Enabled: true, Registry: reg}
//	a, _ := channel.NewWithConfigAndMetrics[int](channel.Config{Capacity: 8}, "a", cfg)
//	b, _ := channel.NewWithConfigAndMetrics[int](channel.Config{Capacity: 8}, "b", cfg)
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// Registries built against the same registerer share collectors, so a and
// b above report into one boundchan_channel_sends_total family with
// different channel labels.
//
// # Toggling
//
// Instrumented components implement Instrumentable and can switch
// collection off and on at runtime with DisableMetrics and EnableMetrics.
package metrics
