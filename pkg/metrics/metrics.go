// Package metrics provides Prometheus instrumentation for boundchan components.
package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name unless Config.Namespace overrides it.
const DefaultNamespace = "boundchan"

// Registry holds all metric instances for boundchan components.
type Registry struct {
	// Channel Metrics
	ChannelSends        *prometheus.CounterVec
	ChannelGets         *prometheus.CounterVec
	ChannelBlockedSends *prometheus.CounterVec
	ChannelBlockedGets  *prometheus.CounterVec
	ChannelDepth        *prometheus.GaugeVec
	ChannelCapacity     *prometheus.GaugeVec
	ChannelWaitTime     *prometheus.HistogramVec

	// Worker Pool Metrics
	TasksExecuted         *prometheus.CounterVec
	TasksCompleted        *prometheus.CounterVec
	TasksFailed           *prometheus.CounterVec
	TaskExecutionDuration *prometheus.HistogramVec
	WorkerPoolSize        *prometheus.GaugeVec
	WorkerPoolActive      *prometheus.GaugeVec
	WorkerPoolQueued      *prometheus.GaugeVec

	// Audit Metrics
	AuditChecks   *prometheus.CounterVec
	AuditFailures *prometheus.CounterVec

	// Sieve Metrics
	SieveCandidates *prometheus.CounterVec
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry bound to prometheus.DefaultRegisterer,
// creating it on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
// Registries created against the same registerer share their collectors.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryFromConfig(Config{Registry: reg})
}

// NewRegistryFromConfig creates a registry honoring the namespace and
// constant labels in cfg.
func NewRegistryFromConfig(cfg Config) *Registry {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	counter := func(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
		return register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.Labels,
		}, labels))
	}
	gauge := func(subsystem, name, help string, labels ...string) *prometheus.GaugeVec {
		return register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.Labels,
		}, labels))
	}
	histogram := func(subsystem, name, help string, labels ...string) *prometheus.HistogramVec {
		return register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			Buckets:     prometheus.DefBuckets,
			ConstLabels: cfg.Labels,
		}, labels))
	}

	return &Registry{
		ChannelSends:        counter("channel", "sends_total", "Total number of completed sends", "channel"),
		ChannelGets:         counter("channel", "gets_total", "Total number of completed gets", "channel"),
		ChannelBlockedSends: counter("channel", "blocked_sends_total", "Number of times a sender suspended on a full channel", "channel"),
		ChannelBlockedGets:  counter("channel", "blocked_gets_total", "Number of times a receiver suspended on an empty channel", "channel"),
		ChannelDepth:        gauge("channel", "depth", "Number of values currently queued", "channel"),
		ChannelCapacity:     gauge("channel", "capacity", "Fixed capacity of the channel", "channel"),
		ChannelWaitTime:     histogram("channel", "wait_duration_seconds", "Time spent inside Send or Get, including suspension", "channel", "operation"),

		TasksExecuted:         counter("workerpool", "tasks_executed_total", "Total number of tasks executed", "pool_name"),
		TasksCompleted:        counter("workerpool", "tasks_completed_total", "Total number of tasks completed successfully", "pool_name"),
		TasksFailed:           counter("workerpool", "tasks_failed_total", "Total number of tasks that failed", "pool_name"),
		TaskExecutionDuration: histogram("workerpool", "task_duration_seconds", "Time spent executing tasks", "pool_name"),
		WorkerPoolSize:        gauge("workerpool", "size", "Current worker pool size", "pool_name"),
		WorkerPoolActive:      gauge("workerpool", "active_workers", "Number of active workers", "pool_name"),
		WorkerPoolQueued:      gauge("workerpool", "queued_tasks", "Number of queued tasks", "pool_name"),

		AuditChecks:   counter("audit", "checks_total", "Total number of consistency checks run", "target"),
		AuditFailures: counter("audit", "failures_total", "Total number of failed consistency checks", "target"),

		SieveCandidates: counter("sieve", "candidates_total", "Candidates observed per pipeline stage", "stage"),
	}
}

// register adds c to reg, or returns the collector already registered
// under the same descriptor. Any other registration error panics, as
// promauto does.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
