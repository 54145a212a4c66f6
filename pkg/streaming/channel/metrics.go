package channel

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vnykmshr/boundchan/pkg/metrics"
)

// MetricsChannel wraps a Channel with Prometheus metrics collection.
type MetricsChannel[T any] struct {
	ch       *Channel[T]
	name     string
	registry *metrics.Registry
	enabled  atomic.Bool
}

var _ Queue[int] = (*MetricsChannel[int])(nil)

// NewWithMetrics creates an instrumented channel using a private Prometheus registry.
func NewWithMetrics[T any](capacity int, name string) (*MetricsChannel[T], error) {
	config := DefaultConfig()
	config.Capacity = capacity
	return NewWithConfigAndMetrics[T](config, name, metrics.Config{
		Enabled:  true,
		Registry: prometheus.NewRegistry(),
	})
}

// NewWithConfigAndMetrics creates an instrumented channel with custom config and metrics.
// Hooks already present in config are still called.
func NewWithConfigAndMetrics[T any](config Config, name string, metricsConfig metrics.Config) (*MetricsChannel[T], error) {
	mc := &MetricsChannel[T]{name: name}
	mc.setRegistry(metricsConfig)
	mc.enabled.Store(metricsConfig.Enabled)

	onSendBlock, onGetBlock := config.OnSendBlock, config.OnGetBlock
	config.OnSendBlock = func() {
		if mc.enabled.Load() {
			mc.registry.ChannelBlockedSends.WithLabelValues(mc.name).Inc()
		}
		if onSendBlock != nil {
			onSendBlock()
		}
	}
	config.OnGetBlock = func() {
		if mc.enabled.Load() {
			mc.registry.ChannelBlockedGets.WithLabelValues(mc.name).Inc()
		}
		if onGetBlock != nil {
			onGetBlock()
		}
	}

	ch, err := NewWithConfig[T](config)
	if err != nil {
		return nil, err
	}
	mc.ch = ch

	if mc.enabled.Load() {
		mc.registry.ChannelCapacity.WithLabelValues(name).Set(float64(ch.Cap()))
		mc.updateDepth()
	}
	return mc, nil
}

func (mc *MetricsChannel[T]) setRegistry(config metrics.Config) {
	if config.Registry != nil {
		mc.registry = metrics.NewRegistryFromConfig(config)
	} else {
		mc.registry = metrics.Default()
	}
}

// Send moves value into the channel and records the send.
func (mc *MetricsChannel[T]) Send(value T) {
	start := time.Now()
	mc.ch.Send(value)

	if mc.enabled.Load() {
		mc.registry.ChannelWaitTime.WithLabelValues(mc.name, "send").Observe(time.Since(start).Seconds())
		mc.registry.ChannelSends.WithLabelValues(mc.name).Inc()
		mc.updateDepth()
	}
}

// Get removes the oldest value and records the get.
func (mc *MetricsChannel[T]) Get() T {
	start := time.Now()
	value := mc.ch.Get()

	if mc.enabled.Load() {
		mc.registry.ChannelWaitTime.WithLabelValues(mc.name, "get").Observe(time.Since(start).Seconds())
		mc.registry.ChannelGets.WithLabelValues(mc.name).Inc()
		mc.updateDepth()
	}
	return value
}

// IsConsistent reports whether the wrapped channel's invariants hold.
func (mc *MetricsChannel[T]) IsConsistent() bool {
	return mc.ch.IsConsistent()
}

// Len returns the number of queued values.
func (mc *MetricsChannel[T]) Len() int {
	return mc.ch.Len()
}

// Cap returns the channel capacity.
func (mc *MetricsChannel[T]) Cap() int {
	return mc.ch.Cap()
}

// Stats returns the wrapped channel's statistics.
func (mc *MetricsChannel[T]) Stats() Stats {
	return mc.ch.Stats()
}

// Unwrap returns the underlying channel.
func (mc *MetricsChannel[T]) Unwrap() *Channel[T] {
	return mc.ch
}

// Registry returns the metrics registry the channel reports to.
func (mc *MetricsChannel[T]) Registry() *metrics.Registry {
	return mc.registry
}

// EnableMetrics enables metrics collection.
// Changing the registry is not supported once created; config.Registry is ignored.
func (mc *MetricsChannel[T]) EnableMetrics(config metrics.Config) error {
	mc.enabled.Store(config.Enabled)
	if config.Enabled {
		mc.registry.ChannelCapacity.WithLabelValues(mc.name).Set(float64(mc.ch.Cap()))
		mc.updateDepth()
	}
	return nil
}

// DisableMetrics disables metrics collection.
func (mc *MetricsChannel[T]) DisableMetrics() {
	mc.enabled.Store(false)
}

// MetricsEnabled returns true if metrics are currently enabled.
func (mc *MetricsChannel[T]) MetricsEnabled() bool {
	return mc.enabled.Load()
}

func (mc *MetricsChannel[T]) updateDepth() {
	mc.registry.ChannelDepth.WithLabelValues(mc.name).Set(float64(mc.ch.Len()))
}

var _ metrics.Instrumentable = (*MetricsChannel[int])(nil)
