package metrics_test

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/vnykmshr/boundchan/pkg/metrics"
)

// Example_customRegistry records into an isolated Prometheus registry.
func Example_customRegistry() {
	reg := prometheus.NewRegistry()
	m := metrics.NewRegistry(reg)

	m.ChannelSends.WithLabelValues("jobs").Add(3)
	m.ChannelDepth.WithLabelValues("jobs").Set(2)

	fmt.Println(testutil.ToFloat64(m.ChannelSends.WithLabelValues("jobs")))
	fmt.Println(testutil.ToFloat64(m.ChannelDepth.WithLabelValues("jobs")))
	// Output:
	// 3
	// 2
}

// Example_configuration sets a namespace and constant labels.
func Example_configuration() {
	reg := prometheus.NewRegistry()
	m := metrics.NewRegistryFromConfig(metrics.Config{
		Enabled:   true,
		Registry:  reg,
		Namespace: "demo",
		Labels:    prometheus.Labels{"instance": "a"},
	})
	m.AuditChecks.WithLabelValues("jobs").Inc()

	families, _ := reg.Gather()
	for _, f := range families {
		fmt.Println(f.GetName())
	}
	// Output: demo_audit_checks_total
}
