package sieve

import (
	"fmt"

	"github.com/vnykmshr/boundchan/pkg/audit"
	"github.com/vnykmshr/boundchan/pkg/common/validation"
	"github.com/vnykmshr/boundchan/pkg/metrics"
	"github.com/vnykmshr/boundchan/pkg/streaming/channel"
)

// MaxStages bounds the number of channels a Topology may own.
const MaxStages = 20

// Topology owns the channels that connect the stages of a sieve. Stage
// functions receive the channels they use from it; nothing is global.
type Topology struct {
	stages []channel.Queue[Candidate]
}

// NewTopology creates n uninstrumented channels of the given capacity.
func NewTopology(n, capacity int) (*Topology, error) {
	if err := validation.ValidateRange("sieve", "stages", n, 1, MaxStages, nil); err != nil {
		return nil, err
	}

	t := &Topology{stages: make([]channel.Queue[Candidate], n)}
	for i := range t.stages {
		ch, err := channel.New[Candidate](capacity)
		if err != nil {
			return nil, err
		}
		t.stages[i] = ch
	}
	return t, nil
}

// NewTopologyWithMetrics creates n channels that report to Prometheus under
// the labels "<name>-0", "<name>-1" and so on.
func NewTopologyWithMetrics(n, capacity int, name string, metricsConfig metrics.Config) (*Topology, error) {
	if err := validation.ValidateRange("sieve", "stages", n, 1, MaxStages, nil); err != nil {
		return nil, err
	}

	t := &Topology{stages: make([]channel.Queue[Candidate], n)}
	for i := range t.stages {
		mc, err := channel.NewWithConfigAndMetrics[Candidate](channel.Config{Capacity: capacity}, t.label(name, i), metricsConfig)
		if err != nil {
			return nil, err
		}
		t.stages[i] = mc
	}
	return t, nil
}

func (t *Topology) label(name string, i int) string {
	return fmt.Sprintf("%s-%d", name, i)
}

// Len returns the number of stages.
func (t *Topology) Len() int {
	return len(t.stages)
}

// Stage returns the i-th channel. It panics if i is out of range.
func (t *Topology) Stage(i int) channel.Queue[Candidate] {
	return t.stages[i]
}

// IsConsistent reports whether every stage channel is consistent.
func (t *Topology) IsConsistent() bool {
	for _, s := range t.stages {
		if !s.IsConsistent() {
			return false
		}
	}
	return true
}

// Register adds each stage to the auditor as "<prefix>-<i>".
func (t *Topology) Register(a *audit.Auditor, prefix string) error {
	for i, s := range t.stages {
		if err := a.Register(t.label(prefix, i), s); err != nil {
			return err
		}
	}
	return nil
}
