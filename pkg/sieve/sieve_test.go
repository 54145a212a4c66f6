package sieve

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/lo"
	"github.com/vnykmshr/boundchan/internal/testutil"
	"github.com/vnykmshr/boundchan/pkg/audit"
	bcerrors "github.com/vnykmshr/boundchan/pkg/common/errors"
	"github.com/vnykmshr/boundchan/pkg/metrics"
	"github.com/vnykmshr/boundchan/pkg/scheduling/workerpool"
	"github.com/vnykmshr/boundchan/pkg/streaming/channel"
)

func drain(ch *channel.Channel[Candidate]) []Candidate {
	out := make([]Candidate, 0, ch.Len())
	for ch.Len() > 0 {
		out = append(out, ch.Get())
	}
	return out
}

func newChannel(t *testing.T, capacity int) *channel.Channel[Candidate] {
	t.Helper()
	ch, err := channel.New[Candidate](capacity)
	testutil.AssertNoError(t, err)
	return ch
}

func newPool(t *testing.T, workers int) workerpool.Pool {
	t.Helper()
	pool, err := workerpool.New(workers, workers)
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { <-pool.Shutdown() })
	return pool
}

// expectedSurvivors restates the checker rule: an odd candidate is dropped
// when some seed prime p with p*p <= c divides it.
func expectedSurvivors(limit Candidate, primes []Candidate) int {
	odds := lo.Filter(lo.RangeFrom(Candidate(3), int(limit-3)), func(c Candidate, _ int) bool { return c%2 == 1 })
	return lo.CountBy(odds, func(c Candidate) bool {
		return !lo.SomeBy(primes, func(p Candidate) bool { return p*p <= c && c%p == 0 })
	})
}

func TestGenerate(t *testing.T) {
	ch := newChannel(t, 16)
	Generate(12, 2, ch)

	want := []Candidate{3, 5, 7, 9, 11, Terminator, Terminator}
	if diff := cmp.Diff(want, drain(ch)); diff != "" {
		t.Errorf("Generate mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateEmptyRange(t *testing.T) {
	ch := newChannel(t, 4)
	Generate(3, 1, ch)
	if diff := cmp.Diff([]Candidate{Terminator}, drain(ch)); diff != "" {
		t.Errorf("Generate mismatch (-want +got):\n%s", diff)
	}
}

func TestCheck(t *testing.T) {
	in := newChannel(t, 32)
	out := newChannel(t, 32)

	for _, c := range []Candidate{3, 9, 11, 15, 25, 49, 121, 143, Terminator, 27} {
		in.Send(c)
	}

	Check([]Candidate{3, 5, 7}, in, out)

	// 121 = 11*11 and 143 = 11*13 are undetermined by 3, 5, 7 and pass on.
	want := []Candidate{3, 11, 121, 143, Terminator}
	if diff := cmp.Diff(want, drain(out)); diff != "" {
		t.Errorf("Check mismatch (-want +got):\n%s", diff)
	}

	// Check stops at the first terminator and leaves the rest queued.
	testutil.AssertEqual(t, in.Len(), 1)
	testutil.AssertEqual(t, in.Get(), Candidate(27))
}

func TestCount(t *testing.T) {
	ch := newChannel(t, 16)
	for _, c := range []Candidate{3, Terminator, 5, 7, Terminator, 11} {
		ch.Send(c)
	}

	testutil.AssertEqual(t, Count(ch, 2), 3)
	testutil.AssertEqual(t, ch.Len(), 1)
}

func TestRunCountsPrimes(t *testing.T) {
	// Below 11*11 the seeds 3, 5 and 7 settle every candidate, so the
	// survivors are exactly the odd primes.
	tests := []struct {
		limit Candidate
		want  int
	}{
		{10, 3},   // 3 5 7
		{100, 24}, // 25 primes below 100, minus 2
		{121, 29},
	}

	for _, tt := range tests {
		topo, err := NewTopology(2, 4)
		testutil.AssertNoError(t, err)

		plan := DefaultPlan()
		plan.Limit = tt.limit

		res, err := Run(context.Background(), newPool(t, plan.Tasks()), topo, plan)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, res.Survivors, tt.want)
		testutil.AssertTrue(t, topo.IsConsistent(), "topology consistent after run")
		testutil.AssertEqual(t, topo.Stage(0).Len(), 0)
		testutil.AssertEqual(t, topo.Stage(1).Len(), 0)
	}
}

func TestRunMatchesReference(t *testing.T) {
	for _, checkers := range []int{1, 3, 8} {
		for _, capacity := range []int{1, 2, 64} {
			topo, err := NewTopology(2, capacity)
			testutil.AssertNoError(t, err)

			plan := Plan{Limit: 5000, Primes: []Candidate{3, 5, 7, 11, 13}, Checkers: checkers}
			res, err := Run(context.Background(), newPool(t, plan.Tasks()), topo, plan)
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, res.Survivors, expectedSurvivors(plan.Limit, plan.Primes))
		}
	}
}

func TestRunMetrics(t *testing.T) {
	promReg := prometheus.NewRegistry()
	reg := metrics.NewRegistry(promReg)

	topo, err := NewTopologyWithMetrics(2, 8, "sieve", metrics.Config{Enabled: true, Registry: promReg})
	testutil.AssertNoError(t, err)

	plan := DefaultPlan()
	plan.Limit = 100
	plan.Metrics = reg

	res, err := Run(context.Background(), newPool(t, plan.Tasks()), topo, plan)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, promtest.ToFloat64(reg.SieveCandidates.WithLabelValues("generated")), 49.0)
	testutil.AssertEqual(t, promtest.ToFloat64(reg.SieveCandidates.WithLabelValues("forwarded")), float64(res.Survivors))
	testutil.AssertEqual(t, promtest.ToFloat64(reg.SieveCandidates.WithLabelValues("counted")), 24.0)

	// Stage channels share the registry: every value plus one terminator per checker.
	testutil.AssertEqual(t, promtest.ToFloat64(reg.ChannelSends.WithLabelValues("sieve-0")), 49.0+float64(plan.Checkers))
	testutil.AssertEqual(t, promtest.ToFloat64(reg.ChannelGets.WithLabelValues("sieve-1")), 24.0+float64(plan.Checkers))
}

// hookedPool calls after with the 1-based index of each submission, and
// refuses submissions from rejectFrom on when it is set.
type hookedPool struct {
	workerpool.Pool
	submitted  int
	after      func(n int)
	rejectFrom int
}

func (p *hookedPool) SubmitWithContext(ctx context.Context, task workerpool.Task) error {
	if p.rejectFrom > 0 && p.submitted+1 >= p.rejectFrom {
		return fmt.Errorf("cannot submit task: %w", bcerrors.ErrPoolShutdown)
	}
	err := p.Pool.SubmitWithContext(ctx, task)
	p.submitted++
	if p.after != nil {
		p.after(p.submitted)
	}
	return err
}

func TestRunIgnoresCancelAfterSubmissionStarts(t *testing.T) {
	plan := DefaultPlan()
	plan.Limit = 100
	topo, err := NewTopology(2, 1)
	testutil.AssertNoError(t, err)

	pool, err := workerpool.New(plan.Tasks(), plan.Tasks())
	testutil.AssertNoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hooked := &hookedPool{Pool: pool, after: func(n int) {
		if n == 1 {
			cancel()
		}
	}}

	res, err := Run(ctx, hooked, topo, plan)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, res.Survivors, 24)
	testutil.AssertEqual(t, hooked.submitted, plan.Tasks())

	// No stage is left holding a worker.
	testutil.Unblocks(t, pool.Shutdown())
	testutil.AssertTrue(t, topo.IsConsistent(), "topology consistent after run")
}

func TestRunFinishesStagesWhenPoolRejects(t *testing.T) {
	plan := DefaultPlan()
	plan.Limit = 100
	topo, err := NewTopology(2, 1)
	testutil.AssertNoError(t, err)

	pool, err := workerpool.New(plan.Tasks(), plan.Tasks())
	testutil.AssertNoError(t, err)
	hooked := &hookedPool{Pool: pool, rejectFrom: 2}

	res, err := Run(context.Background(), hooked, topo, plan)
	testutil.AssertTrue(t, errors.Is(err, bcerrors.ErrPoolShutdown), "expected the rejection to be reported")
	testutil.AssertEqual(t, res.Survivors, 24)
	testutil.AssertEqual(t, hooked.submitted, 1)

	// The generator already on the pool ran to completion.
	testutil.Unblocks(t, pool.Shutdown())
	testutil.AssertEqual(t, topo.Stage(0).Len(), 0)
	testutil.AssertEqual(t, topo.Stage(1).Len(), 0)
}

func TestRunValidation(t *testing.T) {
	topo, err := NewTopology(2, 4)
	testutil.AssertNoError(t, err)
	single, err := NewTopology(1, 4)
	testutil.AssertNoError(t, err)
	pool := newPool(t, 4)

	plan := DefaultPlan()
	withPlan := func(edit func(*Plan)) Plan {
		p := plan
		p.Primes = append([]Candidate(nil), plan.Primes...)
		edit(&p)
		return p
	}

	tests := []struct {
		name string
		run  func() error
	}{
		{"limit", func() error {
			_, err := Run(context.Background(), pool, topo, withPlan(func(p *Plan) { p.Limit = 2 }))
			return err
		}},
		{"no checkers", func() error {
			_, err := Run(context.Background(), pool, topo, withPlan(func(p *Plan) { p.Checkers = 0 }))
			return err
		}},
		{"no primes", func() error {
			_, err := Run(context.Background(), pool, topo, withPlan(func(p *Plan) { p.Primes = nil }))
			return err
		}},
		{"prime below two", func() error {
			_, err := Run(context.Background(), pool, topo, withPlan(func(p *Plan) { p.Primes = []Candidate{1, 3} }))
			return err
		}},
		{"unsorted primes", func() error {
			_, err := Run(context.Background(), pool, topo, withPlan(func(p *Plan) { p.Primes = []Candidate{5, 3} }))
			return err
		}},
		{"pool too small", func() error {
			_, err := Run(context.Background(), pool, topo, withPlan(func(p *Plan) { p.Checkers = 3 }))
			return err
		}},
		{"one stage", func() error {
			_, err := Run(context.Background(), pool, single, plan)
			return err
		}},
		{"nil topology", func() error {
			_, err := Run(context.Background(), pool, nil, plan)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			testutil.AssertError(t, err)
			testutil.AssertTrue(t, errors.Is(err, bcerrors.ErrInvalidConfiguration), "got "+err.Error())
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, pool, topo, plan)
	testutil.AssertTrue(t, errors.Is(err, context.Canceled), "canceled context is reported before submission")
	testutil.AssertEqual(t, pool.TotalSubmitted(), int64(0))
}

func TestTopology(t *testing.T) {
	_, err := NewTopology(0, 4)
	testutil.AssertError(t, err)
	_, err = NewTopology(MaxStages+1, 4)
	testutil.AssertError(t, err)

	_, err = NewTopology(2, 0)
	testutil.AssertTrue(t, errors.Is(err, bcerrors.ErrInvalidCapacity), "stage capacity is validated by the channel")

	topo, err := NewTopology(3, 2)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, topo.Len(), 3)
	testutil.AssertEqual(t, topo.Stage(2).Cap(), 2)

	a := audit.New()
	testutil.AssertNoError(t, topo.Register(a, "stage"))
	if diff := cmp.Diff([]string{"stage-0", "stage-1", "stage-2"}, a.Targets()); diff != "" {
		t.Errorf("Targets mismatch (-want +got):\n%s", diff)
	}
	testutil.AssertTrue(t, a.CheckAll().OK(), "fresh topology passes audit")
}
