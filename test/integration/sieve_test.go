package integration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/lo"

	"github.com/vnykmshr/boundchan/internal/logging"
	"github.com/vnykmshr/boundchan/internal/testutil"
	"github.com/vnykmshr/boundchan/pkg/audit"
	"github.com/vnykmshr/boundchan/pkg/metrics"
	"github.com/vnykmshr/boundchan/pkg/scheduling/scheduler"
	"github.com/vnykmshr/boundchan/pkg/scheduling/workerpool"
	"github.com/vnykmshr/boundchan/pkg/sieve"
	"github.com/vnykmshr/boundchan/pkg/streaming/channel"
)

// TestChannelBetweenPoolTasks moves values from producer tasks to a consumer
// task through one small channel and checks nothing is lost or reordered per
// producer.
func TestChannelBetweenPoolTasks(t *testing.T) {
	const (
		producers   = 3
		perProducer = 200
	)

	ch, err := channel.New[[2]int](2)
	testutil.AssertNoError(t, err)

	pool, err := workerpool.New(producers+1, producers+1)
	testutil.AssertNoError(t, err)
	defer func() { <-pool.Shutdown() }()

	var received [][2]int
	consumed := make(chan struct{})
	testutil.AssertNoError(t, pool.Submit(workerpool.TaskFunc(func(context.Context) error {
		defer close(consumed)
		for i := 0; i < producers*perProducer; i++ {
			received = append(received, ch.Get())
		}
		return nil
	})))

	for p := 0; p < producers; p++ {
		p := p
		testutil.AssertNoError(t, pool.Submit(workerpool.TaskFunc(func(context.Context) error {
			for i := 0; i < perProducer; i++ {
				ch.Send([2]int{p, i})
			}
			return nil
		})))
	}

	select {
	case <-consumed:
	case <-time.After(testutil.TestTimeout):
		t.Fatal("consumer did not finish")
	}

	byProducer := lo.GroupBy(received, func(v [2]int) int { return v[0] })
	testutil.AssertEqual(t, len(byProducer), producers)
	for p, values := range byProducer {
		seq := lo.Map(values, func(v [2]int, _ int) int { return v[1] })
		if !lo.IsSorted(seq) || len(seq) != perProducer {
			t.Errorf("producer %d delivered %d values out of order or incomplete", p, len(seq))
		}
	}
	testutil.AssertEqual(t, ch.Len(), 0)
	testutil.AssertTrue(t, ch.IsConsistent(), "channel inconsistent after transfer")
}

// TestSieveWithScheduledAudit runs the sieve on a shared pool while a cron
// schedule audits the stage channels, then checks results and metrics.
func TestSieveWithScheduledAudit(t *testing.T) {
	promReg := prometheus.NewRegistry()
	metricsConfig := metrics.Config{Enabled: true, Registry: promReg}
	registry := metrics.NewRegistry(promReg)
	logger := logging.Discard()

	plan := sieve.DefaultPlan()
	plan.Limit = 20000
	plan.Checkers = 3
	plan.Metrics = registry
	plan.Logger = logger

	var auditRuns atomic.Int32
	pool, err := workerpool.NewWithConfig(workerpool.Config{
		WorkerCount: plan.Tasks() + 1,
		QueueSize:   plan.Tasks() + 1,
		OnTaskComplete: func(_ int, result workerpool.Result) {
			if result.Error != nil {
				t.Errorf("task failed: %v", result.Error)
			}
		},
	})
	testutil.AssertNoError(t, err)
	defer func() { <-pool.Shutdown() }()

	topo, err := sieve.NewTopologyWithMetrics(2, 1, "it", metricsConfig)
	testutil.AssertNoError(t, err)

	auditor := audit.NewWithConfig(audit.Config{Logger: logger, Metrics: registry})
	testutil.AssertNoError(t, topo.Register(auditor, "it"))

	sched, err := scheduler.NewWithConfig(scheduler.Config{
		WorkerPool:   pool,
		TickInterval: 5 * time.Millisecond,
		Logger:       logger,
	})
	testutil.AssertNoError(t, err)
	auditTask := auditor.Task()
	testutil.AssertNoError(t, sched.ScheduleRepeating("audit", workerpool.TaskFunc(func(ctx context.Context) error {
		err := auditTask.Execute(ctx)
		auditRuns.Add(1)
		return err
	}), 10*time.Millisecond))
	testutil.AssertNoError(t, sched.Start())

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	result, err := sieve.Run(ctx, pool, topo, plan)
	testutil.AssertNoError(t, err)

	// Let at least one scheduled audit land before stopping.
	testutil.Eventually(t, func() bool { return auditRuns.Load() > 0 }, testutil.TestTimeout, 5*time.Millisecond)
	<-sched.Stop()

	report := auditor.CheckAll()
	testutil.AssertTrue(t, report.OK(), report.String())
	testutil.AssertEqual(t, len(report.Checked), 2)

	want := lo.CountBy(lo.RangeWithSteps[int64](3, 20000, 2), func(c int64) bool {
		return !lo.SomeBy([]int64{3, 5, 7}, func(p int64) bool { return p*p <= c && c%p == 0 })
	})
	testutil.AssertEqual(t, result.Survivors, want)

	generated := promtest.ToFloat64(registry.SieveCandidates.WithLabelValues("generated"))
	testutil.AssertEqual(t, generated, float64((20000-3)/2+1))
	testutil.AssertEqual(t, promtest.ToFloat64(registry.AuditFailures.WithLabelValues("it-0")), 0.0)
	testutil.AssertTrue(t, promtest.ToFloat64(registry.AuditChecks.WithLabelValues("it-0")) >= 2, "expected repeated audits")
}

// TestAuditCatchesCorruptTarget registers a failing checker alongside
// healthy channels and checks the scheduled task reports it.
func TestAuditCatchesCorruptTarget(t *testing.T) {
	ch, err := channel.New[int](4)
	testutil.AssertNoError(t, err)

	var mu sync.Mutex
	var failed []string
	auditor := audit.NewWithConfig(audit.Config{
		Logger: logging.Discard(),
		OnFailure: func(name string) {
			mu.Lock()
			failed = append(failed, name)
			mu.Unlock()
		},
	})
	testutil.AssertNoError(t, auditor.Register("healthy", ch))
	testutil.AssertNoError(t, auditor.Register("corrupt", audit.CheckerFunc(func() bool { return false })))

	pool, err := workerpool.New(1, 1)
	testutil.AssertNoError(t, err)
	defer func() { <-pool.Shutdown() }()

	done := make(chan error, 1)
	testutil.AssertNoError(t, pool.Submit(workerpool.TaskFunc(func(ctx context.Context) error {
		err := auditor.Task().Execute(ctx)
		done <- err
		return err
	})))

	select {
	case err := <-done:
		testutil.AssertError(t, err)
	case <-time.After(testutil.TestTimeout):
		t.Fatal("audit task did not run")
	}

	mu.Lock()
	defer mu.Unlock()
	testutil.AssertEqual(t, len(failed), 1)
	testutil.AssertEqual(t, failed[0], "corrupt")
}
