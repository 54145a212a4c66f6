package sieve

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/vnykmshr/boundchan/internal/logging"
	bcerrors "github.com/vnykmshr/boundchan/pkg/common/errors"
	"github.com/vnykmshr/boundchan/pkg/common/validation"
	"github.com/vnykmshr/boundchan/pkg/metrics"
	"github.com/vnykmshr/boundchan/pkg/scheduling/workerpool"
	"github.com/vnykmshr/boundchan/pkg/streaming/channel"
)

// Plan describes one sieve layer.
type Plan struct {
	// Limit is the exclusive upper bound of generated candidates.
	Limit Candidate

	// Primes seeds every checker. Must be ascending and at least 2.
	Primes []Candidate

	// Checkers is the number of checker tasks sharing the two stage channels.
	Checkers int

	// Logger defaults to a discarding logger.
	Logger logrus.FieldLogger

	// Metrics, when non-nil, counts candidates per stage.
	Metrics *metrics.Registry
}

// DefaultPlan returns the plan the demo runs without flags.
func DefaultPlan() Plan {
	return Plan{
		Limit:    1000,
		Primes:   []Candidate{3, 5, 7},
		Checkers: 2,
	}
}

// Validate checks the plan's fields.
func (p Plan) Validate() error {
	if p.Limit < 3 {
		return bcerrors.NewValidationError("sieve", "limit", p.Limit, "must be at least 3").
			WithHint("the first candidate is 3")
	}
	if err := validation.ValidatePositive("sieve", "checkers", p.Checkers); err != nil {
		return err
	}
	if len(p.Primes) == 0 {
		return bcerrors.NewValidationError("sieve", "primes", p.Primes, "cannot be empty").
			WithHint("seed the checkers with e.g. 3,5,7")
	}
	if p.Primes[0] < 2 {
		return bcerrors.NewValidationError("sieve", "primes", p.Primes, "must be at least 2")
	}
	if !sort.SliceIsSorted(p.Primes, func(i, j int) bool { return p.Primes[i] < p.Primes[j] }) {
		return bcerrors.NewValidationError("sieve", "primes", p.Primes, "must be ascending")
	}
	return nil
}

// Tasks returns the number of concurrently running pool tasks the plan
// needs: the generator, the checkers and the counter.
func (p Plan) Tasks() int {
	return p.Checkers + 2
}

// Result summarizes a completed run.
type Result struct {
	// Survivors is the number of candidates that passed every checker.
	Survivors int
	Elapsed   time.Duration
}

// Run wires generator -> checkers -> counter over the first two stages of
// topo and executes them on pool. It returns once the counter has seen a
// terminator from every checker.
//
// Every stage blocks on the channels of its neighbours, so Plan.Tasks()
// workers of pool must be free for the whole run. Run only checks
// pool.Size() and cannot reserve workers: on a pool shared with other
// long-running tasks, or with concurrent Run calls, the stages deadlock
// waiting for a worker. Short tasks sharing the pool only delay the run.
//
// ctx is consulted once, before anything is submitted. After that every
// stage is submitted and runs to completion. If the pool rejects a stage
// part way (it was shut down), the remaining stages run on their own
// goroutines so the ones already started can finish, and Run returns the
// submission error once the layer is done.
func Run(ctx context.Context, pool workerpool.Pool, topo *Topology, plan Plan) (Result, error) {
	if err := plan.Validate(); err != nil {
		return Result{}, err
	}
	if err := validation.ValidateNotNil("sieve", "pool", pool); err != nil {
		return Result{}, err
	}
	if topo == nil {
		return Result{}, validation.ValidateNotNil("sieve", "topology", nil)
	}
	if topo.Len() < 2 {
		return Result{}, bcerrors.NewValidationError("sieve", "stages", topo.Len(), "must be at least 2")
	}
	if pool.Size() < plan.Tasks() {
		return Result{}, bcerrors.NewValidationError("sieve", "pool_size", pool.Size(),
			fmt.Sprintf("must be at least %d", plan.Tasks())).
			WithHint("one worker per checker plus the generator and the counter")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	log := plan.Logger
	if log == nil {
		log = logging.Discard()
	}
	log = log.WithField("component", "sieve")

	candidates, survivors := topo.Stage(0), topo.Stage(1)
	generated := observe(candidates, plan.Metrics, "generated")
	forwarded := observe(survivors, plan.Metrics, "forwarded")

	start := time.Now()
	counted := make(chan int, 1)

	tasks := []workerpool.Task{
		workerpool.TaskFunc(func(context.Context) error {
			Generate(plan.Limit, plan.Checkers, generated)
			return nil
		}),
	}
	for i := 0; i < plan.Checkers; i++ {
		tasks = append(tasks, workerpool.TaskFunc(func(context.Context) error {
			Check(plan.Primes, candidates, forwarded)
			return nil
		}))
	}
	tasks = append(tasks, workerpool.TaskFunc(func(context.Context) error {
		counted <- Count(survivors, plan.Checkers)
		return nil
	}))

	log.WithFields(logrus.Fields{
		"limit":    plan.Limit,
		"checkers": plan.Checkers,
		"primes":   plan.Primes,
	}).Info("starting sieve layer")

	// ctx was checked above. Submission is all or nothing from here on,
	// since a stage left without its peers would block forever.
	var submitErr error
	for i, task := range tasks {
		err := pool.SubmitWithContext(context.Background(), task)
		if err == nil {
			continue
		}
		if i == 0 {
			return Result{}, fmt.Errorf("sieve: submit stage: %w", err)
		}
		submitErr = fmt.Errorf("sieve: submit stage %d of %d: %w", i, len(tasks), err)
		log.WithError(err).Warn("running remaining stages outside the pool")
		for _, rest := range tasks[i:] {
			go func(t workerpool.Task) { _ = t.Execute(context.Background()) }(rest)
		}
		break
	}

	result := Result{Survivors: <-counted, Elapsed: time.Since(start)}
	if submitErr != nil {
		return result, submitErr
	}
	if plan.Metrics != nil {
		plan.Metrics.SieveCandidates.WithLabelValues("counted").Add(float64(result.Survivors))
	}
	log.WithFields(logrus.Fields{
		"survivors": result.Survivors,
		"elapsed":   result.Elapsed,
	}).Info("sieve layer complete")
	return result, nil
}

// countingSender counts non-terminator values on their way into a channel.
type countingSender struct {
	out     channel.Sender[Candidate]
	counter prometheus.Counter
}

func (s countingSender) Send(c Candidate) {
	if c != Terminator {
		s.counter.Inc()
	}
	s.out.Send(c)
}

func observe(out channel.Sender[Candidate], reg *metrics.Registry, stage string) channel.Sender[Candidate] {
	if reg == nil {
		return out
	}
	return countingSender{out: out, counter: reg.SieveCandidates.WithLabelValues(stage)}
}
