package audit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vnykmshr/boundchan/internal/logging"
	bcerrors "github.com/vnykmshr/boundchan/pkg/common/errors"
	"github.com/vnykmshr/boundchan/pkg/common/validation"
	"github.com/vnykmshr/boundchan/pkg/metrics"
	"github.com/vnykmshr/boundchan/pkg/scheduling/workerpool"
)

// Checker is anything that can verify its own invariants.
// *channel.Channel and *channel.MetricsChannel satisfy it.
type Checker interface {
	IsConsistent() bool
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func() bool

// IsConsistent implements Checker.
func (f CheckerFunc) IsConsistent() bool { return f() }

// Report is the outcome of one CheckAll pass.
type Report struct {
	At      time.Time
	Checked []string
	Failed  []string
}

// OK reports whether every checked target was consistent.
func (r Report) OK() bool {
	return len(r.Failed) == 0
}

func (r Report) String() string {
	if r.OK() {
		return fmt.Sprintf("%d checked, all consistent", len(r.Checked))
	}
	return fmt.Sprintf("%d checked, %d inconsistent: %s", len(r.Checked), len(r.Failed), strings.Join(r.Failed, ", "))
}

// Config configures an Auditor.
type Config struct {
	// Logger receives one entry per failed target. Defaults to a discarding logger.
	Logger logrus.FieldLogger

	// Metrics, when non-nil, receives audit_checks_total and
	// audit_failures_total per target.
	Metrics *metrics.Registry

	// OnFailure is called for each failed target after logging.
	OnFailure func(name string)
}

// Auditor runs consistency checks over a set of named targets.
type Auditor struct {
	config Config
	log    logrus.FieldLogger

	mu       sync.RWMutex
	checkers map[string]Checker
	last     Report
}

// New creates an Auditor that logs nowhere and records no metrics.
func New() *Auditor {
	return NewWithConfig(Config{})
}

// NewWithConfig creates an Auditor with the given configuration.
func NewWithConfig(config Config) *Auditor {
	log := config.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Auditor{
		config:   config,
		log:      log.WithField("component", "audit"),
		checkers: make(map[string]Checker),
	}
}

// Register adds a named target. Names must be unique.
func (a *Auditor) Register(name string, checker Checker) error {
	if err := validation.ValidateNotEmpty("audit", "name", name); err != nil {
		return err
	}
	if err := validation.ValidateNotNil("audit", "checker", checker); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.checkers[name]; exists {
		return bcerrors.NewValidationError("audit", "name", name, "already registered").
			WithHint("unregister the existing target first")
	}
	a.checkers[name] = checker
	return nil
}

// Unregister removes a target and reports whether it was present.
func (a *Auditor) Unregister(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, exists := a.checkers[name]
	delete(a.checkers, name)
	return exists
}

// Targets returns the registered names in sorted order.
func (a *Auditor) Targets() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.checkers))
	for name := range a.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckAll checks every registered target in name order.
// A checker that panics counts as inconsistent.
func (a *Auditor) CheckAll() Report {
	a.mu.RLock()
	names := make([]string, 0, len(a.checkers))
	targets := make(map[string]Checker, len(a.checkers))
	for name, c := range a.checkers {
		names = append(names, name)
		targets[name] = c
	}
	a.mu.RUnlock()
	sort.Strings(names)

	report := Report{At: time.Now(), Checked: names}
	for _, name := range names {
		ok := check(targets[name])
		if a.config.Metrics != nil {
			a.config.Metrics.AuditChecks.WithLabelValues(name).Inc()
		}
		if ok {
			continue
		}

		report.Failed = append(report.Failed, name)
		if a.config.Metrics != nil {
			a.config.Metrics.AuditFailures.WithLabelValues(name).Inc()
		}
		a.log.WithField("target", name).Error("consistency check failed")
		if a.config.OnFailure != nil {
			a.config.OnFailure(name)
		}
	}

	a.mu.Lock()
	a.last = report
	a.mu.Unlock()

	a.log.WithFields(logrus.Fields{
		"checked": len(report.Checked),
		"failed":  len(report.Failed),
	}).Debug("audit pass complete")
	return report
}

// Last returns the report of the most recent CheckAll.
func (a *Auditor) Last() Report {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// Task returns a workerpool task that runs CheckAll. The task fails with an
// error wrapping errors.ErrInconsistentState when any target fails.
func (a *Auditor) Task() workerpool.Task {
	return workerpool.TaskFunc(func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		report := a.CheckAll()
		if !report.OK() {
			return fmt.Errorf("audit: %s: %w", report, bcerrors.ErrInconsistentState)
		}
		return nil
	})
}

func check(c Checker) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return c.IsConsistent()
}
