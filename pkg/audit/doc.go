// Package audit periodically verifies the internal invariants of running
// components.
//
// Any value with an IsConsistent() bool method can be registered under a
// name. CheckAll visits every target, logs and counts the failures, and
// returns a Report. Task wraps CheckAll for a scheduler:
//
//	a := audit.NewWithConfig(audit.Config{Logger: logger, Metrics: registry})
//	a.Register("jobs", jobsChannel)
//	s.ScheduleCron("audit", "*/10 * * * * *", a.Task())
package audit
