package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vnykmshr/boundchan/internal/config"
	"github.com/vnykmshr/boundchan/internal/logging"
	"github.com/vnykmshr/boundchan/pkg/audit"
	bcerrors "github.com/vnykmshr/boundchan/pkg/common/errors"
	"github.com/vnykmshr/boundchan/pkg/metrics"
	"github.com/vnykmshr/boundchan/pkg/scheduling/scheduler"
	"github.com/vnykmshr/boundchan/pkg/scheduling/workerpool"
	"github.com/vnykmshr/boundchan/pkg/sieve"
)

type flags struct {
	configPath    string
	limit         int64
	capacity      int
	checkers      int
	primes        string
	logLevel      string
	logFormat     string
	metricsAddr   string
	auditSchedule string
}

func newRootCmd() *cobra.Command {
	var f flags
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "sievedemo",
		Short: "Run a single sieve layer over bounded channels",
		Long: `sievedemo streams odd candidates through a bounded channel to a set of
checker tasks seeded with small primes, and counts what survives. The stage
channels are audited for internal consistency while the sieve runs.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, f)
			if err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "YAML configuration file")
	fs.Int64Var(&f.limit, "limit", defaults.Limit, "exclusive upper bound of generated candidates")
	fs.IntVar(&f.capacity, "capacity", defaults.Capacity, "capacity of each stage channel")
	fs.IntVar(&f.checkers, "checkers", defaults.Checkers, "number of checker tasks")
	fs.StringVar(&f.primes, "primes", config.FormatPrimes(defaults.Primes), "comma separated ascending seed primes")
	fs.StringVar(&f.logLevel, "log-level", defaults.Log.Level, "trace, debug, info, warn or error")
	fs.StringVar(&f.logFormat, "log-format", defaults.Log.Format, "text or json")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	fs.StringVar(&f.auditSchedule, "audit-schedule", defaults.Audit.Schedule, "cron schedule for channel audits, empty to disable")

	return cmd
}

// resolveConfig layers defaults, the optional file and explicitly set flags.
func resolveConfig(cmd *cobra.Command, f flags) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	fs := cmd.Flags()
	if fs.Changed("limit") {
		cfg.Limit = f.limit
	}
	if fs.Changed("capacity") {
		cfg.Capacity = f.capacity
	}
	if fs.Changed("checkers") {
		cfg.Checkers = f.checkers
	}
	if fs.Changed("primes") {
		primes, err := config.ParsePrimes(f.primes)
		if err != nil {
			return cfg, err
		}
		cfg.Primes = primes
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
	if fs.Changed("metrics-addr") {
		cfg.Metrics.Addr = f.metricsAddr
	}
	if fs.Changed("audit-schedule") {
		cfg.Audit.Schedule = f.auditSchedule
	}

	return cfg, cfg.Validate()
}

func run(cmd *cobra.Command, cfg config.Config) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := logging.NewWithOutput(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	metricsConfig := metrics.Config{Enabled: true, Registry: promReg}
	registry := metrics.NewRegistry(promReg)

	plan := cfg.Plan()
	plan.Logger = logger
	plan.Metrics = registry

	// One extra worker keeps audits running alongside the sieve stages.
	pool, err := workerpool.NewWithConfigAndMetrics(workerpool.Config{
		WorkerCount: plan.Tasks() + 1,
		QueueSize:   cfg.QueueSize,
		OnTaskComplete: func(workerID int, result workerpool.Result) {
			if result.Error != nil {
				logger.WithError(result.Error).WithField("worker", workerID).Warn("task failed")
			}
		},
	}, "sievedemo", metricsConfig)
	if err != nil {
		return err
	}
	defer func() { <-pool.Shutdown() }()

	topo, err := sieve.NewTopologyWithMetrics(2, cfg.Capacity, "stage", metricsConfig)
	if err != nil {
		return err
	}

	auditor := audit.NewWithConfig(audit.Config{Logger: logger, Metrics: registry})
	if err := topo.Register(auditor, "stage"); err != nil {
		return err
	}

	if cfg.Metrics.Addr != "" {
		stopServer, err := serveMetrics(cfg.Metrics.Addr, promReg, logger)
		if err != nil {
			return err
		}
		defer stopServer()
	}

	if cfg.Audit.Schedule != "" {
		sched, err := scheduler.NewWithConfig(scheduler.Config{
			WorkerPool:   pool,
			TickInterval: 10 * time.Millisecond,
			Logger:       logger,
		})
		if err != nil {
			return err
		}
		if err := sched.ScheduleCron("audit", cfg.Audit.Schedule, auditor.Task()); err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
		defer func() { <-sched.Stop() }()
	}

	result, err := sieve.Run(ctx, pool, topo, plan)
	if err != nil {
		return err
	}

	report := auditor.CheckAll()
	logger.WithFields(logrus.Fields{
		"survivors": result.Survivors,
		"elapsed":   result.Elapsed,
		"audit":     report.String(),
	}).Info("done")

	fmt.Fprintf(cmd.OutOrStdout(), "survivors=%d\n", result.Survivors)
	if !report.OK() {
		return fmt.Errorf("final audit: %s: %w", report, bcerrors.ErrInconsistentState)
	}
	return nil
}

// serveMetrics exposes reg on addr until the returned function is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger logrus.FieldLogger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics server stopped")
		}
	}()
	logger.WithField("addr", ln.Addr().String()).Info("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		<-done
	}, nil
}
