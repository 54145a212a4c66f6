// Package config loads the sievedemo configuration from YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/vnykmshr/boundchan/internal/logging"
	"github.com/vnykmshr/boundchan/pkg/common/validation"
	"github.com/vnykmshr/boundchan/pkg/scheduling/scheduler"
	"github.com/vnykmshr/boundchan/pkg/sieve"
	"github.com/vnykmshr/boundchan/pkg/streaming/channel"
)

// Config is the sievedemo configuration.
type Config struct {
	Limit     int64   `yaml:"limit"`
	Capacity  int     `yaml:"capacity"`
	Checkers  int     `yaml:"checkers"`
	Primes    []int64 `yaml:"primes"`
	QueueSize int     `yaml:"queue_size"`

	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Audit   AuditConfig   `yaml:"audit"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr string `yaml:"addr"`
}

// AuditConfig controls the periodic consistency audit.
type AuditConfig struct {
	// Schedule is a six-field cron expression or descriptor. Empty disables
	// the periodic audit; a final audit always runs.
	Schedule string `yaml:"schedule"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	plan := sieve.DefaultPlan()
	return Config{
		Limit:     int64(plan.Limit),
		Capacity:  16,
		Checkers:  plan.Checkers,
		Primes:    lo.Map(plan.Primes, func(p sieve.Candidate, _ int) int64 { return int64(p) }),
		QueueSize: 8,
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
		Audit: AuditConfig{
			Schedule: "@every 1s",
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()

	// #nosec G304 -- path comes from the command line.
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read YAML file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}

	return nil
}

// Validate checks every field, including the derived sieve plan.
func (c Config) Validate() error {
	if err := validation.ValidateRange("config", "capacity", c.Capacity, 1, channel.MaxCapacity, nil); err != nil {
		return err
	}
	if err := validation.ValidatePositive("config", "queue_size", c.QueueSize); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if f := strings.ToLower(c.Log.Format); f != "" && f != logging.FormatText && f != logging.FormatJSON {
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Audit.Schedule != "" {
		if err := scheduler.ValidateCron(c.Audit.Schedule); err != nil {
			return err
		}
	}
	return c.Plan().Validate()
}

// Plan converts the sieve fields into a sieve.Plan.
func (c Config) Plan() sieve.Plan {
	return sieve.Plan{
		Limit:    sieve.Candidate(c.Limit),
		Primes:   lo.Map(c.Primes, func(p int64, _ int) sieve.Candidate { return sieve.Candidate(p) }),
		Checkers: c.Checkers,
	}
}

// ParsePrimes parses a comma separated list such as "3,5,7".
func ParsePrimes(s string) ([]int64, error) {
	fields := lo.Compact(lo.Map(strings.Split(s, ","), func(f string, _ int) string {
		return strings.TrimSpace(f)
	}))
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty prime list")
	}

	primes := make([]int64, 0, len(fields))
	for _, f := range fields {
		p, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid prime %q: %w", f, err)
		}
		primes = append(primes, p)
	}
	return primes, nil
}

// FormatPrimes is the inverse of ParsePrimes.
func FormatPrimes(primes []int64) string {
	return strings.Join(lo.Map(primes, func(p int64, _ int) string {
		return strconv.FormatInt(p, 10)
	}), ",")
}
