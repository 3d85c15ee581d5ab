package run

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryankumar/taskpool/internal/config"
	"github.com/aryankumar/taskpool/internal/executor"
	"github.com/aryankumar/taskpool/internal/loadgen"
	"github.com/aryankumar/taskpool/internal/output"
	"github.com/aryankumar/taskpool/internal/util"
	"github.com/spf13/cobra"
)

const (
	defaultRunTimeout      = 5 * time.Minute
	defaultShutdownTimeout = 30 * time.Second
)

// flagKeys maps run flags onto configuration keys
// Explicitly set flags override the config file and environment
var flagKeys = map[string]string{
	"mode":              "pool.mode",
	"workers":           "pool.workers",
	"capacity":          "pool.capacity",
	"submit-timeout":    "pool.submitTimeout",
	"wake-policy":       "pool.wakePolicy",
	"max-workers":       "pool.cached.maxWorkers",
	"idle-timeout":      "pool.cached.idleTimeout",
	"scale-interval":    "pool.cached.scaleInterval",
	"backlog-threshold": "pool.cached.backlogThreshold",
	"producers":         "load.producers",
	"tasks":             "load.tasks",
	"rate":              "load.rate",
	"burst":             "load.burst",
	"kind":              "load.kind",
	"duration":          "load.duration",
}

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive a worker pool with synthetic load",
		Long: `Start a bounded worker pool, submit synthetic tasks from several producers
and report how many were accepted, rejected and executed.

Settings come from the config file, then TASKPOOL_* environment variables,
then explicitly set flags. The command fails when an accepted task did not
run exactly once or a rejected task ran at all.`,
		Example: `  # Default run: 4 workers, 4 producers, 10000 sleep tasks
  taskpool run

  # Force backpressure with a tiny queue and a short submit timeout
  taskpool run --capacity 8 --submit-timeout 5ms --workers 1

  # Let the pool grow under backlog
  taskpool run --mode cached --workers 2 --max-workers 16

  # Rate limited producers, JSON report
  taskpool run --rate 500 --burst 50 -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd)
		},
	}

	flags := cmd.Flags()
	flags.String("mode", string(executor.ModeFixed), "pool mode (fixed, cached)")
	flags.IntP("workers", "w", executor.DefaultWorkers, "initial number of workers")
	flags.Int("capacity", executor.DefaultCapacity, "queue capacity threshold")
	flags.Duration("submit-timeout", executor.DefaultSubmitTimeout, "how long a submission may wait on a full queue")
	flags.String("wake-policy", string(executor.WakeSignal), "waiter wake policy (signal, broadcast)")
	flags.Int("max-workers", 0, "cached mode worker limit (0 means twice the initial count)")
	flags.Duration("idle-timeout", executor.DefaultIdleTimeout, "cached mode idle time before an extra worker retires")
	flags.Duration("scale-interval", executor.DefaultScaleInterval, "cached mode backlog check interval")
	flags.Duration("backlog-threshold", executor.DefaultBacklogThreshold, "cached mode backlog age that triggers growth")
	flags.IntP("producers", "p", 4, "number of concurrent producers")
	flags.IntP("tasks", "n", 10000, "total number of tasks")
	flags.Float64("rate", 0, "submissions per second across all producers (0 is unlimited)")
	flags.Int("burst", 1, "token bucket burst used with --rate")
	flags.String("kind", string(loadgen.KindSleep), "task kind (noop, sleep, spin)")
	flags.Duration("duration", time.Millisecond, "work time of each sleep or spin task")
	flags.Duration("timeout", defaultRunTimeout, "deadline for submitting and draining")
	flags.Duration("shutdown-timeout", defaultShutdownTimeout, "deadline for the pool to stop its workers")
	flags.Bool("wide", false, "show latency columns and per-worker stats")

	return cmd
}

func runLoad(cmd *cobra.Command) error {
	logger := slog.Default()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	pool, err := executor.NewPool(logger)
	if err != nil {
		return err
	}
	if err := cfg.Pool.Apply(pool); err != nil {
		return err
	}
	if err := pool.Start(cfg.Pool.Workers); err != nil {
		return err
	}

	gen, err := loadgen.New(loadgen.Config{
		Producers: cfg.Load.Producers,
		Tasks:     cfg.Load.Tasks,
		Rate:      cfg.Load.Rate,
		Burst:     cfg.Load.Burst,
		Kind:      loadgen.Kind(cfg.Load.Kind),
		Duration:  cfg.Load.Duration,
	}, logger)
	if err != nil {
		shutdown(pool, defaultShutdownTimeout, logger)
		return err
	}
	gen.OnProducerDone(func(done, total int) {
		logger.Debug("producer finished", "done", done, "total", total)
	})

	timeout, _ := cmd.Flags().GetDuration("timeout")
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report := gen.Run(runCtx, pool)

	shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
	shutdownErr := shutdown(pool, shutdownTimeout, logger)
	report.Pool = pool.Stats()

	if err := render(cmd, report); err != nil {
		return err
	}

	return util.CombineErrors(report.Verify(), shutdownErr)
}

// loadConfig merges config file, environment and explicitly set flags
func loadConfig(cmd *cobra.Command) (*config.FileConfig, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	mgr := config.NewManager(cfgPath)

	for name, key := range flagKeys {
		if err := mgr.BindFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}

	cfg, err := mgr.Load()
	if err != nil {
		return nil, err
	}
	if used := mgr.ConfigFileUsed(); used != "" {
		slog.Debug("loaded configuration", "file", used)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func shutdown(pool *executor.Pool, timeout time.Duration, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := pool.Shutdown(ctx); err != nil {
		logger.Warn("worker pool did not stop in time", "error", err)
		return err
	}
	return nil
}

func render(cmd *cobra.Command, report loadgen.Report) error {
	format, _ := cmd.Flags().GetString("output")
	noColor, _ := cmd.Flags().GetBool("no-color")
	wide, _ := cmd.Flags().GetBool("wide")

	formatter := output.NewFormatter(output.Format(format),
		output.WithNoColor(noColor),
		output.WithWide(wide))

	if err := formatter.FormatReport(cmd.OutOrStdout(), report); err != nil {
		return fmt.Errorf("failed to format report: %w", err)
	}
	return nil
}
