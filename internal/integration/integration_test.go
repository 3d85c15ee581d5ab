package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aryankumar/taskpool/internal/config"
	"github.com/aryankumar/taskpool/internal/executor"
	"github.com/aryankumar/taskpool/internal/loadgen"
	"github.com/aryankumar/taskpool/internal/output"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// startPool builds a pool from a config file the way the run command does
func startPool(t *testing.T, yaml string) (*executor.Pool, *config.FileConfig) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "taskpool.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := config.NewManager(path).Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid config: %v", err)
	}

	pool, err := executor.NewPool(testLogger())
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	if err := cfg.Pool.Apply(pool); err != nil {
		t.Fatalf("failed to apply config: %v", err)
	}
	if err := pool.Start(cfg.Pool.Workers); err != nil {
		t.Fatalf("failed to start pool: %v", err)
	}

	return pool, cfg
}

func generator(t *testing.T, cfg *config.FileConfig) *loadgen.Generator {
	t.Helper()

	gen, err := loadgen.New(loadgen.Config{
		Producers: cfg.Load.Producers,
		Tasks:     cfg.Load.Tasks,
		Rate:      cfg.Load.Rate,
		Burst:     cfg.Load.Burst,
		Kind:      loadgen.Kind(cfg.Load.Kind),
		Duration:  cfg.Load.Duration,
	}, testLogger())
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}
	return gen
}

func shutdown(t *testing.T, pool *executor.Pool) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pool.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
}

// TestFullWorkflow runs config loading, load generation, shutdown and rendering
func TestFullWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool, cfg := startPool(t, `pool:
  workers: 4
  capacity: 32
  submitTimeout: 500ms
load:
  producers: 4
  tasks: 2000
  kind: noop
`)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report := generator(t, cfg).Run(ctx, pool)
	shutdown(t, pool)
	report.Pool = pool.Stats()

	if err := report.Verify(); err != nil {
		t.Fatalf("verification failed: %v", err)
	}
	if report.Pool.Completed != uint64(report.Accepted) {
		t.Errorf("pool completed %d, report accepted %d", report.Pool.Completed, report.Accepted)
	}
	if report.Pool.Workers != 0 {
		t.Errorf("expected all workers to exit, %d still running", report.Pool.Workers)
	}

	var buf bytes.Buffer
	if err := output.NewFormatter(output.FormatJSON).FormatReport(&buf, report); err != nil {
		t.Fatalf("failed to render report: %v", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if doc["verification"] != "passed" {
		t.Errorf("verification = %v, want passed", doc["verification"])
	}
}

// TestCachedModeScalesUnderLoad checks that a backlog grows the pool
func TestCachedModeScalesUnderLoad(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool, cfg := startPool(t, `pool:
  mode: cached
  workers: 1
  capacity: 256
  cached:
    maxWorkers: 6
    scaleInterval: 5ms
    backlogThreshold: 5ms
load:
  producers: 2
  tasks: 200
  kind: sleep
  duration: 2ms
`)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report := generator(t, cfg).Run(ctx, pool)
	shutdown(t, pool)
	stats := pool.Stats()

	if err := report.Verify(); err != nil {
		t.Fatalf("verification failed: %v", err)
	}
	if stats.PeakWorkers <= 1 {
		t.Errorf("PeakWorkers = %d, expected the scaler to add workers", stats.PeakWorkers)
	}
	if stats.PeakWorkers > 6 {
		t.Errorf("PeakWorkers = %d, exceeds maxWorkers 6", stats.PeakWorkers)
	}
}

// TestContextCancellation stops producers early and checks nothing accepted is lost
func TestContextCancellation(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool, cfg := startPool(t, `pool:
  workers: 2
  capacity: 16
load:
  producers: 4
  tasks: 100000
  kind: sleep
  duration: 100us
`)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	report := generator(t, cfg).Run(ctx, pool)
	if report.Skipped == 0 {
		t.Error("expected cancellation to skip part of the load")
	}

	shutdown(t, pool)
	stats := pool.Stats()

	if stats.Completed != stats.Accepted {
		t.Errorf("completed %d of %d accepted tasks after shutdown", stats.Completed, stats.Accepted)
	}
	if uint64(report.Accepted) != stats.Accepted {
		t.Errorf("report accepted %d, pool accepted %d", report.Accepted, stats.Accepted)
	}
}

// TestPoolShutdownGracefully shuts down while producers are still submitting
func TestPoolShutdownGracefully(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool, cfg := startPool(t, `pool:
  workers: 2
  capacity: 8
load:
  producers: 3
  tasks: 300000
  kind: noop
`)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	done := make(chan loadgen.Report, 1)
	go func() {
		done <- generator(t, cfg).Run(ctx, pool)
	}()

	time.Sleep(10 * time.Millisecond)
	shutdown(t, pool)

	report := <-done
	if err := report.Verify(); err != nil {
		t.Fatalf("verification failed: %v", err)
	}
	if report.Skipped == 0 {
		t.Error("expected producers to stop once the pool shut down")
	}
	if !pool.IsShutdown() {
		t.Error("expected pool to report shutdown")
	}
}

// TestRaceConditions hammers both wake policies from many producers
func TestRaceConditions(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	for _, policy := range []string{"signal", "broadcast"} {
		t.Run(policy, func(t *testing.T) {
			pool, cfg := startPool(t, `pool:
  workers: 8
  capacity: 4
  wakePolicy: `+policy+`
load:
  producers: 16
  tasks: 4000
  kind: noop
`)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for ctx.Err() == nil && !pool.IsShutdown() {
					if depth := pool.QueueLen(); depth > 4 {
						t.Errorf("queue depth %d exceeds capacity 4", depth)
						return
					}
					time.Sleep(100 * time.Microsecond)
				}
			}()

			report := generator(t, cfg).Run(ctx, pool)
			shutdown(t, pool)
			wg.Wait()

			if err := report.Verify(); err != nil {
				t.Fatalf("verification failed: %v", err)
			}
		})
	}
}
