package executor_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/aryankumar/taskpool/internal/executor"
)

// Example demonstrates basic usage of the worker pool
func Example() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelWarn, // Reduce log noise
	}))

	pool, err := executor.NewPool(logger, executor.WithCapacity(16))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	if err := pool.Start(3); err != nil {
		fmt.Println("error:", err)
		return
	}

	var done atomic.Int32
	for i := 0; i < 10; i++ {
		pool.SubmitFunc(func() {
			time.Sleep(5 * time.Millisecond)
			done.Add(1)
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Shutdown(ctx); err != nil {
		fmt.Println("shutdown error:", err)
		return
	}

	fmt.Printf("Completed %d tasks\n", done.Load())
	// Output:
	// Completed 10 tasks
}

// ExamplePool_Start_invalid shows that a non-positive worker count is a
// configuration error that leaves the pool unstarted
func ExamplePool_Start_invalid() {
	pool, _ := executor.NewPool(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1})))

	err := pool.Start(0)
	fmt.Println(err)
	fmt.Println("started:", pool.IsStarted(), "workers:", pool.WorkerCount())
	// Output:
	// validation failed for field "workers" (value: 0): initial worker count must be a positive integer
	// started: false workers: 0
}

// ExamplePool_Submit shows a rejection once the queue stays full
func ExamplePool_Submit() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	// Not started, so nothing drains the queue
	pool, _ := executor.NewPool(logger,
		executor.WithCapacity(2),
		executor.WithSubmitTimeout(10*time.Millisecond),
	)

	for i := 1; i <= 3; i++ {
		accepted := pool.SubmitFunc(func() {})
		fmt.Printf("submission %d accepted: %v\n", i, accepted)
	}
	// Output:
	// submission 1 accepted: true
	// submission 2 accepted: true
	// submission 3 accepted: false
}
