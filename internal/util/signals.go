package util

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// exit is replaced in tests
var exit = os.Exit

// SetupSignalHandler returns a context derived from parent that is cancelled
// on SIGINT or SIGTERM. A second signal forces an immediate exit with code 1.
// The returned stop function releases the signal subscription
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			slog.Info("received shutdown signal, draining worker pool", "signal", sig.String())
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigCh:
			slog.Warn("received second shutdown signal, forcing exit", "signal", sig.String())
			exit(1)
		case <-done:
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(done)
			cancel()
		})
	}

	return ctx, stop
}
