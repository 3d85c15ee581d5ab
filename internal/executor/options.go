package executor

import (
	"fmt"
	"time"

	"github.com/aryankumar/taskpool/internal/util"
)

// Mode is the pool growth mode
type Mode string

const (
	// ModeFixed keeps the worker count constant for the pool's lifetime
	ModeFixed Mode = "fixed"
	// ModeCached grows the worker count under sustained backlog and
	// retires surplus workers after they sit idle
	ModeCached Mode = "cached"
)

// ParseMode converts a string to a Mode
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFixed, ModeCached:
		return Mode(s), nil
	case "":
		return ModeFixed, nil
	default:
		return "", fmt.Errorf("unknown pool mode %q (expected fixed or cached)", s)
	}
}

const (
	// DefaultWorkers is the initial worker count used by StartDefault
	DefaultWorkers = 4

	// DefaultSubmitTimeout bounds how long Submit waits for queue space
	DefaultSubmitTimeout = time.Second

	// DefaultIdleTimeout is how long a surplus cached-mode worker waits
	// for work before retiring
	DefaultIdleTimeout = 60 * time.Second

	// DefaultScaleInterval is how often the cached-mode scaler inspects the queue
	DefaultScaleInterval = 100 * time.Millisecond

	// DefaultBacklogThreshold is how long the queue must stay non-empty
	// before the cached-mode scaler adds a worker
	DefaultBacklogThreshold = 200 * time.Millisecond
)

// settings holds the configuration frozen when the pool materializes its queue
type settings struct {
	mode             Mode
	capacity         int
	submitTimeout    time.Duration
	wakePolicy       WakePolicy
	maxWorkers       int
	idleTimeout      time.Duration
	scaleInterval    time.Duration
	backlogThreshold time.Duration
}

func defaultSettings() settings {
	return settings{
		mode:             ModeFixed,
		capacity:         DefaultCapacity,
		submitTimeout:    DefaultSubmitTimeout,
		wakePolicy:       WakeSignal,
		idleTimeout:      DefaultIdleTimeout,
		scaleInterval:    DefaultScaleInterval,
		backlogThreshold: DefaultBacklogThreshold,
	}
}

// Option configures a pool before it starts
type Option func(*settings) error

// WithMode sets the growth mode
func WithMode(mode Mode) Option {
	return func(s *settings) error {
		if mode != ModeFixed && mode != ModeCached {
			return util.NewValidationError("mode", mode, "must be fixed or cached")
		}
		s.mode = mode
		return nil
	}
}

// WithCapacity sets the task queue capacity threshold
func WithCapacity(capacity int) Option {
	return func(s *settings) error {
		if capacity <= 0 {
			return util.NewValidationError("capacity", capacity, "must be a positive integer")
		}
		s.capacity = capacity
		return nil
	}
}

// WithSubmitTimeout sets how long Submit blocks on a full queue
func WithSubmitTimeout(d time.Duration) Option {
	return func(s *settings) error {
		if d < 0 {
			return util.NewValidationError("submitTimeout", d, "must not be negative")
		}
		s.submitTimeout = d
		return nil
	}
}

// WithWakePolicy sets how queue state changes wake blocked goroutines
func WithWakePolicy(policy WakePolicy) Option {
	return func(s *settings) error {
		if policy != WakeSignal && policy != WakeBroadcast {
			return util.NewValidationError("wakePolicy", policy, "must be signal or broadcast")
		}
		s.wakePolicy = policy
		return nil
	}
}

// WithMaxWorkers caps the worker count in cached mode
// Zero means twice the initial worker count
func WithMaxWorkers(n int) Option {
	return func(s *settings) error {
		if n < 0 {
			return util.NewValidationError("maxWorkers", n, "must not be negative")
		}
		s.maxWorkers = n
		return nil
	}
}

// WithIdleTimeout sets how long a surplus cached-mode worker idles before retiring
func WithIdleTimeout(d time.Duration) Option {
	return func(s *settings) error {
		if d < 0 {
			return util.NewValidationError("idleTimeout", d, "must not be negative")
		}
		s.idleTimeout = d
		return nil
	}
}

// WithScaleInterval sets how often the cached-mode scaler runs
func WithScaleInterval(d time.Duration) Option {
	return func(s *settings) error {
		if d <= 0 {
			return util.NewValidationError("scaleInterval", d, "must be positive")
		}
		s.scaleInterval = d
		return nil
	}
}

// WithBacklogThreshold sets how long a backlog must persist before the
// cached-mode scaler adds a worker
func WithBacklogThreshold(d time.Duration) Option {
	return func(s *settings) error {
		if d < 0 {
			return util.NewValidationError("backlogThreshold", d, "must not be negative")
		}
		s.backlogThreshold = d
		return nil
	}
}
