package executor

import (
	"fmt"
	"strings"
)

// Stats is a point-in-time snapshot of a pool
// Counters are read independently and may be slightly inconsistent while
// tasks are in flight
type Stats struct {
	Mode        Mode       `json:"mode" yaml:"mode"`
	Capacity    int        `json:"capacity" yaml:"capacity"`
	WakePolicy  WakePolicy `json:"wakePolicy" yaml:"wakePolicy"`
	QueueDepth  int        `json:"queueDepth" yaml:"queueDepth"`
	Workers     int        `json:"workers" yaml:"workers"`
	PeakWorkers int        `json:"peakWorkers" yaml:"peakWorkers"`
	MaxWorkers  int        `json:"maxWorkers" yaml:"maxWorkers"`

	// Submitted counts every non-nil task offered to the pool
	Submitted uint64 `json:"submitted" yaml:"submitted"`
	Accepted  uint64 `json:"accepted" yaml:"accepted"`
	Rejected  uint64 `json:"rejected" yaml:"rejected"`
	Completed uint64 `json:"completed" yaml:"completed"`

	Started  bool `json:"started" yaml:"started"`
	Shutdown bool `json:"shutdown" yaml:"shutdown"`

	WorkerStats []WorkerStats `json:"workerStats,omitempty" yaml:"workerStats,omitempty"`
}

// InFlight returns accepted tasks that have not completed yet
func (s Stats) InFlight() uint64 {
	if s.Completed > s.Accepted {
		return 0
	}
	return s.Accepted - s.Completed
}

// RejectionRate returns the rejected share of submissions (0.0 to 100.0)
func (s Stats) RejectionRate() float64 {
	if s.Submitted == 0 {
		return 0.0
	}
	return float64(s.Rejected) / float64(s.Submitted) * 100.0
}

// Utilization returns the queue fill level as a percentage
func (s Stats) Utilization() float64 {
	if s.Capacity == 0 {
		return 0.0
	}
	return float64(s.QueueDepth) / float64(s.Capacity) * 100.0
}

// String returns a human-readable summary
func (s Stats) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Mode: %s, ", s.Mode))
	sb.WriteString(fmt.Sprintf("Workers: %d, ", s.Workers))
	sb.WriteString(fmt.Sprintf("Queue: %d/%d, ", s.QueueDepth, s.Capacity))
	sb.WriteString(fmt.Sprintf("Accepted: %d, ", s.Accepted))
	sb.WriteString(fmt.Sprintf("Rejected: %d, ", s.Rejected))
	sb.WriteString(fmt.Sprintf("Completed: %d", s.Completed))

	return sb.String()
}
