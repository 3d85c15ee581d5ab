package loadgen

import (
	"fmt"
	"strings"
	"time"

	"github.com/aryankumar/taskpool/internal/executor"
)

// ProducerReport summarizes one producer
type ProducerReport struct {
	ID        int `json:"id" yaml:"id"`
	Submitted int `json:"submitted" yaml:"submitted"`
	Accepted  int `json:"accepted" yaml:"accepted"`
	Rejected  int `json:"rejected" yaml:"rejected"`

	// Skipped counts tasks never offered because the run was cancelled
	Skipped int `json:"skipped" yaml:"skipped"`

	AvgSubmitLatency time.Duration `json:"avgSubmitLatency" yaml:"avgSubmitLatency"`
	MaxSubmitLatency time.Duration `json:"maxSubmitLatency" yaml:"maxSubmitLatency"`

	totalLatency time.Duration
	accepted     []*probe
}

// Report is the outcome of a load run
type Report struct {
	Kind Kind `json:"kind" yaml:"kind"`

	Submitted int `json:"submitted" yaml:"submitted"`
	Accepted  int `json:"accepted" yaml:"accepted"`
	Rejected  int `json:"rejected" yaml:"rejected"`
	Skipped   int `json:"skipped" yaml:"skipped"`
	Executed  int `json:"executed" yaml:"executed"`

	// Missing counts accepted tasks that never ran
	Missing int `json:"missing" yaml:"missing"`
	// Duplicates counts accepted tasks that ran more than once
	Duplicates int `json:"duplicates" yaml:"duplicates"`
	// Unexpected counts rejected tasks that ran anyway
	Unexpected int `json:"unexpected" yaml:"unexpected"`
	// Reordered counts tasks that started before an earlier task of the
	// same producer; only meaningful with a single worker
	Reordered int `json:"reordered" yaml:"reordered"`

	// Incomplete is set when the run stopped waiting before every accepted task ran
	Incomplete bool `json:"incomplete" yaml:"incomplete"`

	SubmitDuration   time.Duration `json:"submitDuration" yaml:"submitDuration"`
	Elapsed          time.Duration `json:"elapsed" yaml:"elapsed"`
	Throughput       float64       `json:"throughput" yaml:"throughput"`
	MaxSubmitLatency time.Duration `json:"maxSubmitLatency" yaml:"maxSubmitLatency"`

	Producers []ProducerReport `json:"producers" yaml:"producers"`

	// Pool is the pool snapshot taken after shutdown
	Pool executor.Stats `json:"pool" yaml:"pool"`
}

// AcceptanceRate returns the accepted share of submissions (0.0 to 100.0)
func (r Report) AcceptanceRate() float64 {
	if r.Submitted == 0 {
		return 0.0
	}
	return float64(r.Accepted) / float64(r.Submitted) * 100.0
}

// String returns a human-readable summary
func (r Report) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Submitted: %d, ", r.Submitted))
	sb.WriteString(fmt.Sprintf("Accepted: %d, ", r.Accepted))
	sb.WriteString(fmt.Sprintf("Rejected: %d, ", r.Rejected))
	sb.WriteString(fmt.Sprintf("Executed: %d", r.Executed))

	if r.Missing > 0 || r.Duplicates > 0 {
		sb.WriteString(fmt.Sprintf(", Missing: %d, Duplicates: %d", r.Missing, r.Duplicates))
	}
	sb.WriteString(fmt.Sprintf(", Elapsed: %s", r.Elapsed.Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf(", Throughput: %.0f/s", r.Throughput))

	return sb.String()
}
