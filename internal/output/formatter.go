package output

import (
	"io"
	"time"

	"github.com/aryankumar/taskpool/internal/loadgen"
)

// Format represents the output format type
type Format string

const (
	// FormatTable outputs data in a borderless table format
	FormatTable Format = "table"
	// FormatJSON outputs data in JSON format
	FormatJSON Format = "json"
	// FormatYAML outputs data in YAML format
	FormatYAML Format = "yaml"
)

// Formatter defines the interface for output formatting
type Formatter interface {
	// Format outputs a single data item to the writer
	Format(w io.Writer, data interface{}) error

	// FormatReport outputs the outcome of a load run to the writer
	FormatReport(w io.Writer, report loadgen.Report) error
}

// Option is a functional option for configuring formatters
type Option func(*Options)

// Options holds configuration for formatters
type Options struct {
	// NoColor disables color output
	NoColor bool

	// NoHeaders disables table headers
	NoHeaders bool

	// Wide adds latency columns and the per-worker table
	Wide bool
}

// WithNoColor disables color output
func WithNoColor(noColor bool) Option {
	return func(o *Options) {
		o.NoColor = noColor
	}
}

// WithNoHeaders disables table headers
func WithNoHeaders(noHeaders bool) Option {
	return func(o *Options) {
		o.NoHeaders = noHeaders
	}
}

// WithWide enables wide output
func WithWide(wide bool) Option {
	return func(o *Options) {
		o.Wide = wide
	}
}

// NewFormatter creates a new formatter based on the specified format
func NewFormatter(format Format, opts ...Option) Formatter {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	switch format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	case FormatTable:
		fallthrough
	default:
		return NewTableFormatter(options)
	}
}

// reportDocument converts a report into a structure shared by the JSON and
// YAML formatters, with durations rendered as strings
func reportDocument(r loadgen.Report) map[string]interface{} {
	producers := make([]map[string]interface{}, len(r.Producers))
	for i, p := range r.Producers {
		producers[i] = map[string]interface{}{
			"id":               p.ID,
			"submitted":        p.Submitted,
			"accepted":         p.Accepted,
			"rejected":         p.Rejected,
			"skipped":          p.Skipped,
			"avgSubmitLatency": roundDuration(p.AvgSubmitLatency),
			"maxSubmitLatency": roundDuration(p.MaxSubmitLatency),
		}
	}

	workers := make([]map[string]interface{}, len(r.Pool.WorkerStats))
	for i, w := range r.Pool.WorkerStats {
		workers[i] = map[string]interface{}{
			"id":       w.ID,
			"state":    w.State,
			"executed": w.Executed,
			"elastic":  w.Elastic,
		}
	}

	status := "passed"
	doc := map[string]interface{}{
		"kind":             string(r.Kind),
		"submitted":        r.Submitted,
		"accepted":         r.Accepted,
		"rejected":         r.Rejected,
		"skipped":          r.Skipped,
		"executed":         r.Executed,
		"missing":          r.Missing,
		"duplicates":       r.Duplicates,
		"unexpected":       r.Unexpected,
		"reordered":        r.Reordered,
		"incomplete":       r.Incomplete,
		"acceptanceRate":   r.AcceptanceRate(),
		"submitDuration":   roundDuration(r.SubmitDuration),
		"elapsed":          roundDuration(r.Elapsed),
		"throughput":       r.Throughput,
		"maxSubmitLatency": roundDuration(r.MaxSubmitLatency),
		"producers":        producers,
		"pool": map[string]interface{}{
			"mode":        string(r.Pool.Mode),
			"capacity":    r.Pool.Capacity,
			"wakePolicy":  string(r.Pool.WakePolicy),
			"queueDepth":  r.Pool.QueueDepth,
			"workers":     r.Pool.Workers,
			"peakWorkers": r.Pool.PeakWorkers,
			"maxWorkers":  r.Pool.MaxWorkers,
			"submitted":   r.Pool.Submitted,
			"accepted":    r.Pool.Accepted,
			"rejected":    r.Pool.Rejected,
			"completed":   r.Pool.Completed,
			"workerStats": workers,
		},
	}
	if err := r.Verify(); err != nil {
		status = "failed"
		doc["error"] = err.Error()
	}
	doc["verification"] = status

	return doc
}

func roundDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(time.Microsecond).String()
	default:
		return d.String()
	}
}
