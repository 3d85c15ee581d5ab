// Package output renders taskpool results for the terminal.
//
// The package supports table, JSON and YAML output behind a single
// Formatter interface. Besides arbitrary data, every formatter can render a
// loadgen.Report: per-producer submission counts, pool settings and the
// exactly-once verification outcome.
//
// # Basic Usage
//
//	formatter := output.NewFormatter(output.FormatTable)
//
//	// Format a load report
//	formatter.FormatReport(os.Stdout, report)
//
//	// Format arbitrary data
//	formatter.Format(os.Stdout, map[string]interface{}{"key": "value"})
//
// # Options
//
//	formatter := output.NewFormatter(
//	    output.FormatTable,
//	    output.WithNoColor(true),
//	    output.WithWide(true),
//	)
//
// Wide mode adds average and maximum submit latency per producer and a
// per-worker table with state and executed task counts.
//
// # Color Support
//
// Colors are enabled only for TTY outputs and can be disabled with
// WithNoColor(true). Rejections are yellow, verification failures red and
// durations blue.
package output
