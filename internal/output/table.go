package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/aryankumar/taskpool/internal/loadgen"
	"github.com/olekukonko/tablewriter"
)

// TableFormatter formats output as a borderless table
type TableFormatter struct {
	options *Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(opts *Options) *TableFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &TableFormatter{
		options: opts,
	}
}

// Format outputs a single data item as a table
func (f *TableFormatter) Format(w io.Writer, data interface{}) error {
	table := f.createTable(w)

	switch v := data.(type) {
	case map[string]interface{}:
		return f.formatMap(table, v)
	case []map[string]interface{}:
		return f.formatMapSlice(table, v)
	case nil:
		return nil
	default:
		fmt.Fprintln(w, v)
		return nil
	}
}

// FormatReport outputs a load report as a producer table followed by a summary
func (f *TableFormatter) FormatReport(w io.Writer, report loadgen.Report) error {
	colors := NewColorScheme(w, f.options.NoColor)

	if len(report.Producers) == 0 {
		fmt.Fprintln(w, "No producers")
	} else {
		table := f.createTable(w)
		headers := []string{"PRODUCER", "SUBMITTED", "ACCEPTED", "REJECTED", "SKIPPED"}
		if f.options.Wide {
			headers = append(headers, "AVG-LATENCY", "MAX-LATENCY")
		}
		f.setHeader(table, headers, colors)

		for _, p := range report.Producers {
			table.Append(f.formatProducerRow(p, colors))
		}
		table.Render()
	}

	if f.options.Wide && len(report.Pool.WorkerStats) > 0 {
		fmt.Fprintln(w, "")
		table := f.createTable(w)
		f.setHeader(table, []string{"WORKER", "STATE", "EXECUTED", "ELASTIC"}, colors)
		for _, ws := range report.Pool.WorkerStats {
			table.Append([]string{
				colors.Label("%d", ws.ID),
				colors.WorkerState(ws.State),
				strconv.FormatUint(ws.Executed, 10),
				strconv.FormatBool(ws.Elastic),
			})
		}
		table.Render()
	}

	f.printSummary(w, report, colors)

	return nil
}

// formatProducerRow formats a single producer as a table row
func (f *TableFormatter) formatProducerRow(p loadgen.ProducerReport, colors *ColorScheme) []string {
	rejected := strconv.Itoa(p.Rejected)
	if p.Rejected > 0 {
		rejected = colors.Warning("%s", rejected)
	}

	row := []string{
		colors.Label("%d", p.ID),
		strconv.Itoa(p.Submitted),
		strconv.Itoa(p.Accepted),
		rejected,
		strconv.Itoa(p.Skipped),
	}

	if f.options.Wide {
		row = append(row,
			colors.Duration("%s", roundDuration(p.AvgSubmitLatency)),
			colors.Duration("%s", roundDuration(p.MaxSubmitLatency)))
	}

	return row
}

func (f *TableFormatter) setHeader(table *tablewriter.Table, headers []string, colors *ColorScheme) {
	if f.options.NoHeaders {
		return
	}
	if colors.Disabled {
		table.SetHeader(headers)
		return
	}
	colored := make([]string, len(headers))
	for i, h := range headers {
		colored[i] = colors.Header("%s", h)
	}
	table.SetHeader(colored)
}

// formatMap formats a map as a two-column table (key-value pairs)
func (f *TableFormatter) formatMap(table *tablewriter.Table, data map[string]interface{}) error {
	if !f.options.NoHeaders {
		table.SetHeader([]string{"KEY", "VALUE"})
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		table.Append([]string{k, fmt.Sprintf("%v", data[k])})
	}

	table.Render()
	return nil
}

// formatMapSlice formats a slice of maps as a table
// Columns come from the first map, in sorted order
func (f *TableFormatter) formatMapSlice(table *tablewriter.Table, data []map[string]interface{}) error {
	if len(data) == 0 {
		return nil
	}

	keys := make([]string, 0, len(data[0]))
	for k := range data[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if !f.options.NoHeaders {
		headers := make([]string, len(keys))
		for i, k := range keys {
			headers[i] = strings.ToUpper(k)
		}
		table.SetHeader(headers)
	}

	for _, item := range data {
		row := make([]string, len(keys))
		for i, k := range keys {
			row[i] = fmt.Sprintf("%v", item[k])
		}
		table.Append(row)
	}

	table.Render()
	return nil
}

// createTable creates a new borderless, tab-padded table
func (f *TableFormatter) createTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	return table
}

// printSummary prints pool settings, totals and the verification outcome
func (f *TableFormatter) printSummary(w io.Writer, r loadgen.Report, colors *ColorScheme) {
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Pool: mode=%s workers=%d peak=%d capacity=%d wake=%s\n",
		r.Pool.Mode, r.Pool.Workers, r.Pool.PeakWorkers, r.Pool.Capacity, r.Pool.WakePolicy)

	acceptedText := colors.Success("%d accepted", r.Accepted)

	rejectedText := fmt.Sprintf("%d rejected", r.Rejected)
	if r.Rejected > 0 {
		rejectedText = colors.Warning("%s", rejectedText)
	}

	timingText := colors.Duration("elapsed=%s throughput=%.0f/s", roundDuration(r.Elapsed), r.Throughput)

	fmt.Fprintf(w, "Summary: %s, %s, %d executed (%.1f%% accepted), %s\n",
		acceptedText, rejectedText, r.Executed, r.AcceptanceRate(), timingText)

	if err := r.Verify(); err != nil {
		fmt.Fprintf(w, "Verification: %s\n", colors.Error("FAILED: %v", err))
		return
	}
	fmt.Fprintf(w, "Verification: %s\n", colors.Success("every accepted task ran exactly once"))
}
