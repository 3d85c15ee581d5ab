package output

import (
	"io"

	"github.com/aryankumar/taskpool/internal/loadgen"
	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	options *Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(opts *Options) *YAMLFormatter {
	if opts == nil {
		opts = &Options{}
	}
	return &YAMLFormatter{
		options: opts,
	}
}

// Format outputs a single data item as YAML
func (f *YAMLFormatter) Format(w io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	return encoder.Encode(data)
}

// FormatReport outputs a load report as YAML
func (f *YAMLFormatter) FormatReport(w io.Writer, report loadgen.Report) error {
	return f.Format(w, reportDocument(report))
}
