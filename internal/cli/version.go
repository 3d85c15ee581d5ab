package cli

import (
	"fmt"

	"github.com/aryankumar/taskpool/internal/output"
	"github.com/aryankumar/taskpool/pkg/version"
	"github.com/spf13/cobra"
)

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Display detailed version information for the taskpool CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd)
		},
	}

	return cmd
}

func runVersion(cmd *cobra.Command) error {
	info := version.Get()
	outputFormat, _ := cmd.Flags().GetString("output")
	noColor, _ := cmd.Flags().GetBool("no-color")
	w := cmd.OutOrStdout()

	switch output.Format(outputFormat) {
	case output.FormatJSON, output.FormatYAML:
		if err := output.NewFormatter(output.Format(outputFormat)).Format(w, info); err != nil {
			return fmt.Errorf("failed to format version info: %w", err)
		}
		return nil
	case output.FormatTable:
		return output.NewFormatter(output.FormatTable, output.WithNoColor(noColor)).Format(w, info.Fields())
	default:
		// Default to human-readable format
		fmt.Fprintln(w, info.String())
		return nil
	}
}
