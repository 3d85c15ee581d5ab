package configcmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aryankumar/taskpool/internal/config"
	"github.com/aryankumar/taskpool/internal/output"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config parent command
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the taskpool configuration file",
		Example: `  # Show the effective configuration
  taskpool config view

  # Write the defaults to $HOME/.taskpool/.taskpool.yaml
  taskpool config init`,
	}

	cmd.AddCommand(newViewCmd())
	cmd.AddCommand(newInitCmd())

	return cmd
}

func newViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging the config file, TASKPOOL_*
environment variables and defaults. YAML is used unless -o selects another
format.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd)
		},
	}
}

func runView(cmd *cobra.Command) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	mgr := config.NewManager(cfgPath)

	cfg, err := mgr.Load()
	if err != nil {
		return err
	}
	if used := mgr.ConfigFileUsed(); used != "" {
		slog.Debug("loaded configuration", "file", used)
	}

	format, _ := cmd.Flags().GetString("output")
	if format == "" || format == string(output.FormatTable) {
		format = string(output.FormatYAML)
	}

	return output.NewFormatter(output.Format(format)).Format(cmd.OutOrStdout(), cfg)
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	mgr := config.NewManager(cfgPath)
	mgr.SetConfig(config.Default())

	path, err := mgr.ResolvePath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	}

	if err := mgr.Save(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote configuration to %s\n", path)
	return nil
}
