package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DataDir    string
	ConfigPath string
	Verbose    bool
}

// NewRootCommand creates the root command for the osenaabo CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "osenaabo",
		Short: "Osenaabo - hardware-locked betting session manager",
		Long: `Osenaabo binds a license to this computer, tracks the day's trading
sessions and enforces the daily profit target.

State lives in the data directory (OSENAABO_DATA_DIR, or the user config
directory by default).`,
		SilenceUsage:  true,
		SilenceErrors: true, // main logs them
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "state directory (default $OSENAABO_DATA_DIR or the user config dir)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default <data-dir>/config.json)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	// Add subcommands
	cmd.AddCommand(NewHWIDCommand(opts))
	cmd.AddCommand(NewActivateCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewSessionsCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewResetTargetCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))

	return cmd
}
