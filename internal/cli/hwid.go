package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewHWIDCommand creates the hwid command.
func NewHWIDCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hwid",
		Short: "Print this computer's hardware ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(rootOpts, false)
			if err != nil {
				return err
			}
			defer app.Close()

			fmt.Fprintln(cmd.OutOrStdout(), app.Fingerprint.Compute().Display())
			return nil
		},
	}
}
