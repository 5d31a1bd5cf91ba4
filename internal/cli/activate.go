package cli

import (
	"errors"
	"osenaabo-go/internal/license"
	"osenaabo-go/internal/reporter"
	"strings"

	"github.com/spf13/cobra"
)

// ErrRejected is returned when a command reports a negative outcome.
var ErrRejected = errors.New("rejected")

// ActivateOptions holds the activate flags.
type ActivateOptions struct {
	TelegramID string
	Key        string
}

// NewActivateCommand creates the activate command.
func NewActivateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ActivateOptions{}

	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Validate a license and bind it to this computer",
		Long: `Validate a license with the configured validator and bind it to this
computer. The first successful activation is permanent: the license can
never be activated on another computer afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivate(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.TelegramID, "telegram-id", "", "Telegram ID the license was issued to")
	cmd.Flags().StringVar(&opts.Key, "key", "", "license key")
	_ = cmd.MarkFlagRequired("telegram-id")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func runActivate(rootOpts *RootOptions, opts *ActivateOptions, cmd *cobra.Command) error {
	if strings.TrimSpace(opts.TelegramID) == "" || strings.TrimSpace(opts.Key) == "" {
		return errors.New("both --telegram-id and --key are required")
	}
	app, err := openApp(rootOpts, true)
	if err != nil {
		return err
	}
	defer app.Close()

	outcome := app.Activator.Activate(cmd.Context(), license.Credential(opts.TelegramID, opts.Key))
	reporter.RenderOutcome(cmd.OutOrStdout(), outcome)
	if !outcome.Valid {
		return ErrRejected
	}
	return nil
}
