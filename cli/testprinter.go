package cli

import (
	"github.com/spf13/cobra"
)

func newTestCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Print the self-test page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printer, err := a.printer()
			if err != nil {
				return err
			}

			svc, _, err := a.service()
			if err != nil {
				return err
			}

			if _, err := svc.TestPrinter(printer); err != nil {
				return err
			}
			a.log.Info().Str("printer", printer).Msg("test page submitted")
			return nil
		},
	}
}
