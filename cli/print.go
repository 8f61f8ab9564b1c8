package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newPrintCommand(a *app) *cobra.Command {
	var (
		data string
		file string
	)

	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print base64 encoded ESC/POS data or a raw ESC/POS file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (data == "") == (file == "") {
				return errors.New("exactly one of --data or --file is required")
			}

			printer, err := a.printer()
			if err != nil {
				return err
			}

			svc, _, err := a.service()
			if err != nil {
				return err
			}

			if file != "" {
				raw, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("Failed to print: %w", err)
				}
				_, err = svc.PrintBytes(printer, raw)
				if err != nil {
					return err
				}
				a.log.Info().Str("printer", printer).Int("bytes", len(raw)).Msg("job submitted")
				return nil
			}

			if _, err := svc.Print(printer, data); err != nil {
				return err
			}
			a.log.Info().Str("printer", printer).Msg("job submitted")
			return nil
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "base64 encoded ESC/POS payload")
	cmd.Flags().StringVarP(&file, "file", "f", "", "file holding raw ESC/POS bytes")
	return cmd
}
