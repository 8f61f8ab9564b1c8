package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newPrintersCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "printers",
		Aliases: []string{"list"},
		Short:   "List installed printers",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := a.service()
			if err != nil {
				return err
			}

			infos, err := svc.ListPrinters()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			for _, info := range infos {
				fmt.Fprintln(out, info.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the list as JSON")
	return cmd
}
