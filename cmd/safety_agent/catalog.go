package main

import (
	"github.com/spf13/cobra"

	"github.com/ragcon/safety-assistant/internal/types"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List selectable work items and equipment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, map[string]any{
					"work_items":  types.WorkItems,
					"equipment":   types.EquipmentItems,
					"risk_values": types.RiskValues,
				})
			}
			opts.printer(out).PrintCatalog()
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the catalog as JSON")
	return cmd
}
