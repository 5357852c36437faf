package cli

import (
	"encoding/json"
	"fmt"

	"github.com/ckpayment/ckmodal/internal/controller"
	"github.com/ckpayment/ckmodal/internal/dashboard"
	"github.com/ckpayment/ckmodal/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newListCmd())
}

func newListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List payment modals",
		Long:  `List the instance's payment modals with their status and lifetime statistics.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd.Context(), func(c *controller.Controller, _ *store.SQLiteStore) error {
				view := dashboard.NewListView(c)
				view.LoadStats(cmd.Context())

				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(view.Cards())
				}

				fmt.Fprint(cmd.OutOrStdout(), view.Render())
				if len(c.Modals()) == 0 {
					fmt.Fprintln(cmd.OutOrStdout())
					fmt.Fprintln(cmd.OutOrStdout(), `Create one with: ckmodal create --name Checkout --company "Acme" --tokens ICP`)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the cards as JSON")
	return cmd
}
