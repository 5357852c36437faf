package cli

import (
	"fmt"

	"github.com/ckpayment/ckmodal/internal/controller"
	"github.com/ckpayment/ckmodal/internal/dashboard"
	"github.com/ckpayment/ckmodal/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newAnalyticsCmd())
}

func newAnalyticsCmd() *cobra.Command {
	var (
		rangeFlag string
		asJSON    bool
		refresh   bool
	)

	cmd := &cobra.Command{
		Use:   "analytics <modal-id>",
		Short: "Show analytics for a modal",
		Long: `Show views, conversions, revenue and breakdowns for a modal.

Results are cached for a few minutes; --refresh bypasses the cache.

Examples:
  ckmodal analytics 3f2a... --range 7d
  ckmodal analytics 3f2a... --json > report.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := dashboard.ParseRange(rangeFlag)
			if err != nil {
				return err
			}

			return withController(cmd.Context(), func(c *controller.Controller, _ *store.SQLiteStore) error {
				if _, ok := c.Get(args[0]); !ok {
					return fmt.Errorf("modal '%s' not found", args[0])
				}

				view := dashboard.NewAnalyticsView(c, args[0])
				view.SetRange(rng)
				load := view.Load
				if refresh {
					load = view.Refresh
				}
				if err := load(cmd.Context()); err != nil {
					return err
				}

				if asJSON {
					data, err := view.Export()
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(data))
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), view.Render())
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&rangeFlag, "range", "r", "30d", "date range (7d, 30d, 90d, 1y)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the analytics cache")
	return cmd
}
