package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/ckpayment/ckmodal/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	tokensCmd := &cobra.Command{
		Use:   "tokens",
		Short: "Show or change the tokens an instance accepts",
	}
	tokensCmd.AddCommand(newTokensListCmd(), newTokensSetCmd())
	rootCmd.AddCommand(tokensCmd)
}

func newTokensListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the instance's tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				instanceID, err := resolveInstance(cmd.Context(), s, cfg.Instance)
				if err != nil {
					return err
				}
				tokens, err := s.ListTokens(cmd.Context(), instanceID)
				if err != nil {
					return fmt.Errorf("failed to list tokens: %w", err)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "SYMBOL\tSTATUS")
				for _, t := range tokens {
					status := "active"
					if !t.IsActive {
						status = "inactive"
					}
					fmt.Fprintf(w, "%s\t%s\n", t.Symbol, status)
				}
				return w.Flush()
			})
		},
	}
}

func newTokensSetCmd() *cobra.Command {
	var inactive bool

	cmd := &cobra.Command{
		Use:   "set <symbol>",
		Short: "Add a token or change whether it is accepted",
		Long: `Add a token to the instance or switch it on or off.

Modals that list an inactive token fail validation on their next save.

Examples:
  ckmodal tokens set ckUSDC
  ckmodal tokens set ckBTC --inactive`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				instanceID, err := resolveInstance(cmd.Context(), s, cfg.Instance)
				if err != nil {
					return err
				}
				if err := s.SetToken(cmd.Context(), instanceID, args[0], !inactive); err != nil {
					return fmt.Errorf("failed to set token: %w", err)
				}

				state := "accepted"
				if inactive {
					state = "no longer accepted"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is %s on '%s'\n", args[0], state, instanceID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&inactive, "inactive", false, "stop accepting the token")
	return cmd
}
