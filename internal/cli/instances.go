package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/ckpayment/ckmodal/internal/store"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	instancesCmd := &cobra.Command{
		Use:   "instances",
		Short: "Manage backend payment instances",
	}
	instancesCmd.AddCommand(newInstancesAddCmd(), newInstancesListCmd())
	rootCmd.AddCommand(instancesCmd)
}

func newInstancesAddCmd() *cobra.Command {
	var (
		name   string
		tokens string
	)

	cmd := &cobra.Command{
		Use:   "add [id]",
		Short: "Register a payment instance",
		Long: `Register a payment instance and the tokens it accepts.

Without an id a random one is generated. Without --tokens the configured
default tokens are used.

Examples:
  ckmodal instances add main --name "Main shop" --tokens ICP,ckBTC
  ckmodal instances add`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}

			tokenList := cfg.DefaultTokens
			if tokens != "" {
				tokenList = splitCSV(tokens)
			}

			return withStore(func(s *store.SQLiteStore) error {
				inst, err := s.CreateInstance(cmd.Context(), id, name, tokenList)
				if err != nil {
					return fmt.Errorf("failed to create instance: %w", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Created instance '%s' accepting %s\n", inst.ID, strings.Join(tokenList, ", "))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&tokens, "tokens", "", "comma-separated token symbols")
	return cmd
}

func newInstancesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List payment instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(s *store.SQLiteStore) error {
				instances, err := s.ListInstances(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list instances: %w", err)
				}

				if len(instances) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No instances yet. Create one with: ckmodal instances add <id>")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tTOKENS\tCREATED")
				for _, inst := range instances {
					tokens, err := s.ListTokens(cmd.Context(), inst.ID)
					if err != nil {
						return fmt.Errorf("failed to list tokens for %s: %w", inst.ID, err)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", inst.ID, inst.Name, formatTokens(tokens), humanize.Time(inst.CreatedAt))
				}
				return w.Flush()
			})
		},
	}
}

func formatTokens(tokens []store.Token) string {
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.IsActive {
			parts = append(parts, t.Symbol)
		} else {
			parts = append(parts, t.Symbol+" (off)")
		}
	}
	return strings.Join(parts, ", ")
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
