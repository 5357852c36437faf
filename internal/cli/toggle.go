package cli

import (
	"fmt"

	"github.com/ckpayment/ckmodal/internal/controller"
	"github.com/ckpayment/ckmodal/internal/dashboard"
	"github.com/ckpayment/ckmodal/internal/modal"
	"github.com/ckpayment/ckmodal/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newToggleCmd(), newDeleteCmd())
}

func newToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <modal-id>",
		Short: "Activate or deactivate a modal",
		Long: `Flip a modal between active and inactive.

Inactive modals stay in the list but embedding pages can no longer load them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd.Context(), func(c *controller.Controller, _ *store.SQLiteStore) error {
				view := dashboard.NewListView(c)
				if err := view.Toggle(cmd.Context(), args[0]); err != nil {
					return err
				}

				m, _ := c.Get(args[0])
				state := "inactive"
				if m.IsActive {
					state = "active"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Modal '%s' is now %s\n", m.Name, state)
				return nil
			})
		},
	}
}

func newDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <modal-id>",
		Short: "Delete a modal and its analytics",
		Long: `Delete a modal permanently. Asks for confirmation unless --yes is given.

Example:
  ckmodal delete 3f2a... --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd.Context(), func(c *controller.Controller, _ *store.SQLiteStore) error {
				view := dashboard.NewListView(c)
				if err := view.RequestDelete(args[0]); err != nil {
					return err
				}

				m, _ := c.Get(args[0])
				if !yes {
					ok, err := confirm(fmt.Sprintf("Delete modal '%s'", m.Name))
					if err != nil {
						return err
					}
					if !ok {
						view.CancelDelete()
						fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
						return nil
					}
				}

				if err := view.ConfirmDelete(cmd.Context()); err != nil {
					if modal.IsNotFound(err) {
						fmt.Fprintf(cmd.OutOrStdout(), "Modal '%s' was already gone\n", args[0])
						return nil
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted modal '%s'\n", m.Name)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
