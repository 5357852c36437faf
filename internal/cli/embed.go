package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ckpayment/ckmodal/internal/controller"
	"github.com/ckpayment/ckmodal/internal/snippets"
	"github.com/ckpayment/ckmodal/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newEmbedCmd(), newPreviewCmd())
}

func newEmbedCmd() *cobra.Command {
	var framework string

	cmd := &cobra.Command{
		Use:   "embed <modal-id>",
		Short: "Generate embed code for a modal",
		Long: `Generate copy-paste-ready code that loads the SDK and opens the modal.

Without --framework you are asked to pick one.

Examples:
  ckmodal embed 3f2a... --framework react
  ckmodal embed 3f2a... -f html > checkout.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				fw  snippets.Framework
				err error
			)
			if framework == "" {
				fw, err = promptFramework()
			} else {
				fw, err = snippets.ParseFramework(framework)
			}
			if err != nil {
				return err
			}

			return withController(cmd.Context(), func(c *controller.Controller, _ *store.SQLiteStore) error {
				files, err := c.GenerateSnippet(args[0], fw)
				if err != nil {
					return err
				}
				printSnippets(cmd.OutOrStdout(), files)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&framework, "framework", "f", "", "framework (html, react, vue)")
	return cmd
}

func printSnippets(w io.Writer, files []snippets.SnippetFile) {
	if len(files) == 1 {
		fmt.Fprint(w, files[0].Content)
		return
	}
	for i, file := range files {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, strings.Repeat("=", 62))
		fmt.Fprintf(w, " %s\n", file.Filename)
		fmt.Fprintln(w, strings.Repeat("=", 62))
		fmt.Fprintln(w)
		fmt.Fprintln(w, file.Content)
	}
}

func newPreviewCmd() *cobra.Command {
	var (
		viewport string
		out      string
	)

	cmd := &cobra.Command{
		Use:   "preview <modal-id>",
		Short: "Render a static HTML preview of a modal",
		Long: `Render the modal as a standalone HTML page for a viewport.

Examples:
  ckmodal preview 3f2a... --viewport mobile --out preview.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vp, err := snippets.ParseViewport(viewport)
			if err != nil {
				return err
			}

			return withController(cmd.Context(), func(c *controller.Controller, _ *store.SQLiteStore) error {
				page, err := c.Preview(args[0], vp)
				if err != nil {
					return err
				}
				if out == "" {
					fmt.Fprint(cmd.OutOrStdout(), page)
					return nil
				}
				if err := os.WriteFile(out, []byte(page), 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", out, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s preview to %s\n", vp, out)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&viewport, "viewport", "desktop", "viewport (desktop, tablet, mobile)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the page to a file instead of stdout")
	return cmd
}
