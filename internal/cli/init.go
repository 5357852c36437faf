package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ckpayment/ckmodal/internal/modal"
	"github.com/ckpayment/ckmodal/internal/snippets"
	"github.com/ckpayment/ckmodal/internal/store"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

const placeholderModalID = "YOUR-MODAL-ID"

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Start ckmodal server",
	Long: `Start the ckmodal server and show integration instructions.

The server provides:
  - SDK script at /ckpay.js
  - Beacon endpoint for views and conversions
  - Dashboard for managing modals and reading analytics

Example:
  ckmodal init
  ckmodal init --port 8080`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	// Prompt for framework to show appropriate instructions
	framework, err := promptFramework()
	if err != nil {
		return err
	}

	// Open database
	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	srv, closeCache := newServer(cmd.Context(), s)
	defer closeCache()

	// Print startup message with instructions
	printStartupInstructions(os.Stdout, framework, cfg.Port, cfg.PublicURL, srv.Token())

	// Start server quietly (we printed our own message)
	return srv.StartQuiet()
}

var frameworkLabels = []string{
	"HTML (vanilla JavaScript)",
	"React / Next.js",
	"Vue / Nuxt",
}

func promptFramework() (snippets.Framework, error) {
	prompt := promptui.Select{
		Label: "Your framework",
		Items: frameworkLabels,
		Size:  len(frameworkLabels),
	}

	idx, _, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			os.Exit(0)
		}
		return "", err
	}

	return frameworkFromIndex(idx), nil
}

func frameworkFromIndex(idx int) snippets.Framework {
	if idx < 0 || idx >= len(snippets.Frameworks) {
		return snippets.FrameworkHTML
	}
	return snippets.Frameworks[idx]
}

func printStartupInstructions(w io.Writer, framework snippets.Framework, port int, publicURL, token string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Server running at http://localhost:%d\n", port)
	fmt.Fprintf(w, "Dashboard: http://localhost:%d/dashboard?token=%s\n", port, token)
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintln(w)

	// Step 1: Instance
	fmt.Fprintln(w, "1. Register your payment instance and its tokens")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "   ckmodal instances add main --tokens ICP,ckBTC,ckETH")
	fmt.Fprintln(w)

	// Step 2: Modal
	fmt.Fprintln(w, "2. Create a modal")
	fmt.Fprintln(w)
	fmt.Fprintln(w, `   ckmodal create --name Checkout --company "Acme" --tokens ICP`)
	fmt.Fprintln(w)

	// Step 3: Embed
	fmt.Fprintln(w, "3. Paste the embed code into your site")
	fmt.Fprintln(w)
	printFrameworkSnippet(w, framework, publicURL)
	fmt.Fprintln(w)

	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  list               List modals")
	fmt.Fprintln(w, "  embed <id>         Show embed code")
	fmt.Fprintln(w, "  analytics <id>     Show modal analytics")
	fmt.Fprintln(w, "  token              Show dashboard URL")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Press Ctrl+C to stop")
}

// printFrameworkSnippet prints the embed code for a placeholder modal,
// loading the SDK from this server.
func printFrameworkSnippet(w io.Writer, framework snippets.Framework, serverURL string) {
	placeholder := modal.Config{ID: placeholderModalID}
	opts := snippets.EmbedOptions{SDKURL: strings.TrimRight(serverURL, "/") + "/ckpay.js"}

	files, err := snippets.Generate(framework, placeholder, opts)
	if err != nil {
		fmt.Fprintf(w, "   (could not render snippet: %v)\n", err)
		return
	}
	for _, f := range files {
		fmt.Fprintf(w, "   %s\n\n", f.Filename)
		for _, line := range strings.Split(strings.TrimRight(f.Content, "\n"), "\n") {
			fmt.Fprintf(w, "   %s\n", line)
		}
		fmt.Fprintln(w)
	}
}
