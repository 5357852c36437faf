package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var tokenRaw bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Show dashboard URL with access token",
	Long: `Show the dashboard URL with your access token.

Use this when you've scrolled past the startup message or need to
share the dashboard link. --raw prints only the token, for scripts
calling the dashboard API with an Authorization header.

Example:
  ckmodal token
  curl -H "Authorization: Bearer $(ckmodal token --raw)" ...`,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().BoolVar(&tokenRaw, "raw", false, "print only the token")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	token, err := readToken(cfg.TokenFile)
	if err != nil {
		return err
	}

	if tokenRaw {
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Dashboard: %s\n", dashboardURL(cfg.PublicURL, token))
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintln(cmd.OutOrStdout(), "Tip: Bookmark this URL or run 'ckmodal token' anytime.")
	return nil
}

// readToken reads the token the running server wrote at startup.
func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("no server running. Start with: ckmodal serve")
		}
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file is empty. Restart the server with: ckmodal serve")
	}
	return token, nil
}

func dashboardURL(publicURL, token string) string {
	return fmt.Sprintf("%s/dashboard?token=%s", strings.TrimRight(publicURL, "/"), token)
}
