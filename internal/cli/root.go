package cli

import (
	"github.com/ckpayment/ckmodal/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string
	cfg        *config.Config
	log        *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ckmodal",
	Short: "ckmodal - configure, embed and measure ckPay payment modals",
	Long: `ckmodal manages the payment modals a merchant embeds on their site.
Single Go binary, embedded SQLite, optional Redis for the analytics cache.

Running without a subcommand starts the server (same as 'ckmodal init').`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runInit, // Default action is to start server
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./ckmodal.yaml)")
	rootCmd.PersistentFlags().String("db", "", "database path (default ./ckmodal.db)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("instance", "i", "", "backend instance id (default: the only instance)")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(config.Options{
		ConfigFile: configFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return err
	}
	cfg = loaded
	log = cfg.NewLogger()
	return nil
}
