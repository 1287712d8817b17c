package cmd

import (
	"context"

	"github.com/michaelpento.lv/arbbot/config"
	"github.com/michaelpento.lv/arbbot/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configDir string
	network   string
	logFile   string
	debug     bool
)

var rootCmd = &cobra.Command{
	Use:   "arbbot",
	Short: "A dual-DEX arbitrage bot",
	Long: `A bot that cycles through two-leg routes across a pair of DEX routers,
simulates each trade against the arbitrage contract and executes it when the
expected return clears the configured basis-point threshold.`,
	SilenceUsage: true,
}

// ExecuteContext runs the root command. Long-running commands stop when ctx is done.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", config.DefaultConfigDir, "directory holding <network>.json config files")
	rootCmd.PersistentFlags().StringVar(&network, "network", "", "network to load (default $NETWORK or "+config.DefaultNetwork+")")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", utils.DefaultLogFile, "file receiving a copy of the log; empty disables it")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func initConfig() {
	log := utils.InitLogger(utils.LoggerConfig{Debug: debug, File: logFile})
	if err := config.LoadEnv(); err != nil {
		log.Debug("No .env file loaded", zap.Error(err))
	}
}
