package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"keepa-tools/internal/app"
	"keepa-tools/internal/config"
	"keepa-tools/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	appHandle *app.App
)

var rootCmd = &cobra.Command{
	Use:           "keepa-tools",
	Short:         "Query and analyse marketplace data through the Keepa API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appHandle != nil {
			return nil
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger := logging.NewLogger(cfg.Logging)
		appHandle = app.NewApp(cfg, logger)
		appHandle.Out = cmd.OutOrStdout()
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level defined in config")

	rootCmd.AddCommand(productCmd)
	rootCmd.AddCommand(dealsCmd)
	rootCmd.AddCommand(sellerCmd)
	rootCmd.AddCommand(bestSellersCmd)
	rootCmd.AddCommand(finderCmd)
	rootCmd.AddCommand(categoryCmd)
	rootCmd.AddCommand(categoryAnalysisCmd)
	rootCmd.AddCommand(velocityCmd)
	rootCmd.AddCommand(inventoryCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(versionCmd)
}

func getApp() *app.App {
	if appHandle == nil {
		panic("application not initialized; PersistentPreRunE not executed")
	}
	return appHandle
}
