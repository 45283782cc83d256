package cmd

import (
	"fmt"
	"os"

	"github.com/agentic-research/radar/internal/config"
	"github.com/agentic-research/radar/internal/logger"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string

	cfg *config.Config
	log hclog.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "radar.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
}

var rootCmd = &cobra.Command{
	Use:           "radar",
	Short:         "Radar: static analysis for smart contracts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath, cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		log = logger.New("radar", cfg.Log.Level)
		log.Debug("configuration loaded", "path", configPath, "templates", cfg.Templates.Dir)
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
