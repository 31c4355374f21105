package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/0xcro3dile/docanalyzer-go/internal/config"
	"github.com/0xcro3dile/docanalyzer-go/internal/logging"
)

// Version is reported by the version command.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:               "docanalyzer",
	Short:             "Summarize documents and answer questions about them",
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	config.SetDefaults(viper.GetViper())

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./docanalyzer.yaml or $HOME/.docanalyzer/docanalyzer.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-style", "json", "log style (json, console)")
	mustBindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	mustBindPFlag("log.style", rootCmd.PersistentFlags().Lookup("log-style"))
}

func initConfig(cmd *cobra.Command, args []string) error {
	return config.Configure(viper.GetViper(), cfgFile)
}

func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag.Name, err))
	}
}

// loadConfig decodes the merged configuration and builds the logger from it.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(logging.Config{
		Level: cfg.Log.Level,
		Style: logging.Style(cfg.Log.Style),
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
