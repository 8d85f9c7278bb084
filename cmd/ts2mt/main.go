// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the ts2mt CLI, which converts
// TradeStation bar exports into MetaTrader import files.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/ts2mt/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built from --log-level before any subcommand runs.
var logger = logging.NewNop()

// rootCmd is the base command for the ts2mt CLI.
var rootCmd = &cobra.Command{
	Use:   "ts2mt",
	Short: "Convert TradeStation bar exports to MetaTrader import files",
	Long: `ts2mt rewrites a TradeStation OHLC(V) export as a MetaTrader import file.
Every bar timestamp is moved back one minute and the row is written with the
same columns to <name>_MT.<ext> next to the input.

Conversions are recorded in a local history database; use the history
subcommand to list or export them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.NewLogger(logging.Options{
			Level: logging.ParseLevel(viper.GetString("log.level")),
		})
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./ts2mt.yaml or ~/.config/ts2mt/ts2mt.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "diagnostic log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().String("history-dir", defaultHistoryDir(), "directory for the conversion history database")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("history.dir", rootCmd.PersistentFlags().Lookup("history-dir"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("ts2mt")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "ts2mt"))
		}
	}

	viper.SetEnvPrefix("TS2MT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// defaultHistoryDir is ~/.local/state/ts2mt, or .ts2mt when the home
// directory is unknown.
func defaultHistoryDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ts2mt"
	}
	return filepath.Join(home, ".local", "state", "ts2mt")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
