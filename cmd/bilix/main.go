package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bilix/bilix/internal/config"
	"github.com/bilix/bilix/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "bilix",
		Short: "Bilix invoice books from the command line",
		Long: `bilix runs financial reports over a user's invoices, uploads invoice
attachments and extracts them into invoices.

Settings come from the environment (the same keys as the API server, or
BILIX_-prefixed), an optional config file and flags.`,
		SilenceUsage: true,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/bilix/config.yaml)")
	rootCmd.PersistentFlags().String("store", "", "store driver (bigquery, sqlite)")
	rootCmd.PersistentFlags().String("sqlite-path", "", "SQLite database path")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (console, json)")

	// Bind flags to viper
	_ = viper.BindPFlag("store_driver", rootCmd.PersistentFlags().Lookup("store"))
	_ = viper.BindPFlag("sqlite_path", rootCmd.PersistentFlags().Lookup("sqlite-path"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(uploadCmd())
	rootCmd.AddCommand(extractCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup reads the configuration and builds the logger for a command.
func setup(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home + "/.config/bilix")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, zerolog.Nop(), fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	log, err := logger.NewFromConfig(cfg.GetLoggerConfig(), cmd.ErrOrStderr())
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, log, nil
}
