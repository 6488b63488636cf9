package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/compose-network/checkpoint-monitor/configs"
	"github.com/compose-network/checkpoint-monitor/internal/cli"
	"github.com/compose-network/checkpoint-monitor/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	appName   = "checkpoint-monitor"
	envPrefix = "CHECKPOINT_MONITOR"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "Monitor cross-layer checkpoints of L1/L2 chain pairs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}

		level, err := logger.ParseLevel(configs.Values.Log.Level)
		if err != nil {
			return err
		}
		// stdout carries command output, so logs go to stderr.
		logger.InitializeWriter(os.Stderr, level)

		slog.With("config_file", viper.ConfigFileUsed()).Debug("configuration loaded")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file merged over the built-in defaults")
	cli.DeclarePersistentFlags(rootCmd.PersistentFlags())
}

func loadConfig() error {
	v := viper.GetViper()
	if err := configs.ReadDefaults(v); err != nil {
		return err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		if execPath, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(execPath))
		}
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	// Without --config a missing file is fine: the embedded defaults cover every key.
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(&configs.Values); err != nil {
		return fmt.Errorf("unable to decode application config: %w", err)
	}
	configs.Values.ExpandEnv()

	return configs.Values.Validate()
}

func main() {
	rootCmd.AddCommand(cli.Commands...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.With("err", err.Error()).Error("failed to execute root command")
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
