// Package main is the entry point for the boxskill CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/okian/boxskill/internal/config"
	"github.com/okian/boxskill/pkg/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the boxskill CLI.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boxskill",
		Short: "Box skill that tags Word documents with Watson NLU concepts and keywords",
		Long: `boxskill downloads a .docx uploaded to Box, extracts its text, asks Watson
Natural Language Understanding for concepts and keywords and writes them back
to the file as Box skill cards.

Run it as an HTTP action (serve) or once for a single payload (invoke).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			return loadEnvFile(envFile)
		},
	}
	cmd.PersistentFlags().String("config", "", "config file (default: $"+config.PathEnv+" or "+config.DefaultPath+")")
	cmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the config; missing files are ignored")

	cmd.AddCommand(newServeCmd(), newInvokeCmd(), newVersionCmd())
	return cmd
}

// loadEnvFile loads KEY=VALUE pairs without overriding the environment.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// setup loads configuration and initializes the global logger from it.
func setup(ctx context.Context, configPath string) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return nil, nil, err
	}

	opts := []logger.Option{logger.WithFormat(cfg.LogFormat), logger.WithOutput(os.Stderr)}
	if cfg.LogFile != "" {
		opts = append(opts, logger.WithFile(cfg.LogFile))
	}
	if err := logger.Init(opts...); err != nil {
		return nil, nil, fmt.Errorf("initialize logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
