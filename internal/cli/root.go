package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"saa-question-importer/internal/config"
)

var (
	configPath string
	cfg        config.Config
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	explicitEnv := envConfig != ""
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:          "saa-importer",
		Short:        "Import the AWS SAA-C03 exam dump into a structured question bank",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			// only the implicit default path may be absent
			if explicitEnv || cmd.Flags().Changed("config") {
				cfg, err = config.Load(configPath)
			} else {
				cfg, err = config.LoadOptional(configPath)
			}
			if err != nil {
				return fmt.Errorf("load config %s: %w", configPath, err)
			}
			return setupLogger(cfg)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.AddCommand(NewImportCmd(&cfg))
	cmd.AddCommand(NewServeCmd(&cfg))
	cmd.AddCommand(NewMigrateCmd(&cfg))
	cmd.AddCommand(NewValidateCmd(&cfg))
	return cmd
}

func setupLogger(cfg config.Config) error {
	var level slog.Level
	if cfg.Log.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
			return fmt.Errorf("log level: %w", err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "", "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unknown log format %q", cfg.Log.Format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
