package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"wiretap/internal/config"
	"wiretap/internal/gateway"
	"wiretap/internal/logging"
)

type gatewayFlags struct {
	configPath string
	listen     string
	database   string
}

func newRootCommand() *cobra.Command {
	var flags gatewayFlags

	cmd := &cobra.Command{
		Use:   "wiretapd",
		Short: "Wiretap node-tree gateway",
		Long: heredoc.Doc(`
			Serve the node database to wiretap clients over JSON-RPC.

			The gateway registers the configured volumes on startup, holds an
			exclusive lock next to the database, and runs until interrupted.
		`),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&flags.listen, "listen", "", "Listen address, host:port or unix:<path> (default: gateway.listen)")
	cmd.Flags().StringVar(&flags.database, "db", "", "Node database path (default: gateway.database)")
	return cmd
}

// loadConfig reads the configuration and applies command-line overrides. A
// --db override also moves the default lock file next to the new database.
func loadConfig(flags gatewayFlags) (*config.Config, error) {
	cfg, _, _, err := config.Load(strings.TrimSpace(flags.configPath))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if listen := strings.TrimSpace(flags.listen); listen != "" {
		cfg.Gateway.Listen = listen
	}
	if db := strings.TrimSpace(flags.database); db != "" {
		expanded, err := config.ExpandPath(db)
		if err != nil {
			return nil, fmt.Errorf("--db: %w", err)
		}
		cfg.Gateway.Database = expanded
		cfg.Gateway.LockFile = expanded + ".lock"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	d, err := gateway.New(cfg, logger)
	if err != nil {
		return err
	}
	return d.Run(ctx)
}
