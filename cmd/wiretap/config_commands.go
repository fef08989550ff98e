package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"wiretap/internal/config"
)

type configReport struct {
	Path           string `json:"path"`
	Exists         bool   `json:"exists"`
	Backend        string `json:"backend"`
	Host           string `json:"host"`
	Address        string `json:"address,omitempty"`
	Database       string `json:"database,omitempty"`
	DatabaseExists bool   `json:"database_exists"`
	ClientVersion  string `json:"client_version"`
}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Write or check the wiretap configuration file",
	}
	configCmd.AddCommand(
		newConfigInitCommand(),
		newConfigValidateCommand(ctx),
	)
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigLoad: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := configInitTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				_, statErr := os.Stat(target)
				switch {
				case statErr == nil:
					return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
				case !errors.Is(statErr, fs.ErrNotExist):
					return fmt.Errorf("inspect %s: %w", target, statErr)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(cmd.OutOrStdout(), "Set [server] host and backend before pointing wiretap at a Flame host.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Where to write the file (default: the standard config location)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func configInitTarget(flagValue string) (string, error) {
	if value := strings.TrimSpace(flagValue); value != "" {
		target, err := config.ExpandPath(value)
		if err != nil {
			return "", fmt.Errorf("--path: %w", err)
		}
		return target, nil
	}
	target, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("locate default config: %w", err)
	}
	return target, nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and report what wiretap will use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			host := ctx.hostname()
			report := configReport{
				Path:          ctx.configPath,
				Exists:        ctx.configSeen,
				Backend:       cfg.Server.Backend,
				Host:          host,
				ClientVersion: cfg.Client.Version,
			}
			if cfg.Server.Backend == config.BackendLocal {
				report.Database = cfg.Gateway.Database
				report.DatabaseExists = fileExists(cfg.Gateway.Database)
			} else {
				report.Address = cfg.ServerAddress(host)
			}
			return ctx.printResult(cmd, report, func(out io.Writer) error {
				fmt.Fprintf(out, "Config path: %s\n", report.Path)
				if !report.Exists {
					fmt.Fprintln(out, "No config file found; built-in defaults apply")
				}
				fmt.Fprintf(out, "Backend: %s\n", report.Backend)
				if report.Database != "" {
					fmt.Fprintf(out, "Node database: %s (exists: %s)\n", report.Database, yesNo(report.DatabaseExists))
				} else {
					fmt.Fprintf(out, "Gateway: %s\n", report.Address)
				}
				fmt.Fprintf(out, "Client version: %s\n", report.ClientVersion)
				fmt.Fprintln(out, "Configuration valid")
				return nil
			})
		},
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
