package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"wiretap/internal/config"
	"wiretap/internal/preflight"
)

type statusCheckJSON struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

type statusJSON struct {
	ConfigPath    string            `json:"config_path"`
	ConfigExists  bool              `json:"config_exists"`
	Backend       string            `json:"backend"`
	Host          string            `json:"host"`
	Address       string            `json:"address,omitempty"`
	Database      string            `json:"database,omitempty"`
	ClientVersion string            `json:"client_version"`
	Checks        []statusCheckJSON `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and connectivity status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			host := ctx.hostname()
			results := preflight.RunAll(cmd.Context(), cfg, host)

			status := statusJSON{
				ConfigPath:    ctx.configPath,
				ConfigExists:  ctx.configSeen,
				Backend:       cfg.Server.Backend,
				Host:          host,
				ClientVersion: cfg.Client.Version,
				Checks:        make([]statusCheckJSON, 0, len(results)),
			}
			if cfg.Server.Backend == config.BackendLocal {
				status.Database = cfg.Gateway.Database
			} else {
				status.Address = cfg.ServerAddress(host)
			}
			for _, result := range results {
				status.Checks = append(status.Checks, statusCheckJSON{Name: result.Name, Passed: result.Passed, Detail: result.Detail})
			}
			return ctx.printResult(cmd, status, func(out io.Writer) error {
				colorize := shouldColorize(out)
				lines := renderSectionHeader("Wiretap", colorize)
				configDetail := status.ConfigPath
				if !status.ConfigExists {
					configDetail += " (not found, defaults used)"
				}
				lines = append(lines,
					renderStatusLine("Config", statusInfo, configDetail, colorize),
					renderStatusLine("Backend", statusInfo, status.Backend, colorize),
					renderStatusLine("Host", statusInfo, host, colorize),
					renderStatusLine("Client Version", statusInfo, status.ClientVersion, colorize),
				)
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Checks", colorize)...)
				lines = append(lines, checkLines(results, colorize)...)
				_, err := fmt.Fprintln(out, strings.Join(lines, "\n"))
				return err
			})
		},
	}
}

func checkLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results)+1)
	failed := preflight.Failed(results)
	switch {
	case len(results) == 0:
		lines = append(lines, renderStatusLine("Summary", statusWarn, "No checks ran", colorize))
	case len(failed) == 0:
		lines = append(lines, renderStatusLine("Summary", statusOK, "All checks passed", colorize))
	default:
		lines = append(lines, renderStatusLine("Summary", statusError, fmt.Sprintf("%d of %d checks failed", len(failed), len(results)), colorize))
	}
	for _, result := range results {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	return lines
}
