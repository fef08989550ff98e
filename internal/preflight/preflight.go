package preflight

import (
	"context"
	"path/filepath"

	"wiretap/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks that apply to the configured backend for
// hostname.
func RunAll(ctx context.Context, cfg *config.Config, hostname string) []Result {
	if cfg == nil {
		return nil
	}
	if cfg.Server.Backend == config.BackendLocal {
		return GatewayChecks(cfg)
	}
	return []Result{CheckGateway(ctx, cfg, hostname)}
}

// GatewayChecks covers what wiretapd and the local backend need on disk: a
// writable directory for the node database and for its lock file.
func GatewayChecks(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	dbDir := filepath.Dir(cfg.Gateway.Database)
	results := []Result{CheckDirectoryAccess("Database directory", dbDir)}
	if lockDir := filepath.Dir(cfg.Gateway.LockFile); cfg.Gateway.LockFile != "" && lockDir != dbDir {
		results = append(results, CheckDirectoryAccess("Lock directory", lockDir))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
