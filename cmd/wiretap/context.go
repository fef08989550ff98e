package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"wiretap/internal/config"
	"wiretap/internal/ipc"
	"wiretap/internal/logging"
	"wiretap/internal/nodestore"
	"wiretap/internal/wiretap"
)

type commandContext struct {
	serverFlag  *string
	configFlag  *string
	backendFlag *string
	jsonFlag    *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(serverFlag, configFlag, backendFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		serverFlag:  serverFlag,
		configFlag:  configFlag,
		backendFlag: backendFlag,
		jsonFlag:    jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.backendFlag != nil {
			if backend := strings.ToLower(strings.TrimSpace(*c.backendFlag)); backend != "" {
				cfg.Server.Backend = backend
				if err := cfg.Validate(); err != nil {
					c.configErr = fmt.Errorf("--backend: %w", err)
					return
				}
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configSeen = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) loggerValue() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// hostname returns --server when given, otherwise the configured host.
func (c *commandContext) hostname() string {
	if c.serverFlag != nil {
		if host := strings.TrimSpace(*c.serverFlag); host != "" {
			return host
		}
	}
	if c.config != nil {
		return c.config.Server.Host
	}
	return wiretap.DefaultHostname
}

// binding selects the transport for the configured backend.
func (c *commandContext) binding(cfg *config.Config, logger *slog.Logger) wiretap.Binding {
	if cfg.Server.Backend == config.BackendLocal {
		return newLocalBinding(cfg, logger)
	}
	return ipc.NewBinding(cfg, logger)
}

func newLocalBinding(cfg *config.Config, logger *slog.Logger) *wiretap.PathBinding {
	logger = logging.NewComponentLogger(logger, "nodestore")
	return wiretap.NewPathBinding(func(ctx context.Context, hostname string) (wiretap.PathBackend, error) {
		logger.Info("using wiretap client version",
			logging.String("version", cfg.Client.Version),
			logging.String(logging.FieldHost, hostname),
			logging.String("database", cfg.Gateway.Database))
		return nodestore.OpenFromConfig(ctx, cfg)
	})
}

// withHandler opens a session against the selected host, runs fn, and closes
// the session on every path.
func (c *commandContext) withHandler(cmd *cobra.Command, fn func(context.Context, *wiretap.Handler) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.loggerValue()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	handler, err := wiretap.NewHandler(ctx, c.binding(cfg, logger), c.hostname(), wiretap.WithLogger(logger))
	if err != nil {
		return err
	}
	defer handler.Close()
	return fn(ctx, handler)
}

// skipConfigLoad marks commands that must run without a loadable config.
const skipConfigLoad = "skipConfigLoad"

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations[skipConfigLoad] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
