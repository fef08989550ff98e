package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeServer()
	c.normalizeClient()
	if err := c.normalizeGateway(); err != nil {
		return err
	}
	c.normalizeProject()
	return c.normalizeLogging()
}

func (c *Config) normalizeServer() {
	if value, ok := os.LookupEnv(serverEnvVar); ok && strings.TrimSpace(value) != "" {
		c.Server.Host = strings.TrimSpace(value)
	}
	c.Server.Host = strings.TrimSpace(c.Server.Host)
	if c.Server.Host == "" {
		c.Server.Host = defaultServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultServerPort
	}
	c.Server.Backend = strings.ToLower(strings.TrimSpace(c.Server.Backend))
	if c.Server.Backend == "" {
		c.Server.Backend = defaultBackend
	}
	if c.Server.TimeoutSeconds <= 0 {
		c.Server.TimeoutSeconds = defaultTimeoutSeconds
	}
}

func (c *Config) normalizeClient() {
	c.Client.Version = strings.TrimSpace(c.Client.Version)
	if c.Client.Version == "" {
		if value, ok := os.LookupEnv(versionEnvVar); ok {
			c.Client.Version = strings.TrimSpace(value)
		}
	}
	if c.Client.Version == "" {
		c.Client.Version = defaultClientVersion
	}
}

func (c *Config) normalizeGateway() error {
	var err error
	c.Gateway.Listen = strings.TrimSpace(c.Gateway.Listen)
	if c.Gateway.Listen == "" {
		c.Gateway.Listen = defaultGatewayListen
	}
	if strings.TrimSpace(c.Gateway.Database) == "" {
		c.Gateway.Database = defaultGatewayDatabase
	}
	if c.Gateway.Database, err = expandPath(c.Gateway.Database); err != nil {
		return fmt.Errorf("gateway.database: %w", err)
	}
	if strings.TrimSpace(c.Gateway.LockFile) == "" {
		c.Gateway.LockFile = c.Gateway.Database + lockFileSuffix
	}
	if c.Gateway.LockFile, err = expandPath(c.Gateway.LockFile); err != nil {
		return fmt.Errorf("gateway.lock_file: %w", err)
	}
	c.Gateway.Volumes = dedupeTrimmed(c.Gateway.Volumes)
	c.Gateway.LibraryLists = dedupeTrimmed(c.Gateway.LibraryLists)
	c.Gateway.SupportedVersions = dedupeTrimmed(c.Gateway.SupportedVersions)
	if len(c.Gateway.SupportedVersions) == 0 {
		c.Gateway.SupportedVersions = []string{defaultClientVersion}
	}
	return nil
}

func (c *Config) normalizeProject() {
	fill := func(value *string, fallback string) {
		*value = strings.TrimSpace(*value)
		if *value == "" {
			*value = fallback
		}
	}
	fill(&c.Project.Width, defaultProjectWidth)
	fill(&c.Project.Height, defaultProjectHeight)
	fill(&c.Project.FPS, defaultProjectFPS)
	fill(&c.Project.Aspect, defaultProjectAspect)
	fill(&c.Project.Depth, defaultProjectDepth)
	c.Project.FieldDominance = strings.ToUpper(strings.TrimSpace(c.Project.FieldDominance))
	if c.Project.FieldDominance == "" {
		c.Project.FieldDominance = defaultProjectField
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.File) != "" {
		expanded, err := expandPath(strings.TrimSpace(c.Logging.File))
		if err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
		c.Logging.File = expanded
	}
	return nil
}

func dedupeTrimmed(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
