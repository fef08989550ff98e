package config

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateGateway(); err != nil {
		return err
	}
	if err := c.Project.Validate(); err != nil {
		return fmt.Errorf("project: %w", err)
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.Backend {
	case BackendGateway, BackendLocal:
	default:
		return fmt.Errorf("server.backend must be %q or %q, got %q", BackendGateway, BackendLocal, c.Server.Backend)
	}
	return nil
}

func (c *Config) validateGateway() error {
	if _, _, err := net.SplitHostPort(c.Gateway.Listen); err != nil && !strings.HasPrefix(c.Gateway.Listen, "unix:") {
		return fmt.Errorf("gateway.listen must be host:port or unix:<path>: %w", err)
	}
	for _, name := range c.Gateway.Volumes {
		if strings.Contains(name, "/") {
			return fmt.Errorf("gateway.volumes: %q must not contain '/'", name)
		}
	}
	for _, name := range c.Gateway.LibraryLists {
		if strings.Contains(name, "/") {
			return fmt.Errorf("gateway.library_lists: %q must not contain '/'", name)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

// Validate checks project settings the way create-project accepts them.
func (p Project) Validate() error {
	if err := positiveNumber("width", p.Width, true); err != nil {
		return err
	}
	if err := positiveNumber("height", p.Height, true); err != nil {
		return err
	}
	if err := positiveNumber("fps", p.FPS, false); err != nil {
		return err
	}
	if err := positiveNumber("aspect", p.Aspect, false); err != nil {
		return err
	}
	if !slices.Contains(FieldDominanceChoices, p.FieldDominance) {
		return fmt.Errorf("field must be one of %s, got %q", strings.Join(FieldDominanceChoices, ", "), p.FieldDominance)
	}
	if !slices.Contains(DepthChoices, p.Depth) {
		return fmt.Errorf("depth must be one of %s, got %q", strings.Join(DepthChoices, ", "), p.Depth)
	}
	return nil
}

func positiveNumber(name, value string, integer bool) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%s must be set", name)
	}
	if integer {
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer, got %q", name, value)
		}
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%s must be a number, got %q", name, value)
	}
	if f <= 0 {
		return errors.New(name + " must be greater than zero")
	}
	return nil
}
