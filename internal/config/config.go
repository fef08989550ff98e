package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server selects the host and transport the CLI talks to.
type Server struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Backend        string `toml:"backend"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Client contains client library settings.
type Client struct {
	// Version selects the client library version. Falls back to the
	// WIRETAP_VERSION environment variable, then to 2018.3.
	Version string `toml:"version"`
}

// Gateway contains configuration for the wiretapd node-tree gateway and the
// local node store.
type Gateway struct {
	Listen            string   `toml:"listen"`
	Database          string   `toml:"database"`
	LockFile          string   `toml:"lock_file"`
	Volumes           []string `toml:"volumes"`
	LibraryLists      []string `toml:"library_lists"`
	SupportedVersions []string `toml:"supported_versions"`
}

// Project contains the defaults create-project applies when a flag is not
// given on the command line.
type Project struct {
	Width          string `toml:"width"`
	Height         string `toml:"height"`
	FPS            string `toml:"fps"`
	Aspect         string `toml:"aspect"`
	FieldDominance string `toml:"field"`
	Depth          string `toml:"depth"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for the wiretap CLI and the
// wiretapd gateway.
//
// Configuration sections:
//   - Server: host, port, and backend the CLI connects to
//   - Client: client library version selection
//   - Gateway: wiretapd listen address, node database, and seeding
//   - Project: create-project defaults
//   - Logging: log format, level, and optional file
type Config struct {
	Server  Server  `toml:"server"`
	Client  Client  `toml:"client"`
	Gateway Gateway `toml:"gateway"`
	Project Project `toml:"project"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("wiretap.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the node store and log file live in.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Gateway.Database)}
	if c.Logging.File != "" {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ServerAddress returns host:port for a hostname, keeping an explicit port
// when hostname already carries one.
func (c *Config) ServerAddress(hostname string) string {
	hostname = strings.TrimSpace(hostname)
	if hostname == "" {
		hostname = c.Server.Host
	}
	if _, _, err := net.SplitHostPort(hostname); err == nil {
		return hostname
	}
	return net.JoinHostPort(hostname, strconv.Itoa(c.Server.Port))
}

// Timeout returns the per-call timeout applied to gateway requests.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
