package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"wiretap/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose node database and lock file live in a
// unique temp directory per test. The gateway listens on an ephemeral port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Gateway.Database = filepath.Join(base, "data", "nodes.db")
	cfgVal.Gateway.LockFile = filepath.Join(base, "data", "nodes.db.lock")
	cfgVal.Gateway.Listen = "127.0.0.1:0"
	cfgVal.Client.Version = "2018.3"
	cfgVal.Server.Backend = config.BackendLocal
	cfgVal.Server.TimeoutSeconds = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithVolumes replaces the volumes seeded into the node store.
func WithVolumes(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Gateway.Volumes = append([]string(nil), names...)
	}
}

// WithLibraryLists replaces the library lists new workspaces receive.
func WithLibraryLists(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Gateway.LibraryLists = append([]string(nil), names...)
	}
}

// WithBackend selects the CLI backend.
func WithBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.Backend = backend
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(filepath.Dir(cfg.Gateway.Database))
}

// WriteConfig encodes cfg as TOML at path so commands can load it with
// --config.
func WriteConfig(t testing.TB, path string, cfg *config.Config) {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	WriteFile(t, path, string(data))
}
