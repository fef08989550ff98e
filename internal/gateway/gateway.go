package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"wiretap/internal/config"
	"wiretap/internal/ipc"
	"wiretap/internal/logging"
	"wiretap/internal/nodestore"
	"wiretap/internal/preflight"
)

// ErrAlreadyRunning reports that another gateway holds the lock file.
var ErrAlreadyRunning = errors.New("another wiretapd instance is already running")

// Daemon serves the node store and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	mu     sync.Mutex
	store  *nodestore.Store
	server *ipc.Server

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents gateway runtime information.
type Status struct {
	Running      bool
	Address      string
	DatabasePath string
	LockFilePath string
}

// New constructs a gateway for cfg.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("gateway requires config")
	}
	lockPath := strings.TrimSpace(cfg.Gateway.LockFile)
	if lockPath == "" {
		return nil, errors.New("gateway lock_file is required")
	}
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "gateway"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the lock, opens the node store, and begins serving on the
// configured listen address.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("gateway already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}
	if failed := preflight.Failed(preflight.GatewayChecks(d.cfg)); len(failed) > 0 {
		return fmt.Errorf("preflight %s: %s", failed[0].Name, failed[0].Detail)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	serveCtx, cancel := context.WithCancel(ctx)
	store, err := nodestore.OpenFromConfig(serveCtx, d.cfg)
	if err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("open node store: %w", err)
	}
	server, err := ipc.NewServer(serveCtx, d.cfg.Gateway.Listen, store, d.cfg.Gateway.SupportedVersions, d.logger)
	if err != nil {
		cancel()
		_ = store.Close()
		_ = d.lock.Unlock()
		return fmt.Errorf("start rpc server: %w", err)
	}
	server.Serve()

	d.mu.Lock()
	d.store = store
	d.server = server
	d.cancel = cancel
	d.mu.Unlock()
	d.running.Store(true)
	d.logger.Info("wiretapd started",
		logging.String("address", server.Addr()),
		logging.String("database", store.Path()),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop stops serving, closes the store, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.server != nil {
		d.server.Close()
		d.server = nil
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn("failed to close node store",
				logging.Error(err),
				logging.String(logging.FieldEventType, "gateway_store_close_failed"))
		}
		d.store = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release gateway lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "gateway_unlock_failed"))
	}
	d.running.Store(false)
	d.logger.Info("wiretapd stopped")
}

// Run starts the gateway and blocks until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	defer d.Stop()
	<-ctx.Done()
	d.logger.Info("wiretapd shutting down")
	return nil
}

// Status reports whether the gateway is serving and where.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		DatabasePath: d.cfg.Gateway.Database,
		LockFilePath: d.lockPath,
	}
	d.mu.Lock()
	if d.server != nil {
		status.Address = d.server.Addr()
	}
	d.mu.Unlock()
	return status
}
