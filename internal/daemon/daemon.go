package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"easel/internal/artifacts"
	"easel/internal/config"
	"easel/internal/logging"
	"easel/internal/preflight"
	"easel/internal/runstore"
	"easel/internal/workflow"
)

const pruneInterval = time.Hour

// Daemon coordinates the API server, run lifecycle, and record retention.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *runstore.Store
	archive *artifacts.Store
	manager *workflow.Manager

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	api *apiServer
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	RunDBPath    string
	LockFilePath string
	Active       int
	Checks       []preflight.Result
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, store *runstore.Store, archive *artifacts.Store, manager *workflow.Manager) (*Daemon, error) {
	if cfg == nil || logger == nil || store == nil || archive == nil || manager == nil {
		return nil, errors.New("daemon requires config, logger, store, archive, and workflow manager")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "easeld.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		archive:  archive,
		manager:  manager,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock and brings up the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another easel daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	go d.pruneLoop(d.ctx)

	d.running.Store(true)
	d.logger.Info("easel daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the API server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("easel daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if err := d.archive.Close(); err != nil {
		d.logger.Warn("close archive store", logging.Error(err))
	}
	return d.store.Close()
}

// Addr reports the API listen address once the daemon has started.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	active, err := d.store.List(ctx, runstore.StatusRunning)
	if err != nil {
		d.logger.Warn("count active runs", logging.Error(err))
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		RunDBPath:    d.store.Path(),
		LockFilePath: d.lockPath,
		Active:       len(active),
		Checks:       preflight.RunAll(ctx, d.cfg),
	}
}

// pruneLoop deletes finished run records past the retention window.
func (d *Daemon) pruneLoop(ctx context.Context) {
	retention := time.Duration(d.cfg.Workflow.RetentionDays) * 24 * time.Hour
	if retention <= 0 {
		return
	}
	prune := func() {
		removed, err := d.store.PruneFinished(ctx, retention)
		if err != nil {
			d.logger.Warn("prune finished runs", logging.Error(err))
			return
		}
		if removed > 0 {
			d.logger.Info("pruned finished runs", logging.Int64("removed", removed))
		}
	}
	prune()

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}
