package readerd

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

	"tanko/internal/bucket"
	"tanko/internal/catalog"
	"tanko/internal/config"
	"tanko/internal/logging"
)

// Daemon coordinates the reader API server and enforces single-instance
// execution over the catalog database.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *catalog.Store
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
}

// New constructs a reader daemon. The bucket service may be nil; page probes
// then fall back to the local output tree, which mirrors the bucket layout.
func New(cfg *config.Config, store *catalog.Store, bucketSvc bucket.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if store == nil {
		return nil, errors.New("catalog store required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(slog.String(logging.FieldComponent, "readerd"))

	var prober = dirProber(cfg.Paths.OutputDir, cfg.Bucket.CDNBaseURL)
	if bucketSvc != nil {
		prober = bucketProber(bucketSvc, cfg.Bucket.CDNBaseURL)
	}
	resolvers := newResolverSet(
		prober,
		cfg.Bucket.CDNBaseURL,
		cfg.Reader.Preload,
		time.Duration(cfg.Reader.ProbeTimeout)*time.Second,
		logger,
	)

	lockPath := filepath.Join(cfg.Paths.LogDir, "tankod.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, store, resolvers, d, logger)
	return d, nil
}

// Run acquires the instance lock, starts the API server, and blocks until the
// context is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tanko reader instance is already running")
	}
	defer func() {
		_ = d.lock.Unlock()
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := d.api.start(runCtx); err != nil {
		return err
	}
	d.running.Store(true)
	d.logger.Info("reader daemon started",
		slog.String("lock", d.lockPath),
		slog.String("bind", d.cfg.Paths.APIBind))

	<-runCtx.Done()
	d.running.Store(false)
	d.api.stop()
	d.logger.Info("reader daemon stopped")
	return nil
}

// Status reports daemon runtime information.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}
}
