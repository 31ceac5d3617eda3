package main

import (
	"alcyxob/workout-ledger/internal/cache"
	"alcyxob/workout-ledger/internal/clock"
	"alcyxob/workout-ledger/internal/config"
	"alcyxob/workout-ledger/internal/repository"
	"alcyxob/workout-ledger/internal/repository/memory"
	"alcyxob/workout-ledger/internal/repository/mongo"
	"alcyxob/workout-ledger/internal/service"
	"alcyxob/workout-ledger/internal/stats"
	"alcyxob/workout-ledger/internal/storage"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"
)

// app is one wired ledger session.
type app struct {
	cfg      config.Config
	clock    clock.Clock
	identity service.IdentityProvider
	ledger   service.LedgerService
	exports  service.ExportService
	closers  []func()
}

func newApp(cfg config.Config, fs afero.Fs) (*app, error) {
	weekStart, ok := stats.ParseWeekday(cfg.Stats.WeekStart)
	if !ok {
		return nil, fmt.Errorf("invalid stats.week_start %q", cfg.Stats.WeekStart)
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	a := &app{cfg: cfg, clock: clock.System(), identity: newIdentity(cfg)}

	remote, err := a.openRemote()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.ledger = service.NewLedgerService(
		cache.NewFileStore(fs, cfg.Cache.Dir),
		cache.NewDraftStore(fs, cfg.Cache.Dir),
		remote,
		a.identity,
		stats.NewEngine(a.clock, weekStart),
		cfg.Sync.Timeout,
	)
	// Runs before the database disconnect registered by openRemote.
	a.closers = append([]func(){a.ledger.Close}, a.closers...)

	if cfg.S3.BucketName != "" {
		fileStorage, err := storage.NewS3Storage(cfg.S3)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init export storage: %w", err)
		}
		a.exports = service.NewExportService(a.ledger, a.identity, fileStorage, cfg.S3.URLExpiry)
	}
	return a, nil
}

// load brings the ledger up to date. The memory driver starts with an empty
// remote, so the cache is pushed to it first; otherwise remote wins would
// wipe the cache file.
func (a *app) load(ctx context.Context) {
	if a.cfg.Remote.Driver == config.DriverMemory {
		a.ledger.LoadCached()
		if _, err := a.ledger.SyncAllWorkouts(ctx); err != nil && !errors.Is(err, service.ErrNotAuthenticated) {
			log.Printf("WARN: Seeding in-memory remote from cache failed: %v", err)
		}
	}
	a.ledger.Load(ctx)
}

func newIdentity(cfg config.Config) service.IdentityProvider {
	if cfg.Session.Token != "" {
		return service.NewTokenIdentity(cfg.Session.Token, cfg.JWT.Secret)
	}
	return service.StaticIdentity(cfg.Session.UserID)
}

func (a *app) openRemote() (repository.LedgerRepository, error) {
	switch a.cfg.Remote.Driver {
	case config.DriverMemory:
		log.Println("INFO: Using in-memory remote ledger.")
		return memory.NewLedgerRepository(), nil
	case config.DriverMongo, "":
		client, err := mongo.ConnectDB(a.cfg.Database.URI)
		if err != nil {
			log.Printf("WARN: MongoDB unreachable, starting offline: %v", err)
			if client, err = mongo.OpenDB(a.cfg.Database.URI); err != nil {
				return nil, fmt.Errorf("open mongodb client: %w", err)
			}
		} else {
			log.Println("INFO: Database connection established.")
		}
		a.closers = append(a.closers, func() {
			log.Println("INFO: Disconnecting MongoDB...")
			if err := mongo.DisconnectDB(client); err != nil {
				log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
			}
		})
		return mongo.NewMongoLedgerRepository(client.Database(a.cfg.Database.Name)), nil
	default:
		return nil, fmt.Errorf("unknown remote.driver %q", a.cfg.Remote.Driver)
	}
}

// Close tears the session down in order.
func (a *app) Close() {
	for _, closeFn := range a.closers {
		closeFn()
	}
	a.closers = nil
}

// setupLogging mirrors the log to a rotated file when log.file is set.
func setupLogging(cfg config.LogConfig, stderr io.Writer) (func() error, error) {
	if cfg.File == "" {
		log.SetOutput(stderr)
		return func() error {
			log.SetOutput(os.Stderr)
			return nil
		}, nil
	}
	if cfg.MaxSizeMB <= 0 {
		return nil, errors.New("log.max_size_mb must be positive")
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	log.SetOutput(io.MultiWriter(stderr, rotator))
	return func() error {
		log.SetOutput(os.Stderr)
		return rotator.Close()
	}, nil
}
