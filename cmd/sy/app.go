package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/scriptyard/internal/auditor"
	"github.com/zulandar/scriptyard/internal/config"
	"github.com/zulandar/scriptyard/internal/db"
	"github.com/zulandar/scriptyard/internal/lifecycle"
	"github.com/zulandar/scriptyard/internal/notify"
	"github.com/zulandar/scriptyard/internal/scripts"
	"github.com/zulandar/scriptyard/internal/simulator"
	"github.com/zulandar/scriptyard/internal/store"
	"github.com/zulandar/scriptyard/internal/templates"
)

// Seams replaced by tests so runs finish without real delays.
var (
	newClock = func() simulator.Clock { return simulator.RealClock{} }
	newRand  = func() simulator.Rand { return simulator.GlobalRand{} }
)

// recentNotifications bounds the in-memory notification history.
const recentNotifications = 100

// app bundles everything a command needs. Close releases it.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	svc      *scripts.Service
	auditor  *auditor.Auditor
	notifier notify.Notifier
	recorder *notify.Recorder
}

func addConfigFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "config", "c", config.DefaultPath, "path to Scriptyard config file")
}

// openApp loads config (defaults when the file is missing), opens storage and
// wires the service. Logs go to logOut.
func openApp(ctx context.Context, configPath string, logOut io.Writer) (*app, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Log, logOut)

	p, err := openPersister(cfg.Storage)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, p, store.Options{Seed: templates.Samples, Logger: logger})
	if err != nil {
		p.Close()
		return nil, err
	}

	base, err := notify.FromConfig(cfg.Notify, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	rec := &notify.Recorder{Limit: recentNotifications}
	notifier := notify.Multi{base, rec}

	rate := cfg.Simulation.Rate()
	orch, err := lifecycle.New(lifecycle.Opts{
		Store:       st,
		Clock:       newClock(),
		Rand:        newRand(),
		Notifier:    notifier,
		Logger:      logger,
		SuccessRate: &rate,
		MinLatency:  cfg.Simulation.MinLatency,
		MaxLatency:  cfg.Simulation.MaxLatency,
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	svc, err := scripts.New(scripts.Opts{Store: st, Orchestrator: orch, Notifier: notifier, Logger: logger})
	if err != nil {
		st.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		svc:      svc,
		auditor:  auditor.New(svc, notifier, logger),
		notifier: notifier,
		recorder: rec,
	}, nil
}

func (a *app) Close() error {
	a.svc.Close()
	return a.store.Close()
}

// openPersister selects the storage backend.
func openPersister(cfg config.StorageConfig) (store.Persister, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return store.NewMemoryPersister(), nil
	case config.BackendBolt:
		return store.NewBoltPersister(cfg.Path, cfg.Key)
	case config.BackendSQLite, config.BackendMySQL:
		gormDB, err := db.Connect(cfg)
		if err != nil {
			return nil, err
		}
		if err := db.AutoMigrate(gormDB); err != nil {
			db.Close(gormDB)
			return nil, err
		}
		return store.NewSQLPersister(gormDB, cfg.Key, func() error { return db.Close(gormDB) }), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// newLogger builds the process logger from the log config.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
