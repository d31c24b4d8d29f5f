// Package app wires configuration into a running sync process. It is shared
// by the command line entry point and the lambda.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"axiapac.com/punchsync/collector"
	"axiapac.com/punchsync/config"
	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/infrastructure/communication"
	"axiapac.com/punchsync/infrastructure/filesystem"
	"axiapac.com/punchsync/metrics"
	"axiapac.com/punchsync/model"
	"axiapac.com/punchsync/runlog"
	"axiapac.com/punchsync/security"
	"axiapac.com/punchsync/store"
	"axiapac.com/punchsync/terminal/csvterminal"
	"axiapac.com/punchsync/utils"
	"axiapac.com/punchsync/web"
	"axiapac.com/punchsync/web/handlers"
)

// collectorTokenLifetime bounds tokens minted from collector.signing_secret.
const collectorTokenLifetime = 365 * 24 * time.Hour

const maxDBConnections = 2

// WatermarkStore is what the process needs from either watermark backend.
type WatermarkStore interface {
	core.WatermarkStore
	Reset(ctx context.Context, t time.Time) error
	Seed(ctx context.Context, t time.Time) (bool, error)
}

type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	RunLog    *runlog.RunLog
	Collector *collector.Client
	Devices   []model.DeviceDescriptor
	Watermark WatermarkStore
	Snapshots *store.FileSnapshotStore
	Metrics   *metrics.Metrics
	Scheduler *core.Scheduler

	closers []func() error
}

// New builds every component named by cfg and loads the device registry.
// Failures are ErrConfig: the process must not start without devices or a
// watermark backend.
func New(ctx context.Context, cfg *config.Config, console io.Writer) (*App, error) {
	a := &App{Config: cfg}
	if err := a.init(ctx, console); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, console io.Writer) error {
	cfg := a.Config
	zone := cfg.Zone()

	rl, err := runlog.Open(cfg.Log.File)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrConfig, err)
	}
	a.RunLog = rl
	a.closers = append(a.closers, rl.Close)
	a.Logger = runlog.NewLogger(console, runlog.ParseLevel(cfg.Log.Level), rl)

	token, err := collectorToken(cfg)
	if err != nil {
		return err
	}
	a.Collector = collector.NewClient(collector.Options{
		BaseURL:        cfg.Collector.BaseURL,
		Token:          token,
		Timeout:        cfg.Collector.Timeout,
		DevicesPath:    cfg.Collector.DevicesPath,
		AttendancePath: cfg.Collector.AttendancePath,
		LogsPath:       cfg.Collector.LogsPath,
		Logger:         a.Logger,
	})

	if len(cfg.Devices) > 0 {
		a.Devices = cfg.Devices
		a.Logger.Info("using configured devices", "count", len(a.Devices))
	} else {
		a.Logger.Info("fetching device registry", "url", cfg.Collector.BaseURL)
		if a.Devices, err = a.Collector.LoadDevices(ctx, cfg.Collector.RegistryAttempts); err != nil {
			return err
		}
		a.Logger.Info("device registry loaded", "count", len(a.Devices))
	}

	if err := a.openWatermark(ctx, zone); err != nil {
		return err
	}

	a.Snapshots = store.NewFileSnapshotStore(cfg.Snapshot.File)
	a.Snapshots.Workbook = cfg.Snapshot.Workbook
	a.Snapshots.Logger = a.Logger
	if cfg.Snapshot.Mirror != "" {
		loc, ok := filesystem.ParseLocation(cfg.Snapshot.Mirror)
		if !ok {
			return fmt.Errorf("%w: snapshot.mirror %q is not an s3 location", core.ErrConfig, cfg.Snapshot.Mirror)
		}
		a.Snapshots.Mirror = &loc
	}

	a.Metrics = metrics.New()

	cycle := &core.Cycle{
		Dialer:       csvterminal.New(cfg.Terminal.Source, a.Logger),
		Watermark:    a.Watermark,
		Snapshots:    a.Snapshots,
		Deliverer:    a.Collector,
		Shipper:      a.Collector,
		RunLog:       a.RunLog,
		Observer:     a.Metrics,
		Logger:       a.Logger,
		Zone:         zone,
		Timeout:      cfg.Terminal.Timeout,
		DeliverEmpty: *cfg.Sync.DeliverEmpty,
	}
	if a.Scheduler, err = core.NewScheduler(a.Devices, cycle); err != nil {
		return err
	}
	a.Scheduler.Interval = cfg.Sync.Interval
	a.Scheduler.Observer = a.Metrics
	a.Scheduler.Notifiers, err = notifiers(ctx, cfg)
	if err != nil {
		return err
	}
	return nil
}

func (a *App) openWatermark(ctx context.Context, zone *time.Location) error {
	cfg := a.Config.Watermark
	if cfg.Backend != config.BackendMySQL {
		a.Watermark = store.NewFileWatermarkStore(cfg.File, zone)
		return nil
	}

	db, err := store.OpenDB(cfg.DSN, maxDBConnections, store.ParseLogLevel(cfg.DBLog))
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrConfig, err)
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	sw := store.NewSQLWatermarkStore(db, cfg.Name, zone)
	if err := sw.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: migrate watermark table: %w", core.ErrConfig, err)
	}
	a.Watermark = sw
	return nil
}

func collectorToken(cfg *config.Config) (string, error) {
	if cfg.Collector.Token != "" || cfg.Collector.SigningSecret == "" {
		return cfg.Collector.Token, nil
	}
	token, err := security.CreateIdentityToken(&security.Identity{
		Name:     cfg.ServiceName(),
		Provider: security.Issuer,
		Role:     "sync",
	}, cfg.Collector.SigningSecret, int64(collectorTokenLifetime/time.Second))
	if err != nil {
		return "", fmt.Errorf("%w: collector token: %w", core.ErrConfig, err)
	}
	return token, nil
}

func notifiers(ctx context.Context, cfg *config.Config) ([]core.Notifier, error) {
	var out []core.Notifier
	if slack := cfg.Notify.Slack; slack.Token != "" {
		out = append(out, communication.NewSlack(slack.Token, communication.SlackOption{
			InfoChannelID:  slack.InfoChannel,
			ErrorChannelID: slack.ErrorChannel,
			Prefix:         cfg.ServiceName(),
		}))
	}
	if email := cfg.Notify.Email; email.From != "" {
		e, err := communication.NewEmail(ctx, email.From, email.To, email.Subject)
		if err != nil {
			return nil, fmt.Errorf("%w: email notifier: %w", core.ErrConfig, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// SeedWatermark creates the watermark at the start of today when none exists.
func (a *App) SeedWatermark(ctx context.Context) error {
	start := utils.StartOfDay(time.Now(), a.Config.Zone())
	created, err := a.Watermark.Seed(ctx, start)
	if err != nil {
		return fmt.Errorf("seed watermark: %w", err)
	}
	if created {
		a.Logger.Info("watermark seeded", "last_sync_date", start.Format(utils.ISOLayout))
	}
	return nil
}

// Server is the status API over this process's scheduler and stores.
func (a *App) Server() (*web.Server, error) {
	var secret []byte
	if s := a.Config.Server.SigningSecret; s != "" {
		var err error
		if secret, err = security.DecodeSecret(s); err != nil {
			return nil, fmt.Errorf("%w: server.signing_secret: %w", core.ErrConfig, err)
		}
	}
	h := &handlers.Handlers{
		Sweeps:    a.Scheduler,
		Watermark: a.Watermark,
		Snapshots: a.Snapshots,
		Devices:   func() []model.DeviceDescriptor { return a.Devices },
		Zone:      a.Config.Zone(),
		Logger:    a.Logger,
	}
	return web.NewServer(a.Config.Server.Addr, h, secret, a.Metrics.Handler(), a.Logger), nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
