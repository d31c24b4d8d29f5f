package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"axiapac.com/punchsync/model"
	"axiapac.com/punchsync/terminal"
	"axiapac.com/punchsync/utils"
)

// WatermarkStore persists the process-wide sync boundary. Read fails with
// ErrConfig when the watermark is missing or unparsable.
type WatermarkStore interface {
	Read(ctx context.Context) (time.Time, error)
	Commit(ctx context.Context, t time.Time) error
}

type SnapshotWriter interface {
	Save(ctx context.Context, deviceIP string, payload model.SyncPayload) error
}

type Deliverer interface {
	Deliver(ctx context.Context, organizationID string, payload model.SyncPayload) error
}

type LogShipper interface {
	ShipLog(ctx context.Context, deviceIP, text string) error
}

// LogBuffer is the local run log that is shipped after each cycle.
type LogBuffer interface {
	Text() (string, error)
	Truncate() error
}

// Observer receives cycle and sweep outcomes, e.g. for metrics.
type Observer interface {
	ObserveCycle(CycleResult)
	ObserveSweep(SweepSummary)
}

type State string

const (
	Succeeded State = "succeeded"
	Failed    State = "failed"
)

type CycleResult struct {
	Device model.DeviceDescriptor
	State  State
	Err    error

	Fetched   int // punch events read from the terminal
	Dropped   int // malformed events
	Kept      int // records inside the watermark window
	Delivered int // records in the payload sent to the collector

	Watermark         time.Time
	WatermarkAdvanced bool
	LogShipped        bool

	StartedAt time.Time
	Duration  time.Duration
}

// Cycle runs one device through extract, reduce, deliver, log flush and
// watermark commit.
type Cycle struct {
	Dialer    terminal.Dialer
	Watermark WatermarkStore
	Snapshots SnapshotWriter
	Deliverer Deliverer
	Shipper   LogShipper
	RunLog    LogBuffer
	Observer  Observer
	Clock     Clock
	Logger    *slog.Logger

	Zone    *time.Location
	Timeout time.Duration
	// DeliverEmpty posts the payload even when no record survived the window.
	DeliverEmpty bool
}

func (c *Cycle) Run(ctx context.Context, dev model.DeviceDescriptor) CycleResult {
	clock := c.clock()
	start := clock.Now()
	logger := c.logger().With("device", dev.IP)

	result := CycleResult{Device: dev, State: Failed, StartedAt: start}
	defer func() {
		if c.Observer != nil {
			c.Observer.ObserveCycle(result)
		}
	}()

	logger.Info("starting device cycle", "port", dev.Port, "organization_id", dev.OrganizationID)

	now := start.In(c.zone())
	delivered, err := c.pull(ctx, dev, now, logger, &result)
	if err != nil {
		result.Err = err
		logger.Error("device cycle failed", "category", Category(err), "error", err)
	} else {
		result.State = Succeeded
		if delivered {
			if commitErr := c.commit(ctx, now, logger, &result); commitErr != nil {
				result.State = Failed
				result.Err = commitErr
				logger.Error("watermark commit failed", "error", commitErr)
			}
		}
	}

	result.Duration = clock.Now().Sub(start)
	logger.Info("device cycle finished",
		"state", result.State,
		"fetched", result.Fetched,
		"dropped", result.Dropped,
		"kept", result.Kept,
		"delivered", result.Delivered,
		"watermark_advanced", result.WatermarkAdvanced,
		"duration", result.Duration)

	// Last, so every line of this cycle ships under this device.
	c.flushLog(ctx, dev, logger, &result)
	return result
}

// pull returns whether a payload reached the collector.
func (c *Cycle) pull(ctx context.Context, dev model.DeviceDescriptor, now time.Time, logger *slog.Logger, result *CycleResult) (bool, error) {
	wm, err := c.Watermark.Read(ctx)
	if err != nil {
		if !errors.Is(err, ErrConfig) && !errors.Is(err, ErrStorage) {
			err = fmt.Errorf("%w: read watermark: %w", ErrStorage, err)
		}
		return false, err
	}
	result.Watermark = wm

	var (
		events  []model.PunchEvent
		persons []model.Person
	)
	opts := terminal.OptionsFor(dev, c.Timeout)
	err = terminal.WithSession(ctx, c.Dialer, opts, func(s terminal.Session) error {
		var err error
		if events, err = s.Events(ctx); err != nil {
			return fmt.Errorf("read attendance: %w", err)
		}
		if persons, err = s.Persons(ctx); err != nil {
			logger.Warn("reading person directory failed, using names from punches", "error", err)
			persons = nil
		}
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, terminal.ErrTeardown):
		logger.Warn("terminal was not released cleanly", "error", err)
	case errors.Is(err, ErrProtocol), errors.Is(err, ErrConnectivity):
		return false, err
	default:
		return false, fmt.Errorf("%w: %w", ErrConnectivity, err)
	}

	result.Fetched = len(events)
	if len(events) == 0 {
		logger.Info("no attendance data on terminal")
	}

	zone := c.zone()
	names := NameLookup(persons, events)
	records, dropped := NormalizeAll(events, names, zone, logger)
	result.Dropped = dropped

	windowed := FilterWindow(records, wm, now)
	result.Kept = len(windowed)

	payload := Reduce(windowed, zone)
	result.Delivered = payload.Count()

	if c.Snapshots != nil {
		if err := c.Snapshots.Save(ctx, dev.IP, payload); err != nil {
			logger.Warn("saving snapshot failed", "error", err)
		}
	}

	if payload.IsEmpty() && !c.DeliverEmpty {
		logger.Info("nothing to deliver", "watermark", wm.Format(utils.ISOLayout))
		result.Delivered = 0
		return false, nil
	}

	if err := c.Deliverer.Deliver(ctx, dev.OrganizationID, payload); err != nil {
		result.Delivered = 0
		if !errors.Is(err, ErrDelivery) {
			err = fmt.Errorf("%w: %w", ErrDelivery, err)
		}
		return false, err
	}
	logger.Info("attendance delivered", "records", result.Delivered, "dates", len(payload))
	return true, nil
}

func (c *Cycle) flushLog(ctx context.Context, dev model.DeviceDescriptor, logger *slog.Logger, result *CycleResult) {
	if c.Shipper == nil || c.RunLog == nil {
		return
	}

	text, err := c.RunLog.Text()
	if err != nil {
		logger.Warn("reading run log failed", "error", fmt.Errorf("%w: %w", ErrLogShip, err))
		return
	}
	if text == "" {
		return
	}

	if err := c.Shipper.ShipLog(ctx, dev.IP, text); err != nil {
		logger.Warn("shipping run log failed", "error", fmt.Errorf("%w: %w", ErrLogShip, err))
		return
	}
	if err := c.RunLog.Truncate(); err != nil {
		logger.Warn("truncating run log failed", "error", err)
	}
	result.LogShipped = true
}

// commit moves the watermark to the start of today. It never moves it backwards.
func (c *Cycle) commit(ctx context.Context, now time.Time, logger *slog.Logger, result *CycleResult) error {
	target := utils.StartOfDay(now, c.zone())
	if !target.After(result.Watermark) {
		logger.Debug("watermark already current", "watermark", result.Watermark.Format(utils.ISOLayout))
		return nil
	}
	if err := c.Watermark.Commit(ctx, target); err != nil {
		return fmt.Errorf("commit watermark: %w", err)
	}
	result.Watermark = target
	result.WatermarkAdvanced = true
	logger.Info("watermark advanced", "last_sync_date", target.Format(utils.ISOLayout))
	return nil
}

func (c *Cycle) clock() Clock {
	if c.Clock == nil {
		return RealClock{}
	}
	return c.Clock
}

func (c *Cycle) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c *Cycle) zone() *time.Location {
	if c.Zone == nil {
		return utils.KathmanduTZ
	}
	return c.Zone
}
