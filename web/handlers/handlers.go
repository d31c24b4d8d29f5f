// Package handlers serves the operator API: sweep status, the watermark and
// the latest snapshot.
package handlers

import (
	"context"
	"log/slog"
	"time"

	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/store"
	"axiapac.com/punchsync/utils"
)

type SweepSource interface {
	LastSweep() (core.SweepSummary, bool)
}

type WatermarkAdmin interface {
	Read(ctx context.Context) (time.Time, error)
	Reset(ctx context.Context, t time.Time) error
}

type SnapshotSource interface {
	Latest() (store.Snapshot, bool)
}

type Handlers struct {
	Sweeps    SweepSource
	Watermark WatermarkAdmin
	Snapshots SnapshotSource
	Devices   DeviceSource
	Zone      *time.Location
	Logger    *slog.Logger
}

func (h *Handlers) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func (h *Handlers) zone() *time.Location {
	if h.Zone == nil {
		return utils.KathmanduTZ
	}
	return h.Zone
}

// parseDate accepts a bare yyyy-MM-dd as midnight in the sync zone.
func parseDate(s string, h *Handlers) (*time.Time, error) {
	t, err := time.ParseInLocation(utils.DateLayout, s, h.zone())
	if err != nil {
		return nil, err
	}
	return &t, nil
}
