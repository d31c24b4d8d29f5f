// Package collector talks to the central attendance service: the device
// registry, attendance delivery and log shipping.
package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"axiapac.com/punchsync/model"
)

type Options struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	DevicesPath    string
	AttendancePath string
	LogsPath       string
	Logger         *slog.Logger
}

type Client struct {
	Transport  *Transport
	Devices    *DeviceEndpoint
	Attendance *AttendanceEndpoint
	Logs       *LogEndpoint
}

func NewClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "collector")

	t := NewTransport(opts.BaseURL, opts.Token, opts.Timeout)
	return &Client{
		Transport: t,
		Devices: &DeviceEndpoint{
			transport: t,
			path:      orDefault(opts.DevicesPath, DevicesPath),
			validate:  validator.New(),
			logger:    logger,
		},
		Attendance: &AttendanceEndpoint{
			transport: t,
			path:      orDefault(opts.AttendancePath, AttendancePath),
			logger:    logger,
		},
		Logs: &LogEndpoint{
			transport: t,
			path:      orDefault(opts.LogsPath, LogsPath),
		},
	}
}

func (c *Client) Deliver(ctx context.Context, organizationID string, payload model.SyncPayload) error {
	return c.Attendance.Deliver(ctx, organizationID, payload)
}

func (c *Client) ShipLog(ctx context.Context, deviceIP, text string) error {
	return c.Logs.Ship(ctx, deviceIP, text)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
