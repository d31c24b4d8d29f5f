package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/model"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// LoadDevices lists the registry, trying up to attempts times. An empty
// registry counts as a failed attempt. The final error wraps ErrConfig.
func (c *Client) LoadDevices(ctx context.Context, attempts int) ([]model.DeviceDescriptor, error) {
	if attempts < 1 {
		attempts = 1
	}

	devices, err := retry.DoWithData(func() ([]model.DeviceDescriptor, error) {
		devices, err := c.Devices.List(ctx)
		if err != nil {
			return nil, err
		}
		if len(devices) == 0 {
			return nil, fmt.Errorf("no device data found")
		}
		return devices, nil
	}, retry.Attempts(uint(attempts)), retry.Delay(initialBackoff), retry.MaxDelay(maxBackoff))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch device data: %w", core.ErrConfig, err)
	}
	return devices, nil
}
