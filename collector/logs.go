package collector

import (
	"context"
	"fmt"

	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/model"
)

const LogsPath = "/api/log/log-entries/"

type LogEndpoint struct {
	transport *Transport
	path      string
}

func (e *LogEndpoint) Ship(ctx context.Context, deviceIP, text string) error {
	if _, err := e.transport.Post(ctx, e.path, model.LogEntry{LogText: text, DeviceIP: deviceIP}, nil); err != nil {
		return fmt.Errorf("%w: %w", core.ErrLogShip, err)
	}
	return nil
}
