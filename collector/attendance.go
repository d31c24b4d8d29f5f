package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/model"
	"axiapac.com/punchsync/utils"
)

const AttendancePath = "/api/device/post-device-data"

type AttendanceEndpoint struct {
	transport *Transport
	path      string
	logger    *slog.Logger
}

// Deliver posts {organization_id, data: [payload]}. Any transport error or
// non-2xx status is an ErrDelivery; an unreadable response body is only logged.
func (e *AttendanceEndpoint) Deliver(ctx context.Context, organizationID string, payload model.SyncPayload) error {
	if payload == nil {
		payload = model.SyncPayload{}
	}
	body := model.Delivery{
		OrganizationID: organizationID,
		Data:           []model.SyncPayload{payload},
	}

	resp, err := e.transport.Post(ctx, e.path, body, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrDelivery, err)
	}
	e.logger.Info("attendance data sent to the server", "organization_id", organizationID, "status", resp.StatusCode)

	var result any
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		e.logger.Error("failed to parse the response from the server", "error", err, "body", utils.Truncate(string(resp.Data), 512))
		return nil
	}
	e.logger.Info("response from the server", "response", result)
	return nil
}
