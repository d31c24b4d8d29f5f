package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"axiapac.com/punchsync/model"
)

const DevicesPath = "/api/device/get-devices/all/"

type DeviceEndpoint struct {
	transport *Transport
	path      string
	validate  *validator.Validate
	logger    *slog.Logger
}

// List fetches the registry. The body is either a JSON array of devices or an
// object wrapping it in "data". Entries that fail validation are skipped.
func (e *DeviceEndpoint) List(ctx context.Context) ([]model.DeviceDescriptor, error) {
	e.logger.Info("fetching device data", "path", e.path)

	resp, err := e.transport.Get(ctx, e.path, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch devices: %w", err)
	}

	devices, err := decodeDevices(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("decode devices: %w", err)
	}

	valid := make([]model.DeviceDescriptor, 0, len(devices))
	for _, d := range devices {
		if err := e.validate.Struct(d); err != nil {
			e.logger.Warn("skipping invalid device", "device_ip", d.IP, "error", err)
			continue
		}
		valid = append(valid, d)
	}

	e.logger.Info("retrieved device data", "devices", len(valid), "skipped", len(devices)-len(valid))
	return valid, nil
}

func decodeDevices(data []byte) ([]model.DeviceDescriptor, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var devices []model.DeviceDescriptor
	if data[0] == '[' {
		err := json.Unmarshal(data, &devices)
		return devices, err
	}

	var envelope struct {
		Data []model.DeviceDescriptor `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}
