package core

import "errors"

// Error categories. Wrap them with %w so callers can match with errors.Is.
var (
	// ErrConfig is a missing or invalid watermark or configuration. It is
	// scoped to the process, not the device.
	ErrConfig = errors.New("configuration error")
	// ErrConnectivity means the terminal could not be reached.
	ErrConnectivity = errors.New("terminal unreachable")
	// ErrProtocol is a malformed record or response from the terminal.
	ErrProtocol = errors.New("terminal protocol error")
	// ErrDelivery is a network error or non-2xx response from the collector.
	ErrDelivery = errors.New("delivery failed")
	// ErrLogShip is a failure to ship the run log. Never escalated.
	ErrLogShip = errors.New("log shipping failed")
	// ErrStorage is a watermark backend that is temporarily unavailable. Unlike
	// ErrConfig it only fails the current device.
	ErrStorage = errors.New("watermark storage unavailable")
)

// Category returns the name of the first category err belongs to, or "unknown".
func Category(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrConnectivity):
		return "connectivity"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	case errors.Is(err, ErrDelivery):
		return "delivery"
	case errors.Is(err, ErrLogShip):
		return "logship"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "unknown"
	}
}
