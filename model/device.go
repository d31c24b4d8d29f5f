package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
)

const (
	DefaultPort     = 4370
	DefaultUsername = "admin"
	DefaultPassword = "0"
)

// DeviceDescriptor holds the connection parameters of one terminal.
type DeviceDescriptor struct {
	IP             string `json:"device_ip" yaml:"device_ip" validate:"required,ip|hostname"`
	Port           int    `json:"port" yaml:"port" validate:"min=1,max=65535"`
	Username       string `json:"device_user_name" yaml:"device_user_name"`
	Password       string `json:"device_password" yaml:"device_password"`
	OrganizationID string `json:"organization_id" yaml:"organization_id"`
}

// Addr returns host:port.
func (d DeviceDescriptor) Addr() string {
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// CommKey is the numeric terminal password; non-numeric values map to 0.
func (d DeviceDescriptor) CommKey() int {
	n, err := strconv.Atoi(strings.TrimSpace(d.Password))
	if err != nil {
		return 0
	}
	return n
}

// UnmarshalJSON accepts the registry's loosely typed objects: numbers or
// strings for port, password and organization, and either "organization_id"
// or "organization".
func (d *DeviceDescriptor) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	d.IP = firstString(raw, "device_ip", "ip")
	d.Username = firstString(raw, "device_user_name", "username")
	if d.Username == "" {
		d.Username = DefaultUsername
	}
	d.Password = firstString(raw, "device_password", "password")
	if d.Password == "" {
		d.Password = DefaultPassword
	}
	d.OrganizationID = firstString(raw, "organization_id", "organization")

	d.Port = DefaultPort
	if port := firstString(raw, "port", "device_port"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("device %s: invalid port %q", d.IP, port)
		}
		d.Port = n
	}
	return nil
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch tv := v.(type) {
		case string:
			s = tv
		case json.Number:
			s = tv.String()
		case bool:
			s = strconv.FormatBool(tv)
		case map[string]any:
			// nested objects such as {"organization": {"id": 3}}
			s = firstString(tv, "id", "organization_id")
		default:
			s = fmt.Sprintf("%v", tv)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
