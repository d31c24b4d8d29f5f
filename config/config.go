// Package config loads the punchsync YAML configuration.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/infrastructure/devops"
	"axiapac.com/punchsync/model"
	"axiapac.com/punchsync/runlog"
	"axiapac.com/punchsync/store"
	"axiapac.com/punchsync/terminal"
	"axiapac.com/punchsync/utils"
)

const (
	BackendFile  = "file"
	BackendMySQL = "mysql"
)

type Config struct {
	Collector CollectorConfig `yaml:"collector"`
	Terminal  TerminalConfig  `yaml:"terminal"`
	Sync      SyncConfig      `yaml:"sync"`
	Watermark WatermarkConfig `yaml:"watermark"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Notify    NotifyConfig    `yaml:"notify"`
	// Devices, when set, replaces the registry lookup.
	Devices []model.DeviceDescriptor `yaml:"devices" validate:"dive"`
}

type CollectorConfig struct {
	BaseURL          string        `yaml:"base_url" validate:"required,url"`
	Token            string        `yaml:"token"`
	SigningSecret    string        `yaml:"signing_secret" validate:"omitempty,base64"`
	Timeout          time.Duration `yaml:"timeout"`
	DevicesPath      string        `yaml:"devices_path"`
	AttendancePath   string        `yaml:"attendance_path"`
	LogsPath         string        `yaml:"logs_path"`
	RegistryAttempts int           `yaml:"registry_attempts" validate:"min=1"`
}

type TerminalConfig struct {
	// Source is a directory or s3://bucket/prefix holding terminal exports.
	Source  string        `yaml:"source" validate:"required"`
	Timeout time.Duration `yaml:"timeout"`
}

type SyncConfig struct {
	Interval time.Duration `yaml:"interval"`
	// Offset is the fixed UTC offset punches are rendered in.
	Offset       string `yaml:"offset"`
	DeliverEmpty *bool  `yaml:"deliver_empty"`
}

type WatermarkConfig struct {
	Backend string `yaml:"backend" validate:"oneof=file mysql"`
	File    string `yaml:"file"`
	DSN     string `yaml:"dsn" validate:"required_if=Backend mysql"`
	Name    string `yaml:"name"`
	// DBLog is the gorm log level: silent, error, warn or info.
	DBLog string `yaml:"db_log" validate:"omitempty,oneof=silent error warn info"`
}

type SnapshotConfig struct {
	File     string `yaml:"file"`
	Mirror   string `yaml:"mirror" validate:"omitempty,startswith=s3://"`
	Workbook bool   `yaml:"workbook"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	File  string `yaml:"file"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	// SigningSecret is the base64 HMAC key for API tokens. Empty disables /api.
	SigningSecret string `yaml:"signing_secret" validate:"omitempty,base64"`
}

type NotifyConfig struct {
	Slack SlackConfig `yaml:"slack"`
	Email EmailConfig `yaml:"email"`
}

type SlackConfig struct {
	Token        string `yaml:"token"`
	InfoChannel  string `yaml:"info_channel"`
	ErrorChannel string `yaml:"error_channel"`
}

type EmailConfig struct {
	From    string   `yaml:"from" validate:"omitempty,email"`
	To      []string `yaml:"to" validate:"required_with=From,dive,email"`
	Subject string   `yaml:"subject"`
}

// Load reads and validates a YAML file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read config: %w", core.ErrConfig, err)
	}
	return Parse(b)
}

// LoadParameter reads the same YAML from an SSM parameter.
func LoadParameter(ctx context.Context, name string) (*Config, error) {
	value, err := devops.LoadParameter(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrConfig, err)
	}
	return Parse([]byte(value))
}

// Parse applies defaults and environment overrides, then validates.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse config: %w", core.ErrConfig, err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&c.Watermark.DSN, "DSN")
	override(&c.Collector.BaseURL, "PUNCHSYNC_COLLECTOR_URL")
	override(&c.Collector.Token, "PUNCHSYNC_COLLECTOR_TOKEN")
	override(&c.Collector.SigningSecret, "PUNCHSYNC_SIGNING_SECRET")
	override(&c.Server.SigningSecret, "PUNCHSYNC_SIGNING_SECRET")
	override(&c.Notify.Slack.Token, "SLACK_BOT_TOKEN")
	override(&c.Notify.Slack.InfoChannel, "SLACK_INFO_CHANNEL")
	override(&c.Notify.Slack.ErrorChannel, "SLACK_ERROR_CHANNEL")
}

func (c *Config) applyDefaults() {
	if c.Collector.Timeout == 0 {
		c.Collector.Timeout = 30 * time.Second
	}
	if c.Collector.RegistryAttempts == 0 {
		c.Collector.RegistryAttempts = 1
	}
	if c.Terminal.Timeout == 0 {
		c.Terminal.Timeout = terminal.DefaultTimeout
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = core.DefaultInterval
	}
	if c.Sync.Offset == "" {
		c.Sync.Offset = "+05:45"
	}
	if c.Sync.DeliverEmpty == nil {
		c.Sync.DeliverEmpty = utils.Ptr(true)
	}
	if c.Watermark.Backend == "" {
		c.Watermark.Backend = BackendFile
	}
	if c.Watermark.File == "" {
		c.Watermark.File = store.DefaultWatermarkFile
	}
	if c.Watermark.Name == "" {
		c.Watermark.Name = store.DefaultWatermarkName
	}
	if c.Snapshot.File == "" {
		c.Snapshot.File = store.DefaultSnapshotFile
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" {
		c.Log.File = runlog.DefaultFile
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8090"
	}
	for i := range c.Devices {
		d := &c.Devices[i]
		if d.Port == 0 {
			d.Port = model.DefaultPort
		}
		if d.Username == "" {
			d.Username = model.DefaultUsername
		}
		if d.Password == "" {
			d.Password = model.DefaultPassword
		}
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", core.ErrConfig, err)
	}
	if _, err := utils.ParseOffset(c.Sync.Offset); err != nil {
		return fmt.Errorf("%w: sync.offset: %w", core.ErrConfig, err)
	}
	if c.Sync.Interval < 0 || c.Terminal.Timeout < 0 || c.Collector.Timeout < 0 {
		return fmt.Errorf("%w: durations must not be negative", core.ErrConfig)
	}
	return nil
}

// Zone is the fixed zone named by Sync.Offset.
func (c *Config) Zone() *time.Location {
	loc, err := utils.ParseOffset(c.Sync.Offset)
	if err != nil {
		return utils.KathmanduTZ
	}
	return loc
}

// ServiceName identifies this host in notifications.
func (c *Config) ServiceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "punchsync"
	}
	return strings.ToLower(host)
}
