// Package csvterminal reads terminal attendance exports instead of talking to
// the terminal itself. A terminal at ip is represented by <ip>.attlog.csv
// (user_id,timestamp,status[,name]) and optionally <ip>.users.csv
// (user_id,name), found in a local directory or under s3://bucket/prefix.
package csvterminal

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/infrastructure/filesystem"
	"axiapac.com/punchsync/model"
	"axiapac.com/punchsync/terminal"
	"axiapac.com/punchsync/utils"
)

const (
	attlogSuffix = ".attlog.csv"
	usersSuffix  = ".users.csv"
)

type Dialer struct {
	// Source is a directory or an s3:// location.
	Source string
	Logger *slog.Logger
}

func New(source string, logger *slog.Logger) *Dialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dialer{Source: source, Logger: logger}
}

// Dial fails when the terminal has no attendance export.
func (d *Dialer) Dial(ctx context.Context, opts terminal.Options) (terminal.Session, error) {
	attlog, err := d.read(ctx, opts.IP+attlogSuffix)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrConnectivity, opts.IP, err)
	}
	users, err := d.read(ctx, opts.IP+usersSuffix)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		d.Logger.Warn("reading user export failed", "device", opts.IP, "error", err)
	}

	d.Logger.Debug("connected to terminal export", "device", opts.IP, "source", d.Source)
	return &Session{ip: opts.IP, attlog: attlog, users: users, logger: d.Logger}, nil
}

// read returns os.ErrNotExist (wrapped) when the export is absent.
func (d *Dialer) read(ctx context.Context, name string) ([]byte, error) {
	if loc, ok := filesystem.ParseLocation(d.Source); ok {
		keys, err := filesystem.ListFiles(ctx, loc.Bucket, loc.Key(name))
		if err != nil {
			return nil, err
		}
		key := loc.Key(name)
		if utils.Find(keys, func(k *string) bool { return *k == key }) == nil {
			return nil, fmt.Errorf("%s: %w", loc.String()+"/"+name, os.ErrNotExist)
		}
		var buf bytes.Buffer
		if err := filesystem.ReadFile(ctx, loc.Bucket, key, &buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return os.ReadFile(filepath.Join(d.Source, name))
}

type Session struct {
	ip       string
	attlog   []byte
	users    []byte
	logger   *slog.Logger
	disabled bool
	closed   bool
}

func (s *Session) DisableIntake(ctx context.Context) error {
	if s.closed {
		return fmt.Errorf("session for %s is closed", s.ip)
	}
	s.disabled = true
	return nil
}

func (s *Session) EnableIntake(ctx context.Context) error {
	s.disabled = false
	return nil
}

// IntakeDisabled reports whether the terminal is currently not accepting punches.
func (s *Session) IntakeDisabled() bool {
	return s.disabled
}

func (s *Session) Events(ctx context.Context) ([]model.PunchEvent, error) {
	return ParseAttendance(bytes.NewReader(s.attlog), s.logger.With("device", s.ip))
}

func (s *Session) Persons(ctx context.Context) ([]model.Person, error) {
	if len(s.users) == 0 {
		return nil, nil
	}
	return ParseUsers(bytes.NewReader(s.users), s.logger.With("device", s.ip))
}

func (s *Session) Close() error {
	s.closed = true
	s.attlog, s.users = nil, nil
	return nil
}

// ParseAttendance reads user_id,timestamp,status[,name] rows. A header row is
// skipped; rows that cannot be read are dropped with a warning.
func ParseAttendance(r io.Reader, logger *slog.Logger) ([]model.PunchEvent, error) {
	var events []model.PunchEvent
	first := true
	err := utils.ReadCSV(r, func(line int, row []string) {
		if first {
			first = false
			if isHeader(row) {
				return
			}
		}
		if len(row) < 2 {
			logger.Warn("dropping attendance row", "row", line, "error", fmt.Sprintf("expected at least 2 columns, got %d", len(row)))
			return
		}

		ev := model.PunchEvent{
			PersonID:  strings.TrimSpace(row[0]),
			Timestamp: strings.TrimSpace(row[1]),
		}
		if len(row) > 2 && strings.TrimSpace(row[2]) != "" {
			status, err := strconv.Atoi(strings.TrimSpace(row[2]))
			if err != nil {
				logger.Warn("dropping attendance row", "row", line, "error", fmt.Sprintf("invalid status %q", row[2]))
				return
			}
			ev.Status = status
		}
		if len(row) > 3 {
			ev.PersonName = strings.TrimSpace(row[3])
		}
		events = append(events, ev)
	}, func(err *csv.ParseError) {
		first = false
		logger.Warn("dropping attendance row", "row", err.Line, "error", err.Err)
	})
	if err != nil {
		return events, fmt.Errorf("%w: attendance export: %w", core.ErrProtocol, err)
	}
	return events, nil
}

// ParseUsers reads user_id,name rows. Unreadable rows are skipped.
func ParseUsers(r io.Reader, logger *slog.Logger) ([]model.Person, error) {
	var persons []model.Person
	first := true
	err := utils.ReadCSV(r, func(line int, row []string) {
		if first {
			first = false
			if isHeader(row) {
				return
			}
		}
		if len(row) < 2 {
			return
		}
		persons = append(persons, model.Person{ID: strings.TrimSpace(row[0]), Name: strings.TrimSpace(row[1])})
	}, func(err *csv.ParseError) {
		first = false
		logger.Warn("dropping user row", "row", err.Line, "error", err.Err)
	})
	if err != nil {
		return persons, fmt.Errorf("%w: user export: %w", core.ErrProtocol, err)
	}
	return persons, nil
}

func isHeader(row []string) bool {
	return len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "user_id")
}
