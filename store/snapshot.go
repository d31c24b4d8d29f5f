package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"axiapac.com/punchsync/infrastructure/filesystem"
	"axiapac.com/punchsync/model"
	"axiapac.com/punchsync/report"
)

const DefaultSnapshotFile = "attendance_records.json"

// Snapshot is the last payload written, for offline inspection and replay.
type Snapshot struct {
	DeviceIP string            `json:"device_ip"`
	SavedAt  time.Time         `json:"saved_at"`
	Payload  model.SyncPayload `json:"payload"`
}

// FileSnapshotStore overwrites one JSON file with the latest payload. When
// Mirror is set the file is also copied to S3; when Workbook is set an xlsx
// rendering is written next to it.
type FileSnapshotStore struct {
	Path     string
	Mirror   *filesystem.Location
	Workbook bool
	Logger   *slog.Logger
	Now      func() time.Time

	mu     sync.RWMutex
	latest *Snapshot
}

func NewFileSnapshotStore(path string) *FileSnapshotStore {
	if path == "" {
		path = DefaultSnapshotFile
	}
	return &FileSnapshotStore{Path: path, Now: time.Now}
}

func (s *FileSnapshotStore) Save(ctx context.Context, deviceIP string, payload model.SyncPayload) error {
	if payload == nil {
		payload = model.SyncPayload{}
	}
	data, err := json.MarshalIndent(payload, "", "    ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := writeFileAtomic(s.Path, data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	s.mu.Lock()
	s.latest = &Snapshot{DeviceIP: deviceIP, SavedAt: now(), Payload: payload}
	s.mu.Unlock()

	var sheet []byte
	if s.Workbook {
		if sheet, err = report.Workbook(deviceIP, payload); err != nil {
			return fmt.Errorf("render workbook: %w", err)
		}
		if err := writeFileAtomic(s.workbookPath(), sheet); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
	}

	if s.Mirror != nil {
		s.mirror(ctx, deviceIP, data, sheet)
	}
	return nil
}

// mirror failures are logged only; the local file is the snapshot of record.
func (s *FileSnapshotStore) mirror(ctx context.Context, deviceIP string, data, sheet []byte) {
	base := strings.TrimSuffix(filepath.Base(s.Path), filepath.Ext(s.Path))
	key := s.Mirror.Key(fmt.Sprintf("%s/%s.json", deviceIP, base))
	if err := filesystem.WriteFile(ctx, s.Mirror.Bucket, key, "application/json", data); err != nil {
		s.logger().Warn("mirroring snapshot failed", "bucket", s.Mirror.Bucket, "key", key, "error", err)
	}
	if sheet == nil {
		return
	}
	key = s.Mirror.Key(fmt.Sprintf("%s/%s.xlsx", deviceIP, base))
	if err := filesystem.WriteFile(ctx, s.Mirror.Bucket, key,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", sheet); err != nil {
		s.logger().Warn("mirroring workbook failed", "bucket", s.Mirror.Bucket, "key", key, "error", err)
	}
}

// Latest returns the snapshot saved by this process, if any.
func (s *FileSnapshotStore) Latest() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Snapshot{}, false
	}
	return *s.latest, true
}

func (s *FileSnapshotStore) workbookPath() string {
	return strings.TrimSuffix(s.Path, filepath.Ext(s.Path)) + ".xlsx"
}

func (s *FileSnapshotStore) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
