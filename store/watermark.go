package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/model"
	"axiapac.com/punchsync/utils"
)

const DefaultWatermarkFile = "last_sync.json"

// FileWatermarkStore keeps the watermark as {"last_sync_date": "..."} in a
// local JSON file.
type FileWatermarkStore struct {
	Path string
	Zone *time.Location

	mu sync.Mutex
}

func NewFileWatermarkStore(path string, zone *time.Location) *FileWatermarkStore {
	if path == "" {
		path = DefaultWatermarkFile
	}
	if zone == nil {
		zone = utils.KathmanduTZ
	}
	return &FileWatermarkStore{Path: path, Zone: zone}
}

func (s *FileWatermarkStore) Read(ctx context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, fmt.Errorf("%w: watermark file %s not found", core.ErrConfig, s.Path)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: read watermark: %w", core.ErrConfig, err)
	}

	var wm model.Watermark
	if err := json.Unmarshal(b, &wm); err != nil {
		return time.Time{}, fmt.Errorf("%w: watermark file %s: %w", core.ErrConfig, s.Path, err)
	}
	return parseWatermark(wm.LastSyncDate, s.Zone)
}

// Commit replaces the file atomically.
func (s *FileWatermarkStore) Commit(ctx context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.Marshal(model.Watermark{LastSyncDate: t.In(s.Zone).Format(utils.ISOLayout)})
	if err != nil {
		return err
	}
	return writeFileAtomic(s.Path, b)
}

// Reset writes t unconditionally. It is the operator's way to rewind or seed
// the watermark.
func (s *FileWatermarkStore) Reset(ctx context.Context, t time.Time) error {
	return s.Commit(ctx, t)
}

// Seed creates the file with t when it does not exist yet.
func (s *FileWatermarkStore) Seed(ctx context.Context, t time.Time) (bool, error) {
	if _, err := os.Stat(s.Path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	return true, s.Commit(ctx, t)
}

func parseWatermark(s string, zone *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: last_sync_date is empty", core.ErrConfig)
	}
	t, err := utils.ParseLocalTime(s, zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: last_sync_date: %w", core.ErrConfig, err)
	}
	return t.In(zone), nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
