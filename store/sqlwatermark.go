package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"axiapac.com/punchsync/core"
	"axiapac.com/punchsync/model"
	"axiapac.com/punchsync/utils"
)

const DefaultWatermarkName = "default"

// SQLWatermarkStore keeps the watermark in the punchsync_watermarks table so
// several hosts (or lambda invocations) can share it.
type SQLWatermarkStore struct {
	DB   *gorm.DB
	Name string
	Zone *time.Location

	mu sync.Mutex
}

func NewSQLWatermarkStore(db *gorm.DB, name string, zone *time.Location) *SQLWatermarkStore {
	if name == "" {
		name = DefaultWatermarkName
	}
	if zone == nil {
		zone = utils.KathmanduTZ
	}
	return &SQLWatermarkStore{DB: db, Name: name, Zone: zone}
}

// Migrate creates the table when missing.
func (s *SQLWatermarkStore) Migrate(ctx context.Context) error {
	return s.DB.WithContext(ctx).AutoMigrate(&model.WatermarkRow{})
}

func (s *SQLWatermarkStore) Read(ctx context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var row model.WatermarkRow
	err := s.DB.WithContext(ctx).Where("name = ?", s.Name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, fmt.Errorf("%w: no watermark row %q", core.ErrConfig, s.Name)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: read watermark %q: %w", core.ErrStorage, s.Name, err)
	}
	return parseWatermark(row.LastSyncDate, s.Zone)
}

func (s *SQLWatermarkStore) Commit(ctx context.Context, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := model.WatermarkRow{Name: s.Name, LastSyncDate: t.In(s.Zone).Format(utils.ISOLayout)}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_sync_date"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: commit watermark %q: %w", core.ErrStorage, s.Name, err)
	}
	return nil
}

func (s *SQLWatermarkStore) Reset(ctx context.Context, t time.Time) error {
	return s.Commit(ctx, t)
}

func (s *SQLWatermarkStore) Seed(ctx context.Context, t time.Time) (bool, error) {
	if _, err := s.Read(ctx); err == nil {
		return false, nil
	} else if !errors.Is(err, core.ErrConfig) {
		return false, err
	}
	return true, s.Commit(ctx, t)
}
