package model

import "time"

// Watermark is the persisted sync boundary.
type Watermark struct {
	LastSyncDate string `json:"last_sync_date"`
}

// WatermarkRow stores the watermark in MySQL. There is a single row per name.
type WatermarkRow struct {
	Name         string    `gorm:"primaryKey;column:name;type:varchar(64)"`
	LastSyncDate string    `gorm:"column:last_sync_date;type:varchar(40);not null"`
	CreatedAt    time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create"`
	UpdatedAt    time.Time `gorm:"type:timestamp;not null;default:CURRENT_TIMESTAMP on update CURRENT_TIMESTAMP"`
}

func (WatermarkRow) TableName() string {
	return "punchsync_watermarks"
}
