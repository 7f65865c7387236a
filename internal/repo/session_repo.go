// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file persists monitor session snapshots.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-superchat-bridge/internal/domain"
)

// SaveMonitorSession upserts the snapshot for s.VideoID.
func SaveMonitorSession(ctx context.Context, db *gorm.DB, s *domain.MonitorSession) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "video_id"}},
			UpdateAll: true,
		}).
		Create(s).Error
}

// GetMonitorSession fetches the snapshot for videoID, or ErrNotFound.
func GetMonitorSession(ctx context.Context, db *gorm.DB, videoID string) (*domain.MonitorSession, error) {
	var s domain.MonitorSession
	if err := db.WithContext(ctx).Where("video_id = ?", videoID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListMonitorSessions returns every snapshot ordered by video id.
func ListMonitorSessions(ctx context.Context, db *gorm.DB) ([]domain.MonitorSession, error) {
	var out []domain.MonitorSession
	err := db.WithContext(ctx).Order("video_id ASC").Find(&out).Error
	return out, err
}
