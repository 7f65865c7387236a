// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the durable append-only log of
// validated superchats.
//
// Rows are never updated or deleted. Seq is the autoincrement primary key and
// defines replay order; payment_id carries a unique index that is the last
// line of defense for the at-most-once invariant.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-superchat-bridge/internal/domain"
)

// AppendSuperchat inserts rec and fills rec.Seq. A payment that is already
// recorded returns ErrDuplicate.
func AppendSuperchat(ctx context.Context, db *gorm.DB, rec *domain.Superchat) error {
	rec.Seq = 0
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ListSuperchats returns every recorded superchat in append order.
func ListSuperchats(ctx context.Context, db *gorm.DB) ([]domain.Superchat, error) {
	var out []domain.Superchat
	err := db.WithContext(ctx).Order("seq ASC").Find(&out).Error
	return out, err
}

// GetSuperchat fetches a recorded superchat by payment id, or ErrNotFound.
func GetSuperchat(ctx context.Context, db *gorm.DB, paymentID string) (*domain.Superchat, error) {
	var out domain.Superchat
	err := db.WithContext(ctx).Where("payment_id = ?", paymentID).Take(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func superchatsScope(db *gorm.DB, videoID string) *gorm.DB {
	q := db.Model(&domain.Superchat{})
	if videoID != "" {
		q = q.Where("video_id = ?", videoID)
	}
	return q
}

// CountSuperchats returns how many superchats were recorded, optionally
// scoped to one video.
func CountSuperchats(ctx context.Context, db *gorm.DB, videoID string) (int64, error) {
	var total int64
	err := superchatsScope(db.WithContext(ctx), videoID).Count(&total).Error
	return total, err
}

// ListSuperchatsPage returns a page of superchats, newest first, optionally
// scoped to one video.
func ListSuperchatsPage(ctx context.Context, db *gorm.DB, videoID string, offset, limit int) ([]domain.Superchat, error) {
	var out []domain.Superchat
	err := superchatsScope(db.WithContext(ctx), videoID).
		Order("seq DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
