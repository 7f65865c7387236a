// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the ShortLink
// model.
//
// Links are insert-only: there is no update path. A code collision surfaces
// as ErrDuplicate so the caller can draw a fresh code and retry.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-superchat-bridge/internal/domain"
)

// CreateShortLink inserts a new link. CreatedAt is set to UTC now when zero.
// A code that already exists returns ErrDuplicate.
func CreateShortLink(ctx context.Context, db *gorm.DB, link *domain.ShortLink) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(link).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetShortLink fetches a link by code, or ErrNotFound. Expiry is left to the
// caller.
func GetShortLink(ctx context.Context, db *gorm.DB, code string) (*domain.ShortLink, error) {
	var l domain.ShortLink
	err := db.WithContext(ctx).Where("code = ?", code).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CountShortLinks returns the number of stored links.
func CountShortLinks(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.ShortLink{}).Count(&total).Error
	return total, err
}

// DeleteExpiredShortLinks removes links whose expiry is at or before now and
// returns how many were removed.
func DeleteExpiredShortLinks(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Delete(&domain.ShortLink{})
	return res.RowsAffected, res.Error
}
