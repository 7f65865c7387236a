// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// SuperchatsStats returns the number of recorded superchats and the highest
// Seq among them, optionally scoped to one video. Because the log is
// append-only, (count, maxSeq) changes whenever a listing would change.
//
// When there are no rows, count and maxSeq are both 0.
func SuperchatsStats(ctx context.Context, db *gorm.DB, videoID string) (count int64, maxSeq uint64, err error) {
	q := superchatsScope(db.WithContext(ctx), videoID)

	if err = q.Count(&count).Error; err != nil {
		return 0, 0, err
	}
	if count == 0 {
		return 0, 0, nil
	}

	var row struct {
		Seq uint64
	}
	if err = superchatsScope(db.WithContext(ctx), videoID).
		Select("seq").Order("seq DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, 0, err
	}
	return count, row.Seq, nil
}
