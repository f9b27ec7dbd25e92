// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides accessors for the vip_settings
// key/value table.
package repo

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/selmak/go-content-bot/internal/domain"
)

// GetSetting returns the value for key, or def when the row is absent.
func GetSetting(ctx context.Context, db *gorm.DB, key, def string) (string, error) {
	var s domain.VipSetting
	err := db.WithContext(ctx).Where("key = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	return s.Value, nil
}

// GetSettingInt returns the integer value for key, or def when the row is
// absent or not a number.
func GetSettingInt(ctx context.Context, db *gorm.DB, key string, def int) (int, error) {
	v, err := GetSetting(ctx, db, key, "")
	if err != nil {
		return def, err
	}
	if v == "" {
		return def, nil
	}
	n, convErr := strconv.Atoi(v)
	if convErr != nil {
		return def, nil
	}
	return n, nil
}

// PutSetting inserts or replaces the value for key.
func PutSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&domain.VipSetting{Key: key, Value: value}).Error
}
