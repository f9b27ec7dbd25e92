// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the Teaser model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/selmak/go-content-bot/internal/domain"
)

// CreateTeaser inserts a new teaser row.
func CreateTeaser(ctx context.Context, db *gorm.DB, t *domain.Teaser) (*domain.Teaser, error) {
	t.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// ListTeasers returns teasers, newest first. When vipOnly is true only
// VIP-exclusive teasers are returned, otherwise only public ones.
func ListTeasers(ctx context.Context, db *gorm.DB, vipOnly bool) ([]domain.Teaser, error) {
	var out []domain.Teaser
	err := db.WithContext(ctx).
		Where("vip_only = ?", vipOnly).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// DeleteTeaser removes a teaser by id, returning ErrNotFound when absent.
func DeleteTeaser(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Teaser{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
