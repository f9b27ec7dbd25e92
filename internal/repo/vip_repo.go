// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the per-user
// VipSubscription singleton.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/selmak/go-content-bot/internal/domain"
)

// GetVipSubscription returns the subscription row for userID, or ErrNotFound.
// Expiry is not interpreted here; callers own the active/expired decision.
func GetVipSubscription(ctx context.Context, db *gorm.DB, userID int64) (*domain.VipSubscription, error) {
	var sub domain.VipSubscription
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// DeactivateVipSubscription flips the row inactive. The write is idempotent:
// deactivating an already-inactive subscription is a no-op, and a missing row
// is not an error.
func DeactivateVipSubscription(ctx context.Context, db *gorm.DB, userID int64) error {
	return db.WithContext(ctx).
		Model(&domain.VipSubscription{}).
		Where("user_id = ?", userID).
		Update("is_active", false).Error
}

// UpsertVipSubscription creates the per-user singleton on first payment or
// rewrites expiry/active/payment-count on renewal. StartDate is set only on
// the initial insert.
func UpsertVipSubscription(ctx context.Context, db *gorm.DB, sub *domain.VipSubscription) error {
	var existing domain.VipSubscription
	err := db.WithContext(ctx).Where("user_id = ?", sub.UserID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if sub.StartDate.IsZero() {
			sub.StartDate = time.Now().UTC()
		}
		return db.WithContext(ctx).Create(sub).Error
	}
	if err != nil {
		return err
	}
	return db.WithContext(ctx).
		Model(&domain.VipSubscription{}).
		Where("user_id = ?", sub.UserID).
		Updates(map[string]any{
			"expiry_date":    sub.ExpiryDate,
			"is_active":      sub.IsActive,
			"total_payments": sub.TotalPayments,
		}).Error
}

// VipStats returns the number of subscription rows that are flagged active
// and unexpired at the given instant, plus the cumulative payment count
// across all rows. Used by the operator analytics command.
func VipStats(ctx context.Context, db *gorm.DB, now time.Time) (active int64, payments int64, err error) {
	if err = db.WithContext(ctx).
		Model(&domain.VipSubscription{}).
		Where("is_active = ? AND expiry_date > ?", true, now).
		Count(&active).Error; err != nil {
		return 0, 0, err
	}
	var row struct {
		Total int64
	}
	err = db.WithContext(ctx).
		Model(&domain.VipSubscription{}).
		Select("COALESCE(SUM(total_payments), 0) AS total").
		Scan(&row).Error
	return active, row.Total, err
}
