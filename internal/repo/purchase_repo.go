// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the UserPurchase
// model used to implement idempotent payment recording.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/selmak/go-content-bot/internal/domain"
)

// ErrDuplicate indicates that a purchase row already exists for the given
// (user_id, content_name) pair.
var ErrDuplicate = errors.New("duplicate")

// CreatePurchase inserts a purchase row and returns ErrDuplicate on unique
// violation. The unique index on (user_id, content_name) is what makes the
// payment event handler safe under duplicate webhook delivery; there is no
// application-level locking.
func CreatePurchase(ctx context.Context, db *gorm.DB, userID int64, contentName string, pricePaid int) (*domain.UserPurchase, error) {
	rec := &domain.UserPurchase{
		UserID:      userID,
		ContentName: contentName,
		PricePaid:   pricePaid,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// HasPurchase reports whether a purchase row exists for (userID, contentName).
func HasPurchase(ctx context.Context, db *gorm.DB, userID int64, contentName string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.UserPurchase{}).
		Where("user_id = ? AND content_name = ?", userID, contentName).
		Count(&n).Error
	return n > 0, err
}

// ListPurchases returns all purchases made by userID, most recent first.
func ListPurchases(ctx context.Context, db *gorm.DB, userID int64) ([]domain.UserPurchase, error) {
	var out []domain.UserPurchase
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// PurchaseStats returns the number of purchase rows and the sum of prices
// paid across the whole ledger. Used by the operator analytics command.
func PurchaseStats(ctx context.Context, db *gorm.DB) (count int64, revenue int64, err error) {
	if err = db.WithContext(ctx).Model(&domain.UserPurchase{}).Count(&count).Error; err != nil {
		return 0, 0, err
	}
	if count == 0 {
		return 0, 0, nil
	}
	var row struct {
		Total int64
	}
	err = db.WithContext(ctx).
		Model(&domain.UserPurchase{}).
		Select("COALESCE(SUM(price_paid), 0) AS total").
		Scan(&row).Error
	return count, row.Total, err
}
