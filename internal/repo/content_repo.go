// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the catalog
// (ContentItem) model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When an item is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/selmak/go-content-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateContentItem inserts a new catalog row. VIP-typed items have their
// price forced to zero before the write: vip content is never sold per item,
// the stored price is cosmetic data only.
func CreateContentItem(ctx context.Context, db *gorm.DB, item *domain.ContentItem) (*domain.ContentItem, error) {
	if item.ContentType == domain.ContentTypeVIP {
		item.PriceStars = 0
	}
	item.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// GetContentItem fetches a catalog entry by name, or ErrNotFound.
func GetContentItem(ctx context.Context, db *gorm.DB, name string) (*domain.ContentItem, error) {
	var item domain.ContentItem
	err := db.WithContext(ctx).
		Where("name = ?", name).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListContentItems returns all catalog entries of the given content type,
// ordered by creation time descending. An empty contentType lists everything.
func ListContentItems(ctx context.Context, db *gorm.DB, contentType string) ([]domain.ContentItem, error) {
	q := db.WithContext(ctx).Order("created_at desc")
	if contentType != "" {
		q = q.Where("content_type = ?", contentType)
	}
	var out []domain.ContentItem
	err := q.Find(&out).Error
	return out, err
}

// CountContentItems returns the number of catalog entries of the given type
// (all types when contentType is empty).
func CountContentItems(ctx context.Context, db *gorm.DB, contentType string) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.ContentItem{})
	if contentType != "" {
		q = q.Where("content_type = ?", contentType)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}

// ListContentItemsPage returns a paginated slice of catalog entries, ordered
// by creation time descending. Use CountContentItems for pagination metadata.
func ListContentItemsPage(ctx context.Context, db *gorm.DB, contentType string, offset, limit int) ([]domain.ContentItem, error) {
	q := db.WithContext(ctx).Order("created_at desc")
	if contentType != "" {
		q = q.Where("content_type = ?", contentType)
	}
	var out []domain.ContentItem
	err := q.Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}

// DeleteContentItem removes a catalog entry by name. Deletion is the only
// way a catalog row disappears and is reserved for the operator. Returns
// ErrNotFound when no row matched.
func DeleteContentItem(ctx context.Context, db *gorm.DB, name string) error {
	res := db.WithContext(ctx).
		Where("name = ?", name).
		Delete(&domain.ContentItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateContentItemPrice updates the stored price of a browse item. VIP rows
// keep a zero price regardless of the requested value.
func UpdateContentItemPrice(ctx context.Context, db *gorm.DB, name string, priceStars int) error {
	item, err := GetContentItem(ctx, db, name)
	if err != nil {
		return err
	}
	if item.ContentType == domain.ContentTypeVIP {
		priceStars = 0
	}
	res := db.WithContext(ctx).
		Model(&domain.ContentItem{}).
		Where("name = ?", name).
		Update("price_stars", priceStars)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
