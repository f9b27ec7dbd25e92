// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the User model.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/selmak/go-content-bot/internal/domain"
)

// UpsertUser creates the user row on first contact or refreshes the display
// fields on subsequent ones. The lifetime spend counter is never touched
// here; only AddStarsSpent mutates it.
func UpsertUser(ctx context.Context, db *gorm.DB, id int64, username, firstName string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		u = domain.User{
			ID:        id,
			Username:  username,
			FirstName: firstName,
			CreatedAt: time.Now().UTC(),
		}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			return nil, err
		}
		return &u, nil
	}
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if username != "" && u.Username != username {
		updates["username"] = username
	}
	if firstName != "" && u.FirstName != firstName {
		updates["first_name"] = firstName
	}
	if len(updates) > 0 {
		if err := db.WithContext(ctx).
			Model(&domain.User{}).
			Where("id = ?", id).
			Updates(updates).Error; err != nil {
			return nil, err
		}
		if v, ok := updates["username"]; ok {
			u.Username = v.(string)
		}
		if v, ok := updates["first_name"]; ok {
			u.FirstName = v.(string)
		}
	}
	return &u, nil
}

// GetUser fetches a user by id, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id int64) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// AddStarsSpent increments the user's lifetime spend counter by amount.
// A missing row is created first so payment events for users the bot has
// not greeted yet are still accounted for.
func AddStarsSpent(ctx context.Context, db *gorm.DB, id int64, amount int) error {
	if _, err := UpsertUser(ctx, db, id, "", ""); err != nil {
		return err
	}
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("stars_spent", gorm.Expr("stars_spent + ?", amount)).Error
}
