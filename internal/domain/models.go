// Package domain defines the persistence models for the content catalog,
// purchases, and VIP subscriptions. These types are mapped with GORM and form
// the core data layer of the bot.
package domain

import "time"

// Content type discriminator values for ContentItem.ContentType.
const (
	ContentTypeBrowse = "browse" // individually purchasable
	ContentTypeVIP    = "vip"    // subscription-only, never sold per item
)

// User represents a chat-platform user known to the bot. Only the fields the
// payment ledger needs are modeled: the lifetime spend counter is incremented
// exactly once per distinct successful payment event, and the display fields
// feed operator sale notifications.
type User struct {
	ID         int64     `json:"id"          gorm:"primaryKey;autoIncrement:false"`
	Username   string    `json:"username"    gorm:"type:varchar(64)"`
	FirstName  string    `json:"first_name"  gorm:"type:varchar(120)"`
	StarsSpent int       `json:"stars_spent" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// ContentItem is a sellable catalog entry. The name doubles as the primary
// key, matching how items are addressed in commands and preview URLs.
//
// The file reference is stored together with its kind and media kind, both
// assigned once at ingestion time. Downstream code branches on RefKind and
// never re-derives the kind from the string's shape.
//
// Invariant: vip-typed items are never individually purchasable; their price
// field is forced to zero at write time and must not drive any charge.
type ContentItem struct {
	Name        string    `json:"name"         gorm:"type:varchar(200);primaryKey"`
	PriceStars  int       `json:"price_stars"  gorm:"not null"`
	FileRef     string    `json:"file_ref"     gorm:"type:text"`
	RefKind     RefKind   `json:"ref_kind"     gorm:"type:varchar(16);not null"`
	MediaKind   MediaKind `json:"media_kind"   gorm:"type:varchar(16);not null;default:'photo'"`
	Description string    `json:"description"  gorm:"type:text"`
	ContentType string    `json:"content_type" gorm:"type:varchar(50);not null;default:'browse';check:content_type IN ('browse','vip')"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for ContentItem.
func (ContentItem) TableName() string { return "content_items" }

// Reference returns the item's tagged content reference.
func (c ContentItem) Reference() ContentReference {
	return ContentReference{Kind: c.RefKind, Value: c.FileRef}
}

// UserPurchase records that a user bought one browse item. At most one row
// exists per (user, content) pair; the unique index makes payment recording
// idempotent under duplicate event delivery. PricePaid is the price at
// purchase time and is never rewritten when the catalog price changes.
type UserPurchase struct {
	ID          uint      `json:"id"           gorm:"primaryKey;autoIncrement"`
	UserID      int64     `json:"user_id"      gorm:"not null;index;uniqueIndex:ux_purchase_user_content,priority:1"`
	ContentName string    `json:"content_name" gorm:"type:varchar(200);not null;uniqueIndex:ux_purchase_user_content,priority:2"`
	PricePaid   int       `json:"price_paid"   gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`

	// Content is the purchased catalog entry. Purchases are cascade-deleted
	// if the item is removed by the operator.
	Content ContentItem `json:"-" gorm:"foreignKey:ContentName;references:Name;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for UserPurchase.
func (UserPurchase) TableName() string { return "user_purchases" }

// VipSubscription is the per-user singleton subscription row. It is created
// on first payment, extended on renewal, and flipped inactive lazily when an
// expired row is observed. Rows are never deleted.
//
// Invariant: a user is VIP iff IsActive and ExpiryDate is in the future; the
// expiry comparison is the single source of truth.
type VipSubscription struct {
	UserID        int64     `json:"user_id"        gorm:"primaryKey;autoIncrement:false"`
	StartDate     time.Time `json:"start_date"     gorm:"not null"`
	ExpiryDate    time.Time `json:"expiry_date"    gorm:"not null"`
	IsActive      bool      `json:"is_active"      gorm:"not null;default:true"`
	TotalPayments int       `json:"total_payments" gorm:"not null;default:0"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for VipSubscription.
func (VipSubscription) TableName() string { return "vip_subscriptions" }

// VipSetting is a key/value row for the operator-tunable VIP offer
// (vip_price_stars, vip_duration_days, vip_description).
type VipSetting struct {
	Key   string `gorm:"type:varchar(100);primaryKey"`
	Value string `gorm:"type:text;not null"`
}

// TableName returns the database table name for VipSetting.
func (VipSetting) TableName() string { return "vip_settings" }

// Well-known vip_settings keys.
const (
	SettingVipPriceStars   = "vip_price_stars"
	SettingVipDurationDays = "vip_duration_days"
	SettingVipDescription  = "vip_description"
)

// Teaser is a free promotional item shown to everyone (or VIP members only
// when VipOnly is set). Teasers carry the same tagged reference scheme as
// catalog entries and are delivered through the same dispatcher.
type Teaser struct {
	ID          uint      `json:"id"          gorm:"primaryKey;autoIncrement"`
	FileRef     string    `json:"file_ref"    gorm:"type:text"`
	RefKind     RefKind   `json:"ref_kind"    gorm:"type:varchar(16);not null"`
	MediaKind   MediaKind `json:"media_kind"  gorm:"type:varchar(16);not null;default:'photo'"`
	Description string    `json:"description" gorm:"type:text"`
	VipOnly     bool      `json:"vip_only"    gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for Teaser.
func (Teaser) TableName() string { return "teasers" }

// Reference returns the teaser's tagged content reference.
func (t Teaser) Reference() ContentReference {
	return ContentReference{Kind: t.RefKind, Value: t.FileRef}
}
