// Package services – EntitlementService
//
// This file implements the EntitlementService, the single place that decides
// who may receive which content item. It combines purchase history with the
// live subscription row and returns one of five access outcomes; delivery and
// the preview proxy are both gated by the same decision.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// user and content identifiers.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/selmak/go-content-bot/internal/domain"
	"github.com/selmak/go-content-bot/internal/repo"
)

// AccessDecision is the outcome of resolving a user against a content item.
type AccessDecision int

const (
	// AccessNotFound: no catalog entry with that name.
	AccessNotFound AccessDecision = iota
	// AccessAllowOwned: browse item already purchased by the user.
	AccessAllowOwned
	// AccessAllowVipFree: vip item requested by an active VIP member.
	AccessAllowVipFree
	// AccessRequiresPurchase: browse item not yet purchased; the result
	// carries the catalog price for invoice creation.
	AccessRequiresPurchase
	// AccessRequiresVip: vip item requested by a non-member. Individual
	// purchase of vip items is always rejected, whatever the stored price.
	AccessRequiresVip
)

// String returns the decision name for logs.
func (d AccessDecision) String() string {
	switch d {
	case AccessAllowOwned:
		return "allow_owned"
	case AccessAllowVipFree:
		return "allow_vip_free"
	case AccessRequiresPurchase:
		return "requires_purchase"
	case AccessRequiresVip:
		return "requires_vip"
	default:
		return "not_found"
	}
}

// AccessResult bundles the decision with the catalog entry it was made for
// and, for purchasable items, the price an invoice should carry.
type AccessResult struct {
	Decision   AccessDecision
	PriceStars int
	Item       *domain.ContentItem
}

// VipStatus describes a user's subscription state at the moment of the call.
type VipStatus struct {
	IsVip    bool
	DaysLeft int
	Expired  bool
}

// EntitlementService resolves access decisions from the purchase ledger and
// the subscription table.
type EntitlementService struct {
	DB *gorm.DB

	// Now is the clock used for expiry checks; tests override it.
	Now func() time.Time
}

// NewEntitlementService constructs an EntitlementService with the real clock.
func NewEntitlementService(db *gorm.DB) *EntitlementService {
	return &EntitlementService{DB: db, Now: time.Now}
}

func (s *EntitlementService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CheckVipStatus reads the user's subscription row. An active row whose
// expiry has passed is deactivated on the spot (idempotent write) and
// reported as expired; the expiry comparison is the single source of truth,
// never the stored flag alone.
func (s *EntitlementService) CheckVipStatus(ctx context.Context, userID int64) (VipStatus, error) {
	tr := otel.Tracer("services/EntitlementService")
	ctx, span := tr.Start(ctx, "CheckVipStatus",
		trace.WithAttributes(attribute.Int64("user.id", userID)),
	)
	defer span.End()

	sub, err := repo.GetVipSubscription(ctx, s.DB, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return VipStatus{}, nil
	}
	if err != nil {
		return VipStatus{}, err
	}
	if !sub.IsActive {
		return VipStatus{}, nil
	}

	now := s.now()
	if !sub.ExpiryDate.After(now) {
		if err := repo.DeactivateVipSubscription(ctx, s.DB, userID); err != nil {
			return VipStatus{}, err
		}
		return VipStatus{Expired: true}, nil
	}

	days := int(sub.ExpiryDate.Sub(now).Hours() / 24)
	return VipStatus{IsVip: true, DaysLeft: days}, nil
}

// OwnsContent reports whether a purchase row exists for (userID, name).
// Ownership is only meaningful for browse items; vip items are never owned.
func (s *EntitlementService) OwnsContent(ctx context.Context, userID int64, name string) (bool, error) {
	return repo.HasPurchase(ctx, s.DB, userID, name)
}

// ResolveAccess decides the access outcome for userID and the named item.
//
// Decision table:
//   - item missing                      -> AccessNotFound
//   - vip item, active VIP member       -> AccessAllowVipFree
//   - vip item, anyone else             -> AccessRequiresVip
//   - browse item, already purchased    -> AccessAllowOwned
//   - browse item, not purchased        -> AccessRequiresPurchase (+price)
func (s *EntitlementService) ResolveAccess(ctx context.Context, userID int64, name string) (AccessResult, error) {
	tr := otel.Tracer("services/EntitlementService")
	ctx, span := tr.Start(ctx, "ResolveAccess",
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.String("content.name", name),
		),
	)
	defer span.End()

	item, err := repo.GetContentItem(ctx, s.DB, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return AccessResult{Decision: AccessNotFound}, nil
	}
	if err != nil {
		return AccessResult{}, err
	}

	if item.ContentType == domain.ContentTypeVIP {
		st, err := s.CheckVipStatus(ctx, userID)
		if err != nil {
			return AccessResult{}, err
		}
		if st.IsVip {
			return AccessResult{Decision: AccessAllowVipFree, Item: item}, nil
		}
		return AccessResult{Decision: AccessRequiresVip, Item: item}, nil
	}

	owned, err := s.OwnsContent(ctx, userID, name)
	if err != nil {
		return AccessResult{}, err
	}
	if owned {
		return AccessResult{Decision: AccessAllowOwned, Item: item}, nil
	}
	return AccessResult{Decision: AccessRequiresPurchase, PriceStars: item.PriceStars, Item: item}, nil
}
