// Package services – LedgerService
//
// This file implements the purchase ledger: idempotent recording of item
// purchases, activation and extension of VIP subscriptions, and pre-checkout
// validation. The ledger is the source of truth for entitlement facts; the
// EntitlementService only ever reads what is recorded here.
//
// Idempotency: payment events may be delivered more than once. Recording
// relies on the unique (user_id, content_name) index — the insert either
// lands once or reports a duplicate — so a replayed event never double-grants
// or double-increments the lifetime spend counter.
package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/selmak/go-content-bot/internal/config"
	"github.com/selmak/go-content-bot/internal/domain"
	"github.com/selmak/go-content-bot/internal/repo"
)

// Payment payload kinds carried in invoice payloads.
const (
	PayloadKindVip     = "vip_subscription"
	PayloadKindContent = "content"
)

// PaymentPayload identifies what a payment event pays for. It is encoded
// into the invoice at creation time and parsed back when the provider calls
// in; the content name comes last so it may contain separator characters.
type PaymentPayload struct {
	Kind        string // PayloadKindVip or PayloadKindContent
	UserID      int64
	ContentName string // set for content payloads only
}

// Encode renders the payload wire form: "<kind>:<user_id>[:<content name>]".
func (p PaymentPayload) Encode() string {
	if p.Kind == PayloadKindContent {
		return fmt.Sprintf("%s:%d:%s", p.Kind, p.UserID, p.ContentName)
	}
	return fmt.Sprintf("%s:%d", p.Kind, p.UserID)
}

// ParsePaymentPayload parses the wire form produced by Encode. Unknown kinds
// and malformed fields yield ErrUnknownPayload.
func ParsePaymentPayload(s string) (PaymentPayload, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 {
		return PaymentPayload{}, ErrUnknownPayload
	}
	uid, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || uid <= 0 {
		return PaymentPayload{}, ErrUnknownPayload
	}
	switch parts[0] {
	case PayloadKindVip:
		return PaymentPayload{Kind: PayloadKindVip, UserID: uid}, nil
	case PayloadKindContent:
		if len(parts) != 3 || parts[2] == "" {
			return PaymentPayload{}, ErrUnknownPayload
		}
		return PaymentPayload{Kind: PayloadKindContent, UserID: uid, ContentName: parts[2]}, nil
	default:
		return PaymentPayload{}, ErrUnknownPayload
	}
}

// LedgerService records payment outcomes and validates pre-checkout queries.
type LedgerService struct {
	DB *gorm.DB

	// Currency is the only accepted in-chat currency ("XTR").
	Currency string
	// VIP holds the fallback price/duration/description backing missing
	// settings rows.
	VIP config.VIPConfig

	// Now is the clock used for expiry arithmetic; tests override it.
	Now func() time.Time
}

// NewLedgerService constructs a LedgerService with the real clock.
func NewLedgerService(db *gorm.DB, currency string, vip config.VIPConfig) *LedgerService {
	return &LedgerService{DB: db, Currency: currency, VIP: vip, Now: time.Now}
}

func (s *LedgerService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// RecordContentPurchase inserts the purchase row for (userID, contentName)
// if absent and, on first insert only, adds pricePaid to the user's lifetime
// spend counter. The returned flag reports whether a new row was created;
// replaying the same payment event returns (false, nil) and changes nothing.
func (s *LedgerService) RecordContentPurchase(ctx context.Context, userID int64, contentName string, pricePaid int) (bool, error) {
	created := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := repo.CreatePurchase(ctx, tx, userID, contentName, pricePaid)
		if errors.Is(err, repo.ErrDuplicate) {
			log.Debug().
				Int64("user_id", userID).
				Str("content", contentName).
				Msg("duplicate purchase event ignored")
			return nil
		}
		if err != nil {
			return err
		}
		created = true
		return repo.AddStarsSpent(ctx, tx, userID, pricePaid)
	})
	return created, err
}

// ActivateOrRenewVip creates the subscription on first payment or extends it
// on renewal, and returns the applied duration in days for confirmation
// messaging.
//
// Extension base: max(current expiry, now). Early renewal therefore never
// loses remaining days, and a lapsed subscription restarts from now instead
// of being backdated. The payment counter increments on every call; the
// lifetime spend counter increments by amountPaid.
func (s *LedgerService) ActivateOrRenewVip(ctx context.Context, userID int64, amountPaid int) (int, error) {
	days, err := repo.GetSettingInt(ctx, s.DB, domain.SettingVipDurationDays, s.VIP.DurationDays)
	if err != nil {
		return 0, err
	}
	duration := time.Duration(days) * 24 * time.Hour
	now := s.now().UTC()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := repo.GetVipSubscription(ctx, tx, userID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sub = &domain.VipSubscription{
				UserID:    userID,
				StartDate: now,
			}
		} else if err != nil {
			return err
		}

		base := now
		if sub.IsActive && sub.ExpiryDate.After(now) {
			base = sub.ExpiryDate
		}
		sub.ExpiryDate = base.Add(duration)
		sub.IsActive = true
		sub.TotalPayments++

		if err := repo.UpsertVipSubscription(ctx, tx, sub); err != nil {
			return err
		}
		if amountPaid > 0 {
			return repo.AddStarsSpent(ctx, tx, userID, amountPaid)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return days, nil
}

// VipPrice returns the current subscription price in stars, falling back to
// the configured default when the settings row is absent.
func (s *LedgerService) VipPrice(ctx context.Context) (int, error) {
	return repo.GetSettingInt(ctx, s.DB, domain.SettingVipPriceStars, s.VIP.PriceStars)
}

// VipDescription returns the current subscription pitch text.
func (s *LedgerService) VipDescription(ctx context.Context) (string, error) {
	return repo.GetSetting(ctx, s.DB, domain.SettingVipDescription, s.VIP.Description)
}

// ValidatePrecheckout authorizes or rejects a pre-checkout query. The
// expected price is recomputed from the current catalog/settings at
// validation time — not trusted from invoice-creation time — so a price
// change between invoice and checkout rejects the charge. Any parse failure,
// unknown item, vip-typed item offered as an individual purchase, currency
// mismatch, or amount mismatch is a rejection; unrecognized payloads are
// never authorized.
func (s *LedgerService) ValidatePrecheckout(ctx context.Context, payload string, amount int, currency string) error {
	p, err := ParsePaymentPayload(payload)
	if err != nil {
		return err
	}
	if !strings.EqualFold(currency, s.Currency) {
		return fmt.Errorf("%w: got %q, want %q", ErrCurrencyMismatch, currency, s.Currency)
	}

	var expected int
	switch p.Kind {
	case PayloadKindVip:
		expected, err = s.VipPrice(ctx)
		if err != nil {
			return err
		}
	case PayloadKindContent:
		item, err := repo.GetContentItem(ctx, s.DB, p.ContentName)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnknownPayload
		}
		if err != nil {
			return err
		}
		// VIP items are subscription-only whatever their stored price.
		if item.ContentType == domain.ContentTypeVIP {
			return ErrUnknownPayload
		}
		expected = item.PriceStars
	}

	if amount != expected {
		return fmt.Errorf("%w: got %d, want %d", ErrPriceMismatch, amount, expected)
	}
	return nil
}
