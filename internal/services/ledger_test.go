package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/selmak/go-content-bot/internal/config"
	"github.com/selmak/go-content-bot/internal/domain"
	"github.com/selmak/go-content-bot/internal/repo"
)

func newLedger(t *testing.T, db *gorm.DB) *LedgerService {
	t.Helper()
	return NewLedgerService(db, "XTR", config.VIPConfig{
		PriceStars:   399,
		DurationDays: 30,
		Description:  "vip pitch",
	})
}

func TestPaymentPayload_RoundTrip(t *testing.T) {
	cases := []PaymentPayload{
		{Kind: PayloadKindVip, UserID: 7},
		{Kind: PayloadKindContent, UserID: 7, ContentName: "pic1"},
		// Names may contain the separator; the name field comes last.
		{Kind: PayloadKindContent, UserID: 7, ContentName: "summer:set:2"},
	}
	for _, p := range cases {
		got, err := ParsePaymentPayload(p.Encode())
		if err != nil {
			t.Fatalf("parse %q: %v", p.Encode(), err)
		}
		if got != p {
			t.Fatalf("round trip: got %+v, want %+v", got, p)
		}
	}
}

func TestParsePaymentPayload_Malformed(t *testing.T) {
	cases := []string{
		"",
		"vip_subscription",
		"vip_subscription:abc",
		"vip_subscription:-3",
		"vip_subscription:0",
		"content:7",
		"content:7:",
		"refund:7",
		"garbage",
	}
	for _, raw := range cases {
		if _, err := ParsePaymentPayload(raw); !errors.Is(err, ErrUnknownPayload) {
			t.Errorf("ParsePaymentPayload(%q) = %v, want ErrUnknownPayload", raw, err)
		}
	}
}

func TestRecordContentPurchase_IdempotentReplay(t *testing.T) {
	db := newTestDB(t)
	seedContent(t, db, "pic1", domain.ContentTypeBrowse, 100)
	svc := newLedger(t, db)

	created, err := svc.RecordContentPurchase(context.Background(), 7, "pic1", 100)
	if err != nil || !created {
		t.Fatalf("first record = (%v, %v), want (true, nil)", created, err)
	}

	// Replayed payment event: no new row, no double spend.
	created, err = svc.RecordContentPurchase(context.Background(), 7, "pic1", 100)
	if err != nil || created {
		t.Fatalf("replay = (%v, %v), want (false, nil)", created, err)
	}

	u, err := repo.GetUser(context.Background(), db, 7)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.StarsSpent != 100 {
		t.Fatalf("stars_spent = %d, want 100 (single increment)", u.StarsSpent)
	}
}

func TestActivateOrRenewVip_FirstPayment(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(t, db)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.Now = fixedClock(now)

	days, err := svc.ActivateOrRenewVip(context.Background(), 7, 399)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if days != 30 {
		t.Fatalf("days = %d, want 30", days)
	}

	sub, err := repo.GetVipSubscription(context.Background(), db, 7)
	if err != nil {
		t.Fatalf("get sub: %v", err)
	}
	if !sub.IsActive || sub.TotalPayments != 1 {
		t.Fatalf("sub = %+v", sub)
	}
	if !sub.ExpiryDate.Equal(now.Add(30 * 24 * time.Hour)) {
		t.Fatalf("expiry = %v, want now+30d", sub.ExpiryDate)
	}

	u, _ := repo.GetUser(context.Background(), db, 7)
	if u.StarsSpent != 399 {
		t.Fatalf("stars_spent = %d, want 399", u.StarsSpent)
	}
}

func TestActivateOrRenewVip_EarlyRenewalExtendsFromExpiry(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(t, db)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.Now = fixedClock(now)

	if _, err := svc.ActivateOrRenewVip(context.Background(), 7, 399); err != nil {
		t.Fatalf("first: %v", err)
	}
	// Renew 10 days in, 20 days before expiry: remaining time must be kept.
	svc.Now = fixedClock(now.Add(10 * 24 * time.Hour))
	if _, err := svc.ActivateOrRenewVip(context.Background(), 7, 399); err != nil {
		t.Fatalf("renew: %v", err)
	}

	sub, _ := repo.GetVipSubscription(context.Background(), db, 7)
	want := now.Add(60 * 24 * time.Hour) // original expiry + 30d
	if !sub.ExpiryDate.Equal(want) {
		t.Fatalf("expiry = %v, want %v", sub.ExpiryDate, want)
	}
	if sub.TotalPayments != 2 {
		t.Fatalf("payments = %d, want 2", sub.TotalPayments)
	}
}

func TestActivateOrRenewVip_LapsedRestartsFromNow(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(t, db)
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.Now = fixedClock(start)

	if _, err := svc.ActivateOrRenewVip(context.Background(), 7, 399); err != nil {
		t.Fatalf("first: %v", err)
	}
	// Pay again 100 days later, long after the lapse: no backdating.
	later := start.Add(100 * 24 * time.Hour)
	svc.Now = fixedClock(later)
	if _, err := svc.ActivateOrRenewVip(context.Background(), 7, 399); err != nil {
		t.Fatalf("renew: %v", err)
	}

	sub, _ := repo.GetVipSubscription(context.Background(), db, 7)
	want := later.Add(30 * 24 * time.Hour)
	if !sub.ExpiryDate.Equal(want) {
		t.Fatalf("expiry = %v, want %v", sub.ExpiryDate, want)
	}
}

func TestActivateOrRenewVip_UsesStoredDuration(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(t, db)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.Now = fixedClock(now)

	if err := repo.PutSetting(context.Background(), db, domain.SettingVipDurationDays, "7"); err != nil {
		t.Fatalf("put: %v", err)
	}
	days, err := svc.ActivateOrRenewVip(context.Background(), 7, 100)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if days != 7 {
		t.Fatalf("days = %d, want 7 from settings", days)
	}
}

func TestVipPriceAndDescription_Fallbacks(t *testing.T) {
	db := newTestDB(t)
	svc := newLedger(t, db)

	price, err := svc.VipPrice(context.Background())
	if err != nil || price != 399 {
		t.Fatalf("price = %d (%v), want config default 399", price, err)
	}
	if err := repo.PutSetting(context.Background(), db, domain.SettingVipPriceStars, "500"); err != nil {
		t.Fatalf("put: %v", err)
	}
	price, err = svc.VipPrice(context.Background())
	if err != nil || price != 500 {
		t.Fatalf("price = %d (%v), want stored 500", price, err)
	}

	desc, err := svc.VipDescription(context.Background())
	if err != nil || desc != "vip pitch" {
		t.Fatalf("desc = %q (%v)", desc, err)
	}
}

func TestValidatePrecheckout_Authorizes(t *testing.T) {
	db := newTestDB(t)
	seedContent(t, db, "pic1", domain.ContentTypeBrowse, 150)
	svc := newLedger(t, db)

	payload := PaymentPayload{Kind: PayloadKindContent, UserID: 7, ContentName: "pic1"}.Encode()
	if err := svc.ValidatePrecheckout(context.Background(), payload, 150, "XTR"); err != nil {
		t.Fatalf("valid checkout rejected: %v", err)
	}

	vipPayload := PaymentPayload{Kind: PayloadKindVip, UserID: 7}.Encode()
	if err := svc.ValidatePrecheckout(context.Background(), vipPayload, 399, "xtr"); err != nil {
		t.Fatalf("vip checkout rejected (case-insensitive currency): %v", err)
	}
}

func TestValidatePrecheckout_StalePrice(t *testing.T) {
	db := newTestDB(t)
	seedContent(t, db, "pic1", domain.ContentTypeBrowse, 150)
	svc := newLedger(t, db)

	payload := PaymentPayload{Kind: PayloadKindContent, UserID: 7, ContentName: "pic1"}.Encode()

	// Price changes between invoice and checkout: the stale amount must be
	// rejected, the current one accepted.
	if err := repo.UpdateContentItemPrice(context.Background(), db, "pic1", 200); err != nil {
		t.Fatalf("reprice: %v", err)
	}
	if err := svc.ValidatePrecheckout(context.Background(), payload, 150, "XTR"); !errors.Is(err, ErrPriceMismatch) {
		t.Fatalf("stale amount = %v, want ErrPriceMismatch", err)
	}
	if err := svc.ValidatePrecheckout(context.Background(), payload, 200, "XTR"); err != nil {
		t.Fatalf("current amount rejected: %v", err)
	}
}

func TestValidatePrecheckout_Rejections(t *testing.T) {
	db := newTestDB(t)
	seedContent(t, db, "pic1", domain.ContentTypeBrowse, 150)
	seedContent(t, db, "vip_set", domain.ContentTypeVIP, 999)
	svc := newLedger(t, db)

	contentPayload := PaymentPayload{Kind: PayloadKindContent, UserID: 7, ContentName: "pic1"}.Encode()

	if err := svc.ValidatePrecheckout(context.Background(), contentPayload, 150, "USD"); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("currency = %v, want ErrCurrencyMismatch", err)
	}
	if err := svc.ValidatePrecheckout(context.Background(), "garbage", 150, "XTR"); !errors.Is(err, ErrUnknownPayload) {
		t.Fatalf("garbage = %v, want ErrUnknownPayload", err)
	}

	ghost := PaymentPayload{Kind: PayloadKindContent, UserID: 7, ContentName: "ghost"}.Encode()
	if err := svc.ValidatePrecheckout(context.Background(), ghost, 150, "XTR"); !errors.Is(err, ErrUnknownPayload) {
		t.Fatalf("unknown item = %v, want ErrUnknownPayload", err)
	}

	// A vip-typed item offered as an individual purchase is never authorized,
	// even at its stored price.
	vipItem := PaymentPayload{Kind: PayloadKindContent, UserID: 7, ContentName: "vip_set"}.Encode()
	if err := svc.ValidatePrecheckout(context.Background(), vipItem, 999, "XTR"); !errors.Is(err, ErrUnknownPayload) {
		t.Fatalf("vip item = %v, want ErrUnknownPayload", err)
	}
}
