package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/selmak/go-content-bot/internal/domain"
)

func TestCreatePurchase_DuplicateMapsToErrDuplicate(t *testing.T) {
	db := newTestDB(t)
	seedItem(t, db, "pic1", domain.ContentTypeBrowse, 100)

	if _, err := CreatePurchase(context.Background(), db, 7, "pic1", 100); err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	_, err := CreatePurchase(context.Background(), db, 7, "pic1", 100)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second purchase = %v, want ErrDuplicate", err)
	}

	// Exactly one row survives.
	var count int64
	db.Model(&domain.UserPurchase{}).Where("user_id = ?", 7).Count(&count)
	if count != 1 {
		t.Fatalf("purchase rows = %d, want 1", count)
	}
}

func TestCreatePurchase_SameItemDifferentUsers(t *testing.T) {
	db := newTestDB(t)
	seedItem(t, db, "pic1", domain.ContentTypeBrowse, 100)

	if _, err := CreatePurchase(context.Background(), db, 1, "pic1", 100); err != nil {
		t.Fatalf("user 1: %v", err)
	}
	if _, err := CreatePurchase(context.Background(), db, 2, "pic1", 100); err != nil {
		t.Fatalf("user 2: %v", err)
	}
}

func TestHasPurchase(t *testing.T) {
	db := newTestDB(t)
	seedItem(t, db, "pic1", domain.ContentTypeBrowse, 100)

	owned, err := HasPurchase(context.Background(), db, 7, "pic1")
	if err != nil || owned {
		t.Fatalf("unowned item reported owned (%v, %v)", owned, err)
	}

	if _, err := CreatePurchase(context.Background(), db, 7, "pic1", 100); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	owned, err = HasPurchase(context.Background(), db, 7, "pic1")
	if err != nil || !owned {
		t.Fatalf("owned item reported unowned (%v, %v)", owned, err)
	}
}

func TestListPurchases(t *testing.T) {
	db := newTestDB(t)
	seedItem(t, db, "pic1", domain.ContentTypeBrowse, 100)
	seedItem(t, db, "pic2", domain.ContentTypeBrowse, 150)

	for _, name := range []string{"pic1", "pic2"} {
		if _, err := CreatePurchase(context.Background(), db, 7, name, 100); err != nil {
			t.Fatalf("purchase %s: %v", name, err)
		}
	}

	got, err := ListPurchases(context.Background(), db, 7)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("purchases = %d, want 2", len(got))
	}
}

func TestPurchaseStats(t *testing.T) {
	db := newTestDB(t)
	seedItem(t, db, "pic1", domain.ContentTypeBrowse, 100)
	seedItem(t, db, "pic2", domain.ContentTypeBrowse, 150)

	count, revenue, err := PurchaseStats(context.Background(), db)
	if err != nil || count != 0 || revenue != 0 {
		t.Fatalf("empty stats = (%d, %d, %v)", count, revenue, err)
	}

	_, _ = CreatePurchase(context.Background(), db, 1, "pic1", 100)
	_, _ = CreatePurchase(context.Background(), db, 2, "pic2", 150)

	count, revenue, err = PurchaseStats(context.Background(), db)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if count != 2 || revenue != 250 {
		t.Fatalf("stats = (%d, %d), want (2, 250)", count, revenue)
	}
}

func TestDeleteContentItem_CascadesPurchases(t *testing.T) {
	db := newTestDB(t)
	seedItem(t, db, "pic1", domain.ContentTypeBrowse, 100)
	_, _ = CreatePurchase(context.Background(), db, 7, "pic1", 100)

	if err := DeleteContentItem(context.Background(), db, "pic1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var count int64
	db.Model(&domain.UserPurchase{}).Where("content_name = ?", "pic1").Count(&count)
	if count != 0 {
		t.Fatalf("orphan purchase rows = %d, want 0", count)
	}
}
