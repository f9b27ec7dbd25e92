package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/selmak/go-content-bot/internal/domain"
)

func newCatalog(t *testing.T) (*CatalogService, *fakeUploader) {
	t.Helper()
	db := newTestDB(t)
	up := &fakeUploader{fileID: "file-ingested"}
	ingest := NewIngestService(publicGuard(), up, 1<<20, 5*time.Second, t.TempDir())
	return NewCatalogService(db, ingest), up
}

func TestCatalogSave_Validation(t *testing.T) {
	svc, _ := newCatalog(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   CatalogInput
		want error
	}{
		{"empty name", CatalogInput{FilePathOrURL: "id123", ContentType: domain.ContentTypeBrowse, PriceStars: 10}, ErrInvalidName},
		{"oversized name", CatalogInput{Name: strings.Repeat("x", 201), FilePathOrURL: "id123", ContentType: domain.ContentTypeBrowse, PriceStars: 10}, ErrInvalidName},
		{"zero price", CatalogInput{Name: "a", FilePathOrURL: "id123", ContentType: domain.ContentTypeBrowse}, ErrInvalidPrice},
		{"negative price", CatalogInput{Name: "a", FilePathOrURL: "id123", ContentType: domain.ContentTypeBrowse, PriceStars: -5}, ErrInvalidPrice},
		{"bad type", CatalogInput{Name: "a", FilePathOrURL: "id123", ContentType: "premium", PriceStars: 10}, ErrInvalidContentType},
		{"empty reference", CatalogInput{Name: "a", ContentType: domain.ContentTypeBrowse, PriceStars: 10}, ErrInvalidURL},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Save(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCatalogSave_FileIDReference(t *testing.T) {
	svc, up := newCatalog(t)

	item, err := svc.Save(context.Background(), CatalogInput{
		Name:          "pic1",
		FilePathOrURL: "AgACAgIAAxkBAAIBOpaque",
		ContentType:   domain.ContentTypeBrowse,
		PriceStars:    100,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if item.RefKind != domain.RefPlatformFileID {
		t.Fatalf("ref kind = %q, want file_id", item.RefKind)
	}
	if up.calls != 0 {
		t.Fatal("direct references must not trigger ingestion")
	}
}

func TestCatalogSave_LocalPathReference(t *testing.T) {
	svc, _ := newCatalog(t)

	item, err := svc.Save(context.Background(), CatalogInput{
		Name:          "clip1",
		FilePathOrURL: "uploads/clip.mp4",
		ContentType:   domain.ContentTypeBrowse,
		PriceStars:    100,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if item.RefKind != domain.RefLocalPath {
		t.Fatalf("ref kind = %q, want local", item.RefKind)
	}
	if item.MediaKind != domain.MediaVideo {
		t.Fatalf("media kind = %q, want video", item.MediaKind)
	}
}

func TestCatalogSave_ExternalURLIngested(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	svc, up := newCatalog(t)
	item, err := svc.Save(context.Background(), CatalogInput{
		Name:          "pic1",
		FilePathOrURL: srv.URL + "/photo.jpg",
		ContentType:   domain.ContentTypeBrowse,
		PriceStars:    100,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if up.calls != 1 {
		t.Fatalf("uploader calls = %d, want 1", up.calls)
	}
	if item.RefKind != domain.RefPlatformFileID || item.FileRef != "file-ingested" {
		t.Fatalf("stored ref = %q/%q, want ingested file id", item.RefKind, item.FileRef)
	}
}

func TestCatalogSave_IngestFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("nope"))
	}))
	defer srv.Close()

	svc, _ := newCatalog(t)
	_, err := svc.Save(context.Background(), CatalogInput{
		Name:          "pic1",
		FilePathOrURL: srv.URL + "/x",
		ContentType:   domain.ContentTypeBrowse,
		PriceStars:    100,
	})
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("err = %v, want ErrNotImage", err)
	}

	// The failed save must not leave a row behind.
	if _, _, err := svc.ListPage(context.Background(), "", 1, 10); err != nil {
		t.Fatalf("list: %v", err)
	}
	_, total, _ := svc.ListPage(context.Background(), "", 1, 10)
	if total != 0 {
		t.Fatalf("rows = %d, want 0", total)
	}
}

func TestCatalogSave_DuplicateName(t *testing.T) {
	svc, _ := newCatalog(t)
	in := CatalogInput{
		Name:          "pic1",
		FilePathOrURL: "opaqueid",
		ContentType:   domain.ContentTypeBrowse,
		PriceStars:    100,
	}
	if _, err := svc.Save(context.Background(), in); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if _, err := svc.Save(context.Background(), in); !errors.Is(err, ErrContentExists) {
		t.Fatalf("second save = %v, want ErrContentExists", err)
	}
}

func TestCatalogSave_VipPriceZeroed(t *testing.T) {
	svc, _ := newCatalog(t)

	item, err := svc.Save(context.Background(), CatalogInput{
		Name:          "vip_set",
		FilePathOrURL: "opaqueid",
		ContentType:   domain.ContentTypeVIP,
		PriceStars:    999, // ignored for vip
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if item.PriceStars != 0 {
		t.Fatalf("vip price = %d, want 0", item.PriceStars)
	}
}

func TestCatalogDelete(t *testing.T) {
	svc, _ := newCatalog(t)
	if _, err := svc.Save(context.Background(), CatalogInput{
		Name: "pic1", FilePathOrURL: "opaqueid", ContentType: domain.ContentTypeBrowse, PriceStars: 100,
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := svc.Delete(context.Background(), "pic1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(context.Background(), "pic1"); !errors.Is(err, ErrContentNotFound) {
		t.Fatalf("second delete = %v, want ErrContentNotFound", err)
	}
}

func TestCatalogListPage(t *testing.T) {
	svc, _ := newCatalog(t)
	for _, n := range []string{"a", "b", "c"} {
		if _, err := svc.Save(context.Background(), CatalogInput{
			Name: n, FilePathOrURL: "opaqueid" + n, ContentType: domain.ContentTypeBrowse, PriceStars: 100,
		}); err != nil {
			t.Fatalf("save %s: %v", n, err)
		}
	}

	items, total, err := svc.ListPage(context.Background(), domain.ContentTypeBrowse, 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("total = %d, page = %d, want 3/2", total, len(items))
	}

	// Out-of-range pages are empty but well-formed.
	items, total, err = svc.ListPage(context.Background(), domain.ContentTypeBrowse, 5, 2)
	if err != nil || total != 3 || len(items) != 0 {
		t.Fatalf("page 5 = (%d items, total %d, %v)", len(items), total, err)
	}
}

func TestCatalogAddTeaser(t *testing.T) {
	svc, _ := newCatalog(t)

	teaser, err := svc.AddTeaser(context.Background(), "uploads/teaser.gif", "free look", false)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if teaser.RefKind != domain.RefLocalPath || teaser.MediaKind != domain.MediaAnimation {
		t.Fatalf("teaser = %+v", teaser)
	}
}
