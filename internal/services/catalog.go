// Package services – CatalogService
//
// This file implements the catalog authoring surface consumed by the operator
// API: it turns a candidate {file path or URL, type, name, price,
// description} record into a saved catalog row, running external URLs through
// the ingestion pipeline first so the stored reference is permanent and
// already tagged.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/selmak/go-content-bot/internal/domain"
	"github.com/selmak/go-content-bot/internal/repo"
)

// Catalog input validation errors.
var (
	// ErrInvalidName is returned for empty or oversized content names.
	ErrInvalidName = errors.New("invalid content name")

	// ErrInvalidPrice is returned when a browse item has a non-positive price.
	ErrInvalidPrice = errors.New("price must be positive")

	// ErrInvalidContentType is returned for unknown content type values.
	ErrInvalidContentType = errors.New("content type must be browse or vip")
)

const maxContentNameLen = 200

// CatalogInput is the candidate record handed over by the authoring flow.
type CatalogInput struct {
	Name          string
	FilePathOrURL string
	ContentType   string
	PriceStars    int
	Description   string
}

// CatalogService persists catalog entries and teasers, ingesting external
// URLs on the way in.
type CatalogService struct {
	DB     *gorm.DB
	Ingest *IngestService
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(db *gorm.DB, ingest *IngestService) *CatalogService {
	return &CatalogService{DB: db, Ingest: ingest}
}

// Save validates in, resolves its reference, and inserts the catalog row.
//
// External http(s) URLs are re-hosted through the ingestion pipeline and
// stored as platform file ids; any ingestion failure is returned unchanged so
// the operator gets the typed reason. Other reference strings are tagged once
// here and stored verbatim. VIP items are stored with price zero whatever was
// submitted.
func (s *CatalogService) Save(ctx context.Context, in CatalogInput) (*domain.ContentItem, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > maxContentNameLen {
		return nil, ErrInvalidName
	}
	switch in.ContentType {
	case domain.ContentTypeBrowse:
		if in.PriceStars <= 0 {
			return nil, ErrInvalidPrice
		}
	case domain.ContentTypeVIP:
	default:
		return nil, ErrInvalidContentType
	}

	if _, err := repo.GetContentItem(ctx, s.DB, name); err == nil {
		return nil, ErrContentExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	ref, kind, err := s.resolveReference(ctx, in.FilePathOrURL)
	if err != nil {
		return nil, err
	}

	item := &domain.ContentItem{
		Name:        name,
		PriceStars:  in.PriceStars,
		FileRef:     ref.Value,
		RefKind:     ref.Kind,
		MediaKind:   kind,
		Description: strings.TrimSpace(in.Description),
		ContentType: in.ContentType,
	}
	return repo.CreateContentItem(ctx, s.DB, item)
}

// AddTeaser stores a teaser using the same reference resolution as Save.
func (s *CatalogService) AddTeaser(ctx context.Context, filePathOrURL, description string, vipOnly bool) (*domain.Teaser, error) {
	ref, kind, err := s.resolveReference(ctx, filePathOrURL)
	if err != nil {
		return nil, err
	}
	t := &domain.Teaser{
		FileRef:     ref.Value,
		RefKind:     ref.Kind,
		MediaKind:   kind,
		Description: strings.TrimSpace(description),
		VipOnly:     vipOnly,
	}
	return repo.CreateTeaser(ctx, s.DB, t)
}

// Delete removes a catalog entry; ErrContentNotFound when absent.
func (s *CatalogService) Delete(ctx context.Context, name string) error {
	err := repo.DeleteContentItem(ctx, s.DB, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrContentNotFound
	}
	return err
}

// ListPage returns a page of catalog entries plus the total count.
func (s *CatalogService) ListPage(ctx context.Context, contentType string, page, pageSize int) ([]domain.ContentItem, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountContentItems(ctx, s.DB, contentType)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ContentItem{}, 0, nil
	}
	items, err := repo.ListContentItemsPage(ctx, s.DB, contentType, offset, pageSize)
	return items, total, err
}

// resolveReference decides how the stored reference is produced: external
// URLs go through ingestion (permanent platform id), everything else is
// tagged once and kept as-is. The tag never gets re-derived downstream.
func (s *CatalogService) resolveReference(ctx context.Context, raw string) (domain.ContentReference, domain.MediaKind, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.ContentReference{}, "", ErrInvalidURL
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		res, err := s.Ingest.IngestFromURL(ctx, raw)
		if err != nil {
			return domain.ContentReference{}, "", err
		}
		return res.Ref, res.Kind, nil
	}
	ref := domain.ClassifyReference(raw)
	return ref, domain.MediaKindForPath(raw), nil
}
