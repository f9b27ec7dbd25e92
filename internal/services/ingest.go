// Package services – IngestService
//
// This file implements the SSRF-safe ingestion pipeline: an operator-supplied
// external URL is validated, downloaded under a hard byte cap, staged in a
// scoped temporary file, and uploaded exactly once through the platform's own
// channel to obtain a permanent file id. Hotlinked URLs rot or get blocked;
// paying the re-host cost once makes every later delivery deterministic.
//
// The temporary file is removed on every exit path — success, upload
// failure, or abort mid-transfer.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/selmak/go-content-bot/internal/domain"
	"github.com/selmak/go-content-bot/internal/netguard"
)

// Uploader pushes a staged file through the platform's ingestion channel and
// returns the permanent file id. Implemented by the telegram client; faked in
// tests.
type Uploader interface {
	UploadFile(ctx context.Context, path string, kind domain.MediaKind) (string, error)
}

// IngestResult is the successful outcome of an ingestion run: a permanent
// platform reference plus the inferred media kind.
type IngestResult struct {
	Ref  domain.ContentReference
	Kind domain.MediaKind
}

// IngestService downloads an external image and re-hosts it on the platform.
type IngestService struct {
	Guard    *netguard.Guard
	Uploader Uploader

	// Client performs the outbound download; its Timeout bounds how long a
	// slow or hostile URL can hold the calling goroutine.
	Client *http.Client

	// MaxBytes caps the download, checked against both the declared length
	// and the bytes actually streamed.
	MaxBytes int64

	// TempDir is the staging directory ("" = OS default).
	TempDir string
}

// NewIngestService wires an IngestService with a timeout-bounded client.
func NewIngestService(guard *netguard.Guard, uploader Uploader, maxBytes int64, timeout time.Duration, tempDir string) *IngestService {
	return &IngestService{
		Guard:    guard,
		Uploader: uploader,
		Client:   &http.Client{Timeout: timeout},
		MaxBytes: maxBytes,
		TempDir:  tempDir,
	}
}

// browserHeaders mimics a regular browser fetch; some image hosts refuse
// non-browser user agents outright.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Accept":          "image/webp,image/apng,image/*,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.5",
}

// IngestFromURL runs the full pipeline for rawURL.
//
// Failure taxonomy: ErrInvalidURL (syntax), ErrSecurityRejected (SSRF gate,
// checked before any request is issued), ErrNotImage, ErrSizeExceeded (header
// or streamed bytes over cap; aborts mid-transfer), ErrDownloadTimeout,
// ErrConnection, *StatusError (non-2xx), ErrUploadFailed.
func (s *IngestService) IngestFromURL(ctx context.Context, rawURL string) (IngestResult, error) {
	tr := otel.Tracer("services/IngestService")
	ctx, span := tr.Start(ctx, "IngestFromURL",
		trace.WithAttributes(attribute.String("ingest.url", rawURL)),
	)
	defer span.End()

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return IngestResult{}, ErrInvalidURL
	}

	// SSRF gate, strictly before any request reaches the target.
	if err := s.Guard.ValidateURL(ctx, rawURL); err != nil {
		if errors.Is(err, netguard.ErrUnsafeURL) {
			log.Warn().Str("host", u.Hostname()).Msg("ingestion url rejected by ssrf validation")
			return IngestResult{}, fmt.Errorf("%w: %s", ErrSecurityRejected, u.Hostname())
		}
		return IngestResult{}, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return IngestResult{}, ErrInvalidURL
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return IngestResult{}, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return IngestResult{}, &StatusError{Code: resp.StatusCode}
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(contentType, "image/") {
		return IngestResult{}, ErrNotImage
	}

	// The declared length is advisory: absent or wrong headers are common,
	// so the streamed byte count is enforced as well.
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n > s.MaxBytes {
			return IngestResult{}, ErrSizeExceeded
		}
	}

	kind := inferMediaKind(contentType, u.Path)

	tmp, err := os.CreateTemp(s.TempDir, "ingest-*"+extensionFor(kind, contentType))
	if err != nil {
		return IngestResult{}, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	written, err := io.Copy(tmp, io.LimitReader(resp.Body, s.MaxBytes+1))
	closeErr := tmp.Close()
	if err != nil {
		return IngestResult{}, classifyTransportErr(err)
	}
	if closeErr != nil {
		return IngestResult{}, fmt.Errorf("%w: %v", ErrConnection, closeErr)
	}
	if written > s.MaxBytes {
		return IngestResult{}, ErrSizeExceeded
	}

	fileID, err := s.Uploader.UploadFile(ctx, tmpPath, kind)
	if err != nil {
		return IngestResult{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	log.Info().
		Str("host", u.Hostname()).
		Str("kind", string(kind)).
		Int64("bytes", written).
		Msg("external url re-hosted on platform")

	return IngestResult{
		Ref:  domain.ContentReference{Kind: domain.RefPlatformFileID, Value: fileID},
		Kind: kind,
	}, nil
}

// classifyTransportErr folds the many shapes of Go HTTP failures into the
// two the operator can act on: retry later (timeout) or fix the URL.
func classifyTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrDownloadTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrDownloadTimeout
	}
	return fmt.Errorf("%w: %v", ErrConnection, err)
}

// inferMediaKind prefers the response content type and falls back to the URL
// path suffix; an inconclusive pair defaults to photo.
func inferMediaKind(contentType, urlPath string) domain.MediaKind {
	switch {
	case strings.Contains(contentType, "gif"):
		return domain.MediaAnimation
	case strings.Contains(contentType, "jpeg"),
		strings.Contains(contentType, "jpg"),
		strings.Contains(contentType, "png"),
		strings.Contains(contentType, "webp"):
		return domain.MediaPhoto
	}
	return domain.MediaKindForPath(urlPath)
}

// extensionFor picks a temp-file suffix for the staged download.
func extensionFor(kind domain.MediaKind, contentType string) string {
	switch {
	case kind == domain.MediaAnimation:
		return ".gif"
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	default:
		return ".jpg"
	}
}
