// Preview proxy handler.
//
// This file exposes the authenticated content preview endpoint:
//   - GET /content/preview/{name}?token=...   (owner preview, any ref kind)
//
// The proxy lets the operator inspect catalog entries in a regular browser
// without holding platform credentials. Access is gated by a per-item HMAC
// token; the bot token itself never leaves the server, and resolved platform
// download URLs (which embed it) are streamed through rather than exposed.
//
// Status taxonomy: 400 malformed name, 403 missing/invalid token or unsafe
// local path, 404 unknown item or missing file, 413 over the byte cap,
// 415 extension or content type outside the allowlist, 500 unusable stored
// reference, 502 upstream fetch failure.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/selmak/go-content-bot/internal/domain"
	"github.com/selmak/go-content-bot/internal/http/middleware"
	"github.com/selmak/go-content-bot/internal/token"
)

// ContentGetter loads a catalog entry by name. Implemented by the repo layer;
// faked in tests.
type ContentGetter interface {
	GetContent(ctx context.Context, name string) (*domain.ContentItem, error)
}

// FileResolver maps a platform file id to a short-lived download URL and the
// declared size. Implemented by the telegram client; faked in tests.
type FileResolver interface {
	ResolveFile(ctx context.Context, fileID string) (string, int64, error)
}

// previewDirs are the only top-level directories a local reference may name.
var previewDirs = map[string]struct{}{
	"uploads": {},
	"content": {},
	"static":  {},
	"media":   {},
}

// previewExts is the extension allowlist for local and platform files.
var previewExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {}, ".gif": {}, ".bmp": {},
	".mp4": {}, ".mov": {}, ".webm": {}, ".mkv": {}, ".avi": {},
}

// PreviewHandler serves authenticated previews of catalog entries.
type PreviewHandler struct {
	Signer   *token.Signer
	Content  ContentGetter
	Resolver FileResolver

	// Client fetches platform-hosted bytes for streaming.
	Client *http.Client
	// MaxBytes caps both declared and streamed sizes.
	MaxBytes int64
	// BaseDir anchors local references (the working directory in production).
	BaseDir string
}

// Preview handles GET /content/preview/:name.
func (h *PreviewHandler) Preview(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" || len(name) > 200 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid content name")
		return
	}

	// Token check before any lookup. The log carries the caller and the item,
	// never the presented credential.
	presented := c.Query("token")
	if presented == "" || !h.Signer.VerifyPreview(name, presented) {
		middleware.LoggerFrom(c).Warn().
			Str("remote", c.ClientIP()).
			Str("content", name).
			Msg("preview token rejected")
		fail(c, http.StatusForbidden, ErrCodeForbidden, "invalid or missing token")
		return
	}

	item, err := h.Content.GetContent(c.Request.Context(), name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "content not found")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "lookup failed")
		return
	}

	setPreviewHeaders(c)

	switch item.RefKind {
	case domain.RefExternalURL:
		h.serveExternal(c, item.FileRef)
	case domain.RefPlatformFileID:
		h.servePlatform(c, item.FileRef)
	case domain.RefLocalPath:
		h.serveLocal(c, item.FileRef)
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "unusable content reference")
	}
}

// serveExternal redirects to a stored external URL after a shape check; a
// corrupt stored reference is a server-side defect, not a client error.
func (h *PreviewHandler) serveExternal(c *gin.Context, raw string) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "unusable content reference")
		return
	}
	c.Redirect(http.StatusFound, raw)
}

// servePlatform resolves the file id and streams the bytes through, keeping
// the token-bearing download URL server side.
func (h *PreviewHandler) servePlatform(c *gin.Context, fileID string) {
	ctx := c.Request.Context()

	dlURL, size, err := h.Resolver.ResolveFile(ctx, fileID)
	if err != nil {
		fail(c, http.StatusBadGateway, ErrCodeUpstreamFailed, "file resolution failed")
		return
	}
	if size > h.MaxBytes {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "file exceeds preview size limit")
		return
	}
	if ext := strings.ToLower(path.Ext(dlURL)); ext != "" {
		if _, ok := previewExts[ext]; !ok {
			fail(c, http.StatusUnsupportedMediaType, ErrCodeUnsupportedMedia, "unsupported file type")
			return
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dlURL, nil)
	if err != nil {
		fail(c, http.StatusBadGateway, ErrCodeUpstreamFailed, "file fetch failed")
		return
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		fail(c, http.StatusBadGateway, ErrCodeUpstreamFailed, "file fetch failed")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fail(c, http.StatusBadGateway, ErrCodeUpstreamFailed,
			fmt.Sprintf("upstream returned status %d", resp.StatusCode))
		return
	}

	ct := resp.Header.Get("Content-Type")
	if !allowedPreviewType(ct) {
		fail(c, http.StatusUnsupportedMediaType, ErrCodeUnsupportedMedia, "unsupported content type")
		return
	}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n > h.MaxBytes {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "file exceeds preview size limit")
			return
		}
	}

	// The stream is capped too: a lying Content-Length cannot push more than
	// MaxBytes through the proxy. Past this point headers are committed, so
	// an over-cap stream is cut off rather than re-statused.
	c.Status(http.StatusOK)
	c.Header("Content-Type", ct)
	c.Header("Content-Disposition", "inline")
	written, err := io.Copy(c.Writer, io.LimitReader(resp.Body, h.MaxBytes+1))
	if err == nil && written > h.MaxBytes {
		middleware.LoggerFrom(c).Warn().
			Int64("bytes", written).
			Msg("preview stream truncated at size cap")
	}
}

// serveLocal serves a file under one of the allowlisted content directories.
// The stored path is operator-supplied, so it gets the full traversal
// treatment even though it is not direct user input.
func (h *PreviewHandler) serveLocal(c *gin.Context, rel string) {
	if strings.Contains(rel, "\\") || strings.HasPrefix(rel, "/") || strings.Contains(rel, "..") {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "path not allowed")
		return
	}
	clean := filepath.ToSlash(filepath.Clean(rel))
	first, _, _ := strings.Cut(clean, "/")
	if _, ok := previewDirs[first]; !ok {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "path not allowed")
		return
	}

	base, err := filepath.Abs(h.BaseDir)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "path resolution failed")
		return
	}
	abs, err := filepath.Abs(filepath.Join(base, filepath.FromSlash(clean)))
	if err != nil || !strings.HasPrefix(abs, base+string(filepath.Separator)) {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "path not allowed")
		return
	}

	ext := strings.ToLower(filepath.Ext(abs))
	if _, ok := previewExts[ext]; !ok {
		fail(c, http.StatusUnsupportedMediaType, ErrCodeUnsupportedMedia, "unsupported file type")
		return
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "file not found")
		return
	}
	if info.Size() > h.MaxBytes {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "file exceeds preview size limit")
		return
	}

	c.Header("Content-Disposition", "inline")
	c.File(abs)
}

// setPreviewHeaders applies the defensive header set for preview responses.
func setPreviewHeaders(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Content-Security-Policy", "default-src 'none'; img-src 'self'; media-src 'self'")
}

// allowedPreviewType reports whether an upstream content type may be proxied.
func allowedPreviewType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "image/") || strings.HasPrefix(ct, "video/")
}
