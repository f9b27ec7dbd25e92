// Package services defines the business logic for entitlements, payments,
// content ingestion, and delivery. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the
// handler/bot layer.
package services

import (
	"errors"
	"fmt"
)

// Catalog and entitlement errors.
var (
	// ErrContentNotFound indicates that the requested catalog entry does not
	// exist.
	ErrContentNotFound = errors.New("content not found")

	// ErrContentExists is returned when a catalog entry with the same name
	// already exists.
	ErrContentExists = errors.New("content already exists")
)

// Ingestion errors. Each one maps to exactly one typed failure of the
// ingestion pipeline so the operator can be told what to do next.
var (
	// ErrInvalidURL is returned for syntactically unusable URLs (bad scheme,
	// missing host).
	ErrInvalidURL = errors.New("invalid url")

	// ErrSecurityRejected marks a URL that failed SSRF validation. It is
	// logged internally with the rejected host and surfaced externally only
	// as a generic denial.
	ErrSecurityRejected = errors.New("security rejected")

	// ErrSizeExceeded is returned when a download or proxied stream passes
	// the configured byte cap, whether declared up front or discovered
	// mid-transfer. Partial output is discarded.
	ErrSizeExceeded = errors.New("size limit exceeded")

	// ErrNotImage is returned when the remote server declares a non-image
	// content type for an ingestion URL.
	ErrNotImage = errors.New("url does not point to an image")

	// ErrDownloadTimeout is returned when the remote transfer exceeds the
	// configured deadline.
	ErrDownloadTimeout = errors.New("download timed out")

	// ErrConnection is returned for transport-level failures reaching the
	// remote host.
	ErrConnection = errors.New("connection failed")

	// ErrUploadFailed is returned when the platform rejects the re-host
	// upload after a successful download.
	ErrUploadFailed = errors.New("platform upload failed")
)

// Payment validation errors.
var (
	// ErrUnknownPayload is returned when a pre-checkout payload cannot be
	// parsed or names an unknown purchase kind. Unrecognized payloads are
	// never authorized.
	ErrUnknownPayload = errors.New("unknown payment payload")

	// ErrCurrencyMismatch is returned when the charged currency is not the
	// platform's in-chat currency.
	ErrCurrencyMismatch = errors.New("unexpected currency")

	// ErrPriceMismatch is returned when the charged amount differs from the
	// price recomputed at validation time.
	ErrPriceMismatch = errors.New("amount does not match current price")
)

// StatusError reports a non-success HTTP status from an upstream fetch
// during ingestion or proxying.
type StatusError struct {
	Code int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Code)
}
