// Package token derives and verifies the ephemeral access tokens used by the
// content preview endpoint and the operator API. Tokens are deterministic
// HMAC-SHA256 digests of the content name under the server secret; nothing is
// ever persisted, and verification is constant time.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Context strings bound into the HMAC message so a token minted for one
// surface can never unlock another.
const (
	previewPrefix = "content_preview:"
	previewSuffix = ":owner_access"
	adminMessage  = "catalog_admin:owner_access"
)

// Signer derives access tokens from the configured server secret.
type Signer struct {
	secret []byte
}

// NewSigner returns a Signer bound to secret (the bot token in production).
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Preview returns the hex token granting preview access to contentName.
func (s *Signer) Preview(contentName string) string {
	return s.sign(previewPrefix + contentName + previewSuffix)
}

// VerifyPreview reports whether presented grants preview access to
// contentName. Comparison is constant time.
func (s *Signer) VerifyPreview(contentName, presented string) bool {
	return hmac.Equal([]byte(s.Preview(contentName)), []byte(presented))
}

// Admin returns the hex token authenticating operator catalog calls.
func (s *Signer) Admin() string {
	return s.sign(adminMessage)
}

// VerifyAdmin reports whether presented is the operator token.
func (s *Signer) VerifyAdmin(presented string) bool {
	return hmac.Equal([]byte(s.Admin()), []byte(presented))
}

func (s *Signer) sign(msg string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}
