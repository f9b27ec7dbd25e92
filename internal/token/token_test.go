package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestPreview_KnownVector(t *testing.T) {
	s := NewSigner("secret123")

	// Independent derivation of HMAC-SHA256("content_preview:pic1:owner_access").
	mac := hmac.New(sha256.New, []byte("secret123"))
	mac.Write([]byte("content_preview:pic1:owner_access"))
	want := hex.EncodeToString(mac.Sum(nil))

	if got := s.Preview("pic1"); got != want {
		t.Fatalf("Preview = %s, want %s", got, want)
	}
}

func TestPreview_Deterministic(t *testing.T) {
	s := NewSigner("secret123")
	if s.Preview("pic1") != s.Preview("pic1") {
		t.Fatal("same name must yield the same token")
	}
	if s.Preview("pic1") == s.Preview("pic2") {
		t.Fatal("different names must yield different tokens")
	}
}

func TestPreview_SecretBound(t *testing.T) {
	a := NewSigner("secret-a")
	b := NewSigner("secret-b")
	if a.Preview("pic1") == b.Preview("pic1") {
		t.Fatal("tokens must depend on the secret")
	}
}

func TestVerifyPreview(t *testing.T) {
	s := NewSigner("secret123")
	tok := s.Preview("pic1")

	if !s.VerifyPreview("pic1", tok) {
		t.Fatal("valid token rejected")
	}
	if s.VerifyPreview("pic2", tok) {
		t.Fatal("token for pic1 must not unlock pic2")
	}
	if s.VerifyPreview("pic1", "") {
		t.Fatal("empty token accepted")
	}
	if s.VerifyPreview("pic1", tok[:len(tok)-1]+"0") {
		t.Fatal("tampered token accepted")
	}
}

func TestAdminToken_SeparateSurface(t *testing.T) {
	s := NewSigner("secret123")
	admin := s.Admin()

	if !s.VerifyAdmin(admin) {
		t.Fatal("valid admin token rejected")
	}
	if s.VerifyPreview("catalog_admin", admin) {
		t.Fatal("admin token must not unlock previews")
	}
	if s.VerifyAdmin(s.Preview("pic1")) {
		t.Fatal("preview token must not unlock the admin surface")
	}
}
