package domain

import "testing"

func TestClassifyReference_URL(t *testing.T) {
	for _, raw := range []string{"http://example.com/a.jpg", "https://cdn.example.com/x"} {
		ref := ClassifyReference(raw)
		if ref.Kind != RefExternalURL {
			t.Fatalf("ClassifyReference(%q).Kind = %q, want %q", raw, ref.Kind, RefExternalURL)
		}
		if ref.Value != raw {
			t.Fatalf("value changed: %q", ref.Value)
		}
	}
}

func TestClassifyReference_LocalPath(t *testing.T) {
	cases := []string{
		"uploads/pic.jpg",
		"content/set1/video.mp4",
		`media\win\style.png`,
		"photo.jpg", // extension alone marks a local file
	}
	for _, raw := range cases {
		if ref := ClassifyReference(raw); ref.Kind != RefLocalPath {
			t.Fatalf("ClassifyReference(%q).Kind = %q, want %q", raw, ref.Kind, RefLocalPath)
		}
	}
}

func TestClassifyReference_FileID(t *testing.T) {
	// Platform file ids are opaque tokens with no separators or dots.
	raw := "AgACAgIAAxkBAAIBOWXYZ1234567890abcdef"
	if ref := ClassifyReference(raw); ref.Kind != RefPlatformFileID {
		t.Fatalf("ClassifyReference(%q).Kind = %q, want %q", raw, ref.Kind, RefPlatformFileID)
	}
}

func TestClassifyReference_TrimsWhitespace(t *testing.T) {
	ref := ClassifyReference("  https://example.com/a.png  ")
	if ref.Kind != RefExternalURL || ref.Value != "https://example.com/a.png" {
		t.Fatalf("got %+v", ref)
	}
}

func TestMediaKindForPath(t *testing.T) {
	cases := []struct {
		path string
		want MediaKind
	}{
		{"a.jpg", MediaPhoto},
		{"A.JPEG", MediaPhoto},
		{"b.png", MediaPhoto},
		{"c.webp", MediaPhoto},
		{"d.bmp", MediaPhoto},
		{"e.gif", MediaAnimation},
		{"f.mp4", MediaVideo},
		{"g.mov", MediaVideo},
		{"h.webm", MediaVideo},
		{"i.mkv", MediaVideo},
		{"j.avi", MediaVideo},
		{"no-extension", MediaPhoto},
		{"weird.xyz", MediaPhoto},
	}
	for _, tc := range cases {
		if got := MediaKindForPath(tc.path); got != tc.want {
			t.Errorf("MediaKindForPath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestRefKindValid(t *testing.T) {
	for _, k := range []RefKind{RefExternalURL, RefPlatformFileID, RefLocalPath} {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if RefKind("bogus").Valid() {
		t.Error("bogus kind should be invalid")
	}
}

func TestMediaKindValid(t *testing.T) {
	for _, k := range []MediaKind{MediaPhoto, MediaVideo, MediaAnimation, MediaDocument} {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if MediaKind("hologram").Valid() {
		t.Error("unknown kind should be invalid")
	}
}
