// Package domain defines the core persistence models for the application.
// This file defines the tagged content reference carried by catalog entries
// and teasers, plus the media kind used to pick a delivery strategy.
package domain

import "strings"

// RefKind names where an item's bytes live. It is assigned exactly once, at
// ingestion time, and persisted next to the reference value. Code that
// consumes a ContentReference branches on the tag; it must never guess the
// kind from the string's length or character set.
type RefKind string

const (
	// RefExternalURL is an http(s) URL on a third-party host.
	RefExternalURL RefKind = "url"
	// RefPlatformFileID is a permanent file id issued by the chat platform
	// after a one-time upload.
	RefPlatformFileID RefKind = "file_id"
	// RefLocalPath is a path under one of the allowlisted content
	// directories, relative to the working directory.
	RefLocalPath RefKind = "local"
)

// Valid reports whether k is one of the known reference kinds.
func (k RefKind) Valid() bool {
	switch k {
	case RefExternalURL, RefPlatformFileID, RefLocalPath:
		return true
	}
	return false
}

// ContentReference is the tagged union {kind, value} naming an item's bytes.
type ContentReference struct {
	Kind  RefKind `json:"kind"`
	Value string  `json:"value"`
}

// ClassifyReference tags a reference string supplied directly by the
// operator (platform upload or pre-provisioned local file). It is the single
// place where an untagged string becomes a ContentReference: URL syntax wins,
// a path separator or extension marks a local path, anything else is taken as
// a platform file id. Ingested URLs never pass through here — ingestion
// returns an already-tagged platform reference.
func ClassifyReference(s string) ContentReference {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://"):
		return ContentReference{Kind: RefExternalURL, Value: s}
	case strings.ContainsAny(s, "/\\") || strings.Contains(s, "."):
		return ContentReference{Kind: RefLocalPath, Value: s}
	default:
		return ContentReference{Kind: RefPlatformFileID, Value: s}
	}
}

// MediaKind is the delivery channel hint recorded at ingestion: which send
// strategy fits the bytes (photo, video, animation, or generic document).
type MediaKind string

const (
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaAnimation MediaKind = "animation"
	MediaDocument  MediaKind = "document"
)

// Valid reports whether k is one of the known media kinds.
func (k MediaKind) Valid() bool {
	switch k {
	case MediaPhoto, MediaVideo, MediaAnimation, MediaDocument:
		return true
	}
	return false
}

// MediaKindForPath infers a media kind from a file path or URL suffix.
// Unknown or missing extensions fall back to photo, the most common case.
func MediaKindForPath(p string) MediaKind {
	low := strings.ToLower(p)
	switch {
	case hasAnySuffix(low, ".jpg", ".jpeg", ".png", ".webp", ".bmp"):
		return MediaPhoto
	case hasAnySuffix(low, ".gif"):
		return MediaAnimation
	case hasAnySuffix(low, ".mp4", ".mov", ".avi", ".webm", ".mkv"):
		return MediaVideo
	default:
		return MediaPhoto
	}
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
