package storage

import (
	"testing"

	"swapshelf/internal/config"
)

func TestContentTypeFor(t *testing.T) {
	for ext, want := range map[string]string{
		".jpg":  "image/jpeg",
		".JPEG": "image/jpeg",
		"png":   "image/png",
		".gif":  "application/octet-stream",
		"":      "application/octet-stream",
	} {
		if got := ContentTypeFor(ext); got != want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", ext, got, want)
		}
	}
}

func TestPublicURL(t *testing.T) {
	store, err := NewObjectStore(config.StorageConfig{
		Endpoint: "http://127.0.0.1:9000",
		Bucket:   "listings",
		Region:   "us-east-1",
	})
	if err != nil {
		t.Fatalf("NewObjectStore: %v", err)
	}

	ref := Reference{Bucket: "listings", Key: "flagged/abc.jpg"}
	if got, want := store.PublicURL(ref), "http://127.0.0.1:9000/listings/flagged/abc.jpg"; got != want {
		t.Errorf("PublicURL = %q, want %q", got, want)
	}

	store.cfg.PublicBaseURL = "cdn.example.com/"
	if got, want := store.PublicURL(ref), "https://cdn.example.com/listings/flagged/abc.jpg"; got != want {
		t.Errorf("PublicURL with CDN = %q, want %q", got, want)
	}
}
