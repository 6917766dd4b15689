package storage

import (
	"strings"

	"github.com/google/uuid"

	"github.com/prn-tf/photoshare/internal/domain"
)

// imageExtensions maps accepted image content types to the extension used in
// image keys.
var imageExtensions = map[string]string{
	"image/png":     "png",
	"image/jpeg":    "jpeg",
	"image/jpg":     "jpeg",
	"image/pjpeg":   "jpeg",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/bmp":     "bmp",
	"image/svg+xml": "svg",
	"image/tiff":    "tiff",
	"image/avif":    "avif",
	"image/heic":    "heic",
}

// ExtensionForContentType returns the key extension for an image content type.
// Parameters such as "; charset=" are ignored and matching is case-insensitive.
func ExtensionForContentType(contentType string) (string, bool) {
	mediaType, _, _ := strings.Cut(contentType, ";")
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(mediaType))]
	return ext, ok
}

// NewImageKey generates a fresh image key of the form <uuid>.<ext>.
//
// Example:
//
//	ext: "png"
//	result: "0b6f5a3e-6d2c-4c1f-9a57-6a0f3f2c1e11.png"
func NewImageKey(ext string) string {
	return uuid.NewString() + "." + ext
}

// ObjectKeys returns every blob key belonging to an image: the raw upload
// followed by its thumbnails.
//
// Example:
//
//	imageKey: "a.png"
//	result: ["raw/a.png", "w140/a.png", "w600/a.png"]
func ObjectKeys(imageKey string) []string {
	keys := make([]string, 0, 1+len(domain.ThumbnailWidths))
	keys = append(keys, domain.RawKey(imageKey))
	keys = append(keys, domain.ThumbnailKeys(imageKey)...)
	return keys
}
