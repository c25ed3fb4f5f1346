// Package asset provides the uploaded audio asset domain entity.
package asset

import (
	"path"
	"strings"
	"time"
)

// AudioAsset represents an audio file persisted in blob storage.
type AudioAsset struct {
	Path         string    // Storage path (object key)
	URL          string    // Public URL
	ContentType  string    // Declared or detected MIME type
	Size         int64     // Size in bytes
	OriginalName string    // File name supplied by the uploader
	UploadedAt   time.Time // Upload time
}

// Extension returns the lower-cased extension of the storage path, including the dot.
func (a *AudioAsset) Extension() string {
	return strings.ToLower(path.Ext(a.Path))
}

// SizeMB returns the size in megabytes.
func (a *AudioAsset) SizeMB() float64 {
	return float64(a.Size) / (1 << 20)
}
