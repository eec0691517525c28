package types

import "time"

// BundleManifest describes the contents of the generated bundle archive.
type BundleManifest struct {
	// Version is the schema version of the bundle layout.
	Version string `json:"version" yaml:"version"`

	// GeneratedAt is the timestamp stamped on every archive entry.
	GeneratedAt time.Time `json:"generatedAt" yaml:"generatedAt"`

	// TotalFiles is the count of files included in the archive.
	TotalFiles int `json:"totalFiles" yaml:"totalFiles"`

	// Files lists all files in the archive, in archive order.
	Files []FileEntry `json:"files" yaml:"files"`

	// ContentHash is the SHA256 over the concatenated per-file checksums.
	ContentHash string `json:"contentHash" yaml:"contentHash"`
}

// FileEntry represents a single file inside the bundle.
type FileEntry struct {
	// Path is the path of the file inside the archive.
	Path string `json:"path" yaml:"path"`

	// Package is the display name of the source package, empty for synthesized entries.
	Package string `json:"package,omitempty" yaml:"package,omitempty"`

	// Size is the size of the file in bytes.
	Size int64 `json:"size" yaml:"size"`

	// SHA256 is the checksum of the file content.
	SHA256 string `json:"sha256" yaml:"sha256"`
}
