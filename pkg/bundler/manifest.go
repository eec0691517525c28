package bundler

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/mrhapile/tracepack/pkg/types"
)

type ManifestBuilder struct {
	manifest types.BundleManifest
}

func NewManifestBuilder(version string, ts time.Time) *ManifestBuilder {
	return &ManifestBuilder{
		manifest: types.BundleManifest{
			Version:     version,
			GeneratedAt: ts,
			Files:       []types.FileEntry{},
		},
	}
}

// AddFile records an entry written to the bundle. pkg is the package the entry
// came from, empty for synthesized entries.
func (mb *ManifestBuilder) AddFile(path, pkg string, data []byte) {
	hash := sha256.Sum256(data)
	mb.manifest.Files = append(mb.manifest.Files, types.FileEntry{
		Path:    path,
		Package: pkg,
		Size:    int64(len(data)),
		SHA256:  hex.EncodeToString(hash[:]),
	})
	mb.manifest.TotalFiles++
}

// Build seals the manifest. The content hash covers entry paths and hashes in
// write order.
func (mb *ManifestBuilder) Build() types.BundleManifest {
	hasher := sha256.New()
	for _, f := range mb.manifest.Files {
		hasher.Write([]byte(f.Path))
		hasher.Write([]byte{0})
		hasher.Write([]byte(f.SHA256))
	}
	mb.manifest.ContentHash = hex.EncodeToString(hasher.Sum(nil))
	return mb.manifest
}
