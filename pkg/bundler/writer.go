package bundler

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mrhapile/tracepack/pkg/archive"
)

// ArchiveWriter streams bundle entries into a zip file. Entries keep the order
// they are added in and all carry the same timestamp, so identical inputs give
// identical bytes.
type ArchiveWriter struct {
	path    string
	f       *os.File
	zw      *zip.Writer
	ts      time.Time
	written map[string]struct{}
	size    int64
}

// CreateArchiveWriter creates the zip file at path. The caller must Close or
// Abort the writer.
func CreateArchiveWriter(path string, ts time.Time) (*ArchiveWriter, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}
	return &ArchiveWriter{
		path:    absPath,
		f:       f,
		zw:      archive.NewZipWriter(f),
		ts:      ts,
		written: make(map[string]struct{}),
	}, nil
}

// Path is the absolute path of the archive being written.
func (w *ArchiveWriter) Path() string {
	return w.path
}

// AddFile writes one entry. The first writer of a path wins: a repeated path
// is logged and reported as not added.
func (w *ArchiveWriter) AddFile(path string, content []byte) (bool, error) {
	if _, ok := w.written[path]; ok {
		log.Warn().Str("path", path).Msg("duplicate bundle entry skipped")
		return false, nil
	}
	if err := archive.WriteEntry(w.zw, path, content, w.ts); err != nil {
		return false, err
	}
	w.written[path] = struct{}{}
	w.size += int64(len(content))
	return true, nil
}

// Close finalizes the archive and returns the total uncompressed size of its
// entries.
func (w *ArchiveWriter) Close() (int64, error) {
	if err := w.zw.Close(); err != nil {
		w.f.Close()
		return 0, fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return 0, fmt.Errorf("failed to close archive file: %w", err)
	}
	return w.size, nil
}

// Abort closes and removes a partially written archive.
func (w *ArchiveWriter) Abort() {
	w.zw.Close()
	w.f.Close()
	os.Remove(w.path)
}
