package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

// GzipLevel is the fixed level used for size estimates.
const GzipLevel = gzip.BestCompression

// Epoch is the modification time stamped on written entries unless the caller
// picks another one. Zip cannot represent times before 1980.
var Epoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// GzipSize is the length of data once gzip compressed at GzipLevel.
func GzipSize(data []byte) int64 {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, GzipLevel)
	if err != nil {
		return int64(len(data))
	}
	_, _ = zw.Write(data)
	_ = zw.Close()
	return int64(buf.Len())
}

// NewZipWriter wraps w in a zip writer that deflates at best compression.
func NewZipWriter(w io.Writer) *zip.Writer {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})
	return zw
}

// WriteEntry adds a deflated regular file stamped with modTime.
func WriteEntry(zw *zip.Writer, name string, content []byte, modTime time.Time) error {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modTime,
	}
	header.SetMode(0644)
	fw, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to write header for %s: %w", name, err)
	}
	if _, err := fw.Write(content); err != nil {
		return fmt.Errorf("failed to write content for %s: %w", name, err)
	}
	return nil
}

// FilterToZip copies the members accepted by keep into a new zip file at
// outputPath, in archive order, and opens the result under the same display
// name. Members that cannot be read are skipped.
func (a *Archive) FilterToZip(outputPath string, keep func(name string) bool) (*Archive, error) {
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}
	zw := NewZipWriter(f)
	for _, name := range a.r.names() {
		if !keep(name) {
			continue
		}
		data, ok := a.r.read(name)
		if !ok {
			continue
		}
		if err := WriteEntry(zw, name, data, Epoch); err != nil {
			zw.Close()
			f.Close()
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to finalize %s: %w", outputPath, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close %s: %w", outputPath, err)
	}
	return Open(outputPath, a.name)
}

// ZipDir stores every regular file below dir into a new uncompressed zip at
// zipPath, in lexical order, with paths relative to dir. It returns the number
// of files written.
func ZipDir(dir, zipPath string) (int, error) {
	f, err := os.Create(zipPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive file: %w", err)
	}
	zw := zip.NewWriter(f)
	n := 0
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		header := &zip.FileHeader{
			Name:     filepath.ToSlash(rel),
			Method:   zip.Store,
			Modified: Epoch,
		}
		header.SetMode(0644)
		fw, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to write header for %s: %w", rel, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("failed to write content for %s: %w", rel, err)
		}
		n++
		return nil
	})
	if err != nil {
		zw.Close()
		f.Close()
		return 0, err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return 0, fmt.Errorf("failed to finalize %s: %w", zipPath, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("failed to close %s: %w", zipPath, err)
	}
	return n, nil
}
