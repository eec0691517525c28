// Package archive provides a read-only view over zip and tar package archives.
//
// Archives are treated as immutable for the lifetime of an Archive value:
// member listings and size totals are computed once and cached.
package archive

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned by Open for unrecognised file suffixes.
var ErrUnsupportedFormat = errors.New("unsupported archive format")

// reader is implemented by each supported archive format.
type reader interface {
	names() []string
	read(name string) ([]byte, bool)
	close() error
}

// Archive is an opened package archive.
type Archive struct {
	path  string
	name  string
	r     reader
	sizes map[bool]int64
}

// Open opens the archive at path. If name is empty the file's base name is
// used as display name.
func Open(path, name string) (*Archive, error) {
	if name == "" {
		name = filepath.Base(path)
	}

	var (
		r   reader
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip", ".whl":
		r, err = openZip(path)
	case ".tar":
		r, err = openTar(path)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}

	return &Archive{
		path:  path,
		name:  name,
		r:     r,
		sizes: make(map[bool]int64, 2),
	}, nil
}

// Path is the backing file path.
func (a *Archive) Path() string { return a.path }

// Name is the display name.
func (a *Archive) Name() string { return a.name }

// Names lists member names in the order they are stored in the archive.
// Callers needing a reproducible order must sort the result.
func (a *Archive) Names() []string {
	src := a.r.names()
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Read returns the content of a member. The boolean is false for directory
// entries, missing members and members that cannot be read.
func (a *Archive) Read(name string) ([]byte, bool) {
	return a.r.read(name)
}

// TotalSize sums the size of every readable member, either as stored
// uncompressed or after gzip compression. The whole archive is read, so the
// result is cached per flag.
func (a *Archive) TotalSize(compressed bool) int64 {
	if size, ok := a.sizes[compressed]; ok {
		return size
	}
	var size int64
	for _, name := range a.r.names() {
		data, ok := a.r.read(name)
		if !ok {
			continue
		}
		if compressed {
			size += GzipSize(data)
		} else {
			size += int64(len(data))
		}
	}
	a.sizes[compressed] = size
	return size
}

// Close releases the underlying file.
func (a *Archive) Close() error {
	return a.r.close()
}
