package archive

import (
	"archive/tar"
	"errors"
	"io"
	"os"
)

// tarReader loads regular members into memory on open, since tar offers no
// random access.
type tarReader struct {
	order []string
	files map[string][]byte
}

func openTar(path string) (*tarReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t := &tarReader{files: make(map[string][]byte)}
	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		t.order = append(t.order, hdr.Name)
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			// unreadable member, reported as absent by read
			continue
		}
		if _, dup := t.files[hdr.Name]; !dup {
			t.files[hdr.Name] = data
		}
	}
	return t, nil
}

func (t *tarReader) names() []string { return t.order }

func (t *tarReader) read(name string) ([]byte, bool) {
	data, ok := t.files[name]
	return data, ok
}

func (t *tarReader) close() error { return nil }
