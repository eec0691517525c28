package archive

import (
	"archive/zip"
	"io"
	"strings"
)

type zipReader struct {
	rc    *zip.ReadCloser
	order []string
	files map[string]*zip.File
}

func openZip(path string) (*zipReader, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	z := &zipReader{
		rc:    rc,
		order: make([]string, 0, len(rc.File)),
		files: make(map[string]*zip.File, len(rc.File)),
	}
	for _, f := range rc.File {
		z.order = append(z.order, f.Name)
		if _, dup := z.files[f.Name]; !dup {
			z.files[f.Name] = f
		}
	}
	return z, nil
}

func (z *zipReader) names() []string { return z.order }

func (z *zipReader) read(name string) ([]byte, bool) {
	f, ok := z.files[name]
	if !ok || strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir() {
		return nil, false
	}
	rc, err := f.Open()
	if err != nil {
		return nil, false
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (z *zipReader) close() error {
	return z.rc.Close()
}
