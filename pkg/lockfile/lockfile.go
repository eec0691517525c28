// Package lockfile locates the package archives a trace loaded, using the
// runtime distribution's lock file.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mrhapile/tracepack/pkg/types"
)

// DefaultChannel marks packages shipped with the runtime distribution.
const DefaultChannel = "default channel"

// ErrUnknownPackage is returned when a loaded package is not in the lock file.
var ErrUnknownPackage = errors.New("package not in lock file")

// Lock is the subset of the lock file needed to find archives.
type Lock struct {
	Info     map[string]any     `json:"info,omitempty"`
	Packages map[string]Package `json:"packages"`
}

// Package is one lock file entry.
type Package struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	FileName string   `json:"file_name"`
	Depends  []string `json:"depends,omitempty"`
}

// Load reads a lock file.
func Load(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lock file %s: %w", path, err)
	}
	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse lock file %s: %w", path, err)
	}
	return &lock, nil
}

// Resolve maps loaded packages (name to source channel, as recorded in the
// trace) to archives under packageDir. Packages from the default channel
// are looked up in the lock; packages loaded from a URL or path use its file
// name. The result is sorted by package name.
func (l *Lock) Resolve(loaded map[string]string, packageDir string) ([]types.PackageSource, error) {
	out := make([]types.PackageSource, 0, len(loaded))
	for name, channel := range loaded {
		fileName, err := l.fileName(name, channel)
		if err != nil {
			return nil, err
		}
		out = append(out, types.PackageSource{
			Name: name,
			Path: filepath.Join(packageDir, fileName),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (l *Lock) fileName(name, channel string) (string, error) {
	if channel != DefaultChannel && strings.Contains(channel, "/") {
		if u, err := url.Parse(channel); err == nil && u.Path != "" {
			return path.Base(u.Path), nil
		}
		return path.Base(channel), nil
	}
	pkg, ok := l.Packages[name]
	if !ok || pkg.FileName == "" {
		return "", fmt.Errorf("%s: %w", name, ErrUnknownPackage)
	}
	return pkg.FileName, nil
}
