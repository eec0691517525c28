// Package trace models the execution trace recorded by the runtime harness:
// which files were opened, which dynamic libraries were loaded and had
// symbols resolved, and which modules ended up in the module table.
//
// A RuntimeTrace is normalized on construction and never mutated afterwards.
package trace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mrhapile/tracepack/pkg/types"
)

// JSON keys written by the harness.
const (
	KeyOpenedFiles     = "opened_file_names"
	KeyDynLibCalls     = "load_dyn_lib_calls"
	KeyAccessedSymbols = "dl_accessed_symbols"
	KeyModules         = "sys_modules"
	KeyLoadedPackages  = "loaded_packages"
	// KeyDynamicLibsMap holds the derived library map; it is written for
	// inspection and recomputed when read back.
	KeyDynamicLibsMap = "dynamic_libs_map"
)

const (
	// cacheMarker identifies bytecode cache entries in opened files.
	cacheMarker = "__pycache__"
	// stdlibModule is a stdlib module always imported by the runtime.
	stdlibModule       = "pathlib"
	stdlibModuleSuffix = "/pathlib.py"
)

var (
	// ErrMalformedTrace is returned when required keys are missing or invalid.
	ErrMalformedTrace = errors.New("malformed trace")
	// ErrPrefixNotFound is returned when the stdlib location cannot be derived.
	ErrPrefixNotFound = errors.New("stdlib prefix not found")
)

// DynLibCall is one dynamic library load event.
type DynLibCall struct {
	Path   string `json:"path"`
	Global bool   `json:"global"`
}

// Module is an entry of the runtime's module table.
type Module struct {
	Name string
	Path string
}

// Input is the raw trace content before normalization.
type Input struct {
	OpenedFiles         []string
	DynamicLibCalls     []DynLibCall
	AccessedSymbolPaths []string
	Modules             []Module
	LoadedPackages      map[string]string
}

// RuntimeTrace is the normalized trace.
type RuntimeTrace struct {
	openedFiles    []string
	dynLibCalls    []DynLibCall
	accessed       []string
	accessedSet    map[string]struct{}
	modules        []Module
	loadedPackages map[string]string
	libs           map[string]types.DynamicLib
	libOrder       []string
	extra          map[string]json.RawMessage
}

// New normalizes in into a RuntimeTrace:
//   - opened files under a bytecode cache directory are dropped,
//   - opened files are deduplicated keeping the first occurrence,
//   - a library enters the dynamic library map when its symbols were accessed
//     or any call loaded it globally; its load order is the position of its
//     first call and it is shared when any call was global.
func New(in Input) *RuntimeTrace {
	t := &RuntimeTrace{
		openedFiles:    make([]string, 0, len(in.OpenedFiles)),
		dynLibCalls:    make([]DynLibCall, len(in.DynamicLibCalls)),
		accessed:       make([]string, 0, len(in.AccessedSymbolPaths)),
		accessedSet:    make(map[string]struct{}, len(in.AccessedSymbolPaths)),
		modules:        make([]Module, 0, len(in.Modules)),
		loadedPackages: make(map[string]string, len(in.LoadedPackages)),
		libs:           make(map[string]types.DynamicLib),
		extra:          make(map[string]json.RawMessage),
	}

	seen := make(map[string]struct{}, len(in.OpenedFiles))
	for _, p := range in.OpenedFiles {
		if strings.Contains(p, cacheMarker) {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		t.openedFiles = append(t.openedFiles, p)
	}

	for _, p := range in.AccessedSymbolPaths {
		if _, ok := t.accessedSet[p]; ok {
			continue
		}
		t.accessedSet[p] = struct{}{}
		t.accessed = append(t.accessed, p)
	}

	modSeen := make(map[string]int, len(in.Modules))
	for _, m := range in.Modules {
		if i, ok := modSeen[m.Name]; ok {
			t.modules[i] = m
			continue
		}
		modSeen[m.Name] = len(t.modules)
		t.modules = append(t.modules, m)
	}

	for k, v := range in.LoadedPackages {
		t.loadedPackages[k] = v
	}

	copy(t.dynLibCalls, in.DynamicLibCalls)
	global := make(map[string]bool, len(t.dynLibCalls))
	for _, call := range t.dynLibCalls {
		global[call.Path] = global[call.Path] || call.Global
	}
	for idx, call := range t.dynLibCalls {
		if _, ok := t.libs[call.Path]; ok {
			continue
		}
		if _, accessed := t.accessedSet[call.Path]; !accessed && !global[call.Path] {
			continue
		}
		t.libs[call.Path] = types.DynamicLib{
			Path:      call.Path,
			LoadOrder: idx,
			Shared:    global[call.Path],
		}
		t.libOrder = append(t.libOrder, call.Path)
	}
	return t
}

// Load reads and parses a trace file.
func Load(path string) (*RuntimeTrace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// OpenedFiles returns the normalized opened files in first-seen order.
func (t *RuntimeTrace) OpenedFiles() []string {
	return append([]string(nil), t.openedFiles...)
}

// DynamicLibCalls returns every load event in order.
func (t *RuntimeTrace) DynamicLibCalls() []DynLibCall {
	return append([]DynLibCall(nil), t.dynLibCalls...)
}

// AccessedSymbolPaths returns the libraries that had a symbol looked up.
func (t *RuntimeTrace) AccessedSymbolPaths() []string {
	return append([]string(nil), t.accessed...)
}

// SymbolsAccessed reports whether a symbol was resolved in the library at path.
func (t *RuntimeTrace) SymbolsAccessed(path string) bool {
	_, ok := t.accessedSet[path]
	return ok
}

// Modules returns the module table in trace order.
func (t *RuntimeTrace) Modules() []Module {
	return append([]Module(nil), t.modules...)
}

// ModulePath returns where a module was loaded from.
func (t *RuntimeTrace) ModulePath(name string) (string, bool) {
	for _, m := range t.modules {
		if m.Name == name {
			return m.Path, true
		}
	}
	return "", false
}

// LoadedPackages maps package names to the channel they were loaded from.
func (t *RuntimeTrace) LoadedPackages() map[string]string {
	out := make(map[string]string, len(t.loadedPackages))
	for k, v := range t.loadedPackages {
		out[k] = v
	}
	return out
}

// DynamicLib looks up a library of the dynamic library map.
func (t *RuntimeTrace) DynamicLib(path string) (types.DynamicLib, bool) {
	l, ok := t.libs[path]
	return l, ok
}

// DynamicLibPaths lists the dynamic library map keys in load order.
func (t *RuntimeTrace) DynamicLibPaths() []string {
	return append([]string(nil), t.libOrder...)
}

// DynamicLibs lists the dynamic library map values in load order.
func (t *RuntimeTrace) DynamicLibs() []types.DynamicLib {
	out := make([]types.DynamicLib, 0, len(t.libOrder))
	for _, p := range t.libOrder {
		out = append(out, t.libs[p])
	}
	return out
}

// Extra returns the raw value of a key of the trace that is not interpreted.
// Only insignificant whitespace of the value is changed when written back.
func (t *RuntimeTrace) Extra(key string) (json.RawMessage, bool) {
	v, ok := t.extra[key]
	if !ok {
		return nil, false
	}
	return append(json.RawMessage(nil), v...), true
}

// StdlibPrefix is the directory the standard library was mounted at, derived
// from the location of a module every runtime imports.
func (t *RuntimeTrace) StdlibPrefix() (string, error) {
	p, ok := t.ModulePath(stdlibModule)
	if !ok || !strings.HasSuffix(p, stdlibModuleSuffix) {
		return "", fmt.Errorf("module %q: %w", stdlibModule, ErrPrefixNotFound)
	}
	return strings.TrimSuffix(p, stdlibModuleSuffix), nil
}

// ImportedPaths returns module table paths followed by opened files, without
// duplicates. With a non-empty stripPrefix only paths below it are returned,
// relative to it.
func (t *RuntimeTrace) ImportedPaths(stripPrefix string) []string {
	all := make([]string, 0, len(t.modules)+len(t.openedFiles))
	for _, m := range t.modules {
		all = append(all, m.Path)
	}
	all = append(all, t.openedFiles...)

	out := make([]string, 0, len(all))
	seen := make(map[string]struct{}, len(all))
	for _, p := range all {
		if stripPrefix != "" {
			if !strings.HasPrefix(p, stripPrefix) {
				continue
			}
			p = strings.TrimPrefix(p, stripPrefix+"/")
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// WriteFile writes the normalized trace as indented JSON.
func (t *RuntimeTrace) WriteFile(path string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write trace %s: %w", path, err)
	}
	return nil
}
