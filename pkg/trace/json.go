package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Parse decodes and normalizes the trace JSON written by the harness.
// Keys it does not interpret are kept and written back by MarshalJSON.
func Parse(data []byte) (*RuntimeTrace, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedTrace, err)
	}
	for _, key := range []string{KeyOpenedFiles, KeyDynLibCalls} {
		if _, ok := raw[key]; !ok {
			return nil, fmt.Errorf("%w: missing %q", ErrMalformedTrace, key)
		}
	}

	var in Input
	if err := json.Unmarshal(raw[KeyOpenedFiles], &in.OpenedFiles); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedTrace, KeyOpenedFiles, err)
	}
	if err := json.Unmarshal(raw[KeyDynLibCalls], &in.DynamicLibCalls); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedTrace, KeyDynLibCalls, err)
	}
	if msg, ok := raw[KeyAccessedSymbols]; ok {
		accessed, err := decodePathSet(msg)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedTrace, KeyAccessedSymbols, err)
		}
		in.AccessedSymbolPaths = accessed
	}
	if msg, ok := raw[KeyModules]; ok {
		var mt moduleTable
		if err := json.Unmarshal(msg, &mt); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedTrace, KeyModules, err)
		}
		in.Modules = mt
	}
	if msg, ok := raw[KeyLoadedPackages]; ok {
		if err := json.Unmarshal(msg, &in.LoadedPackages); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedTrace, KeyLoadedPackages, err)
		}
	}

	t := New(in)
	for key, msg := range raw {
		switch key {
		case KeyOpenedFiles, KeyDynLibCalls, KeyAccessedSymbols, KeyModules, KeyLoadedPackages, KeyDynamicLibsMap:
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, msg); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedTrace, key, err)
		}
		t.extra[key] = buf.Bytes()
	}
	return t, nil
}

// MarshalJSON writes the normalized trace, the derived dynamic library map and
// every uninterpreted key.
func (t *RuntimeTrace) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.extra)+6)
	for k, v := range t.extra {
		out[k] = v
	}
	out[KeyOpenedFiles] = t.openedFiles
	out[KeyDynLibCalls] = t.dynLibCalls
	out[KeyAccessedSymbols] = t.accessed
	out[KeyModules] = moduleTable(t.modules)
	out[KeyLoadedPackages] = t.loadedPackages
	out[KeyDynamicLibsMap] = t.libs
	return json.Marshal(out)
}

// decodePathSet accepts either an array of paths or an object keyed by path.
// Object keys are sorted since JSON objects carry no order.
func decodePathSet(msg json.RawMessage) ([]string, error) {
	trimmed := bytes.TrimSpace(msg)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var paths []string
		if err := json.Unmarshal(trimmed, &paths); err != nil {
			return nil, err
		}
		return paths, nil
	}
	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &keyed); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(keyed))
	for p := range keyed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// moduleTable is a JSON object decoded in document order. Modules without a
// file (null or non-string values) are skipped.
type moduleTable []Module

func (m *moduleTable) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	var out moduleTable
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected module name, got %v", tok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		if path, ok := value.(string); ok {
			out = append(out, Module{Name: name, Path: path})
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

func (m moduleTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, mod := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(mod.Name)
		if err != nil {
			return nil, err
		}
		path, err := json.Marshal(mod.Path)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(path)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
