package types

import (
	"sort"
	"strconv"
	"strings"
)

// ManualLoadOrder is assigned to libraries forced in through include globs so
// they load before anything the trace discovered.
const ManualLoadOrder = -1000

// DynamicLib is a shared object together with the position at which the
// runtime loaded it.
type DynamicLib struct {
	Path      string `json:"path" yaml:"path"`
	LoadOrder int    `json:"load_order" yaml:"load_order"`
	// Shared libraries export their symbols globally to later loads.
	Shared bool `json:"shared" yaml:"shared"`
}

// Less orders libraries by ascending load order.
func (d DynamicLib) Less(other DynamicLib) bool {
	return d.LoadOrder < other.LoadOrder
}

// SortDynamicLibs returns a copy of libs sorted by load order. Libraries with
// equal load order keep their relative order.
func SortDynamicLibs(libs []DynamicLib) []DynamicLib {
	out := make([]DynamicLib, len(libs))
	copy(out, libs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Less(out[j])
	})
	return out
}

// LoadOrderLines renders libs as "path,shared" lines, one per library.
// The caller is expected to pass libs already sorted.
func LoadOrderLines(libs []DynamicLib) string {
	var b strings.Builder
	for _, l := range libs {
		b.WriteString(l.Path)
		b.WriteByte(',')
		b.WriteString(strconv.FormatBool(l.Shared))
		b.WriteByte('\n')
	}
	return b.String()
}
