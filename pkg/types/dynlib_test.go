package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrhapile/tracepack/pkg/types"
)

func TestSortDynamicLibs(t *testing.T) {
	libs := []types.DynamicLib{
		{Path: "a", LoadOrder: 2},
		{Path: "b", LoadOrder: 1},
		{Path: "manual", LoadOrder: types.ManualLoadOrder},
		{Path: "c", LoadOrder: 1},
	}

	sorted := types.SortDynamicLibs(libs)

	paths := make([]string, 0, len(sorted))
	for _, l := range sorted {
		paths = append(paths, l.Path)
	}
	assert.Equal(t, []string{"manual", "b", "c", "a"}, paths)
	// input untouched
	assert.Equal(t, "a", libs[0].Path)
}

func TestLoadOrderLines(t *testing.T) {
	libs := []types.DynamicLib{
		{Path: "/lib/libx.so", LoadOrder: 0, Shared: true},
		{Path: "/lib/liby.so", LoadOrder: 3},
	}
	assert.Equal(t, "/lib/libx.so,true\n/lib/liby.so,false\n", types.LoadOrderLines(libs))
	assert.Empty(t, types.LoadOrderLines(nil))
}

func TestBundleStatsMerge(t *testing.T) {
	var total types.BundleStats
	a := types.BundleStats{SizeOut: 10, SizeGzipOut: 4, FilesWritten: 1}
	a.In.Add(types.ClassSource)
	a.Out.Add(types.ClassSource)
	b := types.BundleStats{SizeOut: 5, FilesWritten: 2}
	b.In.Add(types.ClassNative)
	b.In.Add("whatever")

	total.Merge(a)
	total.Merge(b)

	assert.Equal(t, 3, total.In.Total())
	assert.Equal(t, 1, total.In.Other)
	assert.Equal(t, 1, total.Out.Source)
	assert.Equal(t, int64(15), total.SizeOut)
	assert.Equal(t, 3, total.FilesWritten)
}
