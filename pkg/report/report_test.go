package report_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v2"

	"github.com/mrhapile/tracepack/pkg/report"
	"github.com/mrhapile/tracepack/pkg/types"
)

func sampleResult() *types.BundleResult {
	pkg := types.PackageReport{
		Name:       "numpy",
		Path:       "/dist/numpy.whl",
		SizeIn:     2_000_000,
		SizeGzipIn: 900_000,
		Stats: types.BundleStats{
			In:           types.ClassCount{Source: 10, Native: 2, Other: 3},
			Out:          types.ClassCount{Source: 4, Native: 1},
			FilesWritten: 5,
			SizeOut:      1_500,
			SizeGzipOut:  700,
		},
	}
	return &types.BundleResult{
		ArchivePath: "/out/package-bundle.zip",
		FileCount:   7,
		Manifest:    types.BundleManifest{ContentHash: "abc"},
		DynamicLibs: []types.DynamicLib{{Path: "/lib/x.so", LoadOrder: 3, Shared: true}},
		Packages:    []types.PackageReport{pkg},
		Total:       pkg.Stats,
		SizeBytes:   1_800,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want report.Format
	}{
		{"", report.FormatTable},
		{"TABLE", report.FormatTable},
		{"json", report.FormatJSON},
		{"yml", report.FormatYAML},
	}
	for _, tt := range tests {
		got, err := report.ParseFormat(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := report.ParseFormat("xml")
	assert.Error(t, err)
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf, sampleResult(), report.FormatTable))

	out := buf.String()
	assert.Contains(t, out, "numpy")
	assert.Contains(t, out, "Total")
	assert.Contains(t, out, "15")
	assert.Contains(t, out, "2.0 MB")
	assert.Contains(t, out, "1.5 kB")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf, sampleResult(), report.FormatJSON))

	var got report.Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, report.NewSummary(sampleResult()), got)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf, sampleResult(), report.FormatYAML))

	var got report.Summary
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "/out/package-bundle.zip", got.Archive)
	require.Len(t, got.Packages, 1)
	assert.Equal(t, "numpy", got.Packages[0].Name)
	assert.Equal(t, 4, got.Packages[0].Stats.Out.Source)
	assert.Equal(t, []types.DynamicLib{{Path: "/lib/x.so", LoadOrder: 3, Shared: true}}, got.DynamicLibs)
}

func TestNewSummaryEmpty(t *testing.T) {
	s := report.NewSummary(&types.BundleResult{})
	assert.NotNil(t, s.DynamicLibs)
	assert.NotNil(t, s.Packages)
	assert.Nil(t, s.StdlibStats)
}
