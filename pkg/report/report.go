// Package report renders bundling results for the command line.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	yaml "gopkg.in/yaml.v2"

	"github.com/mrhapile/tracepack/pkg/types"
)

// Format represents the output format
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format: %s (valid: table, json, yaml)", s)
	}
}

// Summary is the machine readable form of a bundling result.
type Summary struct {
	Archive     string                `json:"archive" yaml:"archive"`
	Stdlib      string                `json:"stdlib,omitempty" yaml:"stdlib,omitempty"`
	DebugMap    string                `json:"debugMap,omitempty" yaml:"debugMap,omitempty"`
	Files       int                   `json:"files" yaml:"files"`
	SizeBytes   int64                 `json:"sizeBytes" yaml:"sizeBytes"`
	ContentHash string                `json:"contentHash" yaml:"contentHash"`
	DynamicLibs []types.DynamicLib    `json:"dynamicLibs" yaml:"dynamicLibs"`
	Packages    []types.PackageReport `json:"packages" yaml:"packages"`
	StdlibStats *types.PackageReport  `json:"stdlibStats,omitempty" yaml:"stdlibStats,omitempty"`
	Total       types.BundleStats     `json:"total" yaml:"total"`
}

// NewSummary extracts the summary of a result.
func NewSummary(r *types.BundleResult) Summary {
	libs := r.DynamicLibs
	if libs == nil {
		libs = []types.DynamicLib{}
	}
	pkgs := r.Packages
	if pkgs == nil {
		pkgs = []types.PackageReport{}
	}
	return Summary{
		Archive:     r.ArchivePath,
		Stdlib:      r.StdlibPath,
		DebugMap:    r.DebugMapPath,
		Files:       r.FileCount,
		SizeBytes:   r.SizeBytes,
		ContentHash: r.Manifest.ContentHash,
		DynamicLibs: libs,
		Packages:    pkgs,
		StdlibStats: r.Stdlib,
		Total:       r.Total,
	}
}

// Write renders r to w in the given format.
func Write(w io.Writer, r *types.BundleResult, format Format) error {
	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(NewSummary(r))
	case FormatYAML:
		data, err := yaml.Marshal(NewSummary(r))
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		writeTable(w, r)
		return nil
	}
}

var headers = []string{"Package", "Files in", "Files out", "Size in", "Gzip in", "Size out", "Gzip out"}

func writeTable(w io.Writer, r *types.BundleResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	rows := make([][]string, 0, len(r.Packages)+2)
	var sizeIn, gzipIn int64
	for _, p := range r.Packages {
		rows = append(rows, row(p))
		sizeIn += p.SizeIn
		gzipIn += p.SizeGzipIn
	}
	if r.Stdlib != nil {
		rows = append(rows, row(*r.Stdlib))
	}
	rows = append(rows, row(types.PackageReport{
		Name:       "Total",
		SizeIn:     sizeIn,
		SizeGzipIn: gzipIn,
		Stats:      r.Total,
	}))
	table.AppendBulk(rows)
	table.Render()
}

func row(p types.PackageReport) []string {
	return []string{
		p.Name,
		strconv.Itoa(p.Stats.In.Total()),
		strconv.Itoa(p.Stats.Out.Total()),
		size(p.SizeIn),
		size(p.SizeGzipIn),
		size(p.Stats.SizeOut),
		size(p.Stats.SizeGzipOut),
	}
}

// size formats a byte count; unknown input sizes are shown as a dash.
func size(n int64) string {
	if n <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(n))
}
