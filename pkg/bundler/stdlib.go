package bundler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/mrhapile/tracepack/pkg/archive"
	"github.com/mrhapile/tracepack/pkg/trace"
	"github.com/mrhapile/tracepack/pkg/types"
)

// pruneStdlib copies the standard library members the trace imported from
// src into StdlibFile. Member names are relative to the mount prefix.
func pruneStdlib(tr *trace.RuntimeTrace, prefix string, src *archive.Archive, outputDir string) (*types.PackageReport, string, error) {
	imported := make(map[string]struct{})
	for _, p := range tr.ImportedPaths(prefix) {
		imported[p] = struct{}{}
	}

	report := &types.PackageReport{
		Name:       src.Name(),
		Path:       src.Path(),
		SizeIn:     src.TotalSize(false),
		SizeGzipIn: src.TotalSize(true),
	}
	for _, name := range src.Names() {
		report.Stats.In.Add(classify(name))
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outPath, err := filepath.Abs(filepath.Join(outputDir, StdlibFile))
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	pruned, err := src.FilterToZip(outPath, func(name string) bool {
		_, ok := imported[name]
		return ok
	})
	if err != nil {
		return nil, "", fmt.Errorf("stdlib: %w", err)
	}
	defer pruned.Close()

	for _, name := range pruned.Names() {
		report.Stats.Out.Add(classify(name))
		report.Stats.FilesWritten++
	}
	report.Stats.SizeOut = pruned.TotalSize(false)
	report.Stats.SizeGzipOut = pruned.TotalSize(true)

	log.Info().
		Str("path", outPath).
		Int("in", report.Stats.In.Total()).
		Int("out", report.Stats.Out.Total()).
		Str("size_out", humanize.Bytes(uint64(report.Stats.SizeOut))).
		Msg("stdlib pruned")
	return report, outPath, nil
}

// writeDebugMap writes the normalized trace as DebugMapFile.
func writeDebugMap(tr *trace.RuntimeTrace, outputDir string, redact bool) (string, error) {
	data, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal debug map: %w", err)
	}
	if redact {
		if data, err = newRedactor().Redact(data); err != nil {
			return "", fmt.Errorf("redaction failed for debug map: %w", err)
		}
	}
	outPath, err := filepath.Abs(filepath.Join(outputDir, DebugMapFile))
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write debug map: %w", err)
	}
	return outPath, nil
}
