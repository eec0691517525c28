// Package bundler rewrites package archives into a single minimal bundle, using
// a runtime trace to decide which members the application actually needs.
package bundler

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/mrhapile/tracepack/pkg/archive"
	"github.com/mrhapile/tracepack/pkg/config"
	"github.com/mrhapile/tracepack/pkg/minify"
	"github.com/mrhapile/tracepack/pkg/trace"
	"github.com/mrhapile/tracepack/pkg/types"
)

//go:embed loader/pack_loader.py
var loaderScript []byte

// LoaderScript returns the bootstrap script shipped in every bundle.
func LoaderScript() []byte {
	return append([]byte(nil), loaderScript...)
}

// Option configures the bundling process.
type Option func(*options)

type options struct {
	redact     bool
	timestamp  time.Time
	outputDir  string
	cfg        *config.PackConfig
	minifier   minify.Minifier
	noMinify   bool
	stdlibPath string
	debugMap   bool
	inputSizes bool
}

// WithRedaction masks credentials in the debug map.
func WithRedaction() Option {
	return func(o *options) {
		o.redact = true
	}
}

// WithTimestamp sets the modification time stamped on every entry. Defaults to
// archive.Epoch.
func WithTimestamp(t time.Time) Option {
	return func(o *options) {
		o.timestamp = t
	}
}

// WithOutputDir sets the directory where outputs are written.
func WithOutputDir(path string) Option {
	return func(o *options) {
		o.outputDir = path
	}
}

// WithConfig sets the packing configuration. Defaults to config.Default().
func WithConfig(cfg config.PackConfig) Option {
	return func(o *options) {
		o.cfg = &cfg
	}
}

// WithMinifier replaces the docstring stripper built from the configuration.
func WithMinifier(m minify.Minifier) Option {
	return func(o *options) {
		o.minifier = m
	}
}

// WithoutMinify keeps sources byte for byte.
func WithoutMinify() Option {
	return func(o *options) {
		o.noMinify = true
	}
}

// WithStdlib prunes the standard library archive at path down to the modules
// the trace imported.
func WithStdlib(path string) Option {
	return func(o *options) {
		o.stdlibPath = path
	}
}

// WithDebugMap writes the normalized trace next to the bundle.
func WithDebugMap() Option {
	return func(o *options) {
		o.debugMap = true
	}
}

// WithInputSizes measures input archives for the report. This reads every
// archive in full once more.
func WithInputSizes() Option {
	return func(o *options) {
		o.inputSizes = true
	}
}

// Build bundles the members of sources that tr shows were used. Packages are
// processed in name order and members in name order, so the same trace and
// inputs always produce the same bundle bytes.
func Build(ctx context.Context, tr *trace.RuntimeTrace, sources []types.PackageSource, opts ...Option) (*types.BundleResult, error) {
	o := &options{
		timestamp: archive.Epoch,
		outputDir: ".",
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.cfg == nil {
		cfg := config.Default()
		o.cfg = &cfg
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	m, err := o.buildMinifier()
	if err != nil {
		return nil, err
	}

	// The trace and the stdlib archive must be usable before the bundle is
	// written.
	var (
		stdlibPrefix string
		stdlib       *archive.Archive
	)
	if o.stdlibPath != "" {
		if stdlibPrefix, err = tr.StdlibPrefix(); err != nil {
			return nil, err
		}
		if stdlib, err = archive.Open(o.stdlibPath, ""); err != nil {
			return nil, fmt.Errorf("stdlib: %w", err)
		}
		defer stdlib.Close()
	}

	sorted := append([]types.PackageSource(nil), sources...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	w, err := CreateArchiveWriter(filepath.Join(o.outputDir, BundleFile), o.timestamp)
	if err != nil {
		return nil, err
	}
	manifest := NewManifestBuilder(ManifestVersion, o.timestamp)
	result := &types.BundleResult{ArchivePath: w.Path()}

	var libs []types.DynamicLib
	for _, src := range sorted {
		if err := ctx.Err(); err != nil {
			w.Abort()
			return nil, err
		}
		report, pkgLibs, err := bundlePackage(tr, o, m, src, w, manifest)
		if err != nil {
			w.Abort()
			return nil, err
		}
		libs = append(libs, pkgLibs...)
		result.Packages = append(result.Packages, report)
		result.Total.Merge(report.Stats)
	}

	result.DynamicLibs = types.SortDynamicLibs(libs)
	synthesized := []struct {
		name    string
		content []byte
	}{
		{LoadOrderFile, []byte(types.LoadOrderLines(result.DynamicLibs))},
		{LoaderFile, loaderScript},
	}
	for _, s := range synthesized {
		added, err := w.AddFile(s.name, s.content)
		if err != nil {
			w.Abort()
			return nil, err
		}
		if added {
			manifest.AddFile(s.name, "", s.content)
		}
	}

	size, err := w.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to write archive: %w", err)
	}
	result.Manifest = manifest.Build()
	result.FileCount = result.Manifest.TotalFiles
	result.SizeBytes = size
	log.Info().
		Str("path", result.ArchivePath).
		Int("files", result.FileCount).
		Int("dynlibs", len(result.DynamicLibs)).
		Str("size", humanize.Bytes(uint64(size))).
		Msg("bundle written")

	if stdlib != nil {
		report, out, err := pruneStdlib(tr, stdlibPrefix, stdlib, o.outputDir)
		if err != nil {
			if rmErr := os.Remove(result.ArchivePath); rmErr != nil {
				log.Warn().Err(rmErr).Str("path", result.ArchivePath).Msg("failed to remove bundle")
			}
			return nil, err
		}
		result.Stdlib = report
		result.StdlibPath = out
	}

	if o.debugMap {
		out, err := writeDebugMap(tr, o.outputDir, o.redact)
		if err != nil {
			return nil, err
		}
		result.DebugMapPath = out
	}

	return result, nil
}

func (o *options) buildMinifier() (minify.Minifier, error) {
	if o.noMinify {
		return nil, nil
	}
	if o.minifier != nil {
		return o.minifier, nil
	}
	opts := o.cfg.MinifyOptions()
	if !opts.StripDocstrings && !opts.StripModuleDocstrings {
		return nil, nil
	}
	return minify.NewDocstringStripper(opts)
}

// bundlePackage writes the used members of one package archive.
func bundlePackage(tr *trace.RuntimeTrace, o *options, m minify.Minifier, src types.PackageSource, w *ArchiveWriter, manifest *ManifestBuilder) (types.PackageReport, []types.DynamicLib, error) {
	report := types.PackageReport{Name: src.Name, Path: src.Path}

	a, err := archive.Open(src.Path, src.Name)
	if err != nil {
		return report, nil, fmt.Errorf("package %s: %w", src.Name, err)
	}
	defer a.Close()
	report.Name = a.Name()

	if o.inputSizes {
		report.SizeIn = a.TotalSize(false)
		report.SizeGzipIn = a.TotalSize(true)
	}

	pb := NewPackageBundler(tr, o.cfg, m)
	members := a.Names()
	sort.Strings(members)
	for _, member := range members {
		if isDir(member) {
			continue
		}
		outPath, ok := pb.ProcessPath(member)
		if !ok {
			continue
		}
		data, ok := a.Read(member)
		if data, ok = pb.ProcessContent(member, data, ok); !ok {
			log.Debug().Str("package", report.Name).Str("member", member).Msg("member unreadable, skipped")
			continue
		}
		name := entryName(outPath)
		added, err := w.AddFile(name, data)
		if err != nil {
			return report, nil, err
		}
		if added {
			manifest.AddFile(name, report.Name, data)
		}
	}

	report.Stats = pb.Stats()
	log.Info().
		Str("package", report.Name).
		Int("in", report.Stats.In.Total()).
		Int("out", report.Stats.Out.Total()).
		Str("size_out", humanize.Bytes(uint64(report.Stats.SizeOut))).
		Msg("package bundled")
	return report, pb.DynamicLibs(), nil
}
