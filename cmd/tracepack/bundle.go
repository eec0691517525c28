package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrhapile/tracepack/pkg/bundler"
	"github.com/mrhapile/tracepack/pkg/config"
	"github.com/mrhapile/tracepack/pkg/lockfile"
	"github.com/mrhapile/tracepack/pkg/report"
	"github.com/mrhapile/tracepack/pkg/trace"
	"github.com/mrhapile/tracepack/pkg/types"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle [archives...]",
	Short: "Bundle the files a traced application used",
	Long: `Reconcile a runtime trace with package archives and write a minimal bundle.

Archives are given as arguments, or resolved from a lock file using the
packages the trace recorded as loaded. The packing configuration is read
from the [tool.pyodide_pack] section of the nearest pyproject.toml.

Examples:
  tracepack bundle --trace trace.json numpy.whl app.zip
  tracepack bundle --trace trace.json --lock dist/pyodide-lock.json
  tracepack bundle --trace trace.json --stdlib dist/python_stdlib.zip -o out app.zip`,
	RunE: runBundle,
}

var (
	bundleTrace      string
	bundleLock       string
	bundlePackageDir string
	bundleStdlib     string
	bundleAppDir     string
	bundleIncludes   []string
	bundleDebugMap   bool
	bundleRedact     bool
	bundleNoMinify   bool
	bundleNoSizes    bool
)

func init() {
	bundleCmd.Flags().StringVarP(&bundleTrace, "trace", "t", "", "runtime trace recorded by the harness (required)")
	bundleCmd.Flags().StringVar(&bundleLock, "lock", "", "lock file used to resolve loaded packages")
	bundleCmd.Flags().StringVar(&bundlePackageDir, "package-dir", "", "directory holding package archives (default: lock file directory)")
	bundleCmd.Flags().StringVar(&bundleStdlib, "stdlib", "", "standard library archive to prune")
	bundleCmd.Flags().StringP("output", "o", "dist", "output directory")
	bundleCmd.Flags().StringVar(&bundleAppDir, "app", ".", "application directory, searched upwards for "+config.ProjectFile)
	bundleCmd.Flags().StringSliceVar(&bundleIncludes, "include", nil, "extra include pattern, in addition to include_paths")
	bundleCmd.Flags().BoolVar(&bundleDebugMap, "debug-map", false, "write the normalized trace next to the bundle")
	bundleCmd.Flags().BoolVar(&bundleRedact, "redact", false, "mask credentials in the debug map")
	bundleCmd.Flags().BoolVar(&bundleNoMinify, "no-minify", false, "keep Python sources unchanged")
	bundleCmd.Flags().BoolVar(&bundleNoSizes, "no-sizes", false, "skip measuring input archives")
	_ = bundleCmd.MarkFlagRequired("trace")

	_ = viper.BindPFlag("output", bundleCmd.Flags().Lookup("output"))
}

func runBundle(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr, err := trace.Load(bundleTrace)
	if err != nil {
		return err
	}

	cfg, project, err := config.Load(bundleAppDir)
	if err != nil {
		return err
	}
	if project != "" {
		log.Debug().Str("path", project).Msg("configuration loaded")
	}
	cfg.IncludePaths = append(cfg.IncludePaths, bundleIncludes...)

	sources, err := packageSources(tr, args)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return errors.New("no package archives: pass archives as arguments or use --lock")
	}

	opts := []bundler.Option{
		bundler.WithOutputDir(viper.GetString("output")),
		bundler.WithConfig(cfg),
	}
	if bundleStdlib != "" {
		opts = append(opts, bundler.WithStdlib(bundleStdlib))
	}
	if bundleDebugMap {
		opts = append(opts, bundler.WithDebugMap())
	}
	if bundleRedact {
		opts = append(opts, bundler.WithRedaction())
	}
	if bundleNoMinify {
		opts = append(opts, bundler.WithoutMinify())
	}
	if !bundleNoSizes {
		opts = append(opts, bundler.WithInputSizes())
	}

	result, err := bundler.Build(ctx, tr, sources, opts...)
	if err != nil {
		return err
	}
	return report.Write(cmd.OutOrStdout(), result, format)
}

// packageSources returns the archives given as arguments, or the ones the
// lock file maps the trace's loaded packages to.
func packageSources(tr *trace.RuntimeTrace, args []string) ([]types.PackageSource, error) {
	sources := make([]types.PackageSource, 0, len(args))
	for _, path := range args {
		sources = append(sources, types.PackageSource{Name: archiveName(path), Path: path})
	}
	if bundleLock == "" {
		return sources, nil
	}

	lock, err := lockfile.Load(bundleLock)
	if err != nil {
		return nil, err
	}
	dir := bundlePackageDir
	if dir == "" {
		dir = filepath.Dir(bundleLock)
	}
	resolved, err := lock.Resolve(tr.LoadedPackages(), dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve loaded packages: %w", err)
	}
	return append(sources, resolved...), nil
}

// archiveName is the display name of an archive given on the command line.
func archiveName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
