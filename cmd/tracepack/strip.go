package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mrhapile/tracepack/pkg/archive"
	"github.com/mrhapile/tracepack/pkg/minify"
)

var stripCmd = &cobra.Command{
	Use:   "strip <dir>",
	Short: "Minify a directory of Python files",
	Long: `Copy a directory next to itself with docstrings removed from every Python
file, then store the copy in a zip file.

The copy is named <dir>_stripped, with a _no_docstrings suffix when function
and class docstrings are removed.

Examples:
  tracepack strip ./site-packages
  tracepack strip --strip-docstrings=false ./lib`,
	Args: cobra.ExactArgs(1),
	RunE: runStrip,
}

var (
	stripDocstrings       bool
	stripModuleDocstrings bool
)

func init() {
	stripCmd.Flags().BoolVar(&stripDocstrings, "strip-docstrings", true, "remove function and class docstrings")
	stripCmd.Flags().BoolVar(&stripModuleDocstrings, "strip-module-docstrings", true, "remove module docstrings")
}

func runStrip(cmd *cobra.Command, args []string) error {
	inputDir := filepath.Clean(args[0])
	m, err := minify.NewDocstringStripper(minify.Options{
		StripDocstrings:       stripDocstrings,
		StripModuleDocstrings: stripModuleDocstrings,
	})
	if err != nil {
		return err
	}

	outputDir := strippedDir(inputDir, stripDocstrings)
	start := time.Now()
	n, err := minify.StripTree(m, inputDir, outputDir)
	if err != nil {
		return err
	}
	log.Info().Int("files", n).Dur("elapsed", time.Since(start)).Msg("sources processed")

	zipPath := outputDir + ".zip"
	files, err := archive.ZipDir(outputDir, zipPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created zip file at %s (%d files)\n", zipPath, files)
	return nil
}

// strippedDir is the sibling directory receiving the minified copy.
func strippedDir(inputDir string, docstrings bool) string {
	name := filepath.Base(inputDir) + "_stripped"
	if docstrings {
		name += "_no_docstrings"
	}
	return filepath.Join(filepath.Dir(inputDir), name)
}
