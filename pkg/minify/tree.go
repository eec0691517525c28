package minify

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// StripTree copies inputDir to outputDir, replacing any previous content, and
// minifies every .py file of the copy in place. Files the minifier rejects are
// kept unchanged. It returns the number of files rewritten.
func StripTree(m Minifier, inputDir, outputDir string) (int, error) {
	if err := os.RemoveAll(outputDir); err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", outputDir, err)
	}
	if err := os.CopyFS(outputDir, os.DirFS(inputDir)); err != nil {
		return 0, fmt.Errorf("failed to copy %s: %w", inputDir, err)
	}

	processed := 0
	err := filepath.WalkDir(outputDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.Type().IsRegular() || filepath.Ext(p) != ".py" {
			return err
		}
		rel, err := filepath.Rel(outputDir, p)
		if err != nil {
			return err
		}
		src, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out, err := m.Minify(src, filepath.ToSlash(rel))
		if err != nil {
			log.Warn().Err(err).Str("path", rel).Msg("minification failed, keeping original")
			return nil
		}
		if err := os.WriteFile(p, out, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", p, err)
		}
		processed++
		return nil
	})
	return processed, err
}
