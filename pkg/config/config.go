// Package config loads the packing configuration from the
// [tool.pyodide_pack] section of the nearest pyproject.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/mrhapile/tracepack/pkg/minify"
)

const (
	// ProjectFile is the file searched for in the application's directories.
	ProjectFile = "pyproject.toml"
	// EnvPrefix prefixes environment overrides, e.g. TRACEPACK_SO_DROP_UNUSED_SO.
	EnvPrefix = "TRACEPACK"
)

// ErrInvalidConfig is returned for unknown keys, wrong types or bad patterns.
var ErrInvalidConfig = errors.New("invalid configuration")

// section is the path of the configuration table inside ProjectFile.
var section = []string{"tool", "pyodide_pack"}

// PackConfig is the packing configuration. It is read once and passed by
// value or pointer to consumers that never modify it.
type PackConfig struct {
	// Requires lists the packages the application needs.
	Requires []string `mapstructure:"requires" yaml:"requires"`
	// IncludePaths are doublestar patterns of members always bundled.
	IncludePaths []string `mapstructure:"include_paths" yaml:"include_paths"`
	Py           PyConfig `mapstructure:"py" yaml:"py"`
	So           SoConfig `mapstructure:"so" yaml:"so"`
}

// PyConfig controls the handling of Python sources.
type PyConfig struct {
	StripModuleDocstrings   bool     `mapstructure:"strip_module_docstrings" yaml:"strip_module_docstrings"`
	StripDocstrings         bool     `mapstructure:"strip_docstrings" yaml:"strip_docstrings"`
	ModuleDocstringExcludes []string `mapstructure:"module_docstring_excludes" yaml:"module_docstring_excludes"`
	DocstringExcludes       []string `mapstructure:"docstring_excludes" yaml:"docstring_excludes"`
	// PyCompile is accepted for compatibility; sources are always bundled
	// as text.
	PyCompile bool `mapstructure:"py_compile" yaml:"py_compile"`
}

// SoConfig controls the handling of shared libraries.
type SoConfig struct {
	// DropUnusedSo excludes libraries that were opened but never had a
	// symbol resolved.
	DropUnusedSo bool `mapstructure:"drop_unused_so" yaml:"drop_unused_so"`
}

// Default returns the configuration used when no project file is found.
func Default() PackConfig {
	return PackConfig{
		Requires:     []string{},
		IncludePaths: []string{},
		Py: PyConfig{
			StripModuleDocstrings:   true,
			StripDocstrings:         true,
			ModuleDocstringExcludes: []string{},
			// numpy relies on docstrings of some functions at import time
			DocstringExcludes: []string{"numpy/**"},
		},
		So: SoConfig{DropUnusedSo: true},
	}
}

// MinifyOptions maps the Python settings onto the minifier.
func (c PackConfig) MinifyOptions() minify.Options {
	return minify.Options{
		StripModuleDocstrings:   c.Py.StripModuleDocstrings,
		StripDocstrings:         c.Py.StripDocstrings,
		ModuleDocstringExcludes: c.Py.ModuleDocstringExcludes,
		DocstringExcludes:       c.Py.DocstringExcludes,
	}
}

// Validate checks the glob patterns.
func (c PackConfig) Validate() error {
	for _, p := range c.IncludePaths {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("include_paths: invalid pattern %q: %w", p, doublestar.ErrBadPattern)
		}
	}
	return nil
}

// FindProjectFile looks for ProjectFile in start (or its directory when start
// is a file) and every parent directory.
func FindProjectFile(start string) (string, bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		candidate := filepath.Join(dir, ProjectFile)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Load reads the configuration for an application located at start. It
// returns the project file used, empty when defaults applied.
func Load(start string) (PackConfig, string, error) {
	path, ok := FindProjectFile(start)
	if !ok {
		cfg, err := build(nil)
		return cfg, "", err
	}
	cfg, err := LoadFile(path)
	return cfg, path, err
}

// LoadFile reads the configuration section of a given project file.
func LoadFile(path string) (PackConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PackConfig{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	sec, err := Section(data)
	if err != nil {
		return PackConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg, err := build(sec)
	if err != nil {
		return PackConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Section extracts the [tool.pyodide_pack] table. A missing or non-table
// section yields nil.
func Section(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid TOML: %w", err)
	}
	cur := doc
	for _, key := range section {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return nil, nil
		}
		cur = next
	}
	return cur, nil
}

func build(sec map[string]any) (PackConfig, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("requires", def.Requires)
	v.SetDefault("include_paths", def.IncludePaths)
	v.SetDefault("py.strip_module_docstrings", def.Py.StripModuleDocstrings)
	v.SetDefault("py.strip_docstrings", def.Py.StripDocstrings)
	v.SetDefault("py.module_docstring_excludes", def.Py.ModuleDocstringExcludes)
	v.SetDefault("py.docstring_excludes", def.Py.DocstringExcludes)
	v.SetDefault("py.py_compile", def.Py.PyCompile)
	v.SetDefault("so.drop_unused_so", def.So.DropUnusedSo)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if sec != nil {
		if err := v.MergeConfigMap(sec); err != nil {
			return PackConfig{}, fmt.Errorf("failed to merge configuration: %w", err)
		}
	}

	var cfg PackConfig
	if err := v.UnmarshalExact(&cfg); err != nil {
		return PackConfig{}, errors.Join(ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return PackConfig{}, errors.Join(ErrInvalidConfig, err)
	}
	if cfg.Py.PyCompile {
		log.Warn().Msg("py.py_compile is not supported, Python sources are bundled as text")
	}
	return cfg, nil
}
