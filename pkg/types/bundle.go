package types

// Extension classes used to partition bundle statistics.
const (
	ClassSource = "source"
	ClassNative = "native"
	ClassOther  = "other"
)

// ClassCount counts files of each extension class.
type ClassCount struct {
	Source int `json:"source" yaml:"source"`
	Native int `json:"native" yaml:"native"`
	Other  int `json:"other" yaml:"other"`
}

// Remove undoes Add.
func (c *ClassCount) Remove(class string) {
	switch class {
	case ClassSource:
		c.Source--
	case ClassNative:
		c.Native--
	default:
		c.Other--
	}
}

// Add increments the counter for the given class.
func (c *ClassCount) Add(class string) {
	switch class {
	case ClassSource:
		c.Source++
	case ClassNative:
		c.Native++
	default:
		c.Other++
	}
}

// Total is the sum over all classes.
func (c ClassCount) Total() int {
	return c.Source + c.Native + c.Other
}

// BundleStats accumulates per-package counts and byte totals.
type BundleStats struct {
	In           ClassCount `json:"in" yaml:"in"`
	Out          ClassCount `json:"out" yaml:"out"`
	FilesWritten int        `json:"filesWritten" yaml:"filesWritten"`
	SizeOut      int64      `json:"sizeOut" yaml:"sizeOut"`
	SizeGzipOut  int64      `json:"sizeGzipOut" yaml:"sizeGzipOut"`
}

// Merge adds other into s.
func (s *BundleStats) Merge(other BundleStats) {
	s.In.Source += other.In.Source
	s.In.Native += other.In.Native
	s.In.Other += other.In.Other
	s.Out.Source += other.Out.Source
	s.Out.Native += other.Out.Native
	s.Out.Other += other.Out.Other
	s.FilesWritten += other.FilesWritten
	s.SizeOut += other.SizeOut
	s.SizeGzipOut += other.SizeGzipOut
}

// PackageSource is a package archive to bundle.
type PackageSource struct {
	Name string // display name
	Path string // archive location on disk
}

// PackageReport is the outcome of bundling a single package archive.
type PackageReport struct {
	Name       string      `json:"name" yaml:"name"`
	Path       string      `json:"path" yaml:"path"`
	SizeIn     int64       `json:"sizeIn" yaml:"sizeIn"`
	SizeGzipIn int64       `json:"sizeGzipIn" yaml:"sizeGzipIn"`
	Stats      BundleStats `json:"stats" yaml:"stats"`
}

// BundleResult represents the output of a successful bundling operation.
type BundleResult struct {
	ArchivePath  string          // The absolute path to the generated bundle archive
	StdlibPath   string          // The stripped stdlib archive, empty when not requested
	DebugMapPath string          // The debug map, empty when not requested
	FileCount    int             // Total number of files archived
	Manifest     BundleManifest  // The content manifest of the bundle archive
	DynamicLibs  []DynamicLib    // Libraries in load order, as written to the load-order manifest
	Packages     []PackageReport // Per-package reports, in processing order
	Stdlib       *PackageReport  // Stdlib pruning report, nil when not requested
	Total        BundleStats     // Sum of all package stats
	SizeBytes    int64           // Uncompressed size of the bundle contents
}
