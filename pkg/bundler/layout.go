package bundler

import (
	"path"
	"strings"

	"github.com/mrhapile/tracepack/pkg/types"
)

const (
	BundleFile    = "package-bundle.zip"
	StdlibFile    = "stdlib-stripped.zip"
	DebugMapFile  = "debug-map.json"
	LoadOrderFile = "bundle-so-list.txt"
	LoaderFile    = "pack_loader.py"

	// ManualSiteDir receives members forced in by include patterns.
	ManualSiteDir = "/lib/python3.11/site-utils"

	ManifestVersion = "v1"
)

// classify returns the extension class of an archive member.
func classify(name string) string {
	switch path.Ext(name) {
	case ".py":
		return types.ClassSource
	case ".so":
		return types.ClassNative
	default:
		return types.ClassOther
	}
}

// entryName is the path of an output file inside the bundle. Absolute paths
// are not extracted correctly by the runtime, so the leading slash goes.
func entryName(outputPath string) string {
	return strings.TrimLeft(outputPath, "/")
}

func isDir(member string) bool {
	return strings.HasSuffix(member, "/")
}
