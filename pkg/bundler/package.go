package bundler

import (
	"path"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"

	"github.com/mrhapile/tracepack/pkg/archive"
	"github.com/mrhapile/tracepack/pkg/config"
	"github.com/mrhapile/tracepack/pkg/minify"
	"github.com/mrhapile/tracepack/pkg/pathmatch"
	"github.com/mrhapile/tracepack/pkg/trace"
	"github.com/mrhapile/tracepack/pkg/types"
)

// PackageBundler decides, member by member, what of one package archive goes
// into the bundle and under which path.
type PackageBundler struct {
	trace    *trace.RuntimeTrace
	cfg      *config.PackConfig
	minifier minify.Minifier

	libPaths []string
	opened   []string

	dynamicLibs []types.DynamicLib
	stats       types.BundleStats
	last        decision
}

// decision remembers the last accepted member so it can be taken back when
// its content turns out to be unreadable.
type decision struct {
	member string
	class  string
	lib    bool
}

// NewPackageBundler creates a bundler for one package. A nil minifier keeps
// sources as they are.
func NewPackageBundler(tr *trace.RuntimeTrace, cfg *config.PackConfig, m minify.Minifier) *PackageBundler {
	return &PackageBundler{
		trace:    tr,
		cfg:      cfg,
		minifier: m,
		libPaths: tr.DynamicLibPaths(),
		opened:   tr.OpenedFiles(),
	}
}

// ProcessPath returns the output path of member, or false when the member is
// left out. Rules, first match wins:
//  1. the member is a library of the trace's dynamic library map;
//  2. the member was opened, unless it is a native library nobody resolved a
//     symbol from;
//  3. the member matches an include pattern and goes under ManualSiteDir;
//     native libraries included this way load before all others.
func (b *PackageBundler) ProcessPath(member string) (string, bool) {
	class := classify(member)
	b.stats.In.Add(class)

	if matched, ok := pathmatch.MatchSuffix(b.libPaths, member); ok {
		lib, _ := b.trace.DynamicLib(matched)
		b.accept(member, class, lib, true)
		return matched, true
	}

	if matched, ok := pathmatch.MatchSuffix(b.opened, member); ok {
		if class == types.ClassNative && b.cfg.So.DropUnusedSo {
			log.Debug().Str("member", member).Str("path", matched).Msg("library opened but unused, dropped")
			return "", false
		}
		b.accept(member, class, types.DynamicLib{}, false)
		return matched, true
	}

	if b.included(member) {
		out := path.Join(ManualSiteDir, member)
		if class == types.ClassNative {
			b.accept(member, class, types.DynamicLib{Path: out, LoadOrder: types.ManualLoadOrder}, true)
		} else {
			b.accept(member, class, types.DynamicLib{}, false)
		}
		log.Debug().Str("member", member).Str("path", out).Msg("included by pattern")
		return out, true
	}

	return "", false
}

// ProcessContent returns the bytes to write for an accepted member. data and
// ok are the result of reading the member; an unreadable member is dropped and
// the decision ProcessPath made for it is undone.
func (b *PackageBundler) ProcessContent(member string, data []byte, ok bool) ([]byte, bool) {
	if !ok {
		b.rollback(member)
		return nil, false
	}

	if b.minifier != nil && classify(member) == types.ClassSource {
		out, err := b.minifier.Minify(data, member)
		if err != nil {
			log.Warn().Err(err).Str("member", member).Msg("minification failed, keeping original")
		} else {
			data = out
		}
	}

	b.stats.FilesWritten++
	b.stats.SizeOut += int64(len(data))
	b.stats.SizeGzipOut += archive.GzipSize(data)
	return data, true
}

// DynamicLibs returns the libraries accepted so far, in acceptance order.
func (b *PackageBundler) DynamicLibs() []types.DynamicLib {
	return append([]types.DynamicLib(nil), b.dynamicLibs...)
}

// Stats returns a snapshot of the counters.
func (b *PackageBundler) Stats() types.BundleStats {
	return b.stats
}

func (b *PackageBundler) accept(member, class string, lib types.DynamicLib, isLib bool) {
	b.stats.Out.Add(class)
	if isLib {
		b.dynamicLibs = append(b.dynamicLibs, lib)
	}
	b.last = decision{member: member, class: class, lib: isLib}
}

func (b *PackageBundler) rollback(member string) {
	if b.last.member != member {
		return
	}
	b.stats.In.Remove(b.last.class)
	b.stats.Out.Remove(b.last.class)
	if b.last.lib {
		b.dynamicLibs = b.dynamicLibs[:len(b.dynamicLibs)-1]
	}
	b.last = decision{}
}

func (b *PackageBundler) included(member string) bool {
	for _, pattern := range b.cfg.IncludePaths {
		if ok, err := doublestar.Match(pattern, member); err == nil && ok {
			return true
		}
	}
	return false
}
