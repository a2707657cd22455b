// Package resolver maps logical content requests (content type + relative
// path) to concrete file-system locations, honoring the installed mod
// overlay: mods are consulted in descending priority order and the base
// game content is the final fallback. Results, including confirmed
// absences, are held in a bounded LRU cache so repeated lookups do not
// repeat file-system probing.
package resolver

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/keithlinneman/modresolve/internal/log"
	"github.com/keithlinneman/modresolve/internal/lru"
	"github.com/keithlinneman/modresolve/internal/modset"
	"github.com/keithlinneman/modresolve/internal/pathsafety"
	"github.com/keithlinneman/modresolve/internal/xerrors"
)

// SourceBase is the provenance identifier reported when only the base game
// supplies a file.
const SourceBase = "base"

// DefaultSearchPattern is used by GetAllContentPaths when no pattern is
// given.
const DefaultSearchPattern = "*.json"

// ErrBlankArgument marks caller contract violations: blank content type,
// relative path, or pattern. These fail fast and are never cached.
var ErrBlankArgument = xerrors.New("resolver: blank argument")

// Key identifies one resolution in the cache. Structural equality avoids
// any separator ambiguity a concatenated string key would carry and makes
// per-type invalidation an exact field match.
type Key struct {
	ContentType  string
	RelativePath string
}

// result is a cached resolution outcome. found=false is a negative entry:
// the content is confirmed absent and a hit on it must not re-probe.
type result struct {
	path  string
	found bool
}

// Stats is a point-in-time snapshot of resolver counters. Hits+Misses may
// transiently differ from Total when read concurrently with resolutions;
// each counter is individually consistent.
type Stats struct {
	Hits          int64   `json:"cache_hits"`
	Misses        int64   `json:"cache_misses"`
	Total         int64   `json:"total_resolutions"`
	CachedEntries int     `json:"cached_entries"`
	HitRate       float64 `json:"hit_rate"`
}

// Resolver resolves content requests against the mod overlay and base
// content set. All methods are safe for concurrent use.
type Resolver struct {
	opts Options

	cache *lru.Cache[Key, result]

	// custom content types registered after construction; registration is
	// rare, lookups take the read lock.
	customMu sync.RWMutex
	custom   map[string]string

	// counters are independent atomics, deliberately not taken under the
	// cache lock.
	hits   atomic.Int64
	misses atomic.Int64
	total  atomic.Int64

	logger  log.Logger
	metrics Metrics
}

// New validates opts and builds a Resolver. Configuration problems fail
// here, never at first use.
func New(opts Options) (*Resolver, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	// private copy of the folder map; Options stays immutable afterwards
	folders := make(map[string]string, len(opts.BaseContentFolders))
	for ct, folder := range opts.BaseContentFolders {
		folders[ct] = folder
	}
	opts.BaseContentFolders = folders

	cache, err := lru.New[Key, result](opts.CacheCapacity)
	if err != nil {
		return nil, xerrors.Wrap(err, "resolver cache")
	}

	return &Resolver{
		opts:    opts,
		cache:   cache,
		custom:  make(map[string]string),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// Resolve returns the absolute path supplying contentType/relativePath, or
// found=false if no mod and no base folder holds it. Negative outcomes are
// cached like positive ones.
//
// Unsafe relative paths never reach resolution: depending on
// Options.TreatUnsafeAsMissing they either return a *pathsafety.SecurityError
// or a plain not-found, and in both cases no counter moves and no cache
// entry is written.
func (r *Resolver) Resolve(ctx context.Context, contentType, relativePath string) (string, bool, error) {
	if err := checkArgs(contentType, relativePath); err != nil {
		return "", false, err
	}
	if !pathsafety.IsRelativePathSafe(relativePath) {
		if r.opts.TreatUnsafeAsMissing {
			return "", false, nil
		}
		return "", false, &pathsafety.SecurityError{Input: relativePath, Reason: "unsafe relative path"}
	}

	r.total.Add(1)
	r.metrics.Resolution()

	key := Key{ContentType: contentType, RelativePath: relativePath}
	if res, ok := r.cache.TryGet(key); ok {
		r.hits.Add(1)
		r.metrics.Hit()
		return res.path, res.found, nil
	}

	r.misses.Add(1)
	r.metrics.Miss()
	if r.opts.LogCacheMisses {
		r.logger.Debug(ctx, "resolution cache miss",
			"content_type", contentType,
			"relative_path", relativePath,
		)
	}

	res := r.resolveUncached(contentType, relativePath)

	// negative results are cached unconditionally, same as positive ones
	if evicted := r.cache.Put(key, res); evicted {
		r.metrics.Eviction()
	}
	r.metrics.SetCacheSize(r.cache.Len())

	return res.path, res.found, nil
}

// resolveUncached walks mods by descending priority, then the base folder.
func (r *Resolver) resolveUncached(contentType, relativePath string) result {
	for _, mod := range modset.SortByPriority(r.opts.Mods.Mods()) {
		folder, declared := mod.ContentFolders[contentType]
		if !declared {
			continue
		}
		candidate := filepath.Join(mod.Dir, folder, relativePath)
		if r.opts.Probe.FileExists(candidate) {
			return result{path: candidate, found: true}
		}
	}

	candidate := filepath.Join(r.opts.BaseRoot, r.contentFolder(contentType), relativePath)
	if r.opts.Probe.FileExists(candidate) {
		return result{path: candidate, found: true}
	}
	return result{}
}

// ContentExists reports whether Resolve would find the file.
func (r *Resolver) ContentExists(ctx context.Context, contentType, relativePath string) (bool, error) {
	_, found, err := r.Resolve(ctx, contentType, relativePath)
	return found, err
}

// GetAllContentPaths enumerates every file matching pattern under the
// declared folder of each mod (descending priority) and the base folder.
// A higher-priority source shadows lower ones holding the same relative
// path, so each relative path appears at most once. An empty pattern means
// DefaultSearchPattern. Invalid patterns always error; enumeration failures
// in one source are logged and skipped, never fatal for the scan.
func (r *Resolver) GetAllContentPaths(ctx context.Context, contentType, pattern string) ([]string, error) {
	if strings.TrimSpace(contentType) == "" {
		return nil, xerrors.Wrap(ErrBlankArgument, "content type")
	}
	if pattern == "" {
		pattern = DefaultSearchPattern
	}
	if err := pathsafety.ValidateSearchPattern(pattern); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []string

	collect := func(dir string) {
		if !r.opts.Probe.DirExists(dir) {
			return
		}
		files, err := r.opts.Probe.EnumerateFiles(dir, pattern, true)
		if err != nil {
			r.logger.Warn(ctx, "content enumeration failed, skipping source",
				"dir", dir,
				"pattern", pattern,
				"err", err,
			)
			return
		}
		for _, f := range files {
			rel, err := filepath.Rel(dir, f)
			if err != nil {
				continue
			}
			if _, dup := seen[rel]; dup {
				continue
			}
			seen[rel] = struct{}{}
			out = append(out, f)
		}
	}

	for _, mod := range modset.SortByPriority(r.opts.Mods.Mods()) {
		folder, declared := mod.ContentFolders[contentType]
		if !declared {
			continue
		}
		collect(filepath.Join(mod.Dir, folder))
	}
	collect(filepath.Join(r.opts.BaseRoot, r.contentFolder(contentType)))

	return out, nil
}

// GetContentSource reports which source supplies contentType/relativePath:
// the ID of the first mod holding it in priority order, SourceBase if only
// the base game does, or found=false if absent. Provenance queries are
// intentionally uncached and do not move resolution counters.
func (r *Resolver) GetContentSource(ctx context.Context, contentType, relativePath string) (string, bool, error) {
	if err := checkArgs(contentType, relativePath); err != nil {
		return "", false, err
	}
	if !pathsafety.IsRelativePathSafe(relativePath) {
		if r.opts.TreatUnsafeAsMissing {
			return "", false, nil
		}
		return "", false, &pathsafety.SecurityError{Input: relativePath, Reason: "unsafe relative path"}
	}

	for _, mod := range modset.SortByPriority(r.opts.Mods.Mods()) {
		folder, declared := mod.ContentFolders[contentType]
		if !declared {
			continue
		}
		if r.opts.Probe.FileExists(filepath.Join(mod.Dir, folder, relativePath)) {
			return mod.ID, true, nil
		}
	}

	if r.opts.Probe.FileExists(filepath.Join(r.opts.BaseRoot, r.contentFolder(contentType), relativePath)) {
		return SourceBase, true, nil
	}
	return "", false, nil
}

// GetContentDirectory returns the directory currently serving contentType:
// the highest-priority mod whose declared folder exists on disk, else the
// base folder if it exists. Directories are probed fresh on every call;
// this is a low-frequency tooling query and stays out of the file cache.
func (r *Resolver) GetContentDirectory(contentType string) (string, bool, error) {
	if strings.TrimSpace(contentType) == "" {
		return "", false, xerrors.Wrap(ErrBlankArgument, "content type")
	}

	for _, mod := range modset.SortByPriority(r.opts.Mods.Mods()) {
		folder, declared := mod.ContentFolders[contentType]
		if !declared {
			continue
		}
		// an empty folder means the mod's own root directory
		dir := filepath.Join(mod.Dir, folder)
		if r.opts.Probe.DirExists(dir) {
			return dir, true, nil
		}
	}

	dir := filepath.Join(r.opts.BaseRoot, r.contentFolder(contentType))
	if r.opts.Probe.DirExists(dir) {
		return dir, true, nil
	}
	return "", false, nil
}

// InvalidateCache drops every cached resolution.
func (r *Resolver) InvalidateCache() {
	r.cache.Clear()
	r.metrics.SetCacheSize(0)
}

// InvalidateType drops cached resolutions for one content type only.
func (r *Resolver) InvalidateType(contentType string) int {
	removed := r.cache.RemoveWhere(func(k Key) bool { return k.ContentType == contentType })
	r.metrics.SetCacheSize(r.cache.Len())
	return removed
}

// Stats snapshots the resolution counters and live cache size.
func (r *Resolver) Stats() Stats {
	s := Stats{
		Hits:          r.hits.Load(),
		Misses:        r.misses.Load(),
		Total:         r.total.Load(),
		CachedEntries: r.cache.Len(),
	}
	if s.Total > 0 {
		s.HitRate = float64(s.Hits) / float64(s.Total)
	}
	return s
}

// RegisterContentFolder registers a custom content type mapping consulted
// after the base table. The folder must not carry a traversal sequence.
func (r *Resolver) RegisterContentFolder(contentType, folder string) error {
	if strings.TrimSpace(contentType) == "" {
		return xerrors.Wrap(ErrBlankArgument, "content type")
	}
	if folder != "" && !pathsafety.IsRelativePathSafe(folder) {
		return &pathsafety.SecurityError{Input: folder, Reason: "unsafe content folder"}
	}
	r.customMu.Lock()
	defer r.customMu.Unlock()
	r.custom[contentType] = folder
	return nil
}

// contentFolder maps a content type to its base folder: the configured
// table first, then custom registrations, then the type name itself so an
// unmapped but literally-matching directory still resolves.
func (r *Resolver) contentFolder(contentType string) string {
	if folder, ok := r.opts.BaseContentFolders[contentType]; ok {
		return folder
	}
	r.customMu.RLock()
	folder, ok := r.custom[contentType]
	r.customMu.RUnlock()
	if ok {
		return folder
	}
	return contentType
}

func checkArgs(contentType, relativePath string) error {
	if strings.TrimSpace(contentType) == "" {
		return xerrors.Wrap(ErrBlankArgument, "content type")
	}
	if strings.TrimSpace(relativePath) == "" {
		return xerrors.Wrap(ErrBlankArgument, "relative path")
	}
	return nil
}
