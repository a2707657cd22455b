package resolver

import (
	"strings"

	"github.com/keithlinneman/modresolve/internal/fsprobe"
	"github.com/keithlinneman/modresolve/internal/log"
	"github.com/keithlinneman/modresolve/internal/modset"
	"github.com/keithlinneman/modresolve/internal/xerrors"
)

// ErrInvalidOptions is wrapped by all construction-time validation failures.
var ErrInvalidOptions = xerrors.New("resolver: invalid options")

// RootContentType is the reserved content type whose base folder may be
// empty, meaning root-level files directly under the base root.
const RootContentType = "Root"

// DefaultCacheCapacity bounds the resolution cache when Options leaves
// CacheCapacity unset.
const DefaultCacheCapacity = 10_000

// DefaultBaseRoot is the base game content directory.
const DefaultBaseRoot = "Assets"

// defaultBaseContentFolders maps the built-in content types to their
// folders under the base root.
func defaultBaseContentFolders() map[string]string {
	return map[string]string{
		"Graphics":            "Graphics",
		"Audio":               "Audio",
		"Music":               "Music",
		"Scripts":             "Scripts",
		"Fonts":               "Fonts",
		"Maps":                "Maps",
		"Shaders":             "Shaders",
		"Localization":        "Localization",
		"ItemDefinitions":     "Definitions/Items",
		"CreatureDefinitions": "Definitions/Creatures",
		"TileDefinitions":     "Definitions/Tiles",
		"RecipeDefinitions":   "Definitions/Recipes",
		RootContentType:       "",
	}
}

// Options configures a Resolver. Validated once in New; the folder map is
// copied so later mutation by the caller cannot leak in.
type Options struct {
	Logger log.Logger

	// Mods supplies the installed mod set. Required.
	Mods modset.SnapshotProvider

	// Probe performs file-system checks. Required.
	Probe fsprobe.Probe

	// BaseRoot is the base game content directory. Defaults to "Assets".
	BaseRoot string

	// BaseContentFolders maps content type to folder below BaseRoot.
	// Defaults to the built-in table. Every value must be non-blank except
	// the RootContentType entry, which may map to "" (the root itself).
	BaseContentFolders map[string]string

	// CacheCapacity bounds the resolution cache. Defaults to 10000.
	CacheCapacity int

	// TreatUnsafeAsMissing returns a plain not-found for unsafe relative
	// paths instead of a *pathsafety.SecurityError. Patterns always error
	// regardless of this setting.
	TreatUnsafeAsMissing bool

	// LogCacheMisses emits a debug log line for every cache miss.
	LogCacheMisses bool

	// Metrics receives resolver observability signals. Defaults to a no-op.
	Metrics Metrics
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.BaseRoot == "" {
		o.BaseRoot = DefaultBaseRoot
	}
	if o.BaseContentFolders == nil {
		o.BaseContentFolders = defaultBaseContentFolders()
	}
	if o.CacheCapacity == 0 {
		o.CacheCapacity = DefaultCacheCapacity
	}
	if o.Metrics == nil {
		o.Metrics = NoopMetrics{}
	}
}

func (o *Options) validate() error {
	if o.Mods == nil {
		return xerrors.Wrap(ErrInvalidOptions, "Mods is nil")
	}
	if o.Probe == nil {
		return xerrors.Wrap(ErrInvalidOptions, "Probe is nil")
	}
	if o.CacheCapacity <= 0 {
		return xerrors.Wrapf(ErrInvalidOptions, "CacheCapacity %d must be positive", o.CacheCapacity)
	}
	if strings.TrimSpace(o.BaseRoot) == "" {
		return xerrors.Wrap(ErrInvalidOptions, "BaseRoot is blank")
	}
	if len(o.BaseContentFolders) == 0 {
		return xerrors.Wrap(ErrInvalidOptions, "BaseContentFolders is empty")
	}
	for ct, folder := range o.BaseContentFolders {
		if strings.TrimSpace(ct) == "" {
			return xerrors.Wrap(ErrInvalidOptions, "BaseContentFolders has a blank content type")
		}
		if ct == RootContentType {
			continue
		}
		if strings.TrimSpace(folder) == "" {
			return xerrors.Wrapf(ErrInvalidOptions, "BaseContentFolders[%s] is blank", ct)
		}
	}
	return nil
}
