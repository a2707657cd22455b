// Package modset describes the installed mod overlay set consumed by the
// resolver: descriptors, ordering, and an atomically swappable snapshot.
//
// The resolver treats the snapshot as an immutable value per call and never
// mutates descriptors. Swapping a new set in at runtime is supported, but
// the caller owns invalidating the resolver's cache afterwards.
package modset

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/keithlinneman/modresolve/internal/pathsafety"
	"github.com/keithlinneman/modresolve/internal/xerrors"
)

// Descriptor identifies one installed mod.
type Descriptor struct {
	// ID is the mod's unique identifier, also reported as resolution
	// provenance.
	ID string `json:"id"`

	// Dir is the mod's install directory.
	Dir string `json:"dir"`

	// Priority orders mods during resolution; higher wins.
	Priority int `json:"priority"`

	// ContentFolders maps a content type to the sub-folder below Dir that
	// holds it. An empty folder value means the mod's root directory.
	// A mod without an entry for a type does not participate in resolving
	// that type.
	ContentFolders map[string]string `json:"content_folders"`
}

// Validate rejects descriptors that could not safely participate in
// resolution: blank ID or directory, or a declared folder carrying a
// traversal sequence.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return xerrors.New("mod descriptor has blank id")
	}
	if strings.TrimSpace(d.Dir) == "" {
		return xerrors.Newf("mod %s has blank install dir", d.ID)
	}
	for ct, folder := range d.ContentFolders {
		if strings.TrimSpace(ct) == "" {
			return xerrors.Newf("mod %s declares a blank content type", d.ID)
		}
		if folder != "" && !pathsafety.IsRelativePathSafe(folder) {
			return xerrors.Newf("mod %s declares unsafe folder %q for %s", d.ID, folder, ct)
		}
	}
	return nil
}

// SnapshotProvider exposes the current mod set. The returned slice is
// unordered; callers sort it themselves.
type SnapshotProvider interface {
	Mods() []Descriptor
}

// SortByPriority orders descriptors for resolution: descending priority,
// ties broken by ascending ID so equal-priority mods resolve
// deterministically regardless of discovery order. The input is not
// modified.
func SortByPriority(mods []Descriptor) []Descriptor {
	out := make([]Descriptor, len(mods))
	copy(out, mods)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// StaticProvider holds a mod set behind an atomic pointer so readers never
// block and a new set can be swapped in whole.
type StaticProvider struct {
	active atomic.Pointer[[]Descriptor]
}

// NewStaticProvider validates each descriptor and returns a provider
// holding the set. Duplicate IDs are rejected.
func NewStaticProvider(mods []Descriptor) (*StaticProvider, error) {
	p := &StaticProvider{}
	if err := p.Swap(mods); err != nil {
		return nil, err
	}
	return p, nil
}

// Swap validates and atomically replaces the active set.
func (p *StaticProvider) Swap(mods []Descriptor) error {
	seen := make(map[string]struct{}, len(mods))
	for _, d := range mods {
		if err := d.Validate(); err != nil {
			return err
		}
		if _, dup := seen[d.ID]; dup {
			return xerrors.Newf("duplicate mod id %s", d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	cp := make([]Descriptor, len(mods))
	copy(cp, mods)
	p.active.Store(&cp)
	return nil
}

// Mods returns the active set. The slice is shared; callers must not
// modify it.
func (p *StaticProvider) Mods() []Descriptor {
	s := p.active.Load()
	if s == nil {
		return nil
	}
	return *s
}

var _ SnapshotProvider = (*StaticProvider)(nil)

// LoadFile reads a JSON array of descriptors, the configuration format the
// resolved binary uses to describe the installed mod set.
func LoadFile(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Wrapf(err, "read mod set %s", path)
	}
	var mods []Descriptor
	if err := json.Unmarshal(data, &mods); err != nil {
		return nil, xerrors.Wrapf(err, "parse mod set %s", path)
	}
	return mods, nil
}
