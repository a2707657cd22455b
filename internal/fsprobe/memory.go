package fsprobe

import (
	"path"
	"sort"
	"strings"

	"github.com/keithlinneman/modresolve/internal/xerrors"
)

// Mem is an in-memory Probe for tests and tooling. Paths use forward
// slashes. The zero value is empty; Add registers files, AddDir registers
// (possibly empty) directories, and FailDir injects enumeration errors for
// a directory subtree.
type Mem struct {
	files map[string]struct{}
	dirs  map[string]struct{}
	fail  map[string]struct{}
}

// NewMem builds a Mem containing the given file paths.
func NewMem(files ...string) *Mem {
	m := &Mem{
		files: make(map[string]struct{}),
		dirs:  make(map[string]struct{}),
		fail:  make(map[string]struct{}),
	}
	for _, f := range files {
		m.Add(f)
	}
	return m
}

// Add registers a file and all of its parent directories.
func (m *Mem) Add(file string) {
	file = path.Clean(file)
	m.files[file] = struct{}{}
	for d := path.Dir(file); d != "." && d != "/"; d = path.Dir(d) {
		m.dirs[d] = struct{}{}
	}
}

// AddDir registers a directory without requiring any file inside it.
func (m *Mem) AddDir(dir string) {
	dir = path.Clean(dir)
	m.dirs[dir] = struct{}{}
}

// FailDir makes EnumerateFiles return an error for dir and its subtree.
func (m *Mem) FailDir(dir string) {
	m.fail[path.Clean(dir)] = struct{}{}
}

func (m *Mem) FileExists(p string) bool {
	_, ok := m.files[path.Clean(p)]
	return ok
}

func (m *Mem) DirExists(p string) bool {
	_, ok := m.dirs[path.Clean(p)]
	return ok
}

func (m *Mem) EnumerateFiles(dir, pattern string, recursive bool) ([]string, error) {
	dir = path.Clean(dir)
	if _, ok := m.fail[dir]; ok {
		return nil, xerrors.Newf("enumerate %s: injected failure", dir)
	}

	prefix := dir + "/"
	var out []string
	for f := range m.files {
		if !strings.HasPrefix(f, prefix) {
			continue
		}
		rel := strings.TrimPrefix(f, prefix)
		if !recursive && strings.Contains(rel, "/") {
			continue
		}
		ok, err := path.Match(pattern, path.Base(f))
		if err != nil {
			return nil, xerrors.Wrapf(err, "bad pattern %q", pattern)
		}
		if ok {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out, nil
}

var _ Probe = (*Mem)(nil)
var _ Probe = OS{}
