// Package fsprobe abstracts the file-system checks the resolver performs:
// existence probes and pattern-based enumeration. The abstraction keeps the
// resolver testable against an in-memory file set.
package fsprobe

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/keithlinneman/modresolve/internal/xerrors"
)

// Probe is the minimal file-system surface the resolver needs.
type Probe interface {
	// FileExists reports whether path names an existing regular file.
	FileExists(path string) bool

	// DirExists reports whether path names an existing directory.
	DirExists(path string) bool

	// EnumerateFiles returns the paths of files under dir whose base name
	// matches the glob pattern. With recursive set, subdirectories are
	// walked; otherwise only dir's immediate entries are considered.
	EnumerateFiles(dir, pattern string, recursive bool) ([]string, error)
}

// OS is a Probe backed by the local file system.
type OS struct{}

func (OS) FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (OS) DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (OS) EnumerateFiles(dir, pattern string, recursive bool) ([]string, error) {
	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, xerrors.Wrapf(err, "read dir %s", dir)
		}
		var out []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ok, err := filepath.Match(pattern, e.Name())
			if err != nil {
				return nil, xerrors.Wrapf(err, "bad pattern %q", pattern)
			}
			if ok {
				out = append(out, filepath.Join(dir, e.Name()))
			}
		}
		return out, nil
	}

	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, err := filepath.Match(pattern, d.Name())
		if err != nil {
			return err
		}
		if ok {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "walk %s", dir)
	}
	return out, nil
}
