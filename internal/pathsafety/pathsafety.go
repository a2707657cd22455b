// Package pathsafety validates relative content paths and search patterns
// before they are joined onto mod or base asset directories.
//
// Relative paths arrive from many call sites, including references inside
// mod-supplied content, so IsRelativePathSafe reports a boolean the caller
// may treat as "not found". Search patterns are operator/config originated
// and fewer, so ValidateSearchPattern always returns a typed error; a
// silently-ignored malicious pattern could otherwise be used to probe the
// file system contrary to operator intent.
package pathsafety

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SecurityError reports input that could escape a content root or inject
// control characters into a file-system call.
type SecurityError struct {
	Input  string
	Reason string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("unsafe path input %q: %s", e.Input, e.Reason)
}

// IsRelativePathSafe reports whether p can be safely joined under a content
// root. It rejects blank strings, anything containing "..", rooted paths,
// and NUL bytes. Normal subdirectory paths are accepted.
func IsRelativePathSafe(p string) bool {
	if strings.TrimSpace(p) == "" {
		return false
	}
	if strings.Contains(p, "..") {
		return false
	}
	if strings.ContainsRune(p, 0) {
		return false
	}
	if filepath.IsAbs(p) {
		return false
	}
	return true
}

// ValidateSearchPattern checks a glob pattern destined for directory
// enumeration. Returns a *SecurityError describing the first violation,
// or nil if the pattern is acceptable.
func ValidateSearchPattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return &SecurityError{Input: pattern, Reason: "blank pattern"}
	}
	if strings.Contains(pattern, "..") {
		return &SecurityError{Input: pattern, Reason: "pattern contains a traversal sequence"}
	}
	if strings.ContainsRune(pattern, 0) {
		return &SecurityError{Input: pattern, Reason: "pattern contains a NUL byte"}
	}
	if filepath.IsAbs(pattern) {
		return &SecurityError{Input: pattern, Reason: "pattern is an absolute path"}
	}
	if strings.HasPrefix(pattern, "/") || strings.HasPrefix(pattern, "\\") {
		return &SecurityError{Input: pattern, Reason: "pattern begins with a directory separator"}
	}
	return nil
}
