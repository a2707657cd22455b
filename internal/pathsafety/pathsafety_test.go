package pathsafety

import (
	"errors"
	"testing"
)

func TestIsRelativePathSafe(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{"simple file", "player.png", true},
		{"subdirectory", "tiles/grass.png", true},
		{"deep subdirectory", "a/b/c/d.json", true},
		{"dot file", ".hidden", true},
		{"spaces", "my file.png", true},

		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"parent traversal", "../secret.txt", false},
		{"embedded traversal", "a/../../etc/passwd", false},
		{"dotdot anywhere", "foo..bar", false},
		{"nul byte", "a\x00b", false},
		{"absolute unix", "/etc/passwd", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRelativePathSafe(tt.path); got != tt.want {
				t.Fatalf("IsRelativePathSafe(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestValidateSearchPattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		wantErr bool
	}{
		{"json glob", "*.json", false},
		{"png glob", "*.png", false},
		{"prefixed glob", "anim_*.json", false},
		{"plain name", "manifest.json", false},

		{"blank", "", true},
		{"whitespace", "  ", true},
		{"traversal", "../*.json", true},
		{"embedded traversal", "a/../*.json", true},
		{"nul", "*.js\x00on", true},
		{"leading slash", "/etc/*", true},
		{"leading backslash", "\\share\\*", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSearchPattern(tt.pattern)
			if tt.wantErr != (err != nil) {
				t.Fatalf("ValidateSearchPattern(%q) err = %v", tt.pattern, err)
			}
			if err != nil {
				var se *SecurityError
				if !errors.As(err, &se) {
					t.Fatalf("error is not a *SecurityError: %T", err)
				}
				if se.Input != tt.pattern {
					t.Fatalf("SecurityError.Input = %q, want %q", se.Input, tt.pattern)
				}
			}
		})
	}
}
