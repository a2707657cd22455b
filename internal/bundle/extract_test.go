package bundle

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

type tarEntry struct {
	name string
	body string
	dir  bool
}

func makeArchive(t *testing.T, entries []tarEntry) string {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	for _, e := range entries {
		if e.dir {
			if err := tw.WriteHeader(&tar.Header{
				Name:     e.name,
				Typeflag: tar.TypeDir,
				Mode:     0o755,
			}); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := tw.WriteHeader(&tar.Header{
			Name:     e.name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(e.body)),
		}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(e.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "bundle.tar.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtract(t *testing.T) {
	archive := makeArchive(t, []tarEntry{
		{name: "gfx", dir: true},
		{name: "gfx/player.png", body: "png-bytes"},
		{name: "sound/hit.ogg", body: "ogg-bytes"},
	})
	dst := t.TempDir()

	if err := Extract(archive, dst); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dst, "gfx", "player.png"))
	if err != nil || string(got) != "png-bytes" {
		t.Fatalf("player.png = (%q,%v)", got, err)
	}
	// parent dirs are created for members without explicit dir entries
	if _, err := os.Stat(filepath.Join(dst, "sound", "hit.ogg")); err != nil {
		t.Fatalf("hit.ogg: %v", err)
	}
}

func TestExtractRejectsTraversal(t *testing.T) {
	tests := []struct {
		name  string
		entry tarEntry
	}{
		{"dotdot", tarEntry{name: "../escape.txt", body: "x"}},
		{"nested dotdot", tarEntry{name: "a/../../escape.txt", body: "x"}},
		{"absolute", tarEntry{name: "/etc/passwd", body: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archive := makeArchive(t, []tarEntry{tt.entry})
			dst := t.TempDir()
			if err := Extract(archive, dst); err == nil {
				t.Fatal("expected extraction to fail")
			}
			// nothing may have landed outside dst's parent
			if _, err := os.Stat(filepath.Join(filepath.Dir(dst), "escape.txt")); err == nil {
				t.Fatal("traversal file escaped the destination")
			}
		})
	}
}

func TestExtractRejectsUnsupportedTypes(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	if err := tw.WriteHeader(&tar.Header{
		Name:     "link",
		Typeflag: tar.TypeSymlink,
		Linkname: "/etc/passwd",
	}); err != nil {
		t.Fatal(err)
	}
	tw.Close()
	gw.Close()

	path := filepath.Join(t.TempDir(), "bad.tar.gz")
	os.WriteFile(path, buf.Bytes(), 0o644)

	if err := Extract(path, t.TempDir()); err == nil {
		t.Fatal("symlink member should be rejected")
	}
}

func TestExtractRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-gzip.tar.gz")
	os.WriteFile(path, []byte("plain text"), 0o644)
	if err := Extract(path, t.TempDir()); err == nil {
		t.Fatal("non-gzip input should fail")
	}
}
