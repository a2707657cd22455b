// Package bundle installs mod content bundles: sha256-addressed .tar.gz
// archives fetched from S3 and extracted into the mods directory the
// snapshot provider describes.
//
// Extraction enforces strict limits: maximum compressed size, per-file
// size, total extracted size, and path traversal checks on every archive
// member. It does not read mod manifests; descriptor sets are supplied by
// configuration.
package bundle

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/keithlinneman/modresolve/internal/pathsafety"
	"github.com/keithlinneman/modresolve/internal/xerrors"
)

const (
	// maxBundleSize caps the compressed archive read from storage.
	maxBundleSize int64 = 200 * 1024 * 1024 // 200MB

	// maxSingleFile caps any one extracted file.
	maxSingleFile int64 = 50 * 1024 * 1024 // 50MB

	// maxTotalExtract caps the total extracted size of one bundle.
	maxTotalExtract int64 = 500 * 1024 * 1024 // 500MB
)

// Extract unpacks a .tar.gz mod bundle into dst. Any archive member with
// an absolute or traversal path aborts the extraction.
func Extract(archivePath, dst string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return xerrors.Wrapf(err, "open bundle %s", archivePath)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return xerrors.Wrap(err, "open gzip")
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	var totalBytes int64

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return xerrors.Wrap(err, "read tar header")
		}

		target, err := sanitizeTarPath(dst, hdr.Name)
		if err != nil {
			return err
		}
		if target == "" {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return xerrors.Wrapf(err, "mkdir %s", target)
			}

		case tar.TypeReg:
			if hdr.Size > maxSingleFile {
				return xerrors.Newf("file %s exceeds max size (%d > %d)", hdr.Name, hdr.Size, maxSingleFile)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return xerrors.Wrapf(err, "mkdir %s", filepath.Dir(target))
			}
			n, err := writeFile(target, tr, hdr.FileInfo().Mode().Perm())
			if err != nil {
				return err
			}
			totalBytes += n
			if totalBytes > maxTotalExtract {
				return xerrors.Newf("total extracted size exceeds limit (%d bytes, max %d)", totalBytes, maxTotalExtract)
			}

		default:
			return xerrors.Newf("unsupported file type in archive: %s (type=%d)", hdr.Name, hdr.Typeflag)
		}
	}
	return nil
}

// sanitizeTarPath validates an archive member name and resolves it below
// dst. Returns "" for the archive root entry.
func sanitizeTarPath(dst, name string) (string, error) {
	clean := filepath.Clean(name)
	if clean == "." || clean == "" {
		return "", nil
	}
	if filepath.IsAbs(clean) {
		return "", xerrors.Newf("absolute path in archive: %s", name)
	}
	if !pathsafety.IsRelativePathSafe(clean) {
		return "", xerrors.Newf("path traversal in archive: %s", name)
	}

	target := filepath.Join(dst, clean)

	// double-check the joined path stays below dst
	if !strings.HasPrefix(filepath.Clean(target)+string(os.PathSeparator), filepath.Clean(dst)+string(os.PathSeparator)) {
		return "", xerrors.Newf("path escapes destination: %s", name)
	}
	return target, nil
}

// writeFile streams one archive member to disk with the per-file limit.
func writeFile(path string, r io.Reader, mode os.FileMode) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return 0, xerrors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	lr := io.LimitReader(r, maxSingleFile+1)
	n, err := io.Copy(f, lr)
	if err != nil {
		return n, xerrors.Wrapf(err, "write %s", path)
	}
	if n > maxSingleFile {
		return n, xerrors.Newf("file too large: %s (%d bytes)", path, n)
	}
	return n, nil
}
