package bundle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/modresolve/internal/cryptoutil"
	"github.com/keithlinneman/modresolve/internal/log"
	"github.com/keithlinneman/modresolve/internal/xerrors"
)

type FetcherOptions struct {
	Logger log.Logger

	// SSMParam holds the current release hash of the mod bundle.
	SSMParam string

	// S3 location for bundles: s3://{bucket}/{prefix}/{hash}.tar.gz
	S3Bucket string
	S3Prefix string

	// InstallDir is where bundles are extracted; each bundle lands in a
	// hash-named subdirectory so installs are atomic per release.
	InstallDir string

	// AWSConfig overrides the default AWS config (tests, custom creds).
	AWSConfig *aws.Config
}

// Fetcher downloads, verifies, and installs mod bundles.
type Fetcher struct {
	opts      FetcherOptions
	ssmClient *ssm.Client
	s3Client  *s3.Client
	logger    log.Logger
}

func NewFetcher(ctx context.Context, opts FetcherOptions) (*Fetcher, error) {
	if opts.SSMParam == "" {
		return nil, xerrors.New("SSMParam is required")
	}
	if opts.S3Bucket == "" {
		return nil, xerrors.New("S3Bucket is required")
	}
	if opts.InstallDir == "" {
		return nil, xerrors.New("InstallDir is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}

	var awsCfg aws.Config
	var err error
	if opts.AWSConfig != nil {
		awsCfg = *opts.AWSConfig
	} else {
		awsCfg, err = config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, xerrors.Wrap(err, "load AWS config")
		}
	}

	return &Fetcher{
		opts:      opts,
		ssmClient: ssm.NewFromConfig(awsCfg),
		s3Client:  s3.NewFromConfig(awsCfg),
		logger:    opts.Logger,
	}, nil
}

// CurrentReleaseHash reads the bundle hash for the current release from SSM.
func (f *Fetcher) CurrentReleaseHash(ctx context.Context) (string, error) {
	out, err := f.ssmClient.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(f.opts.SSMParam),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get SSM parameter %s", f.opts.SSMParam)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("SSM parameter %s has no value", f.opts.SSMParam)
	}

	hash := strings.TrimSpace(*out.Parameter.Value)
	if hash == "" {
		return "", xerrors.Newf("SSM parameter %s is empty", f.opts.SSMParam)
	}
	return hash, nil
}

func (f *Fetcher) s3Key(hash string) string {
	if f.opts.S3Prefix != "" {
		return fmt.Sprintf("%s/%s.tar.gz", f.opts.S3Prefix, hash)
	}
	return fmt.Sprintf("%s.tar.gz", hash)
}

// Download fetches a bundle from S3 into a temp file and verifies its
// digest. The caller removes the returned file when done.
func (f *Fetcher) Download(ctx context.Context, hash string) (string, error) {
	key := f.s3Key(hash)

	f.logger.Info(ctx, "downloading mod bundle",
		"bucket", f.opts.S3Bucket,
		"key", key,
		"expected_hash", hash,
	)

	out, err := f.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.opts.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get S3 object s3://%s/%s", f.opts.S3Bucket, key)
	}
	defer out.Body.Close()

	tmpFile, err := os.CreateTemp("", "mod-bundle-*.tar.gz")
	if err != nil {
		return "", xerrors.Wrap(err, "create temp file")
	}
	tmpPath := tmpFile.Name()

	written, actualHash, err := copyWithHash(tmpFile, io.LimitReader(out.Body, maxBundleSize+1))
	tmpFile.Close()
	if err != nil {
		os.Remove(tmpPath)
		return "", xerrors.Wrap(err, "download bundle")
	}
	if written > maxBundleSize {
		os.Remove(tmpPath)
		return "", xerrors.Newf("bundle exceeds max size (%d bytes, limit %d)", written, maxBundleSize)
	}

	if !cryptoutil.HashEqual(actualHash, hash) {
		os.Remove(tmpPath)
		return "", xerrors.Newf("checksum mismatch: expected %s, got %s", hash, actualHash)
	}

	f.logger.Info(ctx, "downloaded mod bundle",
		"bytes", written,
		"hash", actualHash,
	)
	return tmpPath, nil
}

// Install fetches the bundle named by hash and extracts it under
// InstallDir/{hash}. Returns the extraction directory.
func (f *Fetcher) Install(ctx context.Context, hash string) (string, error) {
	archive, err := f.Download(ctx, hash)
	if err != nil {
		return "", err
	}
	defer os.Remove(archive)

	dst := filepath.Join(f.opts.InstallDir, hash)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", xerrors.Wrapf(err, "create install dir %s", dst)
	}

	if err := Extract(archive, dst); err != nil {
		os.RemoveAll(dst)
		return "", xerrors.Wrap(err, "extract bundle")
	}

	f.logger.Info(ctx, "installed mod bundle",
		"hash", hash,
		"dest", dst,
	)
	return dst, nil
}

// InstallCurrent installs whatever release SSM currently points at.
func (f *Fetcher) InstallCurrent(ctx context.Context) (string, error) {
	hash, err := f.CurrentReleaseHash(ctx)
	if err != nil {
		return "", err
	}
	return f.Install(ctx, hash)
}

// copyWithHash copies src into dst computing SHA256 along the way.
func copyWithHash(dst io.Writer, src io.Reader) (written int64, hash string, err error) {
	h := sha256.New()
	w := io.MultiWriter(dst, h)
	written, err = io.Copy(w, src)
	if err != nil {
		return written, "", err
	}
	return written, hex.EncodeToString(h.Sum(nil)), nil
}
