package cfg

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/keithlinneman/modresolve/internal/log"
	"github.com/keithlinneman/modresolve/internal/pathsafety"
)

type App struct {
	LogJSON         bool
	LogLevel        string
	StacktraceLevel string

	AdminPort int

	ModsFile      string
	BaseRoot      string
	CacheCapacity int

	// cache/safety policy
	UnsafeAsMissing bool
	LogCacheMisses  bool

	// per-IP rate limiting of the ops API
	RateLimitPerSec float64
	RateLimitBurst  int

	// optional mod bundle fetch from S3/SSM on startup
	EnableBundleFetch bool
	BundleSSMParam    string
	BundleS3Bucket    string
	BundleS3Prefix    string
	BundleInstallDir  string
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "ops listen TCP port (1..65535)")
	fs.StringVar(&c.ModsFile, "mods-file", "mods.json", "path to the mod descriptor file")
	fs.StringVar(&c.BaseRoot, "base-root", "Assets", "base game content root directory")
	fs.IntVar(&c.CacheCapacity, "cache-capacity", 10000, "max cached resolutions (>0)")
	fs.BoolVar(&c.UnsafeAsMissing, "unsafe-as-missing", false, "treat unsafe paths as missing instead of erroring")
	fs.BoolVar(&c.LogCacheMisses, "log-cache-misses", false, "debug-log every cache miss")
	fs.Float64Var(&c.RateLimitPerSec, "rate-limit-per-sec", 10, "ops API requests per second per IP (0 disables)")
	fs.IntVar(&c.RateLimitBurst, "rate-limit-burst", 30, "ops API burst per IP")
	fs.BoolVar(&c.EnableBundleFetch, "enable-bundle-fetch", false, "fetch the current mod bundle from S3/SSM on startup")
	fs.StringVar(&c.BundleSSMParam, "bundle-ssm-param", "/app/modresolve/bundles/stable/release/id", "ssm parameter name holding the bundle hash")
	fs.StringVar(&c.BundleS3Bucket, "bundle-s3-bucket", "", "s3 bucket name to get mod bundles from")
	fs.StringVar(&c.BundleS3Prefix, "bundle-s3-prefix", "apps/modresolve/bundles", "s3 prefix (key) to get mod bundles from")
	fs.StringVar(&c.BundleInstallDir, "bundle-install-dir", "bundles", "directory to install fetched bundles into")
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	if c.AdminPort < 1 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}

	if c.ModsFile == "" {
		errs = append(errs, fmt.Errorf("MODS_FILE is required"))
	}
	if c.BaseRoot == "" {
		errs = append(errs, fmt.Errorf("BASE_ROOT is required"))
	} else if !pathsafety.IsRelativePathSafe(c.BaseRoot) && !strings.HasPrefix(c.BaseRoot, "/") {
		errs = append(errs, fmt.Errorf("BASE_ROOT %q contains unsafe path segments", c.BaseRoot))
	}
	if c.CacheCapacity < 1 {
		errs = append(errs, fmt.Errorf("CACHE_CAPACITY must be > 0 (got %d)", c.CacheCapacity))
	}

	if c.RateLimitPerSec < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_SEC must be >= 0 (got %v)", c.RateLimitPerSec))
	}
	if c.RateLimitPerSec > 0 && c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST must be >= 1 (got %d)", c.RateLimitBurst))
	}

	if c.EnableBundleFetch {
		if c.BundleSSMParam == "" {
			errs = append(errs, fmt.Errorf("BUNDLE_SSM_PARAM is required when ENABLE_BUNDLE_FETCH=true"))
		}
		if c.BundleS3Bucket == "" {
			errs = append(errs, fmt.Errorf("BUNDLE_S3_BUCKET is required when ENABLE_BUNDLE_FETCH=true"))
		}
		if c.BundleS3Prefix == "" {
			errs = append(errs, fmt.Errorf("BUNDLE_S3_PREFIX is required when ENABLE_BUNDLE_FETCH=true"))
		}
		if c.BundleInstallDir == "" {
			errs = append(errs, fmt.Errorf("BUNDLE_INSTALL_DIR is required when ENABLE_BUNDLE_FETCH=true"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
