package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/keithlinneman/modresolve/internal/bundle"
	"github.com/keithlinneman/modresolve/internal/cfg"
	"github.com/keithlinneman/modresolve/internal/fsprobe"
	"github.com/keithlinneman/modresolve/internal/log"
	"github.com/keithlinneman/modresolve/internal/metrics"
	"github.com/keithlinneman/modresolve/internal/modset"
	"github.com/keithlinneman/modresolve/internal/opshttp"
	"github.com/keithlinneman/modresolve/internal/ratelimit"
	"github.com/keithlinneman/modresolve/internal/resolver"
	v "github.com/keithlinneman/modresolve/internal/version"
)

const appName = "resolved"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	// Parse config from flags and env
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("%s %s (commit=%s, go=%s)\n", appName, vi.Version, vi.Commit, vi.GoVersion)
		os.Exit(0)
	}

	cfg.FillFromEnv(flag.CommandLine, "MODRESOLVE_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Setup logging
	lvl, _ := log.ParseLevel(conf.LogLevel)
	stLvl, _ := log.ParseLevel(conf.StacktraceLevel)
	lg, err := log.New(log.Options{
		App:             appName,
		Version:         vi.Version,
		Level:           lvl,
		StacktraceLevel: stLvl,
		JsonFormat:      conf.LogJSON,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "resolved")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing resolver",
		"version", vi.Version,
		"commit", vi.Commit,
		"go_version", vi.GoVersion,
		"admin_port", conf.AdminPort,
		"mods_file", conf.ModsFile,
		"base_root", conf.BaseRoot,
		"cache_capacity", conf.CacheCapacity,
		"unsafe_as_missing", conf.UnsafeAsMissing,
		"enable_bundle_fetch", conf.EnableBundleFetch,
	)

	m := metrics.New()
	m.SetBuildInfo(appName, vi)

	// Optionally pull the current mod bundle before loading descriptors
	modsPath := conf.ModsFile
	if conf.EnableBundleFetch {
		fetcher, err := bundle.NewFetcher(ctx, bundle.FetcherOptions{
			Logger:     L,
			SSMParam:   conf.BundleSSMParam,
			S3Bucket:   conf.BundleS3Bucket,
			S3Prefix:   conf.BundleS3Prefix,
			InstallDir: conf.BundleInstallDir,
		})
		if err != nil {
			L.Error(ctx, err, "failed to create bundle fetcher")
			os.Exit(1)
		}
		installed, err := fetcher.InstallCurrent(ctx)
		if err != nil {
			L.Error(ctx, err, "failed to install mod bundle")
			os.Exit(1)
		}
		L.Info(ctx, "installed mod bundle", "dir", installed)
		if !filepath.IsAbs(modsPath) {
			modsPath = filepath.Join(installed, modsPath)
		}
	}

	mods, err := modset.LoadFile(modsPath)
	if err != nil {
		L.Error(ctx, err, "failed to load mod descriptors", "mods_file", modsPath)
		os.Exit(1)
	}
	provider, err := modset.NewStaticProvider(mods)
	if err != nil {
		L.Error(ctx, err, "invalid mod set", "mods_file", modsPath)
		os.Exit(1)
	}
	L.Info(ctx, "loaded mod descriptors", "mods_file", modsPath, "count", len(mods))

	res, err := resolver.New(resolver.Options{
		Logger:               L,
		Mods:                 provider,
		Probe:                fsprobe.OS{},
		BaseRoot:             conf.BaseRoot,
		CacheCapacity:        conf.CacheCapacity,
		TreatUnsafeAsMissing: conf.UnsafeAsMissing,
		LogCacheMisses:       conf.LogCacheMisses,
		Metrics:              m,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create resolver")
		os.Exit(1)
	}

	var limiter *ratelimit.IPLimiter
	if conf.RateLimitPerSec > 0 {
		limiter = ratelimit.New(ctx,
			ratelimit.WithRate(conf.RateLimitPerSec, conf.RateLimitBurst),
			ratelimit.WithOnDenied(func(ip string) {
				m.IncRateLimited()
			}),
		)
	}

	opsStop, err := opshttp.Start(ctx, L, &opshttp.Options{
		Port:     conf.AdminPort,
		Resolver: res,
		Metrics:  m.Handler(),
		Limiter:  limiter,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsStop(context.Background()) }()

	// block until ctrl+c / sigterm
	<-ctx.Done()
	L.Info(context.Background(), "shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opsStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "ops http server shutdown")
	}

	L.Info(context.Background(), "shutdown complete")
}
