// Package opshttp serves the operational HTTP API for a running resolver:
// resolution and enumeration endpoints, cache stats and invalidation,
// prometheus metrics, and health checks.
package opshttp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/keithlinneman/modresolve/internal/log"
	"github.com/keithlinneman/modresolve/internal/xerrors"
)

// NewHandler builds the routed handler. Split from Start so tests can drive
// it with httptest without binding a port.
func NewHandler(L log.Logger, opts *Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	if opts.Limiter != nil {
		r.Use(opts.Limiter.Middleware)
	}

	r.Get("/-/healthy", HealthzHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/resolve", handleResolve(opts.Resolver))
		r.Get("/paths", handlePaths(opts.Resolver))
		r.Get("/stats", handleStats(opts.Resolver))
		r.Post("/invalidate", handleInvalidate(opts.Resolver, L))
	})

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	return r
}

// Start the ops HTTP server. Returns stop(ctx) for graceful shutdown.
func Start(ctx context.Context, L log.Logger, opts *Options) (func(context.Context) error, error) {
	port := opts.Port
	if port == 0 {
		port = 9000
	}
	addr := fmt.Sprintf(":%d", port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(L, opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, xerrors.Wrapf(err, "could not listen on addr=%v", addr)
	}

	go func() {
		L.Info(ctx, "ops http server listening", "addr", addr)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			L.Error(ctx, err, "ops http server error")
		}
	}()

	var once sync.Once
	stop := func(sctx context.Context) (retErr error) {
		once.Do(func() {
			L.Info(sctx, "ops http server shutting down")
			c, cancel := context.WithTimeout(sctx, 5*time.Second)
			defer cancel()
			retErr = srv.Shutdown(c)
		})
		return retErr
	}
	return stop, nil
}
