package opshttp

import (
	"context"
	"net/http"

	"github.com/keithlinneman/modresolve/internal/ratelimit"
	"github.com/keithlinneman/modresolve/internal/resolver"
)

// ContentAPI is the slice of the resolver the HTTP layer needs.
type ContentAPI interface {
	Resolve(ctx context.Context, contentType, relativePath string) (string, bool, error)
	GetContentSource(ctx context.Context, contentType, relativePath string) (string, bool, error)
	GetAllContentPaths(ctx context.Context, contentType, pattern string) ([]string, error)
	Stats() resolver.Stats
	InvalidateCache()
	InvalidateType(contentType string) int
}

type Options struct {
	Port     int
	Resolver ContentAPI
	Metrics  http.Handler // promhttp handler, nil disables /metrics
	Limiter  *ratelimit.IPLimiter
}
