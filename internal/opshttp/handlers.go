package opshttp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/keithlinneman/modresolve/internal/log"
	"github.com/keithlinneman/modresolve/internal/pathsafety"
	"github.com/keithlinneman/modresolve/internal/resolver"
)

type resolveResponse struct {
	ContentType  string `json:"content_type"`
	RelativePath string `json:"relative_path"`
	ResolvedPath string `json:"resolved_path,omitempty"`
	Source       string `json:"source,omitempty"`
	Found        bool   `json:"found"`
}

type pathsResponse struct {
	ContentType string   `json:"content_type"`
	Pattern     string   `json:"pattern,omitempty"`
	Paths       []string `json:"paths"`
}

type invalidateResponse struct {
	ContentType string `json:"content_type,omitempty"`
	Removed     int    `json:"removed,omitempty"`
	All         bool   `json:"all,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeResolveErr maps resolver errors onto HTTP statuses. Blank or unsafe
// inputs are client errors, everything else is a 500.
func writeResolveErr(w http.ResponseWriter, err error) {
	var secErr *pathsafety.SecurityError
	switch {
	case errors.As(err, &secErr):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: secErr.Error()})
	case errors.Is(err, resolver.ErrBlankArgument):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func handleResolve(api ContentAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.URL.Query().Get("type")
		rel := r.URL.Query().Get("path")

		path, found, err := api.Resolve(r.Context(), ct, rel)
		if err != nil {
			writeResolveErr(w, err)
			return
		}

		resp := resolveResponse{ContentType: ct, RelativePath: rel, Found: found}
		if !found {
			writeJSON(w, http.StatusNotFound, resp)
			return
		}
		resp.ResolvedPath = path

		// provenance lookup is best-effort, the resolved path stands alone
		if source, ok, err := api.GetContentSource(r.Context(), ct, rel); err == nil && ok {
			resp.Source = source
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handlePaths(api ContentAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.URL.Query().Get("type")
		pattern := r.URL.Query().Get("pattern")

		paths, err := api.GetAllContentPaths(r.Context(), ct, pattern)
		if err != nil {
			writeResolveErr(w, err)
			return
		}
		if paths == nil {
			paths = []string{}
		}
		writeJSON(w, http.StatusOK, pathsResponse{ContentType: ct, Pattern: pattern, Paths: paths})
	}
}

func handleStats(api ContentAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, api.Stats())
	}
}

func handleInvalidate(api ContentAPI, L log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.URL.Query().Get("type")
		if ct == "" {
			api.InvalidateCache()
			L.Info(r.Context(), "cache invalidated")
			writeJSON(w, http.StatusOK, invalidateResponse{All: true})
			return
		}
		removed := api.InvalidateType(ct)
		L.Info(r.Context(), "cache entries invalidated", "content_type", ct, "removed", removed)
		writeJSON(w, http.StatusOK, invalidateResponse{ContentType: ct, Removed: removed})
	}
}

// HealthzHandler: 200 OK while the process is serving.
func HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}
}
