package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/answercache/auth"
	"github.com/jonwraymond/answercache/cache"
	"github.com/jonwraymond/answercache/health"
	"github.com/jonwraymond/answercache/observe"
)

// maxBodyBytes bounds admin request bodies.
const maxBodyBytes = 1 << 20

// server serves the admin API over one cache.
type server struct {
	cache   *cache.SemanticCache
	flusher *cache.Flusher
	log     observe.Logger
}

// routerOptions selects the optional parts of the admin router.
type routerOptions struct {
	health     *health.Aggregator
	authn      auth.Authenticator
	prometheus bool
}

// newRouter builds the admin router. The /v1 API is mounted only when an
// authenticator is configured.
func newRouter(s *server, opts routerOptions) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestID, accessLog(s.log))

	if opts.health != nil {
		health.RegisterRoutes(r, opts.health)
	}
	if opts.prometheus {
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
	if opts.authn == nil {
		return r
	}

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(auth.Authenticate(opts.authn))

	read := auth.RequireRole(auth.RoleRead)
	admin := auth.RequireRole(auth.RoleAdmin)

	api.Handle("/lookup", read(http.HandlerFunc(s.handleLookup))).Methods(http.MethodPost)
	api.Handle("/stats", read(http.HandlerFunc(s.handleStats))).Methods(http.MethodGet)
	api.Handle("/entries", admin(http.HandlerFunc(s.handleInsert))).Methods(http.MethodPost)
	api.Handle("/entries", admin(http.HandlerFunc(s.handleClear))).Methods(http.MethodDelete)
	api.Handle("/entries/{hash}/refresh", admin(http.HandlerFunc(s.handleRefresh))).Methods(http.MethodPost)
	api.Handle("/evict", admin(http.HandlerFunc(s.handleEvict))).Methods(http.MethodPost)
	api.Handle("/sweep", admin(http.HandlerFunc(s.handleSweep))).Methods(http.MethodPost)
	api.Handle("/flush", admin(http.HandlerFunc(s.handleFlush))).Methods(http.MethodPost)

	return r
}

type lookupRequest struct {
	Question string `json:"question"`
}

type lookupResponse struct {
	Hit        bool         `json:"hit"`
	Kind       string       `json:"kind,omitempty"`
	Hash       string       `json:"hash,omitempty"`
	Similarity float64      `json:"similarity,omitempty"`
	Stale      bool         `json:"stale,omitempty"`
	Entry      *cache.Entry `json:"entry,omitempty"`
}

func (s *server) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	m, ok := s.cache.Lookup(r.Context(), req.Question)
	if !ok {
		writeJSON(w, http.StatusOK, lookupResponse{})
		return
	}
	writeJSON(w, http.StatusOK, lookupResponse{
		Hit:        true,
		Kind:       m.Kind.String(),
		Hash:       m.Hash,
		Similarity: m.Similarity,
		Stale:      s.cache.IsStale(m.Entry),
		Entry:      &m.Entry,
	})
}

type statsResponse struct {
	Stats   cache.Stats        `json:"stats"`
	HitRate cache.HitRateStats `json:"hitRate"`
}

func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{Stats: s.cache.Stats(), HitRate: s.cache.HitRateStats()})
}

type insertRequest struct {
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	GameContext string `json:"gameContext,omitempty"`
}

type insertResponse struct {
	Stored bool   `json:"stored"`
	Hash   string `json:"hash,omitempty"`
}

func (s *server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var req insertRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var opts []cache.InsertOption
	if req.GameContext != "" {
		opts = append(opts, cache.WithGameContext(req.GameContext))
	}
	stored, err := s.cache.Insert(r.Context(), req.Question, req.Answer, opts...)
	if err != nil {
		writeCacheError(w, err)
		return
	}

	resp := insertResponse{Stored: stored}
	code := http.StatusOK
	if stored {
		resp.Hash, _ = s.cache.Key(req.Question)
		code = http.StatusCreated
	}
	writeJSON(w, code, resp)
}

type refreshRequest struct {
	Answer string `json:"answer"`
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	e, err := s.cache.Refresh(r.Context(), mux.Vars(r)["hash"], req.Answer)
	if err != nil {
		writeCacheError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type evictRequest struct {
	Target int `json:"target"`
}

type removedResponse struct {
	Removed int `json:"removed"`
}

func (s *server) handleEvict(w http.ResponseWriter, r *http.Request) {
	var req evictRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}
	n, err := s.cache.Evict(r.Context(), req.Target)
	if err != nil {
		writeCacheError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, removedResponse{Removed: n})
}

type sweepRequest struct {
	MaxAge    string `json:"maxAge"`
	MinAccess int64  `json:"minAccess"`
}

func (s *server) handleSweep(w http.ResponseWriter, r *http.Request) {
	var req sweepRequest
	if !decodeBody(w, r, &req) {
		return
	}
	maxAge, err := time.ParseDuration(req.MaxAge)
	if err != nil || maxAge <= 0 {
		writeError(w, http.StatusBadRequest, "maxAge must be a positive duration such as 720h")
		return
	}
	n, err := s.cache.Sweep(r.Context(), maxAge, req.MinAccess)
	if err != nil {
		writeCacheError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, removedResponse{Removed: n})
}

func (s *server) handleFlush(w http.ResponseWriter, r *http.Request) {
	if err := s.flusher.Flush(r.Context()); err != nil {
		writeCacheError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Clear(r.Context()); err != nil {
		writeCacheError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeCacheError maps cache errors to HTTP statuses.
func writeCacheError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, cache.ErrInvalidValue), errors.Is(err, cache.ErrInvalidInput):
		code = http.StatusBadRequest
	case errors.Is(err, cache.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, cache.ErrDisabled):
		code = http.StatusConflict
	case errors.Is(err, cache.ErrWriteBusy), errors.Is(err, cache.ErrClosed):
		code = http.StatusServiceUnavailable
	}
	writeError(w, code, err.Error())
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// decodeOptionalBody accepts an empty body as the zero request.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
