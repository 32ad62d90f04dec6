// Package metaapi serves the published metamodel over HTTP.
//
// Queries go through the global metadata registry; the cache is consulted
// only for readiness. Until a build is published and its snapshot
// registered, every query route answers 503. The optional events stream is
// the exception: it reports the build while it runs.
package metaapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/conduit-lang/metamodel/internal/metamodel/cache"
	"github.com/conduit-lang/metamodel/internal/metamodel/failure"
	"github.com/conduit-lang/metamodel/internal/web/auth"
	"github.com/conduit-lang/metamodel/internal/web/conditional"
	"github.com/conduit-lang/metamodel/internal/web/events"
	"github.com/conduit-lang/metamodel/internal/web/middleware"
	"github.com/conduit-lang/metamodel/internal/web/profiling"
	"github.com/conduit-lang/metamodel/internal/web/ratelimit"
	"github.com/conduit-lang/metamodel/internal/web/response"
	"github.com/conduit-lang/metamodel/runtime/metadata"
)

// HealthPath is never logged and never gated on readiness
const HealthPath = "/healthz"

// EventsPath streams build progress; it answers while the build runs
const EventsPath = "/events"

// Error codes returned while the metamodel is unavailable
const (
	CodeBuildInProgress = "build_in_progress"
	CodeBuildFailed     = "build_failed"
	CodeNotRegistered   = "not_registered"
	CodeTypeNotFound    = "type_not_found"
)

// Option configures an API
type Option func(*API)

// WithPrefix mounts the query routes under prefix, e.g. "/api"
func WithPrefix(prefix string) Option {
	return func(a *API) {
		a.prefix = strings.TrimRight(prefix, "/")
	}
}

// WithLogger sets the request and panic logger
func WithLogger(logger *zap.Logger) Option {
	return func(a *API) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithProfiling mounts pprof handlers when config is enabled
func WithProfiling(config *profiling.Config) Option {
	return func(a *API) {
		a.profiling = config
	}
}

// WithRateLimiter throttles query routes per client address
func WithRateLimiter(limiter ratelimit.RateLimiter) Option {
	return func(a *API) {
		a.limiter = limiter
	}
}

// WithAuth requires a bearer token issued by tokens on every route except
// HealthPath
func WithAuth(tokens *auth.TokenService) Option {
	return func(a *API) {
		a.tokens = tokens
	}
}

// WithEvents mounts the build progress stream at EventsPath
func WithEvents(hub *events.Hub) Option {
	return func(a *API) {
		a.events = hub
	}
}

// API is the read-only metamodel query service
type API struct {
	cache     *cache.Cache
	prefix    string
	logger    *zap.Logger
	profiling *profiling.Config
	limiter   ratelimit.RateLimiter
	tokens    *auth.TokenService
	events    *events.Hub
}

// New creates the API over the cache a build publishes into
func New(c *cache.Cache, opts ...Option) *API {
	a := &API{cache: c, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Routes returns the HTTP handler for the API
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(a.logger),
		middleware.Logging(a.logger, HealthPath),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.RenderErrorWithCode(w, http.StatusNotFound, errors.New("route not found"), "route_not_found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.RenderMethodNotAllowed(w, []string{http.MethodGet})
	})

	r.Get(HealthPath, a.health)

	query := func(r chi.Router) {
		if a.limiter != nil {
			r.Use(ratelimit.Middleware(a.limiter, ratelimit.ClientIP, a.logger))
		}
		a.authenticate(r)
		if a.events != nil {
			r.Get(EventsPath, a.events.ServeHTTP)
		}

		r.Group(func(r chi.Router) {
			r.Use(a.requirePublished, conditional.Middleware(snapshotValidators, "no-cache"))
			r.Get("/types", a.listTypes)
			r.Get("/types/{id}", a.getType)
			r.Get("/types/{id}/dependencies", a.dependencies)
			r.Get("/types/{id}/references", a.references)
			r.Get("/snapshot", a.snapshot)
			r.Get("/cycles", a.cycles)
		})
	}
	if a.prefix == "" {
		r.Group(query)
	} else {
		r.Route(a.prefix, query)
	}

	if a.profiling != nil {
		r.Group(func(r chi.Router) {
			a.authenticate(r)
			profiling.RegisterRoutes(r, a.profiling)
		})
	}
	return r
}

func (a *API) authenticate(r chi.Router) {
	if a.tokens != nil {
		r.Use(middleware.Auth(a.tokens, a.logger))
	}
}

// requirePublished answers 503 until the cache is published and its
// snapshot is registered
func (a *API) requirePublished(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch a.cache.Status() {
		case cache.StatusBuilding:
			response.RenderErrorWithCode(w, http.StatusServiceUnavailable,
				errors.New("metamodel build in progress"), CodeBuildInProgress)
			return
		case cache.StatusFailed:
			buildFailed(a.cache.Failure()).Render(w)
			return
		}
		if metadata.GetMetadata() == nil {
			response.RenderErrorWithCode(w, http.StatusServiceUnavailable,
				errors.New("metamodel snapshot not registered"), CodeNotRegistered)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// snapshotValidators versions every query response by the registered build
func snapshotValidators() (conditional.Validators, bool) {
	meta := metadata.GetMetadata()
	if meta == nil || meta.BuildID == "" {
		return conditional.Validators{}, false
	}
	return conditional.Validators{
		ETag:         conditional.WeakETag(meta.BuildID),
		LastModified: meta.Generated,
	}, true
}

func buildFailed(err error) *response.HTTPError {
	httpErr := response.NewHTTPError(http.StatusServiceUnavailable, "metamodel build failed").
		WithCode(CodeBuildFailed)

	var buildErr *failure.BuildError
	switch {
	case errors.As(err, &buildErr):
		httpErr.WithDetails(map[string]interface{}{
			"build_id": buildErr.BuildID.String(),
			"failures": buildErr.Lines(),
		})
	case err != nil:
		httpErr.WithDetails(map[string]interface{}{"failures": []string{err.Error()}})
	}
	return httpErr
}
