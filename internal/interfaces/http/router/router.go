// Package router mounts the store API on a gin engine.
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/induservicios/backend/internal/infrastructure/auth"
	"github.com/induservicios/backend/internal/interfaces/http/middleware"
)

// Tiers are the access levels routes are mounted on. All but Root live
// under /api/<version>.
type Tiers struct {
	// Root is the bare engine, for /health and served files
	Root *gin.RouterGroup
	// Public needs no token
	Public *gin.RouterGroup
	// Optional reads the token when present so actions get linked to the caller
	Optional *gin.RouterGroup
	// Authed requires a valid access token
	Authed *gin.RouterGroup
	// Admin requires the ADMIN role
	Admin *gin.RouterGroup
	// Stream is Admin that also accepts ?access_token= for EventSource
	Stream *gin.RouterGroup
}

// RouteRegistrar mounts a set of routes on the tiers
type RouteRegistrar interface {
	Mount(t Tiers)
}

// RegistrarFunc adapts a function to RouteRegistrar
type RegistrarFunc func(t Tiers)

// Mount calls f
func (f RegistrarFunc) Mount(t Tiers) { f(t) }

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	jwt        *auth.JWTService
	blacklist  auth.TokenBlacklist
	logger     *zap.Logger
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithLogger sets the logger used by the auth middleware
func WithLogger(logger *zap.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// NewRouter creates a Router. blacklist may be nil.
func NewRouter(engine *gin.Engine, jwt *auth.JWTService, blacklist auth.TokenBlacklist, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		jwt:        jwt,
		blacklist:  blacklist,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds registrars to mount on Setup
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup builds the tiers and mounts every registrar
func (r *Router) Setup() Tiers {
	api := r.engine.Group("/api/" + r.apiVersion)

	required := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:     r.jwt,
		TokenBlacklist: r.blacklist,
		Logger:         r.logger,
	})
	streaming := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:      r.jwt,
		TokenBlacklist:  r.blacklist,
		AllowQueryToken: true,
		Logger:          r.logger,
	})

	t := Tiers{
		Root:     r.engine.Group(""),
		Public:   api,
		Optional: api.Group("", middleware.OptionalJWTAuthMiddleware(r.jwt, r.blacklist)),
		Authed:   api.Group("", required),
		Admin:    api.Group("", required, middleware.RequireAdmin()),
		Stream:   api.Group("", streaming, middleware.RequireAdmin()),
	}
	for _, reg := range r.registrars {
		reg.Mount(t)
	}
	return t
}
