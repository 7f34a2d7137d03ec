// Package router assembles the gin engine of the ledger API
package router

import (
	"github.com/erp/ledgersync/internal/infrastructure/logger"
	"github.com/erp/ledgersync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultMaxBodyBytes = 1 << 20

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RootRegistrar registers routes outside the versioned API group, such as health checks
type RootRegistrar interface {
	RegisterRoutes(r gin.IRoutes)
}

// Router manages HTTP route registration
type Router struct {
	engine       *gin.Engine
	apiVersion   string
	serviceName  string
	tracing      bool
	maxBodyBytes int64
	registrars   []RouteRegistrar
	root         []RootRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithTracing adds the otelgin middleware under serviceName
func WithTracing(serviceName string) RouterOption {
	return func(r *Router) {
		r.tracing = true
		r.serviceName = serviceName
	}
}

// WithMaxBodyBytes caps request bodies
func WithMaxBodyBytes(n int64) RouterOption {
	return func(r *Router) {
		r.maxBodyBytes = n
	}
}

// NewRouter creates a new Router instance on a fresh engine
func NewRouter(log *zap.Logger, opts ...RouterOption) *Router {
	r := &Router{
		engine:       gin.New(),
		apiVersion:   "v1",
		maxBodyBytes: defaultMaxBodyBytes,
		registrars:   make([]RouteRegistrar, 0),
	}
	for _, opt := range opts {
		opt(r)
	}

	middleware.SetupValidator()

	r.engine.Use(logger.Recovery(log), logger.GinMiddleware(log))
	if r.tracing {
		r.engine.Use(middleware.Tracing(r.serviceName), middleware.SpanEnricher())
	}
	r.engine.Use(middleware.BodyLimit(r.maxBodyBytes))

	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// RegisterRoot adds a registrar mounted on the engine root
func (r *Router) RegisterRoot(registrar RootRegistrar) *Router {
	r.root = append(r.root, registrar)
	return r
}

// Setup registers all routes and returns the engine
func (r *Router) Setup() *gin.Engine {
	for _, registrar := range r.root {
		registrar.RegisterRoutes(r.engine)
	}

	api := r.engine.Group("/api/" + r.apiVersion)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
	return r.engine
}

// Engine returns the underlying gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
