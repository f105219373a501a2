// Package api wraps the orchestrator's inbound command surface (§6 of
// the arena specification) in a gin HTTP server, with a gorilla
// websocket upgrade and an SSE endpoint for the outbound event stream.
// Illustrative host code, not part of the arena core: every handler
// here is a thin adapter over orchestrator.Orchestrator / roster /
// market, never the home of arena business logic.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"xrparena/market"
	"xrparena/mcp"
	"xrparena/orchestrator"
	"xrparena/store"
)

// Server bundles the gin engine with the singleton collaborators every
// handler needs.
type Server struct {
	engine      *gin.Engine
	cache       *market.Cache
	store       *store.Store
	modelClient mcp.AIClient
	auth        *authConfig
	logger      zerolog.Logger
}

// Config configures server construction.
type Config struct {
	Cache        *market.Cache
	Store        *store.Store
	ModelClient  mcp.AIClient // nil falls back to mcp.NewLocalFuncClient(), same as decision.NewEngine
	JWTSecret    string
	OperatorHash string // bcrypt hash of the static operator token, see auth.go
	Logger       zerolog.Logger
}

// NewServer builds the gin engine and registers every route.
func NewServer(cfg Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), logrusMiddleware())

	modelClient := cfg.ModelClient
	if modelClient == nil {
		modelClient = mcp.NewLocalFuncClient()
	}

	s := &Server{
		engine:      engine,
		cache:       cfg.Cache,
		store:       cfg.Store,
		modelClient: modelClient,
		auth:        newAuthConfig(cfg.JWTSecret, cfg.OperatorHash),
		logger:      cfg.Logger,
	}
	s.registerRoutes()
	return s
}

// Run starts the HTTP listener. Blocks until the server exits.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// orchestratorFor resolves the named arena orchestrator instance,
// constructing it on first use per spec.md §9's one-per-process note.
func (s *Server) orchestratorFor(name string) *orchestrator.Orchestrator {
	// A nil *store.Store must reach the orchestrator as a nil interface,
	// or its "no store configured" checks would not see it as nil.
	var st orchestrator.Store
	if s.store != nil {
		st = s.store
	}
	return orchestrator.Get(name, s.cache, st, s.modelClient)
}

// defaultRequestTimeout bounds how long a single HTTP handler may wait
// on an orchestrator command before giving up.
const defaultRequestTimeout = 5 * time.Second
