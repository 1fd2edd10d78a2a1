// Package server provides the HTTP API: operator project management, the
// public key lookup and plugin script delivery.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jonathan/learn-overlay/internal/analysis"
	"github.com/jonathan/learn-overlay/internal/config"
	"github.com/jonathan/learn-overlay/internal/db"
	"github.com/jonathan/learn-overlay/internal/llm"
	"github.com/jonathan/learn-overlay/internal/plugin"
	"github.com/jonathan/learn-overlay/internal/server/middleware"
	"github.com/jonathan/learn-overlay/internal/server/ratelimit"
)

// ShutdownTimeout bounds how long in-flight requests get after Start's
// context is cancelled.
const ShutdownTimeout = 30 * time.Second

// Server serves the project API, key lookups and plugin scripts.
type Server struct {
	httpServer    *http.Server
	db            *db.DB
	llmClient     llm.Client
	projects      *ProjectService
	rateLimiter   *ratelimit.Limiter
	jwtService    *JWTService
	authHandler   *AuthHandler
	pluginOptions plugin.Options
	publicURL     string
}

// Config holds what New needs to build the production collaborators.
type Config struct {
	Port        int
	DatabaseURL string
	APIKey      string
	Model       string // overrides the lite-tier model
	PublicURL   string // base URL written into served plugin scripts
	Analysis    analysis.Options
}

// Deps are the collaborators a Server is assembled from. New builds them from
// Config; tests supply fakes.
type Deps struct {
	Store     Store
	Analyzer  ProjectAnalyzer
	Passwords *config.PasswordConfig
	JWT       *config.JWTConfig
	RateLimit *ratelimit.Config
	Plugin    plugin.Options
	PublicURL string
	CacheSize int
}

// New connects to the database, applies the schema and builds the analyzer
// and auth services from the environment.
func New(ctx context.Context, cfg Config) (*Server, error) {
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	llmConfig := llm.DefaultConfig()
	if cfg.Model != "" {
		llmConfig = llmConfig.WithModel(llm.TierLite, cfg.Model)
	}
	client, err := llm.NewClient(ctx, llmConfig, cfg.APIKey)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create password config: %w", err)
	}
	if passwordConfig.OperatorHash == "" {
		log.Printf("[AUTH] OPERATOR_PASSWORD_HASH is not set; operator login is disabled")
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}

	s, err := NewWithDeps(Deps{
		Store:     database,
		Analyzer:  analysis.New(client, cfg.Analysis),
		Passwords: passwordConfig,
		JWT:       jwtConfig,
		RateLimit: ratelimit.LoadConfig(),
		Plugin:    plugin.DefaultOptions(),
		PublicURL: cfg.PublicURL,
	})
	if err != nil {
		database.Close()
		return nil, err
	}
	s.db = database
	s.llmClient = client

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // creation and re-analysis run inline
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// NewWithDeps assembles a server from explicit collaborators.
func NewWithDeps(d Deps) (*Server, error) {
	if d.Store == nil || d.Analyzer == nil {
		return nil, fmt.Errorf("server requires a store and an analyzer")
	}
	if d.Passwords == nil || d.JWT == nil {
		return nil, fmt.Errorf("server requires password and JWT configuration")
	}

	projects, err := NewProjectService(d.Store, d.Analyzer, d.CacheSize)
	if err != nil {
		return nil, err
	}

	jwtService := NewJWTService(d.JWT)
	return &Server{
		projects:      projects,
		rateLimiter:   ratelimit.NewLimiter(d.RateLimit),
		jwtService:    jwtService,
		authHandler:   NewAuthHandler(d.Passwords, jwtService),
		pluginOptions: d.Plugin,
		publicURL:     d.PublicURL,
	}, nil
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	auth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())

	mux := http.NewServeMux()

	// Public endpoints, called from embedding sites
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /lookup", s.handleLookup)
	mux.HandleFunc("GET /plugin.js", s.handlePluginScript)
	mux.HandleFunc("POST /auth/token", s.handleLogin)

	// Operator endpoints
	mux.Handle("POST /projects", auth(http.HandlerFunc(s.handleCreateProject)))
	mux.Handle("GET /projects", auth(http.HandlerFunc(s.handleListProjects)))
	mux.Handle("GET /projects/{id}", auth(http.HandlerFunc(s.handleGetProject)))
	mux.Handle("DELETE /projects/{id}", auth(http.HandlerFunc(s.handleDeleteProject)))
	mux.Handle("POST /projects/{id}/reanalyze", auth(http.HandlerFunc(s.handleReanalyzeProject)))
	mux.Handle("GET /projects/{id}/activity", auth(http.HandlerFunc(s.handleProjectActivity)))
	mux.Handle("GET /projects/{id}/plugin.js", auth(http.HandlerFunc(s.handleProjectPlugin)))

	// CORS is outermost so rejected requests, 429 included, stay readable cross-origin.
	return s.withCORS(s.withRateLimit(middleware.RequestID(s.withLogging(mux))))
}

// Start serves until ctx is cancelled, then drains in-flight requests and
// releases the limiter, model client and database pool.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[SERVER] listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			s.release()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Printf("[SERVER] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)
	s.release()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Printf("[SERVER] stopped")
	return nil
}

func (s *Server) release() {
	s.rateLimiter.Stop()
	if s.llmClient != nil {
		if err := s.llmClient.Close(); err != nil {
			log.Printf("[SERVER] closing LLM client: %v", err)
		}
	}
	if s.db != nil {
		s.db.Close()
	}
}
