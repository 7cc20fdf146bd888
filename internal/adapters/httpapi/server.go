package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tradeArena/internal/analytics"
	"tradeArena/internal/app"
	"tradeArena/internal/domain"
	"tradeArena/internal/strategy"
)

// Arena is the application surface the HTTP layer serves. *app.RoundService implements it.
type Arena interface {
	Agents(ctx context.Context) ([]*domain.Agent, error)
	Agent(ctx context.Context, id string) (*domain.Agent, error)
	Executions(ctx context.Context, agentID string, limit int) ([]*domain.ExecutionRecord, error)
	Performance(ctx context.Context, agentID string) (*app.Performance, error)
	RunRound(ctx context.Context, agentID string, round int, output string) (*app.RoundReport, error)
	SetAgentEnabled(ctx context.Context, agentID string, enabled bool) (*domain.Agent, error)
	ArenaState(ctx context.Context) (*domain.ArenaState, error)
	SetStatus(ctx context.Context, status domain.GameStatus) (*domain.ArenaState, error)
	AdvanceRound(ctx context.Context) (*domain.ArenaState, error)
	Leaderboard(ctx context.Context) ([]analytics.Standing, error)
	RecentExecutions(ctx context.Context, limit int) ([]*domain.ExecutionRecord, error)
	RecentRejections(ctx context.Context, limit int) ([]*domain.RejectionRecord, error)
	Profiles() []*strategy.Profile
	Profile(agent *domain.Agent) *strategy.Profile
}

var _ Arena = (*app.RoundService)(nil)

// Config holds server configuration
type Config struct {
	Addr           string
	Log            zerolog.Logger
	Arena          Arena
	AllowedOrigins []string
	StartingCash   decimal.Decimal
}

// Server represents the HTTP server
type Server struct {
	router       *chi.Mux
	server       *http.Server
	log          zerolog.Logger
	arena        Arena
	startingCash decimal.Decimal
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:       chi.NewRouter(),
		log:          cfg.Log.With().Str("component", "httpapi").Logger(),
		arena:        cfg.Arena,
		startingCash: cfg.StartingCash,
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.setupMiddleware(origins)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(origins []string) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/profiles", s.handleProfiles)
		r.Get("/leaderboard", s.handleLeaderboard)

		r.Route("/arena", func(r chi.Router) {
			r.Get("/", s.handleArenaState)
			r.Put("/status", s.handleSetStatus)
			r.Post("/rounds", s.handleAdvanceRound)
		})

		r.Route("/agents", func(r chi.Router) {
			r.Get("/", s.handleAgents)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleAgent)
				r.Get("/trades", s.handleAgentTrades)
				r.Get("/performance", s.handleAgentPerformance)
				r.Post("/rounds", s.handleRunRound)
				r.Put("/enabled", s.handleSetAgentEnabled)
			})
		})

		r.Get("/trades/recent", s.handleRecentTrades)
		r.Get("/rejections/recent", s.handleRecentRejections)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
