package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/posetrack/internal/storage"
	"github.com/claude/posetrack/internal/track"
	"github.com/go-chi/chi/v5"
	"tailscale.com/client/local"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       *storage.DB
	engine   *track.Engine
	log      *slog.Logger
	apiKey   string
	router   chi.Router
	tsClient *local.Client
}

// New creates a new Server with all routes configured.
func New(db *storage.DB, engine *track.Engine, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:     db,
		engine: engine,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// SetTailscale enables Tailscale identity resolution for incoming requests.
func (s *Server) SetTailscale(lc *local.Client) {
	s.tsClient = lc
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(s.identity)

	s.router.Route("/api/v1/sessions", func(r chi.Router) {
		// Tracking endpoints (API key required — capture clients)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/", s.handleStartSession)
			r.Post("/{id}/frames", s.handleFrames)
			r.Post("/{id}/stop", s.handleStopSession)
		})

		// Dashboard endpoints (no auth — tsnet handles access)
		r.Get("/", s.handleQuerySessions)
		r.Get("/live", s.handleLiveSessions)
		r.Get("/stats", s.handleStats)
		r.Get("/summary", s.handleRangeSummary)
		r.Get("/trend", s.handleTrend)
		r.Get("/schedule", s.handleSchedule)
		r.Get("/breakdown", s.handleBreakdown)
		r.Get("/{id}", s.handleGetSession)
		r.Get("/{id}/timeline", s.handleSessionTimeline)
		r.Get("/{id}/events", s.handleSessionEvents)
	})

	s.router.Get("/api/v1/exercises", s.handleExercises)
	s.router.Get("/api/v1/replays", s.handleReplayLogs)
	s.router.Get("/api/v1/report/trend", s.handleTrendReport)
	s.router.Get("/api/v1/me", s.handleMe)
}
