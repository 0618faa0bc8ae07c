package http

import (
	"context"
	"net/http"

	"financas/internal/amqp"
	"financas/internal/config"
	"financas/internal/middleware/ratelimit"
	"financas/internal/middleware/trace"
	"financas/internal/services"
	"financas/internal/storage"
)

// TotalizerPublisher enqueues a totalizer run for the worker instead of
// executing it in-request.
type TotalizerPublisher interface {
	PublishTotalizerRun(ctx context.Context, msg *amqp.TotalizerRunMessage) error
}

// Server exposes the movement store, the two-phase statement import and the
// totalizer run as a JSON API.
type Server struct {
	http.Server
	repo            *storage.Repository
	movements       *services.MovementService
	totalizer       *services.TotalizerService
	publisher       TotalizerPublisher
	limiter         *ratelimit.Limiter
	defaultPayer    string
	defaultCategory string
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. publisher may be nil when no queue is configured; async totalizer
// runs are then rejected.
func NewServer(cfg *config.Config, repo *storage.Repository, movements *services.MovementService, totalizer *services.TotalizerService, publisher TotalizerPublisher) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr: ":" + cfg.Port,
		},
		repo:            repo,
		movements:       movements,
		totalizer:       totalizer,
		publisher:       publisher,
		defaultPayer:    cfg.TotalizerPayer,
		defaultCategory: cfg.TotalizerCategory,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/cards", s.handleListCards)
	mux.HandleFunc("POST /api/cards", s.handleSaveCard)
	mux.HandleFunc("DELETE /api/cards/{id}", s.handleDeleteCard)

	mux.HandleFunc("GET /api/movements", s.handleListMovements)
	mux.HandleFunc("POST /api/movements", s.handleSaveMovement)
	mux.HandleFunc("DELETE /api/movements/{id}", s.handleDeleteMovement)
	mux.HandleFunc("POST /api/movements/realign", s.handleRealignMonthRef)

	mux.HandleFunc("POST /api/import/preview", s.handleImportPreview)
	mux.HandleFunc("POST /api/import/run", s.handleImportRun)

	mux.HandleFunc("POST /api/totalizer/run", s.handleTotalizerRun)

	s.limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	s.Handler = trace.NewMiddleware().Middleware(s.limiter.Middleware(mux))
	return s
}

// Shutdown stops the rate limiter's cleanup goroutine along with the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
