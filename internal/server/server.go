// Package server exposes the farm service over HTTP. Routing uses
// net/http method patterns; responses are JSON. Read endpoints are
// cached with tag-based revalidation so list views stay fresh after
// lifecycle writes.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/tilthlabs/tilth/internal/cache"
	"github.com/tilthlabs/tilth/internal/config"
	"github.com/tilthlabs/tilth/internal/farm"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Server is the HTTP front end of the farm service
type Server struct {
	svc     *farm.Service
	cache   *cache.Cache
	log     *zap.Logger
	limiter *rate.Limiter
	httpSrv *http.Server

	shutdownTimeout time.Duration
}

// New creates a server wired to the farm service
func New(cfg *config.ServerConfig, svc *farm.Service, c *cache.Cache, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		svc:             svc,
		cache:           c,
		log:             log,
		limiter:         rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		shutdownTimeout: cfg.ShutdownTimeout,
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.recoverPanics(s.logRequests(s.rateLimit(mux))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.HandleFunc("GET /api/crops", s.handleListCrops)
	mux.HandleFunc("POST /api/crops", s.handleCreateCrop)
	mux.HandleFunc("GET /api/crops/{id}", s.handleGetCrop)
	mux.HandleFunc("PUT /api/crops/{id}", s.handleUpdateCrop)

	mux.HandleFunc("GET /api/locations", s.handleListLocations)
	mux.HandleFunc("POST /api/locations", s.handleCreateLocation)
	mux.HandleFunc("GET /api/plots", s.handleListPlots)
	mux.HandleFunc("POST /api/plots", s.handleCreatePlot)
	mux.HandleFunc("GET /api/beds", s.handleListBeds)
	mux.HandleFunc("POST /api/beds", s.handleCreateBed)
	mux.HandleFunc("GET /api/beds/{id}", s.handleGetBed)
	mux.HandleFunc("DELETE /api/beds/{id}", s.handleDeleteBed)

	mux.HandleFunc("GET /api/plantings", s.handleListPlantings)
	mux.HandleFunc("POST /api/plantings", s.handleCreatePlanting)
	mux.HandleFunc("GET /api/plantings/{id}", s.handleGetPlanting)
	mux.HandleFunc("POST /api/plantings/{id}/transplant", s.handleTransplant)
	mux.HandleFunc("POST /api/plantings/{id}/harvest", s.handleHarvest)
	mux.HandleFunc("POST /api/plantings/{id}/remove", s.handleRemove)
	mux.HandleFunc("POST /api/plantings/{id}/notes", s.handleAddNote)
	mux.HandleFunc("GET /api/plantings/{id}/events", s.handleGetEvents)
	mux.HandleFunc("GET /api/plantings/{id}/harvests", s.handleGetHarvests)

	mux.HandleFunc("GET /api/activities", s.handleListActivities)
	mux.HandleFunc("POST /api/activities", s.handleLogActivity)
	mux.HandleFunc("GET /api/schedules", s.handleListSchedules)
	mux.HandleFunc("POST /api/schedules", s.handleCreateSchedule)
	mux.HandleFunc("POST /api/schedules/{id}/enable", s.handleEnableSchedule)
	mux.HandleFunc("POST /api/schedules/{id}/disable", s.handleDisableSchedule)

	mux.HandleFunc("GET /api/stats", s.handleStats)
}

// ListenAndServe blocks serving HTTP until the context is canceled,
// then drains in-flight requests within the shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.log.Info("http server shutting down")
	return s.httpSrv.Shutdown(shutdownCtx)
}

// Handler returns the full middleware-wrapped handler, used by tests
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Store().Ping(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
