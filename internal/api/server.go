// Package api serves the operational HTTP surface for a running scrape:
// health, per-source progress, storage totals, and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/KuschiKuschbert/prepflow-scraper/internal/metrics"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/progress"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/storage"
)

// Server exposes status endpoints while a job runs.
type Server struct {
	httpServer *http.Server
	tracker    *progress.Tracker
	engine     *storage.Engine
	sources    []string
	logger     *zap.Logger
}

// New builds the status server for the given sources.
func New(port int, tracker *progress.Tracker, engine *storage.Engine, sources []string, logger *zap.Logger) *Server {
	s := &Server{
		tracker: tracker,
		engine:  engine,
		sources: sources,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", metrics.Handler())

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		s.logger.Info("status server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server failed", zap.Error(err))
		}
	}()
}

// Shutdown drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Storage sourceTotals              `json:"storage"`
	Sources map[string]sourceProgress `json:"sources"`
}

type sourceTotals struct {
	TotalRecipes int            `json:"totalRecipes"`
	BySource     map[string]int `json:"bySource"`
	LastUpdated  time.Time      `json:"lastUpdated"`
}

type sourceProgress struct {
	Discovered int     `json:"discovered"`
	Scraped    int     `json:"scraped"`
	Failed     int     `json:"failed"`
	Remaining  int     `json:"remaining"`
	Percent    float64 `json:"percent"`
	ETASeconds float64 `json:"etaSeconds"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	stats, err := s.engine.Statistics()
	if err != nil {
		s.logger.Error("status: storage statistics failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage unavailable"})
		return
	}

	resp := statusResponse{
		Storage: sourceTotals{
			TotalRecipes: stats.TotalRecipes,
			BySource:     stats.BySource,
			LastUpdated:  stats.LastUpdated,
		},
		Sources: map[string]sourceProgress{},
	}
	for _, source := range s.sources {
		p, err := s.tracker.Load(source)
		if err != nil || p == nil {
			continue
		}
		st := s.tracker.Statistics(p)
		resp.Sources[source] = sourceProgress{
			Discovered: st.Discovered,
			Scraped:    st.Scraped,
			Failed:     st.Failed,
			Remaining:  st.Remaining,
			Percent:    st.Percent,
			ETASeconds: st.ETA.Seconds(),
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug("write status response", zap.Error(err))
	}
}
