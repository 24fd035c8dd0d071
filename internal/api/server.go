// Package api provides the HTTP server for WattQuest.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wattquest/wattquest/internal/app/notify"
	"github.com/wattquest/wattquest/internal/app/quest"
	"github.com/wattquest/wattquest/internal/domain"
	"github.com/wattquest/wattquest/internal/health"
)

// Server is the WattQuest HTTP API server.
type Server struct {
	engine         *quest.Engine
	profiles       domain.ProfileStore
	notifier       *notify.Service
	checker        *health.Checker
	metricsEnabled bool
	limits         *userLimiters
}

// NewServer creates an API server over the engine and its stores.
func NewServer(engine *quest.Engine, profiles domain.ProfileStore, notifier *notify.Service) *Server {
	return &Server{
		engine:   engine,
		profiles: profiles,
		notifier: notifier,
		limits:   newUserLimiters(),
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetHealthChecker wires the daemon's health checker into /health.
func (s *Server) SetHealthChecker(c *health.Checker) { s.checker = c }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/api/status", s.handleStatus)

	r.Route("/api/users/{userID}", func(r chi.Router) {
		r.Get("/profile", s.handleProfile)
		r.Post("/actions", s.handleAction)

		r.Get("/quests", s.handleListQuests)
		r.Post("/quests/generate", s.handleGenerate)
		r.Get("/quests/{questID}", s.handleGetQuest)
		r.Post("/quests/{questID}/start", s.handleStartQuest)
		r.Post("/quests/{questID}/complete", s.handleCompleteQuest)
		r.Post("/quests/{questID}/abandon", s.handleAbandonQuest)

		r.Get("/notifications", s.handleNotifications)
		r.Post("/notifications/{id}/shown", s.handleNotificationShown)

		r.With(s.limits.middleware).Post("/readings", s.handleReading)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.checker == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status := http.StatusOK
	if !s.checker.IsHealthy() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"healthy": s.checker.IsHealthy(),
		"checks":  s.checker.Statuses(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "running",
		"users":   s.engine.AttachedUsers(),
		"version": "0.1.0",
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps domain sentinels to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrQuestNotFound),
		errors.Is(err, domain.ErrTemplateNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrQuestAlreadyActive),
		errors.Is(err, domain.ErrQuestCapReached),
		errors.Is(err, domain.ErrQuestNotStartable),
		errors.Is(err, domain.ErrQuestNotActive),
		errors.Is(err, domain.ErrQuestIncomplete):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrLevelTooLow),
		errors.Is(err, domain.ErrPrerequisiteUnmet):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// corsMiddleware adds CORS headers for the dashboard frontend.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
