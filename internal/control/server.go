// Package control exposes a loopback-only HTTP surface for operator
// actions the daemon can't safely take from the command line of a
// different process: pausing, resuming, flipping the kill switch, and
// inspecting or editing the live configuration. Every mutating call is
// transactional against the database and recorded as an operator_commands
// audit row.
package control

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/duskfield/wxengine/internal/config"
	"github.com/duskfield/wxengine/internal/store"
)

// Server is the control-surface HTTP listener. It is bound to loopback
// only (127.0.0.1); it is never intended to be reachable off-box.
type Server struct {
	router *chi.Mux
	server *http.Server
	db     *store.DB
	cfg    *config.Config
	log    zerolog.Logger
}

// New builds a Server bound to one database and a mutable pointer to a
// config. A config-set call replaces *cfg, which is what config show
// reports; it does not reach scan cycles, because the daemon builds its
// pipeline from a separate copy of the config at startup.
func New(addr string, db *store.DB, cfg *config.Config, log zerolog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		db:     db,
		cfg:    cfg,
		log:    log.With().Str("component", "control_server").Logger(),
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Timeout(10 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST"},
	}))
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Route("/control", func(r chi.Router) {
		r.Post("/pause", s.handlePause)
		r.Post("/resume", s.handleResume)
		r.Post("/kill-switch/activate", s.handleKillSwitchActivate)
		r.Post("/kill-switch/deactivate", s.handleKillSwitchDeactivate)
		r.Get("/config", s.handleConfigShow)
		r.Post("/config", s.handleConfigSet)
	})
}

// Start serves until the listener is closed; callers run it in a
// goroutine and call Shutdown to stop it.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("control server listening")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.setFlagAndAudit(w, r, "paused", "true", "pause")
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.setFlagAndAudit(w, r, "paused", "false", "resume")
}

func (s *Server) handleKillSwitchActivate(w http.ResponseWriter, r *http.Request) {
	s.setFlagAndAudit(w, r, "kill_switch", "true", "kill_switch_activate")
}

func (s *Server) handleKillSwitchDeactivate(w http.ResponseWriter, r *http.Request) {
	s.setFlagAndAudit(w, r, "kill_switch", "false", "kill_switch_deactivate")
}

func (s *Server) setFlagAndAudit(w http.ResponseWriter, r *http.Request, key, value, command string) {
	err := s.db.SetState(key, value)
	result := "ok"
	if err != nil {
		result = err.Error()
	}
	if auditErr := s.db.RecordOperatorCommand(command, "", result); auditErr != nil {
		s.log.Warn().Err(auditErr).Msg("failed to record operator command")
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleConfigShow(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeJSON(w, http.StatusOK, s.cfg)
		return
	}
	value, err := config.Get(*s.cfg, key)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": value})
}

type configSetRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *Server) handleConfigSet(w http.ResponseWriter, r *http.Request) {
	var req configSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	updated, err := config.Set(*s.cfg, req.Key, req.Value)
	result := "ok"
	if err != nil {
		result = err.Error()
	}
	if auditErr := s.db.RecordOperatorCommand("config_set", req.Key+"="+req.Value, result); auditErr != nil {
		s.log.Warn().Err(auditErr).Msg("failed to record operator command")
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	*s.cfg = updated
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
