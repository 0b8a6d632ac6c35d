// Package api exposes the IVSE headlessly over HTTP so a GUI or test
// harness can drive validate/install/progress without linking against the
// installer package directly (spec.md design note "Installer GUI
// decoupling").
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cqcsystem/cqcsrv/installer"
	"github.com/cqcsystem/cqcsrv/installer/history"
	"github.com/cqcsystem/cqcsrv/installer/progress"
	"github.com/cqcsystem/cqcsrv/pkg/cqclog"
	"github.com/cqcsystem/cqcsrv/pkg/cqcmetrics"
)

// Runner executes a validated plan end to end (staging + swap); kept as
// an interface so the router can be tested without a real filesystem
// swap.
type Runner interface {
	Run(plan installer.InstallationPlan) error
}

// Server wires the IVSE's validate/install/progress operations onto a
// go-chi/chi/v5 router, kept separate from the admin package's
// gorilla/mux router since the two subsystems serve different audiences
// (an installer GUI vs. a fleet management console).
type Server struct {
	runner  Runner
	pub     *progress.Publisher
	store   history.Store
	logger  *cqclog.Logger
	families installer.HostFamilies
}

// NewServer builds an installer API server.
func NewServer(runner Runner, pub *progress.Publisher, store history.Store, logger *cqclog.Logger) *Server {
	if logger == nil {
		logger = cqclog.NewDefault("installer-api")
	}
	return &Server{
		runner:   runner,
		pub:      pub,
		store:    store,
		logger:   logger,
		families: installer.ProbeHostFamilies(),
	}
}

// Router builds the chi mux.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/installer/validate", s.handleValidate)
	r.Post("/installer/run", s.handleRun)
	r.Get("/installer/progress", s.pub.ServeWS)
	r.Get("/installer/history", s.handleHistory)

	return r
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var plan installer.InstallationPlan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		http.Error(w, "invalid plan payload", http.StatusBadRequest)
		return
	}

	if err := installer.Validate(plan, s.families); err != nil {
		cqcmetrics.InstallRuns.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"valid": false, "error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var plan installer.InstallationPlan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		http.Error(w, "invalid plan payload", http.StatusBadRequest)
		return
	}

	if err := installer.Validate(plan, s.families); err != nil {
		cqcmetrics.InstallRuns.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"valid": false, "error": err.Error()})
		return
	}

	if err := s.runner.Run(plan); err != nil {
		cqcmetrics.InstallRuns.WithLabelValues("rolled_back").Inc()
		s.logger.ForComponent("installer-api").Errorf("install run failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"committed": false, "error": err.Error()})
		return
	}

	cqcmetrics.InstallRuns.WithLabelValues("committed").Inc()
	writeJSON(w, http.StatusOK, map[string]any{"committed": true})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []history.Record{})
		return
	}
	records, err := s.store.List(r.Context(), 50)
	if err != nil {
		http.Error(w, "history unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
