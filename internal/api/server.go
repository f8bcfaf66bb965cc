package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/sentinelsoc/triage-engine/internal/engine"
	"github.com/sentinelsoc/triage-engine/internal/models"
	"github.com/sentinelsoc/triage-engine/internal/services"
	"github.com/sentinelsoc/triage-engine/internal/store"
)

// Server exposes the triage service over HTTP/JSON.
type Server struct {
	svc    *services.TriageService
	logger *slog.Logger
	http   *http.Server
}

// NewServer builds the server with all routes mounted.
func NewServer(addr string, svc *services.TriageService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/analyses", s.handleSubmit).Methods(http.MethodPost)
	v1.HandleFunc("/analyses/generate", s.handleGenerate).Methods(http.MethodPost)
	v1.HandleFunc("/analyses", s.handleList).Methods(http.MethodGet)
	v1.HandleFunc("/analyses/{id}", s.handleGet).Methods(http.MethodGet)
	v1.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	v1.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler returns the mounted router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.svc.List(r.Context(), 1); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var signal models.ThreatSignal
	if err := json.NewDecoder(r.Body).Decode(&signal); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed signal payload", err)
		return
	}
	if signal.DetectedAt.IsZero() {
		signal.DetectedAt = time.Now().UTC()
	}

	result, err := s.svc.Analyze(r.Context(), signal)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	scenario := r.URL.Query().Get("scenario")
	result, err := s.svc.Generate(r.Context(), scenario)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidSignal) {
			s.writeAnalysisError(w, err)
			return
		}
		s.writeError(w, http.StatusBadRequest, "generation failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", err)
			return
		}
		limit = parsed
	}

	results, err := s.svc.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "listing analyses failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analyses": results,
		"count":    len(results),
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	result, err := s.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "analysis not found", nil)
			return
		}
		s.writeError(w, http.StatusInternalServerError, "fetching analysis failed", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Dashboard(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "dashboard aggregation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleStream pushes finished analyses to the client as server-sent events
// until the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported", nil)
		return
	}

	ch, err := s.svc.Subscribe(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "subscription failed", err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case result, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(result)
			if err != nil {
				continue
			}
			if _, err := w.Write(append(append([]byte("data: "), data...), '\n', '\n')); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) writeAnalysisError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidSignal):
		s.writeError(w, http.StatusBadRequest, "invalid threat signal", err)
	case errors.Is(err, engine.ErrTemplateMissing), errors.Is(err, engine.ErrTimelineOrder):
		s.writeError(w, http.StatusInternalServerError, "pipeline invariant failure", err)
	default:
		s.writeError(w, http.StatusInternalServerError, "analysis failed", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, err error) {
	if err != nil {
		s.logger.Warn("request failed",
			slog.Int("status", status),
			slog.String("message", msg),
			slog.Any("error", err))
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
