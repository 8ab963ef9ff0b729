package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/feliperosa/trainvault/internal/admin"
	"github.com/feliperosa/trainvault/internal/config"
	"github.com/feliperosa/trainvault/internal/lifecycle"
	"github.com/feliperosa/trainvault/internal/observability"
	"github.com/feliperosa/trainvault/internal/session"
)

type Server struct {
	cfg        config.Config
	sessions   *session.Manager
	controller *lifecycle.Controller
	admin      *admin.Service
	metrics    *observability.Metrics
	events     *EventHub
	upgrader   websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Manager, controller *lifecycle.Controller, adminSvc *admin.Service, metrics *observability.Metrics, events *EventHub) *Server {
	return &Server{
		cfg:        cfg,
		sessions:   sessions,
		controller: controller,
		admin:      adminSvc,
		metrics:    metrics,
		events:     events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser connections may watch the event
				// stream unless explicitly opened up.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/sessions", s.handleBeginSession)
	r.Post("/v1/sessions/{id}/end", s.handleEndSession)
	r.Post("/v1/cleanup", s.handleCleanup)
	r.Get("/v1/status", s.handleStatus)
	r.Get("/v1/records", s.handleListRecords)
	r.Get("/v1/compare", s.handleCompare)
	r.Get("/v1/events/ws", s.handleEventsWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	st := s.admin.Status(r.Context())
	if !st.StoreReachable {
		respondError(w, http.StatusServiceUnavailable, "store_unreachable", "persistence backend is not reachable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type beginSessionRequest struct {
	TenantID string `json:"tenant_id"`
}

func (s *Server) handleBeginSession(w http.ResponseWriter, r *http.Request) {
	var req beginSessionRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.TenantID) == "" {
		respondError(w, http.StatusBadRequest, "missing_tenant_id", "tenant_id is required")
		return
	}

	sess := s.sessions.Begin(r.Context(), req.TenantID)
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()
	respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	respondJSON(w, http.StatusOK, sess)
}

type cleanupRequest struct {
	TenantID string `json:"tenant_id"`
	Force    bool   `json:"force"`
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	ok := s.controller.RunCleanup(r.Context(), req.TenantID, req.Force)
	status := http.StatusOK
	if !ok {
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, status, map[string]any{
		"ok":        ok,
		"tenant_id": req.TenantID,
		"forced":    req.Force,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"controller":      s.controller.Status(),
		"system":          s.admin.Status(r.Context()),
		"active_sessions": s.sessions.ActiveCount(),
	})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.admin.List(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, "model_unreachable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":         len(records),
		"training_data": records,
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	tenant := strings.TrimSpace(r.URL.Query().Get("tenant"))
	res, err := s.admin.Compare(r.Context(), tenant)
	if err != nil {
		respondError(w, http.StatusBadGateway, "compare_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
