package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hazz-dev/webcheck/internal/registry"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type resourcesResponse struct {
	Resources []registry.Resource `json:"resources"`
	Config    registry.AppConfig  `json:"config"`
}

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	snap := s.svc.Snapshot()
	writeJSON(w, http.StatusOK, resourcesResponse{
		Resources: snap.Resources,
		Config:    snap.Config,
	})
}

type urlPayload struct {
	URL string `json:"url"`
}

func (s *Server) handleAddResource(w http.ResponseWriter, r *http.Request) {
	var p urlPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.svc.Add(r.Context(), p.URL)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, urlPayload{URL: p.URL})
	case errors.Is(err, registry.ErrDuplicate):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, registry.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, "url must start with http:// or https://")
	default:
		s.logger.Error("add_resource", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type removeResponse struct {
	Removed bool `json:"removed"`
}

func (s *Server) handleRemoveResource(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}
	writeJSON(w, http.StatusOK, removeResponse{Removed: s.svc.Remove(r.Context(), url)})
}

type configPayload struct {
	CheckInterval   *int `json:"check_interval"`
	RefreshInterval *int `json:"refresh_interval"`
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var p configPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if p.CheckInterval == nil || p.RefreshInterval == nil {
		writeError(w, http.StatusBadRequest, "check_interval and refresh_interval are required")
		return
	}

	cfg := s.svc.UpdateConfig(r.Context(), *p.CheckInterval, *p.RefreshInterval)
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeError(w, http.StatusNotFound, "telemetry disabled")
		return
	}

	points, err := s.metrics.Summary(r.Context())
	if err != nil {
		s.logger.Error("metrics_summary", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, points)
}
