package api

import (
	"net/http"
	"strconv"

	"github.com/newomen/newomen-ai/internal/ai"
	"github.com/newomen/newomen-ai/internal/usage"
)

const defaultExportLimit = 1000

// redactConfig strips credentials before a configuration leaves the admin API.
func redactConfig(cfg ai.Config) ai.Config {
	cfg.APIKey = ""
	return cfg
}

func (s *Server) handleListConfigurations(w http.ResponseWriter, r *http.Request) {
	configs := s.Registry.Configurations()
	out := make([]ai.Config, len(configs))
	for i, cfg := range configs {
		out[i] = redactConfig(cfg)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateConfiguration(w http.ResponseWriter, r *http.Request) {
	var cfg ai.Config
	if !decodeJSON(w, r, &cfg) {
		return
	}
	if cfg.Name == "" || cfg.Provider == "" || cfg.Model == "" {
		writeError(w, http.StatusBadRequest, "name, provider and model are required")
		return
	}

	id, err := s.Registry.CreateConfiguration(r.Context(), cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleUpdateConfiguration(w http.ResponseWriter, r *http.Request) {
	var cfg ai.Config
	if !decodeJSON(w, r, &cfg) {
		return
	}

	if err := s.Registry.UpdateConfiguration(r.Context(), r.PathValue("id"), cfg); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteConfiguration(w http.ResponseWriter, r *http.Request) {
	if err := s.Registry.DeleteConfiguration(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleUsageExport(w http.ResponseWriter, r *http.Request) {
	if s.Usage == nil {
		writeError(w, http.StatusServiceUnavailable, "usage export is not configured")
		return
	}

	limit := defaultExportLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := s.Usage.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="ai-usage.xlsx"`)
	if err := usage.WriteXLSX(entries, w); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
