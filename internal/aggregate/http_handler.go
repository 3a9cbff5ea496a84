package aggregate

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Handler serves the stats endpoints. Routing keys off the last path
// segment so the handler can be mounted under one prefix.
type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/event-options/") {
		switch r.Method {
		case http.MethodGet:
			h.handleListOptions(w, r)
		case http.MethodPost:
			h.handleRegisterOption(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	switch {
	case strings.HasSuffix(r.URL.Path, "/event-counts/"):
		h.handleEventCounts(w, r)
	case strings.HasSuffix(r.URL.Path, "/top-sources/"):
		h.handleTopSources(w, r)
	case strings.HasSuffix(r.URL.Path, "/year-counts/"):
		h.handleYearCounts(w, r)
	case strings.HasSuffix(r.URL.Path, "/analysis-status/"):
		h.handleAnalysisStatus(w, r)
	case strings.HasSuffix(r.URL.Path, "/monthly-trends/"):
		h.handleMonthlyTrends(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) handleListOptions(w http.ResponseWriter, r *http.Request) {
	options, err := h.service.EventOptions(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("list event options: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, options)
}

func (h *Handler) handleRegisterOption(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var payload struct {
		EventName  string `json:"eventName"`
		EventCount *int64 `json:"eventCount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.EventName) == "" {
		http.Error(w, "eventName is required", http.StatusBadRequest)
		return
	}
	option, err := h.service.RegisterEventOption(r.Context(), payload.EventName, payload.EventCount)
	if err != nil {
		http.Error(w, fmt.Sprintf("register event option: %v", err), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, option)
}

func (h *Handler) handleEventCounts(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.EventCounts(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("event counts: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleTopSources(w http.ResponseWriter, r *http.Request) {
	// Bad limit values fall back to the default instead of erroring.
	limit, _ := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("limit")))
	result, err := h.service.TopSources(r.Context(), limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("top sources: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleYearCounts(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.YearCounts(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("year counts: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleAnalysisStatus(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.AnalysisStatus(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("analysis status: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleMonthlyTrends(w http.ResponseWriter, r *http.Request) {
	year, _ := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("year")))
	result, err := h.service.MonthlyTrends(r.Context(), year)
	if err != nil {
		http.Error(w, fmt.Sprintf("monthly trends: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
