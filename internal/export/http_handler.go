package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rpattn/cvetrack/internal/domain"
	"github.com/rpattn/cvetrack/internal/query"
	"github.com/rpattn/cvetrack/internal/repository"
)

// FilterBuilder turns raw filter parameters into a store predicate plus
// any fail-open warnings. The query service provides the implementation
// so exports and filtered listings share one predicate builder.
type FilterBuilder interface {
	BuildExportFilter(params query.FilterParams) (domain.ChangeFilter, []string)
}

type Handler struct {
	service *Service
	filters FilterBuilder
}

func NewHTTPHandler(service *Service, filters FilterBuilder) http.Handler {
	return &Handler{service: service, filters: filters}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/download"):
		h.handleDownload(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/status"):
		h.handleStatus(w, r)
	case r.Method == http.MethodDelete && strings.HasSuffix(r.URL.Path, "/cancel"):
		h.handleCancel(w, r)
	case r.Method == http.MethodPost:
		h.handleQueue(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	filter, warnings := h.filters.BuildExportFilter(query.FilterParams{
		Events:       params["event"],
		EventsJoined: params.Get("events"),
		StartDate:    params.Get("startDate"),
		EndDate:      params.Get("endDate"),
	})
	job, err := h.service.Queue(r.Context(), filter, warnings)
	if err != nil {
		http.Error(w, fmt.Sprintf("queue export: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID, err := parseJobID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	job, err := h.service.GetJob(jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "export job not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("get export job: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	jobID, err := parseJobID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	job, err := h.service.CancelJob(jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "export job not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	jobID, err := parseJobID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	job, err := h.service.GetJob(jobID)
	if err != nil {
		http.Error(w, "export job not found", http.StatusNotFound)
		return
	}
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if err := h.service.ValidateDownloadToken(jobID, token); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	file, err := h.service.OpenJobFile(job)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	defer file.Close()

	filename := filepath.Base(file.Name())
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if job.FileByteSize > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(job.FileByteSize, 10))
	}
	http.ServeContent(w, r, filename, job.UpdatedAt, file)
}

func parseJobID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("id"))
	if raw == "" {
		return uuid.Nil, errors.New("id is required")
	}
	jobID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid export job id: %v", err)
	}
	return jobID, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
