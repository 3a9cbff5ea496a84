package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rpattn/cvetrack/internal/domain"
	"github.com/rpattn/cvetrack/internal/repository"
)

// Handler exposes the change-event listing, search, and filter
// operations over HTTP.
type Handler struct {
	service *Service
}

func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/paginated/"):
		h.handlePaginated(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/search/"):
		h.handleSearch(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/filter/"):
		h.handleFilter(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/detail"):
		h.handleDetail(w, r)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/create/"):
		h.handleCreate(w, r)
	case r.Method == http.MethodPut && strings.HasSuffix(r.URL.Path, "/update"):
		h.handleUpdate(w, r)
	case r.Method == http.MethodDelete && strings.HasSuffix(r.URL.Path, "/delete"):
		h.handleDelete(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/cvechanges/"):
		h.handleList(w, r)
	case r.Method == http.MethodGet:
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.List(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("list changes: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	change, err := h.service.Detail(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "change not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("get change: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

func (h *Handler) handlePaginated(w http.ResponseWriter, r *http.Request) {
	resultsPerPage, startIndex := parsePageParams(r)
	result, err := h.service.Paginated(r.Context(), resultsPerPage, startIndex)
	if err != nil {
		http.Error(w, fmt.Sprintf("paginate changes: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := params.Get("q")
	if q == "" {
		q = params.Get("query")
	}
	resultsPerPage, startIndex := parsePageParams(r)
	result, err := h.service.Search(r.Context(), q, resultsPerPage, startIndex)
	if err != nil {
		http.Error(w, fmt.Sprintf("search changes: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleFilter(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	filterParams := FilterParams{
		Events:       params["event"],
		EventsJoined: params.Get("events"),
		StartDate:    params.Get("startDate"),
		EndDate:      params.Get("endDate"),
	}
	resultsPerPage, startIndex := parsePageParams(r)
	result, err := h.service.Filter(r.Context(), filterParams, resultsPerPage, startIndex)
	if err != nil {
		http.Error(w, fmt.Sprintf("filter changes: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var change domain.ChangeEvent
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	created, err := h.service.Create(r.Context(), change)
	if err != nil {
		http.Error(w, fmt.Sprintf("create change: %v", err), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	id, err := parseID(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var change domain.ChangeEvent
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	change.ID = id
	updated, err := h.service.Update(r.Context(), change)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "change not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("update change: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "change not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("delete change: %v", err), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parsePageParams reads resultsPerPage and startIndex, treating missing
// or malformed values as zero so the service clamps them to defaults.
func parsePageParams(r *http.Request) (int, int) {
	params := r.URL.Query()
	resultsPerPage, _ := strconv.Atoi(strings.TrimSpace(params.Get("resultsPerPage")))
	startIndex, _ := strconv.Atoi(strings.TrimSpace(params.Get("startIndex")))
	return resultsPerPage, startIndex
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id must be a positive integer")
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
