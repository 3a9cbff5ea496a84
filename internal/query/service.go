package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rpattn/cvetrack/internal/domain"
	"github.com/rpattn/cvetrack/internal/repository"
)

// Service turns ad-hoc list/search/filter requests into bounded,
// deterministic pages. It holds no per-request state; the page cap is
// injected at construction.
type Service struct {
	changes repository.ChangeRepository
	maxPage int
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a query service. maxPage is the system-wide result
// cap applied to every page window.
func NewService(changes repository.ChangeRepository, maxPage int, logger *zap.Logger) *Service {
	if maxPage <= 0 {
		maxPage = 5000
	}
	return &Service{
		changes: changes,
		maxPage: maxPage,
		logger:  logger,
		now:     time.Now,
	}
}

// ListResult is the response of the unpaginated preview listing.
type ListResult struct {
	Count int                  `json:"count"`
	Data  []domain.ChangeEvent `json:"data"`
}

// PagedResult is the response shape shared by the paginated, search and
// filter operations.
type PagedResult struct {
	ResultsPerPage int                  `json:"resultsPerPage"`
	StartIndex     int                  `json:"startIndex"`
	TotalResults   int64                `json:"totalResults"`
	Timestamp      string               `json:"timestamp"`
	Warnings       []string             `json:"warnings,omitempty"`
	Data           []domain.ChangeEvent `json:"data"`
}

// FilterParams carries the raw filter inputs before normalization.
// Events and EventsJoined are the repeated and comma-joined wire forms;
// the date strings are parsed fail-soft.
type FilterParams struct {
	Events       []string
	EventsJoined string
	StartDate    string
	EndDate      string
}

// List returns the first maxPage records in id order. A deliberately
// simple preview operation: no pagination cursor, no total count.
func (s *Service) List(ctx context.Context) (ListResult, error) {
	data, err := s.changes.List(ctx, domain.ChangeFilter{}, s.maxPage, 0)
	if err != nil {
		return ListResult{}, fmt.Errorf("list change events: %w", err)
	}
	return ListResult{Count: len(data), Data: data}, nil
}

// Detail returns a single record by id; repository.ErrNotFound marks a
// missing id.
func (s *Service) Detail(ctx context.Context, id int64) (domain.ChangeEvent, error) {
	return s.changes.GetByID(ctx, id)
}

// Paginated returns the window [startIndex, startIndex+resultsPerPage)
// of all records with the full matching count.
func (s *Service) Paginated(ctx context.Context, resultsPerPage, startIndex int) (PagedResult, error) {
	return s.paged(ctx, domain.ChangeFilter{}, resultsPerPage, startIndex, nil)
}

// Search returns records whose CVE id, change id or source identifier
// contains q (case-insensitive). An empty or whitespace-only query
// short-circuits to an empty result without touching the store.
func (s *Service) Search(ctx context.Context, q string, resultsPerPage, startIndex int) (PagedResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return PagedResult{
			ResultsPerPage: s.maxPage,
			StartIndex:     0,
			TotalResults:   0,
			Timestamp:      s.timestamp(),
			Data:           []domain.ChangeEvent{},
		}, nil
	}
	return s.paged(ctx, domain.ChangeFilter{Search: q}, resultsPerPage, startIndex, nil)
}

// Filter returns records matching the event-name set and creation date
// range. Malformed dates drop that predicate (fail-soft): the request
// proceeds and the dropped parameter is reported in Warnings.
func (s *Service) Filter(ctx context.Context, params FilterParams, resultsPerPage, startIndex int) (PagedResult, error) {
	filter, warnings := s.buildFilter(params)
	return s.paged(ctx, filter, resultsPerPage, startIndex, warnings)
}

// BuildExportFilter resolves filter params for the export path, which
// shares the predicate logic but not the page cap.
func (s *Service) BuildExportFilter(params FilterParams) (domain.ChangeFilter, []string) {
	return s.buildFilter(params)
}

func (s *Service) buildFilter(params FilterParams) (domain.ChangeFilter, []string) {
	filter := domain.ChangeFilter{
		EventNames: domain.NormalizeEventNames(params.Events, params.EventsJoined),
	}
	var warnings []string
	start, err := domain.ParseFilterDate(params.StartDate)
	if err != nil {
		s.logger.Warn("dropping malformed startDate filter",
			zap.String("startDate", params.StartDate), zap.Error(err))
		warnings = append(warnings, fmt.Sprintf("startDate %q is not a valid YYYY-MM-DD date; filter ignored", params.StartDate))
	} else {
		filter.StartDate = start
	}
	end, err := domain.ParseFilterDate(params.EndDate)
	if err != nil {
		s.logger.Warn("dropping malformed endDate filter",
			zap.String("endDate", params.EndDate), zap.Error(err))
		warnings = append(warnings, fmt.Sprintf("endDate %q is not a valid YYYY-MM-DD date; filter ignored", params.EndDate))
	} else {
		filter.EndDate = end
	}
	return filter, warnings
}

func (s *Service) paged(ctx context.Context, filter domain.ChangeFilter, resultsPerPage, startIndex int, warnings []string) (PagedResult, error) {
	page := domain.ClampPage(resultsPerPage, startIndex, s.maxPage)

	total, err := s.changes.Count(ctx, filter)
	if err != nil {
		return PagedResult{}, fmt.Errorf("count change events: %w", err)
	}
	data, err := s.changes.List(ctx, filter, page.ResultsPerPage, page.StartIndex)
	if err != nil {
		return PagedResult{}, fmt.Errorf("list change events: %w", err)
	}

	return PagedResult{
		ResultsPerPage: page.ResultsPerPage,
		StartIndex:     page.StartIndex,
		TotalResults:   total,
		Timestamp:      s.timestamp(),
		Warnings:       warnings,
		Data:           data,
	}, nil
}

// Create inserts a record. Pass-through for the external ingestion
// process; not part of the query core.
func (s *Service) Create(ctx context.Context, change domain.ChangeEvent) (domain.ChangeEvent, error) {
	return s.changes.Create(ctx, change)
}

// Update overwrites a record by id.
func (s *Service) Update(ctx context.Context, change domain.ChangeEvent) (domain.ChangeEvent, error) {
	return s.changes.Update(ctx, change)
}

// Delete removes a record by id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.changes.Delete(ctx, id)
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}
