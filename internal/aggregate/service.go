// Package aggregate computes the grouped counts and trend matrices
// served by the stats endpoints. It only reads from the store.
package aggregate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rpattn/cvetrack/internal/domain"
	"github.com/rpattn/cvetrack/internal/repository"
)

const (
	defaultTopN         = 5
	defaultSourcesLimit = 10
	monthsPerYear       = 12
)

type Service struct {
	changes repository.ChangeRepository
	options repository.OptionRepository
	stats   repository.StatsRepository
	cache   *TrendCache
	topN    int
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(changes repository.ChangeRepository, options repository.OptionRepository, stats repository.StatsRepository, cache *TrendCache, topN int, logger *zap.Logger) *Service {
	if topN <= 0 {
		topN = defaultTopN
	}
	if cache == nil {
		cache = NewTrendCache(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		changes: changes,
		options: options,
		stats:   stats,
		cache:   cache,
		topN:    topN,
		logger:  logger,
		now:     time.Now,
	}
}

type EventCountsResult struct {
	Timestamp          string           `json:"timestamp"`
	TotalEventsCounted int64            `json:"total_events_counted"`
	EventCounts        map[string]int64 `json:"event_counts"`
}

type TopSourcesResult struct {
	Timestamp  string               `json:"timestamp"`
	Limit      int                  `json:"limit"`
	TopSources []domain.SourceCount `json:"top_sources"`
}

type YearCountsResult struct {
	YearCounts []domain.YearCount `json:"year_counts"`
}

type AnalysisStatusResult struct {
	Timestamp      string                  `json:"timestamp"`
	TotalStatuses  int                     `json:"total_statuses"`
	AnalysisStatus []domain.AnalysisStatus `json:"analysis_status"`
}

// TrendsPayload is the cacheable part of the monthly trends response.
// The serve-time timestamp lives on TrendsResult so cached payloads stay
// comparable across requests.
type TrendsPayload struct {
	Year           int                 `json:"year"`
	AvailableYears []int               `json:"available_years"`
	TopN           int                 `json:"top_n"`
	Events         []domain.EventTrend `json:"events"`
}

type TrendsResult struct {
	Timestamp string `json:"timestamp"`
	TrendsPayload
}

// EventCounts resolves a count for every registered event option,
// preferring stored counters and batch-computing the rest from the
// change log in a single grouped query. No registered options means an
// empty mapping, never a full log scan.
func (s *Service) EventCounts(ctx context.Context) (EventCountsResult, error) {
	options, err := s.options.List(ctx)
	if err != nil {
		return EventCountsResult{}, err
	}
	if len(options) == 0 {
		return EventCountsResult{
			Timestamp:   s.timestamp(),
			EventCounts: map[string]int64{},
		}, nil
	}

	computed := map[string]int64{}
	if missing := MissingCounters(options); len(missing) > 0 {
		computed, err = s.changes.CountByEventNames(ctx, missing)
		if err != nil {
			return EventCountsResult{}, err
		}
	}

	counts := ResolveCounts(options, computed)
	var total int64
	for _, count := range counts {
		total += count
	}
	return EventCountsResult{
		Timestamp:          s.timestamp(),
		TotalEventsCounted: total,
		EventCounts:        counts,
	}, nil
}

// TopSources returns the most frequent source identifiers. A
// non-positive limit falls back to the default rather than erroring.
func (s *Service) TopSources(ctx context.Context, limit int) (TopSourcesResult, error) {
	if limit <= 0 {
		limit = defaultSourcesLimit
	}
	sources, err := s.changes.TopSources(ctx, limit)
	if err != nil {
		return TopSourcesResult{}, err
	}
	if sources == nil {
		sources = []domain.SourceCount{}
	}
	return TopSourcesResult{
		Timestamp:  s.timestamp(),
		Limit:      limit,
		TopSources: sources,
	}, nil
}

// EventOptions lists the registered event vocabulary.
func (s *Service) EventOptions(ctx context.Context) ([]domain.EventOption, error) {
	options, err := s.options.List(ctx)
	if err != nil {
		return nil, err
	}
	if options == nil {
		options = []domain.EventOption{}
	}
	return options, nil
}

// RegisterEventOption adds an event name to the vocabulary. Name
// uniqueness is case-insensitive and enforced by the store.
func (s *Service) RegisterEventOption(ctx context.Context, eventName string, eventCount *int64) (domain.EventOption, error) {
	return s.options.Create(ctx, eventName, eventCount)
}

func (s *Service) YearCounts(ctx context.Context) (YearCountsResult, error) {
	years, err := s.stats.YearCounts(ctx)
	if err != nil {
		return YearCountsResult{}, err
	}
	if years == nil {
		years = []domain.YearCount{}
	}
	return YearCountsResult{YearCounts: years}, nil
}

func (s *Service) AnalysisStatus(ctx context.Context) (AnalysisStatusResult, error) {
	statuses, err := s.stats.AnalysisStatuses(ctx)
	if err != nil {
		return AnalysisStatusResult{}, err
	}
	if statuses == nil {
		statuses = []domain.AnalysisStatus{}
	}
	return AnalysisStatusResult{
		Timestamp:      s.timestamp(),
		TotalStatuses:  len(statuses),
		AnalysisStatus: statuses,
	}, nil
}

// MonthlyTrends reports per-month counts for the most frequent event
// names within the target year. A non-positive year defaults to the
// current one. Payloads are cached per (year, topN); the timestamp is
// regenerated on every serve, cached or not.
func (s *Service) MonthlyTrends(ctx context.Context, year int) (TrendsResult, error) {
	if year <= 0 {
		year = s.now().UTC().Year()
	}
	if payload, ok := s.cache.Get(year, s.topN); ok {
		return s.serve(payload), nil
	}

	payload, err := s.computeTrends(ctx, year)
	if err != nil {
		return TrendsResult{}, err
	}
	s.cache.Set(payload)
	return s.serve(payload), nil
}

func (s *Service) computeTrends(ctx context.Context, year int) (TrendsPayload, error) {
	// Half-open range on created, so the created index serves the scan.
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	payload := TrendsPayload{
		Year:           year,
		AvailableYears: []int{},
		TopN:           s.topN,
		Events:         []domain.EventTrend{},
	}

	has, err := s.changes.HasInRange(ctx, from, to)
	if err != nil {
		return TrendsPayload{}, err
	}
	if !has {
		return payload, nil
	}

	ranked, err := s.changes.TopEventNames(ctx, from, to, s.topN)
	if err != nil {
		return TrendsPayload{}, err
	}
	names := make([]string, 0, len(ranked))
	for _, entry := range ranked {
		names = append(names, entry.EventName)
	}

	monthly, err := s.changes.MonthlyCounts(ctx, from, to, names)
	if err != nil {
		return TrendsPayload{}, err
	}

	// Emit in ranking order, not map order.
	for _, name := range names {
		trend := domain.EventTrend{EventName: name, Monthly: make([]int, monthsPerYear)}
		for month, count := range monthly[name] {
			if month < 1 || month > monthsPerYear {
				continue
			}
			trend.Monthly[month-1] = count
			trend.Total += count
		}
		payload.Events = append(payload.Events, trend)
	}

	years, err := s.changes.DistinctYears(ctx)
	if err != nil {
		return TrendsPayload{}, err
	}
	if years != nil {
		payload.AvailableYears = years
	}
	return payload, nil
}

func (s *Service) serve(payload TrendsPayload) TrendsResult {
	return TrendsResult{Timestamp: s.timestamp(), TrendsPayload: payload}
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}
