package graphql

import (
	"context"
	"sort"

	"github.com/rpattn/cvetrack/internal/aggregate"
)

// ResolveEventCounts flattens the reconciled count mapping into a list
// sorted by event name so output is deterministic.
func ResolveEventCounts(ctx context.Context, aggregates *aggregate.Service) (interface{}, error) {
	result, err := aggregates.EventCounts(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]map[string]interface{}, 0, len(result.EventCounts))
	for name, count := range result.EventCounts {
		entries = append(entries, map[string]interface{}{
			"event_name": name,
			"count":      int(count),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i]["event_name"].(string) < entries[j]["event_name"].(string)
	})
	return map[string]interface{}{
		"timestamp":            result.Timestamp,
		"total_events_counted": int(result.TotalEventsCounted),
		"event_counts":         entries,
	}, nil
}

// ResolveTopSources fetches the most frequent source identifiers.
func ResolveTopSources(ctx context.Context, aggregates *aggregate.Service, limit int) (interface{}, error) {
	result, err := aggregates.TopSources(ctx, limit)
	if err != nil {
		return nil, err
	}
	sources := make([]map[string]interface{}, 0, len(result.TopSources))
	for _, source := range result.TopSources {
		sources = append(sources, map[string]interface{}{
			"source":      source.Source,
			"total_count": int(source.TotalCount),
		})
	}
	return sources, nil
}

// ResolveYearCounts passes the precomputed per-year totals through.
func ResolveYearCounts(ctx context.Context, aggregates *aggregate.Service) (interface{}, error) {
	result, err := aggregates.YearCounts(ctx)
	if err != nil {
		return nil, err
	}
	years := make([]map[string]interface{}, 0, len(result.YearCounts))
	for _, year := range result.YearCounts {
		years = append(years, map[string]interface{}{
			"event_year": year.EventYear,
			"count":      int(year.Count),
		})
	}
	return years, nil
}

// ResolveAnalysisStatus passes the status buckets through.
func ResolveAnalysisStatus(ctx context.Context, aggregates *aggregate.Service) (interface{}, error) {
	result, err := aggregates.AnalysisStatus(ctx)
	if err != nil {
		return nil, err
	}
	statuses := make([]map[string]interface{}, 0, len(result.AnalysisStatus))
	for _, status := range result.AnalysisStatus {
		statuses = append(statuses, map[string]interface{}{
			"status_label": status.StatusLabel,
			"count":        int(status.Count),
		})
	}
	return map[string]interface{}{
		"timestamp":       result.Timestamp,
		"total_statuses":  result.TotalStatuses,
		"analysis_status": statuses,
	}, nil
}

// ResolveMonthlyTrends serves the cached trend payload for a year.
func ResolveMonthlyTrends(ctx context.Context, aggregates *aggregate.Service, year int) (interface{}, error) {
	result, err := aggregates.MonthlyTrends(ctx, year)
	if err != nil {
		return nil, err
	}
	events := make([]map[string]interface{}, 0, len(result.Events))
	for _, trend := range result.Events {
		events = append(events, map[string]interface{}{
			"eventName": trend.EventName,
			"monthly":   trend.Monthly,
			"total":     trend.Total,
		})
	}
	return map[string]interface{}{
		"timestamp":       result.Timestamp,
		"year":            result.Year,
		"available_years": result.AvailableYears,
		"top_n":           result.TopN,
		"events":          events,
	}, nil
}
