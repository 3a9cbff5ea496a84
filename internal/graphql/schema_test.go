package graphql

import (
	"context"
	"testing"
	"time"

	"github.com/graphql-go/graphql"
	"go.uber.org/zap"

	"github.com/rpattn/cvetrack/internal/aggregate"
	"github.com/rpattn/cvetrack/internal/domain"
	"github.com/rpattn/cvetrack/internal/repository/repositorytest"
)

func newTestSchema(t *testing.T) graphql.Schema {
	t.Helper()
	stored := int64(5)
	changes := repositorytest.NewFakeChangeRepository(
		domain.ChangeEvent{ID: 1, EventName: "CVE Modified", SourceIdentifier: "cve@mitre.org", Created: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)},
		domain.ChangeEvent{ID: 2, EventName: "CVE Modified", SourceIdentifier: "cve@mitre.org", Created: time.Date(2024, time.February, 2, 0, 0, 0, 0, time.UTC)},
	)
	options := &repositorytest.FakeOptionRepository{Options: []domain.EventOption{
		{ID: 1, EventName: "CVE Modified", EventCount: &stored},
	}}
	stats := &repositorytest.FakeStatsRepository{
		Years:    []domain.YearCount{{EventYear: 2024, Count: 2}},
		Statuses: []domain.AnalysisStatus{{StatusLabel: "Modified", Count: 2}},
	}
	svc := aggregate.NewService(changes, options, stats, aggregate.NewTrendCache(time.Minute), 5, zap.NewNop())
	schema, err := NewSchema(svc)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return schema
}

func execute(t *testing.T, schema graphql.Schema, query string) map[string]interface{} {
	t.Helper()
	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: query,
		Context:       context.Background(),
	})
	if len(result.Errors) > 0 {
		t.Fatalf("query errors: %v", result.Errors)
	}
	data, ok := result.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected data shape: %T", result.Data)
	}
	return data
}

func TestEventCountsQuery(t *testing.T) {
	schema := newTestSchema(t)
	data := execute(t, schema, `{ eventCounts { total_events_counted event_counts { event_name count } } }`)

	counts := data["eventCounts"].(map[string]interface{})
	if counts["total_events_counted"] != 5 {
		t.Fatalf("expected stored counter total 5, got %v", counts["total_events_counted"])
	}
	entries := counts["event_counts"].([]interface{})
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	entry := entries[0].(map[string]interface{})
	if entry["event_name"] != "CVE Modified" || entry["count"] != 5 {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestTopSourcesQuery(t *testing.T) {
	schema := newTestSchema(t)
	data := execute(t, schema, `{ topSources(limit: 1) { source total_count } }`)

	sources := data["topSources"].([]interface{})
	if len(sources) != 1 {
		t.Fatalf("expected one source, got %d", len(sources))
	}
	source := sources[0].(map[string]interface{})
	if source["source"] != "cve@mitre.org" || source["total_count"] != 2 {
		t.Fatalf("unexpected source: %v", source)
	}
}

func TestMonthlyTrendsQuery(t *testing.T) {
	schema := newTestSchema(t)
	data := execute(t, schema, `{ monthlyTrends(year: 2024) { year top_n events { eventName total monthly } } }`)

	trends := data["monthlyTrends"].(map[string]interface{})
	if trends["year"] != 2024 {
		t.Fatalf("expected year 2024, got %v", trends["year"])
	}
	events := trends["events"].([]interface{})
	if len(events) != 1 {
		t.Fatalf("expected one trend, got %d", len(events))
	}
	event := events[0].(map[string]interface{})
	if event["eventName"] != "CVE Modified" || event["total"] != 2 {
		t.Fatalf("unexpected trend: %v", event)
	}
	monthly := event["monthly"].([]interface{})
	if len(monthly) != 12 || monthly[1] != 2 {
		t.Fatalf("unexpected monthly array: %v", monthly)
	}
}

func TestYearCountsAndAnalysisStatusQueries(t *testing.T) {
	schema := newTestSchema(t)
	data := execute(t, schema, `{ yearCounts { event_year count } analysisStatus { total_statuses analysis_status { status_label count } } }`)

	years := data["yearCounts"].([]interface{})
	if len(years) != 1 || years[0].(map[string]interface{})["event_year"] != 2024 {
		t.Fatalf("unexpected year counts: %v", years)
	}
	report := data["analysisStatus"].(map[string]interface{})
	if report["total_statuses"] != 1 {
		t.Fatalf("total_statuses = %v, want 1", report["total_statuses"])
	}
	statuses := report["analysis_status"].([]interface{})
	if len(statuses) != 1 || statuses[0].(map[string]interface{})["status_label"] != "Modified" {
		t.Fatalf("unexpected statuses: %v", statuses)
	}
}
