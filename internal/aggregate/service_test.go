package aggregate

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rpattn/cvetrack/internal/domain"
	"github.com/rpattn/cvetrack/internal/repository/repositorytest"
)

func int64Ptr(v int64) *int64 { return &v }

func newTestService(changes *repositorytest.FakeChangeRepository, options *repositorytest.FakeOptionRepository, stats *repositorytest.FakeStatsRepository, topN int) *Service {
	if changes == nil {
		changes = repositorytest.NewFakeChangeRepository()
	}
	if options == nil {
		options = &repositorytest.FakeOptionRepository{}
	}
	if stats == nil {
		stats = &repositorytest.FakeStatsRepository{}
	}
	return NewService(changes, options, stats, NewTrendCache(time.Minute), topN, zap.NewNop())
}

func TestEventCountsNoOptionsIsEmpty(t *testing.T) {
	changes := repositorytest.NewFakeChangeRepository(
		domain.ChangeEvent{ID: 1, EventName: "CVE Modified", Created: time.Now()},
	)
	svc := newTestService(changes, &repositorytest.FakeOptionRepository{}, nil, 5)

	result, err := svc.EventCounts(context.Background())
	if err != nil {
		t.Fatalf("EventCounts: %v", err)
	}
	if result.TotalEventsCounted != 0 {
		t.Fatalf("expected zero total, got %d", result.TotalEventsCounted)
	}
	if len(result.EventCounts) != 0 {
		t.Fatalf("expected empty mapping, got %v", result.EventCounts)
	}
}

func TestEventCountsStoredCounterIsAuthoritative(t *testing.T) {
	changes := repositorytest.NewFakeChangeRepository(
		domain.ChangeEvent{ID: 1, EventName: "CVE Received", Created: time.Now()},
		domain.ChangeEvent{ID: 2, EventName: "CVE Received", Created: time.Now()},
	)
	options := &repositorytest.FakeOptionRepository{Options: []domain.EventOption{
		{ID: 1, EventName: "CVE Received", EventCount: int64Ptr(42)},
	}}
	svc := newTestService(changes, options, nil, 5)

	result, err := svc.EventCounts(context.Background())
	if err != nil {
		t.Fatalf("EventCounts: %v", err)
	}
	if result.EventCounts["CVE Received"] != 42 {
		t.Fatalf("stored counter must win, got %d", result.EventCounts["CVE Received"])
	}
	if result.TotalEventsCounted != 42 {
		t.Fatalf("expected total 42, got %d", result.TotalEventsCounted)
	}
}

func TestEventCountsComputesMissingCounters(t *testing.T) {
	changes := repositorytest.NewFakeChangeRepository(
		domain.ChangeEvent{ID: 1, EventName: "CVE Received", Created: time.Now()},
		domain.ChangeEvent{ID: 2, EventName: "CVE Received", Created: time.Now()},
		domain.ChangeEvent{ID: 3, EventName: "Initial Analysis", Created: time.Now()},
	)
	options := &repositorytest.FakeOptionRepository{Options: []domain.EventOption{
		{ID: 1, EventName: "CVE Received"},
		{ID: 2, EventName: "Initial Analysis"},
		{ID: 3, EventName: "CVE Rejected"},
	}}
	svc := newTestService(changes, options, nil, 5)

	result, err := svc.EventCounts(context.Background())
	if err != nil {
		t.Fatalf("EventCounts: %v", err)
	}
	want := map[string]int64{"CVE Received": 2, "Initial Analysis": 1, "CVE Rejected": 0}
	for name, count := range want {
		if result.EventCounts[name] != count {
			t.Fatalf("%s: expected %d, got %d", name, count, result.EventCounts[name])
		}
	}
	if result.TotalEventsCounted != 3 {
		t.Fatalf("expected total 3, got %d", result.TotalEventsCounted)
	}
}

func TestResolveCountsPrefersStored(t *testing.T) {
	options := []domain.EventOption{
		{EventName: "a", EventCount: int64Ptr(7)},
		{EventName: "b"},
		{EventName: "c"},
	}
	counts := ResolveCounts(options, map[string]int64{"a": 100, "b": 3})
	if counts["a"] != 7 || counts["b"] != 3 || counts["c"] != 0 {
		t.Fatalf("unexpected resolution: %v", counts)
	}
}

func TestTopSourcesFallsBackOnBadLimit(t *testing.T) {
	changes := repositorytest.NewFakeChangeRepository(
		domain.ChangeEvent{ID: 1, SourceIdentifier: "a", Created: time.Now()},
		domain.ChangeEvent{ID: 2, SourceIdentifier: "a", Created: time.Now()},
		domain.ChangeEvent{ID: 3, SourceIdentifier: "b", Created: time.Now()},
	)
	svc := newTestService(changes, nil, nil, 5)

	result, err := svc.TopSources(context.Background(), -3)
	if err != nil {
		t.Fatalf("TopSources: %v", err)
	}
	if result.Limit != 10 {
		t.Fatalf("expected default limit 10, got %d", result.Limit)
	}
	if len(result.TopSources) != 2 || result.TopSources[0].Source != "a" || result.TopSources[0].TotalCount != 2 {
		t.Fatalf("unexpected ranking: %+v", result.TopSources)
	}
}

func TestTopSourcesHonorsLimit(t *testing.T) {
	changes := repositorytest.NewFakeChangeRepository(
		domain.ChangeEvent{ID: 1, SourceIdentifier: "a", Created: time.Now()},
		domain.ChangeEvent{ID: 2, SourceIdentifier: "a", Created: time.Now()},
		domain.ChangeEvent{ID: 3, SourceIdentifier: "b", Created: time.Now()},
	)
	svc := newTestService(changes, nil, nil, 5)

	result, err := svc.TopSources(context.Background(), 1)
	if err != nil {
		t.Fatalf("TopSources: %v", err)
	}
	if len(result.TopSources) != 1 || result.TopSources[0].Source != "a" {
		t.Fatalf("expected single top source, got %+v", result.TopSources)
	}
}

func TestMonthlyTrendsEmptyYear(t *testing.T) {
	changes := repositorytest.NewFakeChangeRepository(
		domain.ChangeEvent{ID: 1, EventName: "CVE Modified", Created: time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC)},
	)
	svc := newTestService(changes, nil, nil, 5)

	result, err := svc.MonthlyTrends(context.Background(), 2020)
	if err != nil {
		t.Fatalf("MonthlyTrends: %v", err)
	}
	if result.Year != 2020 || len(result.Events) != 0 {
		t.Fatalf("expected empty payload for 2020, got %+v", result)
	}
	if len(result.AvailableYears) != 0 {
		t.Fatalf("empty year payload must not list years, got %v", result.AvailableYears)
	}
}

func TestMonthlyTrendsRankedMatrix(t *testing.T) {
	seed := []domain.ChangeEvent{}
	id := int64(1)
	add := func(name string, month time.Month, n int) {
		for i := 0; i < n; i++ {
			seed = append(seed, domain.ChangeEvent{
				ID: id, EventName: name, Created: time.Date(2024, month, 10, 0, 0, 0, 0, time.UTC),
			})
			id++
		}
	}
	add("CVE Modified", time.January, 3)
	add("CVE Modified", time.March, 1)
	add("Initial Analysis", time.February, 2)
	add("Reanalysis", time.December, 1)
	seed = append(seed, domain.ChangeEvent{ID: id, EventName: "CVE Modified", Created: time.Date(2022, time.May, 1, 0, 0, 0, 0, time.UTC)})
	changes := repositorytest.NewFakeChangeRepository(seed...)
	svc := newTestService(changes, nil, nil, 2)

	result, err := svc.MonthlyTrends(context.Background(), 2024)
	if err != nil {
		t.Fatalf("MonthlyTrends: %v", err)
	}
	if result.TopN != 2 || len(result.Events) != 2 {
		t.Fatalf("expected 2 ranked events, got %+v", result.Events)
	}
	first := result.Events[0]
	if first.EventName != "CVE Modified" || first.Total != 4 {
		t.Fatalf("expected CVE Modified ranked first with total 4, got %+v", first)
	}
	if first.Monthly[0] != 3 || first.Monthly[2] != 1 {
		t.Fatalf("unexpected monthly breakdown: %v", first.Monthly)
	}
	second := result.Events[1]
	if second.EventName != "Initial Analysis" || second.Monthly[1] != 2 {
		t.Fatalf("expected Initial Analysis second, got %+v", second)
	}
	for _, trend := range result.Events {
		if len(trend.Monthly) != 12 {
			t.Fatalf("monthly array must have 12 entries, got %d", len(trend.Monthly))
		}
	}
	if len(result.AvailableYears) != 2 || result.AvailableYears[0] != 2022 || result.AvailableYears[1] != 2024 {
		t.Fatalf("unexpected available years: %v", result.AvailableYears)
	}
}

func TestMonthlyTrendsServedFromCache(t *testing.T) {
	changes := repositorytest.NewFakeChangeRepository(
		domain.ChangeEvent{ID: 1, EventName: "CVE Modified", Created: time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)},
	)
	svc := newTestService(changes, nil, nil, 5)

	first, err := svc.MonthlyTrends(context.Background(), 2024)
	if err != nil {
		t.Fatalf("MonthlyTrends: %v", err)
	}

	// Mutating the store must not show through while the entry is live.
	if _, err := changes.Create(context.Background(), domain.ChangeEvent{
		EventName: "CVE Modified", Created: time.Date(2024, time.April, 2, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	second, err := svc.MonthlyTrends(context.Background(), 2024)
	if err != nil {
		t.Fatalf("MonthlyTrends: %v", err)
	}
	if second.Events[0].Total != first.Events[0].Total {
		t.Fatalf("expected cached payload, got totals %d then %d", first.Events[0].Total, second.Events[0].Total)
	}
}

func TestYearCountsPassThrough(t *testing.T) {
	stats := &repositorytest.FakeStatsRepository{Years: []domain.YearCount{
		{EventYear: 1999, Count: 12},
		{EventYear: 2024, Count: 3400},
	}}
	svc := newTestService(nil, nil, stats, 5)

	result, err := svc.YearCounts(context.Background())
	if err != nil {
		t.Fatalf("YearCounts: %v", err)
	}
	if len(result.YearCounts) != 2 || result.YearCounts[0].EventYear != 1999 {
		t.Fatalf("unexpected year counts: %+v", result.YearCounts)
	}
}

func TestAnalysisStatusPassThrough(t *testing.T) {
	stats := &repositorytest.FakeStatsRepository{Statuses: []domain.AnalysisStatus{
		{StatusLabel: "Modified", Count: 900},
		{StatusLabel: "Received", Count: 10},
	}}
	svc := newTestService(nil, nil, stats, 5)

	result, err := svc.AnalysisStatus(context.Background())
	if err != nil {
		t.Fatalf("AnalysisStatus: %v", err)
	}
	if len(result.AnalysisStatus) != 2 || result.AnalysisStatus[0].StatusLabel != "Modified" {
		t.Fatalf("unexpected statuses: %+v", result.AnalysisStatus)
	}
	if result.TotalStatuses != 2 {
		t.Fatalf("TotalStatuses = %d, want 2", result.TotalStatuses)
	}
	if result.Timestamp == "" {
		t.Fatal("expected a timestamp")
	}
}
