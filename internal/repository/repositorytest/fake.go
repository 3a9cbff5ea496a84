// Package repositorytest provides in-memory repository implementations
// for service tests. The fakes reproduce the store's query semantics
// (id ordering, case-insensitive substring and prefix matching, calendar
// date bounds) over a plain slice.
package repositorytest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rpattn/cvetrack/internal/domain"
	"github.com/rpattn/cvetrack/internal/repository"
)

// FakeChangeRepository is an in-memory repository.ChangeRepository.
// Setting Err makes every method fail with it; the call counters let
// tests assert that short-circuit paths never touch the store.
type FakeChangeRepository struct {
	mu         sync.Mutex
	changes    []domain.ChangeEvent
	nextID     int64
	Err        error
	ListCalls  int
	CountCalls int
}

// NewFakeChangeRepository seeds a fake store. Records without an ID get
// the next monotonic one.
func NewFakeChangeRepository(seed ...domain.ChangeEvent) *FakeChangeRepository {
	f := &FakeChangeRepository{nextID: 1}
	for _, c := range seed {
		if c.ID == 0 {
			c.ID = f.nextID
		}
		if c.ID >= f.nextID {
			f.nextID = c.ID + 1
		}
		f.changes = append(f.changes, c)
	}
	f.sortLocked()
	return f
}

func (f *FakeChangeRepository) sortLocked() {
	sort.Slice(f.changes, func(i, j int) bool { return f.changes[i].ID < f.changes[j].ID })
}

func matchesFilter(c domain.ChangeEvent, filter domain.ChangeFilter) bool {
	if term := strings.TrimSpace(filter.Search); term != "" {
		t := strings.ToLower(term)
		if !strings.Contains(strings.ToLower(c.CveID), t) &&
			!strings.Contains(strings.ToLower(c.CveChangeID), t) &&
			!strings.Contains(strings.ToLower(c.SourceIdentifier), t) {
			return false
		}
	}
	if len(filter.EventNames) > 0 {
		found := false
		for _, name := range filter.EventNames {
			if c.EventName == name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	day := c.Created.UTC().Truncate(24 * time.Hour)
	if filter.StartDate != nil && day.Before(filter.StartDate.UTC().Truncate(24*time.Hour)) {
		return false
	}
	if filter.EndDate != nil && day.After(filter.EndDate.UTC().Truncate(24*time.Hour)) {
		return false
	}
	return true
}

func (f *FakeChangeRepository) filtered(filter domain.ChangeFilter) []domain.ChangeEvent {
	var out []domain.ChangeEvent
	for _, c := range f.changes {
		if matchesFilter(c, filter) {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeChangeRepository) Create(_ context.Context, change domain.ChangeEvent) (domain.ChangeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return domain.ChangeEvent{}, f.Err
	}
	change.ID = f.nextID
	f.nextID++
	f.changes = append(f.changes, change)
	return change, nil
}

func (f *FakeChangeRepository) GetByID(_ context.Context, id int64) (domain.ChangeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return domain.ChangeEvent{}, f.Err
	}
	for _, c := range f.changes {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.ChangeEvent{}, repository.ErrNotFound
}

func (f *FakeChangeRepository) Update(_ context.Context, change domain.ChangeEvent) (domain.ChangeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return domain.ChangeEvent{}, f.Err
	}
	for i, c := range f.changes {
		if c.ID == change.ID {
			f.changes[i] = change
			return change, nil
		}
	}
	return domain.ChangeEvent{}, repository.ErrNotFound
}

func (f *FakeChangeRepository) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	for i, c := range f.changes {
		if c.ID == id {
			f.changes = append(f.changes[:i], f.changes[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *FakeChangeRepository) List(_ context.Context, filter domain.ChangeFilter, limit, offset int) ([]domain.ChangeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	if f.Err != nil {
		return nil, f.Err
	}
	matched := f.filtered(filter)
	if offset >= len(matched) {
		return []domain.ChangeEvent{}, nil
	}
	end := offset + limit
	if limit < 0 || end > len(matched) {
		end = len(matched)
	}
	return append([]domain.ChangeEvent{}, matched[offset:end]...), nil
}

func (f *FakeChangeRepository) Count(_ context.Context, filter domain.ChangeFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CountCalls++
	if f.Err != nil {
		return 0, f.Err
	}
	return int64(len(f.filtered(filter))), nil
}

func (f *FakeChangeRepository) IterateAll(_ context.Context, filter domain.ChangeFilter, pageSize int, maxRows int64, fn func([]domain.ChangeEvent) error) error {
	f.mu.Lock()
	if f.Err != nil {
		f.mu.Unlock()
		return f.Err
	}
	matched := f.filtered(filter)
	f.mu.Unlock()
	if pageSize <= 0 {
		pageSize = 1000
	}
	if maxRows > 0 && int64(len(matched)) > maxRows {
		matched = matched[:maxRows]
	}
	for start := 0; start < len(matched); start += pageSize {
		end := start + pageSize
		if end > len(matched) {
			end = len(matched)
		}
		if err := fn(matched[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (f *FakeChangeRepository) CountByEventNames(_ context.Context, names []string) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	counts := make(map[string]int64)
	for _, c := range f.changes {
		if wanted[c.EventName] {
			counts[c.EventName]++
		}
	}
	return counts, nil
}

func (f *FakeChangeRepository) TopSources(_ context.Context, limit int) ([]domain.SourceCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	counts := make(map[string]int64)
	for _, c := range f.changes {
		counts[c.SourceIdentifier]++
	}
	sources := make([]domain.SourceCount, 0, len(counts))
	for source, count := range counts {
		sources = append(sources, domain.SourceCount{Source: source, TotalCount: count})
	}
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].TotalCount != sources[j].TotalCount {
			return sources[i].TotalCount > sources[j].TotalCount
		}
		return sources[i].Source < sources[j].Source
	})
	if limit >= 0 && len(sources) > limit {
		sources = sources[:limit]
	}
	return sources, nil
}

func (f *FakeChangeRepository) HasInRange(_ context.Context, from, to time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return false, f.Err
	}
	for _, c := range f.changes {
		if !c.Created.Before(from) && c.Created.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeChangeRepository) TopEventNames(_ context.Context, from, to time.Time, limit int) ([]domain.NameCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	counts := make(map[string]int64)
	for _, c := range f.changes {
		if !c.Created.Before(from) && c.Created.Before(to) {
			counts[c.EventName]++
		}
	}
	ranked := make([]domain.NameCount, 0, len(counts))
	for name, count := range counts {
		ranked = append(ranked, domain.NameCount{EventName: name, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].EventName < ranked[j].EventName
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (f *FakeChangeRepository) MonthlyCounts(_ context.Context, from, to time.Time, names []string) (map[string]map[int]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	result := make(map[string]map[int]int)
	for _, c := range f.changes {
		if !wanted[c.EventName] || c.Created.Before(from) || !c.Created.Before(to) {
			continue
		}
		month := int(c.Created.UTC().Month())
		if result[c.EventName] == nil {
			result[c.EventName] = make(map[int]int)
		}
		result[c.EventName][month]++
	}
	return result, nil
}

func (f *FakeChangeRepository) DistinctYears(_ context.Context) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	seen := make(map[int]bool)
	for _, c := range f.changes {
		seen[c.Created.UTC().Year()] = true
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years, nil
}

func (f *FakeChangeRepository) SuggestByPrefix(_ context.Context, field domain.SuggestField, prefix string, excludeIDs []int64, limit int) ([]domain.ChangeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	excluded := make(map[int64]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	p := strings.ToLower(prefix)
	var out []domain.ChangeEvent
	for _, c := range f.changes {
		if excluded[c.ID] {
			continue
		}
		var value string
		switch field {
		case domain.SuggestFieldCveID:
			value = c.CveID
		case domain.SuggestFieldEvent:
			value = c.EventName
		case domain.SuggestFieldSource:
			value = c.SourceIdentifier
		}
		if strings.HasPrefix(strings.ToLower(value), p) {
			out = append(out, c)
			if limit >= 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// FakeOptionRepository is an in-memory repository.OptionRepository.
type FakeOptionRepository struct {
	Options []domain.EventOption
	Err     error
}

func (f *FakeOptionRepository) List(_ context.Context) ([]domain.EventOption, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return append([]domain.EventOption{}, f.Options...), nil
}

func (f *FakeOptionRepository) Create(_ context.Context, eventName string, eventCount *int64) (domain.EventOption, error) {
	if f.Err != nil {
		return domain.EventOption{}, f.Err
	}
	opt := domain.EventOption{ID: int64(len(f.Options) + 1), EventName: eventName, EventCount: eventCount}
	f.Options = append(f.Options, opt)
	return opt, nil
}

// FakeStatsRepository is an in-memory repository.StatsRepository.
type FakeStatsRepository struct {
	Years    []domain.YearCount
	Statuses []domain.AnalysisStatus
	Err      error
}

func (f *FakeStatsRepository) YearCounts(_ context.Context) ([]domain.YearCount, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return append([]domain.YearCount{}, f.Years...), nil
}

func (f *FakeStatsRepository) AnalysisStatuses(_ context.Context) ([]domain.AnalysisStatus, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return append([]domain.AnalysisStatus{}, f.Statuses...), nil
}
