package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rpattn/cvetrack/internal/domain"
)

// ErrNotFound is returned when a lookup by id matches no row. Handlers map
// it to a 404; every other error is treated as a store failure.
var ErrNotFound = errors.New("record not found")

// ChangeRepository defines the queryable surface of the cve_changes table.
// All listing queries order by id ascending.
type ChangeRepository interface {
	Create(ctx context.Context, change domain.ChangeEvent) (domain.ChangeEvent, error)
	GetByID(ctx context.Context, id int64) (domain.ChangeEvent, error)
	Update(ctx context.Context, change domain.ChangeEvent) (domain.ChangeEvent, error)
	Delete(ctx context.Context, id int64) error

	// List returns the window [offset, offset+limit) of the filtered set.
	List(ctx context.Context, filter domain.ChangeFilter, limit, offset int) ([]domain.ChangeEvent, error)
	// Count returns the full matching count for the same filter.
	Count(ctx context.Context, filter domain.ChangeFilter) (int64, error)
	// IterateAll streams the full filtered set in id order, pageSize rows
	// at a time, until fn returns an error or rows run out. maxRows of 0
	// means unbounded.
	IterateAll(ctx context.Context, filter domain.ChangeFilter, pageSize int, maxRows int64, fn func([]domain.ChangeEvent) error) error

	// CountByEventNames computes occurrence counts for the given names in
	// one grouped query. Names with no rows are absent from the result.
	CountByEventNames(ctx context.Context, names []string) (map[string]int64, error)
	// TopSources groups by source identifier, descending by count.
	TopSources(ctx context.Context, limit int) ([]domain.SourceCount, error)

	// HasInRange reports whether any record was created in [from, to).
	HasInRange(ctx context.Context, from, to time.Time) (bool, error)
	// TopEventNames ranks event names by count within [from, to).
	TopEventNames(ctx context.Context, from, to time.Time, limit int) ([]domain.NameCount, error)
	// MonthlyCounts returns per-name month buckets (1..12) within [from, to),
	// restricted to exactly the given names.
	MonthlyCounts(ctx context.Context, from, to time.Time, names []string) (map[string]map[int]int, error)
	// DistinctYears lists every calendar year present in the store, ascending.
	DistinctYears(ctx context.Context) ([]int, error)

	// SuggestByPrefix returns records whose field starts with prefix
	// (case-insensitive), excluding the given ids, in id order.
	SuggestByPrefix(ctx context.Context, field domain.SuggestField, prefix string, excludeIDs []int64, limit int) ([]domain.ChangeEvent, error)
}

// OptionRepository defines operations over the registered event vocabulary.
type OptionRepository interface {
	List(ctx context.Context) ([]domain.EventOption, error)
	Create(ctx context.Context, eventName string, eventCount *int64) (domain.EventOption, error)
}

// StatsRepository exposes the precomputed aggregate views verbatim.
type StatsRepository interface {
	// YearCounts returns all rows ordered by year ascending.
	YearCounts(ctx context.Context) ([]domain.YearCount, error)
	// AnalysisStatuses returns all rows ordered by count descending.
	AnalysisStatuses(ctx context.Context) ([]domain.AnalysisStatus, error)
}
