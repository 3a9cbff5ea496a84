package aggregate

import "github.com/rpattn/cvetrack/internal/domain"

// ResolveCounts merges registered event options with counts computed
// from the raw change log. A non-null stored counter is authoritative
// and wins over the computed value; names with neither resolve to 0.
// Divergence between a stale stored counter and the log is tolerated,
// not reconciled here.
func ResolveCounts(options []domain.EventOption, computed map[string]int64) map[string]int64 {
	counts := make(map[string]int64, len(options))
	for _, opt := range options {
		if opt.EventCount != nil {
			counts[opt.EventName] = *opt.EventCount
			continue
		}
		counts[opt.EventName] = computed[opt.EventName]
	}
	return counts
}

// MissingCounters returns the option names whose stored counter is
// null, i.e. the names that need a computed count.
func MissingCounters(options []domain.EventOption) []string {
	var names []string
	for _, opt := range options {
		if opt.EventCount == nil {
			names = append(names, opt.EventName)
		}
	}
	return names
}
