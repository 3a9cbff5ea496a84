package domain

import (
	"strings"
	"time"
)

// ChangeFilter represents the combinable predicates for listing change
// events. Zero values mean "no constraint"; Search and the event/date
// predicates are never combined by the same endpoint but share one filter
// type so Search, Filter and Export run through a single query builder.
type ChangeFilter struct {
	// Search matches as a case-insensitive substring against cveId OR
	// cveChangeId OR sourceIdentifier.
	Search string
	// EventNames restricts to records whose event name is in the set.
	EventNames []string
	// StartDate / EndDate bound created (by calendar date, inclusive).
	StartDate *time.Time
	EndDate   *time.Time
}

// IsZero reports whether the filter applies no predicate at all.
func (f ChangeFilter) IsZero() bool {
	return strings.TrimSpace(f.Search) == "" &&
		len(f.EventNames) == 0 &&
		f.StartDate == nil &&
		f.EndDate == nil
}

// NormalizeEventNames merges repeated `event` parameters with the legacy
// comma-joined `events` form into one trimmed set. Empty tokens are
// dropped; the comma form is only consulted when no repeated values were
// supplied, matching the precedence clients already rely on.
func NormalizeEventNames(repeated []string, joined string) []string {
	values := repeated
	if len(values) == 0 && strings.TrimSpace(joined) != "" {
		values = strings.Split(joined, ",")
	}
	var names []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			names = append(names, v)
		}
	}
	return names
}

// dateLayout is the wire format for startDate/endDate parameters.
const dateLayout = "2006-01-02"

// ParseFilterDate parses a YYYY-MM-DD date parameter. An empty value is
// not an error; a malformed one is, so the caller can drop the predicate
// (fail-soft) and report it in the response warnings.
func ParseFilterDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
