package repository

import (
	"strconv"
	"strings"

	"github.com/rpattn/cvetrack/internal/domain"
)

// whereBuilder accumulates AND-ed SQL conditions with positional
// arguments. It exists so Search, Filter and Export all build their WHERE
// clause through the same three predicate constructors instead of
// hand-assembling query strings per endpoint.
type whereBuilder struct {
	conds []string
	args  []any
}

// arg registers a query argument and returns its positional placeholder.
func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// substringAny adds a case-insensitive substring match OR-ed across the
// given columns.
func (b *whereBuilder) substringAny(columns []string, term string) {
	pattern := "%" + escapeLike(term) + "%"
	placeholder := b.arg(pattern)
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = col + " ILIKE " + placeholder + " ESCAPE '\\'"
	}
	b.conds = append(b.conds, "("+strings.Join(parts, " OR ")+")")
}

// inSet adds a set-membership predicate.
func (b *whereBuilder) inSet(column string, values []string) {
	b.conds = append(b.conds, column+" = ANY("+b.arg(values)+")")
}

// dateBound adds an inclusive calendar-date bound on a timestamp column.
// op must be ">=" or "<=".
func (b *whereBuilder) dateBound(column, op string, value any) {
	b.conds = append(b.conds, column+"::date "+op+" "+b.arg(value))
}

// clause renders the accumulated conditions as a WHERE clause, or ""
// when no condition was added.
func (b *whereBuilder) clause() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

// whereForFilter translates a domain filter into SQL conditions. The
// caller appends ordering and pagination.
func whereForFilter(filter domain.ChangeFilter) *whereBuilder {
	b := &whereBuilder{}
	if term := strings.TrimSpace(filter.Search); term != "" {
		b.substringAny([]string{"cve_id", "cve_change_id", "source_identifier"}, term)
	}
	if len(filter.EventNames) > 0 {
		b.inSet("event_name", filter.EventNames)
	}
	if filter.StartDate != nil {
		b.dateBound("created", ">=", *filter.StartDate)
	}
	if filter.EndDate != nil {
		b.dateBound("created", "<=", *filter.EndDate)
	}
	return b
}

// escapeLike neutralises LIKE wildcards in user input so a search for
// "100%" does not match everything.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
