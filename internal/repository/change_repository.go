package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/cvetrack/internal/domain"
)

const changeColumns = "id, cve_id, event_name, cve_change_id, source_identifier, created, details"

// changeRepository implements ChangeRepository over Postgres.
type changeRepository struct {
	pool *pgxpool.Pool
}

// NewChangeRepository creates a new change-event repository
func NewChangeRepository(pool *pgxpool.Pool) ChangeRepository {
	return &changeRepository{pool: pool}
}

func scanChange(row pgx.Row) (domain.ChangeEvent, error) {
	var c domain.ChangeEvent
	err := row.Scan(&c.ID, &c.CveID, &c.EventName, &c.CveChangeID, &c.SourceIdentifier, &c.Created, &c.Details)
	return c, err
}

func scanChanges(rows pgx.Rows) ([]domain.ChangeEvent, error) {
	defer rows.Close()
	changes := []domain.ChangeEvent{}
	for rows.Next() {
		c, err := scanChange(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan change event: %w", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read change events: %w", err)
	}
	return changes, nil
}

// Create inserts a new change event
func (r *changeRepository) Create(ctx context.Context, change domain.ChangeEvent) (domain.ChangeEvent, error) {
	details := change.Details
	if len(details) == 0 {
		details = []byte("[]")
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO cve_changes (cve_id, event_name, cve_change_id, source_identifier, created, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+changeColumns,
		change.CveID, change.EventName, change.CveChangeID, change.SourceIdentifier, change.Created, details)
	created, err := scanChange(row)
	if err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("failed to create change event: %w", err)
	}
	return created, nil
}

// GetByID retrieves a change event by id
func (r *changeRepository) GetByID(ctx context.Context, id int64) (domain.ChangeEvent, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+changeColumns+` FROM cve_changes WHERE id = $1`, id)
	c, err := scanChange(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ChangeEvent{}, ErrNotFound
	}
	if err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("failed to get change event: %w", err)
	}
	return c, nil
}

// Update overwrites a change event's fields
func (r *changeRepository) Update(ctx context.Context, change domain.ChangeEvent) (domain.ChangeEvent, error) {
	details := change.Details
	if len(details) == 0 {
		details = []byte("[]")
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE cve_changes
		SET cve_id = $2, event_name = $3, cve_change_id = $4, source_identifier = $5, created = $6, details = $7
		WHERE id = $1
		RETURNING `+changeColumns,
		change.ID, change.CveID, change.EventName, change.CveChangeID, change.SourceIdentifier, change.Created, details)
	updated, err := scanChange(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ChangeEvent{}, ErrNotFound
	}
	if err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("failed to update change event: %w", err)
	}
	return updated, nil
}

// Delete removes a change event
func (r *changeRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cve_changes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete change event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the window [offset, offset+limit) of the filtered set in
// id order.
func (r *changeRepository) List(ctx context.Context, filter domain.ChangeFilter, limit, offset int) ([]domain.ChangeEvent, error) {
	b := whereForFilter(filter)
	sql := `SELECT ` + changeColumns + ` FROM cve_changes` + b.clause() +
		` ORDER BY id ASC LIMIT ` + b.arg(limit) + ` OFFSET ` + b.arg(offset)
	rows, err := r.pool.Query(ctx, sql, b.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list change events: %w", err)
	}
	return scanChanges(rows)
}

// Count returns the unsliced matching count for the filter.
func (r *changeRepository) Count(ctx context.Context, filter domain.ChangeFilter) (int64, error) {
	b := whereForFilter(filter)
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cve_changes`+b.clause(), b.args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count change events: %w", err)
	}
	return count, nil
}

// IterateAll streams the filtered set with keyset pagination so the
// export path never materializes the full result in one query.
func (r *changeRepository) IterateAll(ctx context.Context, filter domain.ChangeFilter, pageSize int, maxRows int64, fn func([]domain.ChangeEvent) error) error {
	if pageSize <= 0 {
		pageSize = 1000
	}
	var lastID int64
	var seen int64
	for {
		limit := int64(pageSize)
		if maxRows > 0 && maxRows-seen < limit {
			limit = maxRows - seen
		}
		if limit <= 0 {
			return nil
		}

		b := whereForFilter(filter)
		b.conds = append(b.conds, "id > "+b.arg(lastID))
		sql := `SELECT ` + changeColumns + ` FROM cve_changes` + b.clause() +
			` ORDER BY id ASC LIMIT ` + b.arg(limit)
		rows, err := r.pool.Query(ctx, sql, b.args...)
		if err != nil {
			return fmt.Errorf("failed to iterate change events: %w", err)
		}
		page, err := scanChanges(rows)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		if err := fn(page); err != nil {
			return err
		}
		lastID = page[len(page)-1].ID
		seen += int64(len(page))
		if len(page) < int(limit) {
			return nil
		}
	}
}

// CountByEventNames resolves counts for every requested name in a single
// grouped query.
func (r *changeRepository) CountByEventNames(ctx context.Context, names []string) (map[string]int64, error) {
	counts := make(map[string]int64)
	if len(names) == 0 {
		return counts, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT event_name, COUNT(*)
		FROM cve_changes
		WHERE event_name = ANY($1)
		GROUP BY event_name`, names)
	if err != nil {
		return nil, fmt.Errorf("failed to count by event names: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		counts[name] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event counts: %w", err)
	}
	return counts, nil
}

// TopSources groups by source identifier, descending by count. Ties break
// on the identifier so the ordering is deterministic.
func (r *changeRepository) TopSources(ctx context.Context, limit int) ([]domain.SourceCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT source_identifier, COUNT(*) AS total_count
		FROM cve_changes
		GROUP BY source_identifier
		ORDER BY total_count DESC, source_identifier ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top sources: %w", err)
	}
	defer rows.Close()
	sources := []domain.SourceCount{}
	for rows.Next() {
		var s domain.SourceCount
		if err := rows.Scan(&s.Source, &s.TotalCount); err != nil {
			return nil, fmt.Errorf("failed to scan source count: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read top sources: %w", err)
	}
	return sources, nil
}

// HasInRange reports whether any record was created in [from, to).
func (r *changeRepository) HasInRange(ctx context.Context, from, to time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM cve_changes WHERE created >= $1 AND created < $2)`,
		from, to).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to probe date range: %w", err)
	}
	return exists, nil
}

// TopEventNames ranks event names by count within [from, to).
func (r *changeRepository) TopEventNames(ctx context.Context, from, to time.Time, limit int) ([]domain.NameCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT event_name, COUNT(*) AS total
		FROM cve_changes
		WHERE created >= $1 AND created < $2
		GROUP BY event_name
		ORDER BY total DESC, event_name ASC
		LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank event names: %w", err)
	}
	defer rows.Close()
	ranked := []domain.NameCount{}
	for rows.Next() {
		var nc domain.NameCount
		if err := rows.Scan(&nc.EventName, &nc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan name count: %w", err)
		}
		ranked = append(ranked, nc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ranked names: %w", err)
	}
	return ranked, nil
}

// MonthlyCounts buckets counts per (event name, month) within [from, to),
// restricted to exactly the given name set.
func (r *changeRepository) MonthlyCounts(ctx context.Context, from, to time.Time, names []string) (map[string]map[int]int, error) {
	result := make(map[string]map[int]int)
	if len(names) == 0 {
		return result, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT event_name, EXTRACT(MONTH FROM created)::int AS event_month, COUNT(*)
		FROM cve_changes
		WHERE created >= $1 AND created < $2 AND event_name = ANY($3)
		GROUP BY event_name, event_month`, from, to, names)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var month, count int
		if err := rows.Scan(&name, &month, &count); err != nil {
			return nil, fmt.Errorf("failed to scan monthly count: %w", err)
		}
		if result[name] == nil {
			result[name] = make(map[int]int)
		}
		result[name][month] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read monthly counts: %w", err)
	}
	return result, nil
}

// DistinctYears lists every calendar year present in the store, ascending.
func (r *changeRepository) DistinctYears(ctx context.Context) ([]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT EXTRACT(YEAR FROM created)::int AS event_year
		FROM cve_changes
		ORDER BY event_year ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct years: %w", err)
	}
	defer rows.Close()
	years := []int{}
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("failed to scan year: %w", err)
		}
		years = append(years, y)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read distinct years: %w", err)
	}
	return years, nil
}

var suggestColumns = map[domain.SuggestField]string{
	domain.SuggestFieldCveID:  "cve_id",
	domain.SuggestFieldEvent:  "event_name",
	domain.SuggestFieldSource: "source_identifier",
}

// SuggestByPrefix returns records whose field starts with prefix,
// excluding already-matched ids.
func (r *changeRepository) SuggestByPrefix(ctx context.Context, field domain.SuggestField, prefix string, excludeIDs []int64, limit int) ([]domain.ChangeEvent, error) {
	column, ok := suggestColumns[field]
	if !ok {
		return nil, fmt.Errorf("unknown suggest field %q", field)
	}
	args := []any{escapeLike(prefix) + "%", limit}
	exclude := ""
	if len(excludeIDs) > 0 {
		args = append(args, excludeIDs)
		exclude = " AND NOT (id = ANY($" + strconv.Itoa(len(args)) + "))"
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+changeColumns+`
		FROM cve_changes
		WHERE `+column+` ILIKE $1 ESCAPE '\'`+exclude+`
		ORDER BY id ASC
		LIMIT $2`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	return scanChanges(rows)
}
