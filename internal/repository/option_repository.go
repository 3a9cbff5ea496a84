package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/cvetrack/internal/domain"
)

// optionRepository implements OptionRepository over Postgres.
type optionRepository struct {
	pool *pgxpool.Pool
}

// NewOptionRepository creates a new event-option repository
func NewOptionRepository(pool *pgxpool.Pool) OptionRepository {
	return &optionRepository{pool: pool}
}

// List returns every registered event option.
func (r *optionRepository) List(ctx context.Context) ([]domain.EventOption, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_name, event_count
		FROM cve_options
		ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list event options: %w", err)
	}
	defer rows.Close()
	options := []domain.EventOption{}
	for rows.Next() {
		var opt domain.EventOption
		if err := rows.Scan(&opt.ID, &opt.EventName, &opt.EventCount); err != nil {
			return nil, fmt.Errorf("failed to scan event option: %w", err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event options: %w", err)
	}
	return options, nil
}

// Create registers a new event name. Uniqueness is case-insensitive,
// enforced by the LOWER(event_name) index.
func (r *optionRepository) Create(ctx context.Context, eventName string, eventCount *int64) (domain.EventOption, error) {
	eventName = strings.TrimSpace(eventName)
	if eventName == "" {
		return domain.EventOption{}, fmt.Errorf("event name is required")
	}
	var opt domain.EventOption
	err := r.pool.QueryRow(ctx, `
		INSERT INTO cve_options (event_name, event_count)
		VALUES ($1, $2)
		RETURNING id, event_name, event_count`,
		eventName, eventCount).Scan(&opt.ID, &opt.EventName, &opt.EventCount)
	if err != nil {
		return domain.EventOption{}, fmt.Errorf("failed to create event option: %w", err)
	}
	return opt, nil
}
