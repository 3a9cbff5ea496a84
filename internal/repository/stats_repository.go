package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/cvetrack/internal/domain"
)

// statsRepository reads the precomputed aggregate views. Both tables are
// maintained by the ingestion side; this layer never writes them.
type statsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &statsRepository{pool: pool}
}

// YearCounts returns all cve_year_counts rows, year ascending.
func (r *statsRepository) YearCounts(ctx context.Context) ([]domain.YearCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT event_year, count
		FROM cve_year_counts
		ORDER BY event_year ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query year counts: %w", err)
	}
	defer rows.Close()
	counts := []domain.YearCount{}
	for rows.Next() {
		var yc domain.YearCount
		if err := rows.Scan(&yc.EventYear, &yc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan year count: %w", err)
		}
		counts = append(counts, yc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read year counts: %w", err)
	}
	return counts, nil
}

// AnalysisStatuses returns all cve_analysis_status rows, count descending.
func (r *statsRepository) AnalysisStatuses(ctx context.Context) ([]domain.AnalysisStatus, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status_label, count
		FROM cve_analysis_status
		ORDER BY count DESC, status_label ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis statuses: %w", err)
	}
	defer rows.Close()
	statuses := []domain.AnalysisStatus{}
	for rows.Next() {
		var st domain.AnalysisStatus
		if err := rows.Scan(&st.StatusLabel, &st.Count); err != nil {
			return nil, fmt.Errorf("failed to scan analysis status: %w", err)
		}
		statuses = append(statuses, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read analysis statuses: %w", err)
	}
	return statuses, nil
}
