// Package suggest builds typeahead suggestions for the change-event
// search box. Matching runs in tiers so specific identifier hits outrank
// event-name and source hits.
package suggest

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rpattn/cvetrack/internal/domain"
	"github.com/rpattn/cvetrack/internal/repository"
)

const defaultLimit = 10

// minTermLength is exclusive: queries of this length or shorter return
// nothing, keeping the prefix scans off very short terms.
const minTermLength = 3

type Service struct {
	changes repository.ChangeRepository
	limit   int
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(changes repository.ChangeRepository, limit int, logger *zap.Logger) *Service {
	if limit <= 0 {
		limit = defaultLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{changes: changes, limit: limit, logger: logger, now: time.Now}
}

// Result is the suggestion response envelope.
type Result struct {
	Data      []domain.Suggestion `json:"data"`
	Total     int                 `json:"total"`
	Timestamp string              `json:"timestamp"`
}

// Suggest matches the term as a case-insensitive prefix against cve ids,
// then event names, then source identifiers. Each tier only fills the
// quota the earlier tiers left open, and rows matched by an earlier tier
// are excluded from later ones by id. Merged results are deduplicated by
// display text.
func (s *Service) Suggest(ctx context.Context, q string) (Result, error) {
	term := strings.TrimSpace(q)
	if len(term) <= minTermLength {
		s.logger.Debug("suggestion term below minimum length, skipping lookup",
			zap.String("term", term))
		return s.result(nil), nil
	}

	tiers := []domain.SuggestField{
		domain.SuggestFieldCveID,
		domain.SuggestFieldEvent,
		domain.SuggestFieldSource,
	}

	var suggestions []domain.Suggestion
	var matchedIDs []int64
	seenText := make(map[string]bool)
	for _, field := range tiers {
		remaining := s.limit - len(suggestions)
		if remaining <= 0 {
			break
		}
		rows, err := s.changes.SuggestByPrefix(ctx, field, term, matchedIDs, remaining)
		if err != nil {
			return Result{}, err
		}
		for _, row := range rows {
			matchedIDs = append(matchedIDs, row.ID)
			suggestion := buildSuggestion(row, field)
			if seenText[suggestion.Text] {
				continue
			}
			seenText[suggestion.Text] = true
			suggestions = append(suggestions, suggestion)
		}
	}
	return s.result(suggestions), nil
}

func (s *Service) result(suggestions []domain.Suggestion) Result {
	if suggestions == nil {
		suggestions = []domain.Suggestion{}
	}
	return Result{
		Data:      suggestions,
		Total:     len(suggestions),
		Timestamp: s.now().UTC().Format(time.RFC3339),
	}
}

// buildSuggestion picks the display text by field preference, not by the
// tier that matched: cve id, else event name, else source identifier.
// The subtitle pairs the text with the next most useful field.
func buildSuggestion(row domain.ChangeEvent, field domain.SuggestField) domain.Suggestion {
	text := row.CveID
	subtitle := row.EventName
	if text == "" {
		text = row.EventName
		subtitle = row.SourceIdentifier
	}
	if text == "" {
		text = row.SourceIdentifier
		subtitle = row.SourceIdentifier
	}
	return domain.Suggestion{
		ID:       row.ID,
		Text:     text,
		Subtitle: subtitle,
		Field:    field,
	}
}
