package suggest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rpattn/cvetrack/internal/domain"
	"github.com/rpattn/cvetrack/internal/repository/repositorytest"
)

func TestSuggestShortTermReturnsEmpty(t *testing.T) {
	repo := repositorytest.NewFakeChangeRepository(
		domain.ChangeEvent{ID: 1, CveID: "CVE-2024-0001", EventName: "CVE Modified", Created: time.Now()},
	)
	svc := NewService(repo, 10, zap.NewNop())

	for _, q := range []string{"", "C", "CVE", "  CVE  "} {
		result, err := svc.Suggest(context.Background(), q)
		if err != nil {
			t.Fatalf("Suggest(%q): %v", q, err)
		}
		if result.Total != 0 || len(result.Data) != 0 {
			t.Fatalf("Suggest(%q): expected empty, got %+v", q, result)
		}
	}
}

func TestSuggestShortTermLogsSkippedLookup(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	repo := repositorytest.NewFakeChangeRepository()
	svc := NewService(repo, 10, zap.New(core))

	if _, err := svc.Suggest(context.Background(), "CV"); err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	entries := logs.FilterMessage("suggestion term below minimum length, skipping lookup").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 skip log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["term"]; got != "CV" {
		t.Fatalf("logged term = %v, want CV", got)
	}
}

func TestSuggestIdentifierTierOutranksNameTier(t *testing.T) {
	repo := repositorytest.NewFakeChangeRepository(
		domain.ChangeEvent{ID: 1, CveID: "other", EventName: "CVE-Rescore", SourceIdentifier: "src-a", Created: time.Now()},
		domain.ChangeEvent{ID: 2, CveID: "CVE-2024-0002", EventName: "New CVE Received", SourceIdentifier: "src-b", Created: time.Now()},
	)
	svc := NewService(repo, 10, zap.NewNop())

	result, err := svc.Suggest(context.Background(), "CVE-")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("expected 2 suggestions, got %d", result.Total)
	}
	// Row 2 matches the identifier tier, row 1 only the name tier.
	if result.Data[0].ID != 2 || result.Data[0].Field != domain.SuggestFieldCveID {
		t.Fatalf("expected identifier match first, got %+v", result.Data[0])
	}
	if result.Data[1].ID != 1 || result.Data[1].Field != domain.SuggestFieldEvent {
		t.Fatalf("expected name match second, got %+v", result.Data[1])
	}
}

func TestSuggestSubtitleRule(t *testing.T) {
	repo := repositorytest.NewFakeChangeRepository(
		domain.ChangeEvent{ID: 1, CveID: "CVE-2024-0001", EventName: "CVE Modified", SourceIdentifier: "cve@mitre.org", Created: time.Now()},
		domain.ChangeEvent{ID: 2, CveID: "", EventName: "Reanalysis", SourceIdentifier: "security@apache.org", Created: time.Now()},
	)
	svc := NewService(repo, 10, zap.NewNop())

	result, err := svc.Suggest(context.Background(), "CVE-2024")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("expected 1 suggestion, got %d", result.Total)
	}
	if result.Data[0].Text != "CVE-2024-0001" || result.Data[0].Subtitle != "CVE Modified" {
		t.Fatalf("identifier text must carry event name subtitle, got %+v", result.Data[0])
	}

	result, err = svc.Suggest(context.Background(), "Reanalysis")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("expected 1 suggestion, got %d", result.Total)
	}
	if result.Data[0].Text != "Reanalysis" || result.Data[0].Subtitle != "security@apache.org" {
		t.Fatalf("name text must carry source subtitle, got %+v", result.Data[0])
	}
}

func TestSuggestDeduplicatesByDisplayText(t *testing.T) {
	// Both rows render the same display text via different tiers.
	repo := repositorytest.NewFakeChangeRepository(
		domain.ChangeEvent{ID: 1, CveID: "CVE-2024-0001", EventName: "CVE Modified", SourceIdentifier: "src-a", Created: time.Now()},
		domain.ChangeEvent{ID: 2, CveID: "CVE-2024-0001", EventName: "CVE-2024-extra", SourceIdentifier: "src-b", Created: time.Now()},
	)
	svc := NewService(repo, 10, zap.NewNop())

	result, err := svc.Suggest(context.Background(), "CVE-2024")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("expected dedupe to 1 suggestion, got %+v", result.Data)
	}
	if result.Data[0].Text != "CVE-2024-0001" {
		t.Fatalf("unexpected surviving text %q", result.Data[0].Text)
	}
}

func TestSuggestQuotaFillsAcrossTiers(t *testing.T) {
	seed := make([]domain.ChangeEvent, 0, 8)
	for i := 1; i <= 4; i++ {
		seed = append(seed, domain.ChangeEvent{
			ID: int64(i), CveID: fmt.Sprintf("CVE-2024-%04d", i), EventName: "CVE Modified", SourceIdentifier: "src", Created: time.Now(),
		})
	}
	for i := 5; i <= 8; i++ {
		seed = append(seed, domain.ChangeEvent{
			ID: int64(i), CveID: fmt.Sprintf("other-%d", i), EventName: fmt.Sprintf("CVE-event-%d", i), SourceIdentifier: "src", Created: time.Now(),
		})
	}
	repo := repositorytest.NewFakeChangeRepository(seed...)
	svc := NewService(repo, 6, zap.NewNop())

	result, err := svc.Suggest(context.Background(), "CVE-")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if result.Total != 6 {
		t.Fatalf("expected quota of 6, got %d", result.Total)
	}
	for i := 0; i < 4; i++ {
		if result.Data[i].Field != domain.SuggestFieldCveID {
			t.Fatalf("position %d: expected identifier tier, got %s", i, result.Data[i].Field)
		}
	}
	for i := 4; i < 6; i++ {
		if result.Data[i].Field != domain.SuggestFieldEvent {
			t.Fatalf("position %d: expected name tier, got %s", i, result.Data[i].Field)
		}
	}
}
