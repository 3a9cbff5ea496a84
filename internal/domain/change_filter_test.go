package domain

import (
	"testing"
	"time"
)

func TestNormalizeEventNames_RepeatedAndCommaFormsAgree(t *testing.T) {
	repeated := NormalizeEventNames([]string{"CVE Modified", "Reanalysis"}, "")
	joined := NormalizeEventNames(nil, "CVE Modified,Reanalysis")

	if len(repeated) != len(joined) {
		t.Fatalf("forms disagree: %v vs %v", repeated, joined)
	}
	for i := range repeated {
		if repeated[i] != joined[i] {
			t.Fatalf("forms disagree at %d: %q vs %q", i, repeated[i], joined[i])
		}
	}
}

func TestNormalizeEventNames_TrimsAndDropsEmptyTokens(t *testing.T) {
	names := NormalizeEventNames(nil, " CVE Received , ,Initial Analysis,")
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %v", names)
	}
	if names[0] != "CVE Received" || names[1] != "Initial Analysis" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestNormalizeEventNames_RepeatedTakesPrecedence(t *testing.T) {
	names := NormalizeEventNames([]string{"A"}, "B,C")
	if len(names) != 1 || names[0] != "A" {
		t.Fatalf("repeated params should win, got %v", names)
	}
}

func TestParseFilterDate(t *testing.T) {
	d, err := ParseFilterDate("2024-03-09")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d == nil || !d.Equal(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date: %v", d)
	}

	if d, err := ParseFilterDate("  "); err != nil || d != nil {
		t.Fatalf("blank value should be (nil, nil), got (%v, %v)", d, err)
	}

	if _, err := ParseFilterDate("09/03/2024"); err == nil {
		t.Fatalf("expected error for malformed date")
	}
}

func TestChangeFilterIsZero(t *testing.T) {
	if !(ChangeFilter{}).IsZero() {
		t.Fatalf("empty filter should be zero")
	}
	if (ChangeFilter{Search: "log4j"}).IsZero() {
		t.Fatalf("search filter should not be zero")
	}
	now := time.Now()
	if (ChangeFilter{EndDate: &now}).IsZero() {
		t.Fatalf("date filter should not be zero")
	}
}
