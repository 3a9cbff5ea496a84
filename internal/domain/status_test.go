package domain

import "testing"

func TestStatusForEvent(t *testing.T) {
	cases := map[string]string{
		"CVE Received":          "Received",
		"Initial Analysis":      "Undergoing Analysis",
		"Reanalysis":            "Undergoing Analysis",
		"CVE Modified":          "Modified",
		"Modified Analysis":     "Modified",
		"CVE Source Update":     "Awaiting Analysis",
		"CVE Translated":        "Awaiting Analysis",
		"Vendor Comment":        "Awaiting Analysis",
		"CWE Remap":             "Deferred",
		"Reference Tag Update":  "Deferred",
		"CPE Deprecation Remap": "Deferred",
		"CVE Rejected":          "Rejected",
	}
	for event, want := range cases {
		if got := StatusForEvent(event); got != want {
			t.Fatalf("StatusForEvent(%q) = %q, want %q", event, got, want)
		}
	}
	if got := StatusForEvent("CVE CISA KEV Update"); got != "" {
		t.Fatalf("unmapped event should yield empty label, got %q", got)
	}
}

func TestBucketedNamesAreRegisteredOptions(t *testing.T) {
	registered := make(map[string]bool, len(DefaultEventOptions))
	for _, name := range DefaultEventOptions {
		registered[name] = true
	}
	for label, names := range StatusBuckets {
		for _, name := range names {
			if !registered[name] {
				t.Fatalf("bucket %q references unregistered event %q", label, name)
			}
		}
	}
}
