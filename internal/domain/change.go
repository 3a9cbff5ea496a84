package domain

import (
	"encoding/json"
	"time"
)

// ChangeEvent is one recorded state transition for a tracked CVE.
// Records are appended by an external ingestion process and are read-only
// for the query/aggregation layer; IDs are assigned monotonically and every
// listing operation orders by ID ascending so pagination stays stable while
// new records arrive.
type ChangeEvent struct {
	ID               int64           `json:"id"`
	CveID            string          `json:"cveId"`
	EventName        string          `json:"eventName"`
	CveChangeID      string          `json:"cveChangeId"`
	SourceIdentifier string          `json:"sourceIdentifier"`
	Created          time.Time       `json:"created"`
	Details          json.RawMessage `json:"details"`
}

// EventOption is a registered event-type name with an optional precomputed
// occurrence counter. A non-nil counter is authoritative and is preferred
// over counting cve_changes rows on demand.
type EventOption struct {
	ID         int64  `json:"id"`
	EventName  string `json:"eventName"`
	EventCount *int64 `json:"eventCount"`
}

// YearCount is one row of the precomputed per-year materialized view.
type YearCount struct {
	EventYear int   `json:"event_year"`
	Count     int64 `json:"count"`
}

// AnalysisStatus is one row of the precomputed status-bucket view.
type AnalysisStatus struct {
	StatusLabel string `json:"status_label"`
	Count       int64  `json:"count"`
}

// SourceCount is one group of the top-sources aggregation.
type SourceCount struct {
	Source     string `json:"source"`
	TotalCount int64  `json:"total_count"`
}

// NameCount is one group of a per-event-name count aggregation.
type NameCount struct {
	EventName string
	Count     int64
}

// EventTrend is the per-event output row of the monthly trends view:
// twelve month buckets (index 0 = January) and the yearly total.
type EventTrend struct {
	EventName string `json:"eventName"`
	Monthly   []int  `json:"monthly"`
	Total     int    `json:"total"`
}

// DefaultEventOptions is the registered event-type vocabulary seeded into
// cve_options. The set is extensible at runtime; these are the names the
// NVD change feed emits.
var DefaultEventOptions = []string{
	"CVE Received",
	"Initial Analysis",
	"Reanalysis",
	"CVE Modified",
	"Modified Analysis",
	"CVE Translated",
	"Vendor Comment",
	"CVE Source Update",
	"CPE Deprecation Remap",
	"CWE Remap",
	"Reference Tag Update",
	"CVE Rejected",
	"CVE Unrejected",
	"CVE CISA KEV Update",
}
