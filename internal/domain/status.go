package domain

// StatusBuckets maps each human-facing analysis status label to the event
// names it groups. The grouping is applied at write time by the ingestion
// side; the read path only consumes the precomputed cve_analysis_status
// rows, but the mapping is kept here as the single source of truth for
// both sides.
var StatusBuckets = map[string][]string{
	"Received":            {"CVE Received"},
	"Awaiting Analysis":   {"CVE Source Update", "CVE Translated", "Vendor Comment"},
	"Undergoing Analysis": {"Initial Analysis", "Reanalysis"},
	"Modified":            {"CVE Modified", "Modified Analysis"},
	"Deferred":            {"CWE Remap", "Reference Tag Update", "CPE Deprecation Remap"},
	"Rejected":            {"CVE Rejected"},
}

// StatusForEvent returns the bucket label for an event name, or "" when
// the name is not part of any bucket.
func StatusForEvent(eventName string) string {
	for label, names := range StatusBuckets {
		for _, n := range names {
			if n == eventName {
				return label
			}
		}
	}
	return ""
}
