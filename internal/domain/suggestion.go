package domain

// SuggestField identifies which record field produced a suggestion's
// display text.
type SuggestField string

const (
	SuggestFieldCveID  SuggestField = "cveId"
	SuggestFieldEvent  SuggestField = "eventName"
	SuggestFieldSource SuggestField = "sourceIdentifier"
)

// Suggestion is one autocomplete entry. Text is the primary display value
// (CVE id, else event name, else source identifier); Subtitle is the
// secondary line shown under it.
type Suggestion struct {
	ID       int64        `json:"id"`
	Text     string       `json:"text"`
	Subtitle string       `json:"subtitle"`
	Field    SuggestField `json:"field"`
}
