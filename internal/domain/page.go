package domain

// PageRequest carries the bounded pagination window for listing
// operations. Construct via ClampPage so resultsPerPage can never exceed
// the system-wide cap and startIndex can never go negative.
type PageRequest struct {
	ResultsPerPage int
	StartIndex     int
}

// ClampPage bounds a requested page window against maxPage. A negative or
// zero resultsPerPage and any out-of-range value falls back to maxPage;
// a negative startIndex falls back to 0. Callers parse the raw parameters
// fail-open and pass their best-effort integers here.
func ClampPage(resultsPerPage, startIndex, maxPage int) PageRequest {
	if resultsPerPage <= 0 || resultsPerPage > maxPage {
		resultsPerPage = maxPage
	}
	if startIndex < 0 {
		startIndex = 0
	}
	return PageRequest{ResultsPerPage: resultsPerPage, StartIndex: startIndex}
}

// PageNumber derives the 1-based page number for this window. The result
// is consistent with slicing at [StartIndex, StartIndex+ResultsPerPage).
func (p PageRequest) PageNumber() int {
	if p.ResultsPerPage <= 0 {
		return 1
	}
	return p.StartIndex/p.ResultsPerPage + 1
}
