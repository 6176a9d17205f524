package models

// ExtractRequest is the payload for POST /api/v1/extract.
type ExtractRequest struct {
	// Text is the raw document body. Required.
	Text string `json:"text" binding:"required"`
}

// RunRequest is the payload for POST /api/v1/runs.
type RunRequest struct {
	// Date is the execution date (YYYY-MM-DD). Default: today.
	Date string `json:"date,omitempty" binding:"omitempty,datetime=2006-01-02"`
}

// DocumentRequest is the payload for POST /api/v1/document.
type DocumentRequest struct {
	// URL is the document page to fetch. Root-relative paths are
	// qualified against the configured site origin. Required.
	URL string `json:"url" binding:"required"`

	// Timeout is the maximum duration in seconds for the fetch.
	// Default: 30. Max: 120.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`

	// Markdown asks for a readability + markdown preview of the page.
	// Default: true.
	Markdown *bool `json:"markdown,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *DocumentRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 30
	}
	if r.Markdown == nil {
		t := true
		r.Markdown = &t
	}
}
