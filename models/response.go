package models

// ExtractResponse is the response for POST /api/v1/extract.
type ExtractResponse struct {
	Success bool `json:"success"`

	// Applicable is false when the text is not a Nota de Empenho.
	Applicable bool `json:"applicable"`

	// Record is set only when Applicable is true.
	Record *Record `json:"record,omitempty"`

	Error *ErrorDetail `json:"error,omitempty"`
}

// RunResponse is the immediate response for POST /api/v1/runs.
type RunResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Date   string `json:"date"`
}

// RunStatusResponse is the response for GET /api/v1/runs/:id.
type RunStatusResponse struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Date   string       `json:"date"`
	Result *RunResult   `json:"result,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// DocumentResponse is the response for POST /api/v1/document.
type DocumentResponse struct {
	Success bool `json:"success"`

	// URL is the fully qualified URL that was fetched.
	URL string `json:"url"`

	Title string `json:"title,omitempty"`

	// Applicable is false when the page is not a Nota de Empenho.
	Applicable bool    `json:"applicable"`
	Record     *Record `json:"record,omitempty"`

	// Markdown is the readability-cleaned page rendered as Markdown.
	Markdown string `json:"markdown,omitempty"`

	// EngineUsed names the fetch engine that produced the text.
	EngineUsed string `json:"engine_used,omitempty"`

	Timing TimingInfo `json:"timing"`

	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	TotalMs      int64 `json:"total_ms"`
	NavigationMs int64 `json:"navigation_ms"`
	CleaningMs   int64 `json:"cleaning_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status         string `json:"status"`
	Uptime         string `json:"uptime"`
	ActiveRuns     int    `json:"active_runs"`
	ActiveBrowsers int    `json:"active_browsers"`
	Version        string `json:"version"`
}
