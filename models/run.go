package models

// Run status values.
const (
	RunProcessing = "processing"
	RunCompleted  = "completed"
	RunEmpty      = "empty"
	RunFailed     = "failed"
)

// RunResult summarises one execution of the pipeline for a single date.
type RunResult struct {
	// Date is the execution date formatted as YYYY-MM-DD.
	Date string `json:"date"`

	// Status is one of RunCompleted, RunEmpty or RunFailed.
	Status string `json:"status"`

	// Reason explains an empty run ("no links found", "no records extracted").
	Reason string `json:"reason,omitempty"`

	// LinksFound is the number of candidate links the walker returned.
	LinksFound int `json:"links_found"`

	// Processed counts documents whose text was fetched.
	Processed int `json:"processed"`

	// Skipped counts documents without the "NOTA DE EMPENHO" marker.
	Skipped int `json:"skipped"`

	// Failed counts documents whose text could not be fetched.
	Failed int `json:"failed"`

	// Duplicates counts documents suppressed as near-duplicates.
	Duplicates int `json:"duplicates,omitempty"`

	// Records holds the extracted rows in discovery order.
	Records []*Record `json:"records"`

	// Artifact is the path of the written spreadsheet, empty when none was written.
	Artifact string `json:"artifact,omitempty"`
}
