// Package extractor turns the free text of a DODF "Extrato de Nota de
// Empenho" into a models.Record.
//
// Each field is produced by a named Rule that runs against the full text.
// Rules never depend on each other, so a missing clause only nulls its own
// fields. Values are trimmed and otherwise kept exactly as published: no
// date parsing, currency conversion or whitespace collapsing.
package extractor

import (
	"github.com/use-agent/dodf/models"
)

// Extractor applies a fixed rule set to documents that carry the
// "NOTA DE EMPENHO" marker. It holds no mutable state and is safe for
// concurrent use.
type Extractor struct {
	rules []Rule
}

// New builds an Extractor. Without rules it uses DefaultRules.
func New(rules ...Rule) *Extractor {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Extractor{rules: rules}
}

// Applies reports whether text contains the "NOTA DE EMPENHO" marker in any case.
func Applies(text string) bool {
	return markerRe.MatchString(text)
}

// Extract returns the record for text, or nil when text is not a Nota de
// Empenho. A non-nil record may have any subset of its fields set.
func (e *Extractor) Extract(text string) *models.Record {
	if !Applies(text) {
		return nil
	}
	rec := &models.Record{}
	for _, r := range e.rules {
		r.Apply(text, rec)
	}
	return rec
}

// Rules returns the rule names in evaluation order.
func (e *Extractor) Rules() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name()
	}
	return names
}

var defaultExtractor = New()

// Extract runs the default rule set. See Extractor.Extract.
func Extract(text string) *models.Record {
	return defaultExtractor.Extract(text)
}
