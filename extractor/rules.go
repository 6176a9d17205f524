package extractor

import (
	"regexp"
	"strings"

	"github.com/use-agent/dodf/models"
)

// Pattern building blocks. Rendered gazette text routinely carries
// non-breaking spaces, which RE2's \s does not cover.
const (
	sp = `[\s\p{Zs}]`

	// clauseEnd closes a clause at a semicolon or at a period that is not
	// a thousands/CNPJ separator (i.e. not followed by a digit).
	clauseEnd = `(?:;|\.(?:\D|$))`
)

// Rule extracts one or more fields of a record from the full document text.
// Rules are independent: a rule that does not match leaves its fields nil
// and never affects other rules.
type Rule interface {
	Name() string
	Apply(text string, rec *models.Record)
}

// FieldRule captures a single field with one pattern.
type FieldRule struct {
	Field   models.Field
	Pattern *regexp.Regexp

	// Group is the capture group stored in the field; 0 keeps the whole match.
	Group int
}

// Name returns the column header of the field the rule fills.
func (r FieldRule) Name() string { return r.Field.Header() }

// Apply stores the trimmed capture, or leaves the field nil.
func (r FieldRule) Apply(text string, rec *models.Record) {
	rec.Set(r.Field, capture(r.Pattern, text, r.Group))
}

// PartiesRule reads the "Partes:" clause and splits it into the contracting
// and contracted parties. The CNPJ is looked up only inside the contracted
// segment.
type PartiesRule struct {
	Clause    *regexp.Regexp
	Separator *regexp.Regexp
	TaxID     *regexp.Regexp
}

// Name identifies the rule in logs and tests.
func (r PartiesRule) Name() string { return "Partes" }

// Apply fills the contracting party, the contracted party and its tax ID.
// With a single segment only the contracting party is set; segments past
// the second are discarded.
func (r PartiesRule) Apply(text string, rec *models.Record) {
	clause := capture(r.Clause, text, 1)
	rec.ContractingParty, rec.ContractedParty, rec.ContractedTaxID = nil, nil, nil
	if clause == nil {
		return
	}

	segments := r.Separator.Split(*clause, -1)
	if len(segments) < 2 {
		rec.ContractingParty = clause
		return
	}

	rec.ContractingParty = nonEmpty(segments[0])
	rec.ContractedParty = nonEmpty(segments[1])
	if rec.ContractedParty != nil {
		rec.ContractedTaxID = capture(r.TaxID, *rec.ContractedParty, 0)
	}
}

var (
	markerRe = regexp.MustCompile(`(?i)NOTA DE EMPENHO`)

	noteNumberRe   = regexp.MustCompile(`(?i)EXTRATO` + sp + `+(?:DA|DE)` + sp + `+NOTA` + sp + `+DE` + sp + `+EMPENHO(?:` + sp + `*N[º°]\.?)?` + sp + `*([\p{L}\p{N}_]+)`)
	processRe      = regexp.MustCompile(`(?i)Processo:` + sp + `*([\d\-/]+)`)
	partiesRe      = regexp.MustCompile(`(?i)Partes:` + sp + `*(.*?)` + clauseEnd)
	partySepRe     = regexp.MustCompile(`(?i)` + sp + `+e` + sp + `+`)
	taxIDRe        = regexp.MustCompile(`\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}`)
	objectRe       = regexp.MustCompile(`(?i)Objeto:` + sp + `*(.*?)` + clauseEnd)
	contractRefRe  = regexp.MustCompile(`(?i)\b(?:Ata|Contrato|Dispensa)\b(.*?)` + clauseEnd)
	amountRe       = regexp.MustCompile(`(?i)VALOR:` + sp + `*(R\$[\s\p{Zs}\d.,]+)`)
	issuanceDateRe = regexp.MustCompile(`(?i)Data` + sp + `+(?:do` + sp + `+Empenho|da` + sp + `+Emissão` + sp + `+da` + sp + `+Nota` + sp + `+de` + sp + `+Empenho):` + sp + `*([\d/]+)`)
	termRe         = regexp.MustCompile(`(?im)PRAZO(?:` + sp + `+DE` + sp + `+ENTREGA)?:` + sp + `*(.*?)(?:;|\.(?:\D|$)|$)`)
)

// DefaultRules returns the rule set for the DODF "Extrato de Nota de
// Empenho" template, in export column order.
func DefaultRules() []Rule {
	return []Rule{
		FieldRule{Field: models.FieldNoteNumber, Pattern: noteNumberRe, Group: 1},
		FieldRule{Field: models.FieldProcessNumber, Pattern: processRe, Group: 1},
		PartiesRule{Clause: partiesRe, Separator: partySepRe, TaxID: taxIDRe},
		FieldRule{Field: models.FieldObject, Pattern: objectRe, Group: 1},
		contractRefRule{},
		FieldRule{Field: models.FieldAmount, Pattern: amountRe, Group: 1},
		FieldRule{Field: models.FieldIssuanceDate, Pattern: issuanceDateRe, Group: 1},
		FieldRule{Field: models.FieldTerm, Pattern: termRe, Group: 1},
	}
}

// contractRefRule keeps the keyword together with its trailing clause but
// drops the terminator that clauseEnd consumed: the stored value never ends
// in "." or ";". Keywords match as whole words, so "Data" is not "Ata".
type contractRefRule struct{}

func (contractRefRule) Name() string { return models.FieldContractRef.Header() }

func (contractRefRule) Apply(text string, rec *models.Record) {
	loc := contractRefRe.FindStringSubmatchIndex(text)
	if loc == nil {
		rec.ContractRef = nil
		return
	}
	// loc[3] is the end of the clause body, before the terminator.
	rec.ContractRef = nonEmpty(text[loc[0]:loc[3]])
}

// capture returns the trimmed group of the first match, or nil when the
// pattern does not match or the capture is blank.
func capture(re *regexp.Regexp, text string, group int) *string {
	m := re.FindStringSubmatch(text)
	if m == nil || group >= len(m) {
		return nil
	}
	return nonEmpty(m[group])
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
