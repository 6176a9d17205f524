package models

// Field identifies one column of an extracted Nota de Empenho record.
type Field int

// Fields in export column order.
const (
	FieldNoteNumber Field = iota
	FieldProcessNumber
	FieldContractingParty
	FieldContractedParty
	FieldContractedTaxID
	FieldObject
	FieldContractRef
	FieldAmount
	FieldIssuanceDate
	FieldTerm
)

// Fields lists every record field in export column order.
var Fields = []Field{
	FieldNoteNumber,
	FieldProcessNumber,
	FieldContractingParty,
	FieldContractedParty,
	FieldContractedTaxID,
	FieldObject,
	FieldContractRef,
	FieldAmount,
	FieldIssuanceDate,
	FieldTerm,
}

var fieldHeaders = [...]string{
	FieldNoteNumber:       "Nota de Empenho",
	FieldProcessNumber:    "Processo",
	FieldContractingParty: "Contratante",
	FieldContractedParty:  "Contratado",
	FieldContractedTaxID:  "CNPJ do contratado",
	FieldObject:           "Objeto",
	FieldContractRef:      "Contrato/Ata/Dispensa",
	FieldAmount:           "Valor",
	FieldIssuanceDate:     "Data do empenho",
	FieldTerm:             "Prazo",
}

// Header returns the spreadsheet column title for the field.
func (f Field) Header() string {
	if f < 0 || int(f) >= len(fieldHeaders) {
		return ""
	}
	return fieldHeaders[f]
}

func (f Field) String() string { return f.Header() }

// Headers returns the column titles in export order.
func Headers() []string {
	h := make([]string, len(Fields))
	for i, f := range Fields {
		h[i] = f.Header()
	}
	return h
}

// Record is the structured form of one "Extrato de Nota de Empenho".
// Every field is optional; nil means the pattern did not match.
type Record struct {
	NoteNumber       *string `json:"nota_de_empenho"`
	ProcessNumber    *string `json:"processo"`
	ContractingParty *string `json:"contratante"`
	ContractedParty  *string `json:"contratado"`
	ContractedTaxID  *string `json:"cnpj_contratado"`
	Object           *string `json:"objeto"`
	ContractRef      *string `json:"contrato_ata_dispensa"`
	Amount           *string `json:"valor"`
	IssuanceDate     *string `json:"data_empenho"`
	Term             *string `json:"prazo"`
}

func (r *Record) slot(f Field) **string {
	switch f {
	case FieldNoteNumber:
		return &r.NoteNumber
	case FieldProcessNumber:
		return &r.ProcessNumber
	case FieldContractingParty:
		return &r.ContractingParty
	case FieldContractedParty:
		return &r.ContractedParty
	case FieldContractedTaxID:
		return &r.ContractedTaxID
	case FieldObject:
		return &r.Object
	case FieldContractRef:
		return &r.ContractRef
	case FieldAmount:
		return &r.Amount
	case FieldIssuanceDate:
		return &r.IssuanceDate
	case FieldTerm:
		return &r.Term
	}
	return nil
}

// Get returns the value stored for f, or nil.
func (r *Record) Get(f Field) *string {
	if s := r.slot(f); s != nil {
		return *s
	}
	return nil
}

// Set stores v for f. Unknown fields are ignored.
func (r *Record) Set(f Field, v *string) {
	if s := r.slot(f); s != nil {
		*s = v
	}
}

// Values returns the record as a row of cells in export order.
// Absent fields become empty strings.
func (r *Record) Values() []string {
	row := make([]string, len(Fields))
	for i, f := range Fields {
		if v := r.Get(f); v != nil {
			row[i] = *v
		}
	}
	return row
}

// CandidateLink is an anchor found on the listing that looks like a
// Nota de Empenho. URL is stored exactly as found and may be root-relative.
type CandidateLink struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}
