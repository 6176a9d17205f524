package extractor

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/dodf/models"
)

const sampleText = "EXTRATO DA NOTA DE EMPENHO Nº 2024NE00414. Processo: 04008-00000354/2025-83. " +
	"Partes: Secretaria X e Empresa Y, CNPJ 12.345.678/0001-90. Objeto: aquisição de bens; " +
	"VALOR: R$ 1.172,46; Data do Empenho: 28/03/2025; PRAZO: 30 dias."

func str(s string) *string { return &s }

func TestExtract_FullTemplate(t *testing.T) {
	rec := Extract(sampleText)
	require.NotNil(t, rec)

	assert.Equal(t, str("2024NE00414"), rec.NoteNumber)
	assert.Equal(t, str("04008-00000354/2025-83"), rec.ProcessNumber)
	assert.Equal(t, str("Secretaria X"), rec.ContractingParty)
	require.NotNil(t, rec.ContractedParty)
	assert.Contains(t, *rec.ContractedParty, "Empresa Y")
	assert.Equal(t, str("12.345.678/0001-90"), rec.ContractedTaxID)
	assert.Equal(t, str("aquisição de bens"), rec.Object)
	assert.Equal(t, str("R$ 1.172,46"), rec.Amount)
	assert.Equal(t, str("28/03/2025"), rec.IssuanceDate)
	assert.Equal(t, str("30 dias"), rec.Term)
	assert.Nil(t, rec.ContractRef)
}

func TestExtract_GateRejectsTextWithoutMarker(t *testing.T) {
	cases := []string{
		"",
		"EXTRATO DO CONTRATO Nº 12/2024. Processo: 00001-00000001/2024-11. Partes: A e B. VALOR: R$ 10,00.",
		"NOTA  DE EMPENHO with two spaces is not the marker",
		"nota de empenh",
	}
	for _, text := range cases {
		assert.Nil(t, Extract(text), "text %q", text)
	}
}

func TestExtract_GateIsCaseInsensitive(t *testing.T) {
	for _, text := range []string{"nota de empenho", "Nota De Empenho", "xxNOTA DE EMPENHOxx"} {
		rec := Extract(text)
		require.NotNil(t, rec, "text %q", text)
		assert.Equal(t, make([]string, len(models.Fields)), rec.Values())
	}
}

func TestExtract_Parties(t *testing.T) {
	tests := []struct {
		name        string
		clause      string
		contracting *string
		contracted  *string
		taxID       *string
	}{
		{
			name:        "two parties with CNPJ",
			clause:      "Partes: DF/SEEDF e ACME LTDA, CNPJ nº 01.234.567/0001-89.",
			contracting: str("DF/SEEDF"),
			contracted:  str("ACME LTDA, CNPJ nº 01.234.567/0001-89"),
			taxID:       str("01.234.567/0001-89"),
		},
		{
			name:        "two parties without CNPJ",
			clause:      "Partes: Secretaria X e Empresa Y;",
			contracting: str("Secretaria X"),
			contracted:  str("Empresa Y"),
		},
		{
			name:        "single party",
			clause:      "Partes: Secretaria de Saúde, CNPJ 00.394.700/0001-08.",
			contracting: str("Secretaria de Saúde, CNPJ 00.394.700/0001-08"),
		},
		{
			name:        "separator is case-insensitive",
			clause:      "Partes: Secretaria X E Empresa Y.",
			contracting: str("Secretaria X"),
			contracted:  str("Empresa Y"),
		},
		{
			name:        "third segment discarded",
			clause:      "Partes: A e B e C, CNPJ 11.111.111/1111-11.",
			contracting: str("A"),
			contracted:  str("B"),
		},
		{
			name:        "tax ID only read from contracted segment",
			clause:      "Partes: Orgao CNPJ 99.999.999/9999-99 e Fornecedor.",
			contracting: str("Orgao CNPJ 99.999.999/9999-99"),
			contracted:  str("Fornecedor"),
		},
		{
			name:   "no terminator",
			clause: "Partes: A e B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Extract("EXTRATO DA NOTA DE EMPENHO 2025NE1. " + tt.clause)
			require.NotNil(t, rec)
			assert.Equal(t, tt.contracting, rec.ContractingParty)
			assert.Equal(t, tt.contracted, rec.ContractedParty)
			assert.Equal(t, tt.taxID, rec.ContractedTaxID)
		})
	}
}

func TestExtract_SingleFields(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		field models.Field
		want  *string
	}{
		{"note number with degree sign", "EXTRATO DE NOTA DE EMPENHO N° 2025NE00012", models.FieldNoteNumber, str("2025NE00012")},
		{"note number without Nº", "extrato da nota de empenho 2025NE7 de 2025", models.FieldNoteNumber, str("2025NE7")},
		{"note number absent", "NOTA DE EMPENHO 2025NE1", models.FieldNoteNumber, nil},
		{"process", "NOTA DE EMPENHO. PROCESSO: 00060-00123456/2024-01, SEI", models.FieldProcessNumber, str("00060-00123456/2024-01")},
		{"object stops at semicolon", "NOTA DE EMPENHO. Objeto: Despesa com diárias; Valor", models.FieldObject, str("Despesa com diárias")},
		{"object keeps inner numbers", "NOTA DE EMPENHO. Objeto: 1.500 unidades de papel. Valor", models.FieldObject, str("1.500 unidades de papel")},
		{"contract ref keeps keyword and clause", "NOTA DE EMPENHO. Processo: 1. Contrato nº 45/2024, firmado em 2024; VALOR", models.FieldContractRef, str("Contrato nº 45/2024, firmado em 2024")},
		{"contract ref first keyword wins", "NOTA DE EMPENHO. Dispensa de Licitação, art. 75; Ata de Registro 1.", models.FieldContractRef, str("Dispensa de Licitação, art")},
		{"contract ref ignores word fragments", "NOTA DE EMPENHO. Data do Empenho: 01/02/2025.", models.FieldContractRef, nil},
		{"amount", "NOTA DE EMPENHO. Valor: R$ 12.345,67 (doze mil)", models.FieldAmount, str("R$ 12.345,67")},
		{"amount requires currency", "NOTA DE EMPENHO. VALOR: 12,00", models.FieldAmount, nil},
		{"issuance date long form", "NOTA DE EMPENHO. Data da Emissão da Nota de Empenho: 05/06/2024.", models.FieldIssuanceDate, str("05/06/2024")},
		{"issuance date is not validated", "NOTA DE EMPENHO. Data do Empenho: 99/99/9999", models.FieldIssuanceDate, str("99/99/9999")},
		{"term de entrega", "NOTA DE EMPENHO. PRAZO DE ENTREGA: 100% em 30 dias; fim", models.FieldTerm, str("100% em 30 dias")},
		{"term to end of text", "NOTA DE EMPENHO. Prazo: até 31/12/2025", models.FieldTerm, str("até 31/12/2025")},
		{"term to end of line", "NOTA DE EMPENHO. PRAZO: 10 dias úteis\nBrasília, 28 de março", models.FieldTerm, str("10 dias úteis")},
		{"blank capture is absent", "NOTA DE EMPENHO. Objeto: ;", models.FieldObject, nil},
		{"non-breaking spaces", "NOTA DE EMPENHO. VALOR:\u00a0R$\u00a0500,00;", models.FieldAmount, str("R$\u00a0500,00")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Extract(tt.text)
			require.NotNil(t, rec)
			assert.Equal(t, tt.want, rec.Get(tt.field))
		})
	}
}

func TestExtract_FieldsAreTrimmedOrNil(t *testing.T) {
	texts := []string{
		sampleText,
		"NOTA DE EMPENHO Objeto:    ;  Partes:   .  PRAZO:   ",
		"EXTRATO DA NOTA DE EMPENHO Nº  X1 Partes:  Órgão  e  Fornecedor  ; ",
	}
	for _, text := range texts {
		rec := Extract(text)
		require.NotNil(t, rec)
		for _, f := range models.Fields {
			v := rec.Get(f)
			if v == nil {
				continue
			}
			assert.NotEmpty(t, *v, "field %s", f)
			assert.Equal(t, *v, trimmed(*v), "field %s", f)
		}
	}
}

func TestExtract_Idempotent(t *testing.T) {
	first := Extract(sampleText)
	second := Extract(sampleText)
	require.NotNil(t, first)
	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)
}

func TestNew_CustomRules(t *testing.T) {
	e := New(FieldRule{
		Field:   models.FieldAmount,
		Pattern: regexp.MustCompile(`(?i)total\s*=\s*(\S+)`),
		Group:   1,
	})
	rec := e.Extract("NOTA DE EMPENHO total = 42 VALOR: R$ 1,00")
	require.NotNil(t, rec)
	assert.Equal(t, str("42"), rec.Amount)
	assert.Nil(t, rec.NoteNumber)
	assert.Equal(t, []string{"Valor"}, e.Rules())
}

func TestDefaultRules_CoverEveryField(t *testing.T) {
	rec := Extract("EXTRATO DA NOTA DE EMPENHO Nº 1A. Processo: 1/2. Partes: A e B 00.000.000/0000-00. " +
		"Objeto: O. Ata 3. VALOR: R$ 1. Data do Empenho: 1/1/2025. PRAZO: P.")
	require.NotNil(t, rec)
	for _, f := range models.Fields {
		assert.NotNil(t, rec.Get(f), "field %s", f)
	}
	assert.Len(t, New().Rules(), 8)
}

func trimmed(s string) string {
	return regexp.MustCompile(`^[\s\p{Zs}]+|[\s\p{Zs}]+$`).ReplaceAllString(s, "")
}

func TestExtract_ContractRefExcludesTerminator(t *testing.T) {
	tests := []struct {
		text string
		want *string
	}{
		{"NOTA DE EMPENHO. Ata de Registro de Preços nº 12/2024. Valor", str("Ata de Registro de Preços nº 12/2024")},
		{"NOTA DE EMPENHO. Dispensa de Licitação nº 3/2025; Valor", str("Dispensa de Licitação nº 3/2025")},
		{"NOTA DE EMPENHO. Contrato nº 1.234/2024.", str("Contrato nº 1.234/2024")},
		{"NOTA DE EMPENHO. Data do Empenho: 01/02/2025; Mandato: 4 anos.", nil},
	}
	for _, tt := range tests {
		rec := Extract(tt.text)
		require.NotNil(t, rec)
		assert.Equal(t, tt.want, rec.ContractRef, "text %q", tt.text)
	}
}
