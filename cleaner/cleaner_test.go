package cleaner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gazettePage = `<!DOCTYPE html>
<html><head><title> DODF - Extrato </title><style>p{color:red}</style></head>
<body>
<nav><a href="/">Início</a></nav>
<div id="materia">
  <h3>EXTRATO DA NOTA DE EMPENHO Nº 2025NE00012</h3>
  <p>Processo: 00060-00123456/2024-01.<br>Partes: SES/DF e ACME LTDA.</p>
  <p>VALOR: <b>R$ 1.000,00</b>;</p>
  <script>var x = "NOTA DE EMPENHO";</script>
</div>
<footer>Imprensa Nacional</footer>
</body></html>`

func TestVisibleText(t *testing.T) {
	text := VisibleText(gazettePage)

	assert.Equal(t, strings.Join([]string{
		"Início",
		"EXTRATO DA NOTA DE EMPENHO Nº 2025NE00012",
		"Processo: 00060-00123456/2024-01.",
		"Partes: SES/DF e ACME LTDA.",
		"VALOR: R$ 1.000,00;",
		"Imprensa Nacional",
	}, "\n"), text)
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, "color:red")
}

func TestVisibleText_Fragment(t *testing.T) {
	assert.Equal(t, "a\nb", VisibleText("<p>a</p><p>b</p>"))
	assert.Equal(t, "", VisibleText(""))
}

func TestScope(t *testing.T) {
	scoped, err := Scope(gazettePage, "#materia")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(scoped, `<div id="materia">`))
	assert.NotContains(t, scoped, "Imprensa Nacional")

	same, err := Scope(gazettePage, ".does-not-exist")
	require.NoError(t, err)
	assert.Equal(t, gazettePage, same)

	same, err = Scope(gazettePage, "  ")
	require.NoError(t, err)
	assert.Equal(t, gazettePage, same)

	_, err = Scope(gazettePage, "div[")
	assert.Error(t, err)
}

func TestScopedText(t *testing.T) {
	text, err := ScopedText(gazettePage, "#materia")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "EXTRATO DA NOTA DE EMPENHO"))
	assert.NotContains(t, text, "Início")
	assert.NotContains(t, text, "Imprensa Nacional")
}

func TestValidSelector(t *testing.T) {
	assert.NoError(t, ValidSelector(""))
	assert.NoError(t, ValidSelector("#materia p"))
	assert.Error(t, ValidSelector("::::"))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "DODF - Extrato", Title(gazettePage))
	assert.Equal(t, "", Title("<p>no title</p>"))
	assert.Equal(t, "", Title("<title></title><p>x</p>"))
}

func TestCleaner_Preview(t *testing.T) {
	c := New("#materia")

	p, err := c.Preview(gazettePage, "https://dodf.df.gov.br/dodf/materia/visualizar?co_data=1")
	require.NoError(t, err)

	assert.NotEmpty(t, p.Title)
	assert.Contains(t, p.Markdown, "Processo: 00060-00123456/2024-01")
	assert.Contains(t, p.Markdown, "R$ 1.000,00")
	assert.NotContains(t, p.Markdown, "Imprensa Nacional")
	assert.True(t, strings.HasPrefix(p.Text, "EXTRATO DA NOTA DE EMPENHO Nº 2025NE00012"))
}

func TestCleaner_PreviewInvalidSelector(t *testing.T) {
	_, err := New("div[").Preview(gazettePage, "https://dodf.df.gov.br/")
	assert.Error(t, err)
}

func TestCleaner_Text(t *testing.T) {
	text, err := New("").Text(gazettePage)
	require.NoError(t, err)
	assert.Equal(t, VisibleText(gazettePage), text)
}
