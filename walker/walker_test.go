package walker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/dodf/models"
)

// fakeListing serves fixed pages. failAnchorsAt and failNextAt are 1-based
// page numbers; zero disables the failure.
type fakeListing struct {
	pages         [][]Anchor
	current       int
	failAnchorsAt int
	failNextAt    int
	nextCalls     int
}

func (f *fakeListing) Anchors(context.Context) ([]Anchor, error) {
	if f.failAnchorsAt == f.current+1 {
		return nil, errors.New("stale element")
	}
	if f.current >= len(f.pages) {
		return nil, nil
	}
	return f.pages[f.current], nil
}

func (f *fakeListing) Next(context.Context) (bool, error) {
	f.nextCalls++
	if f.failNextAt == f.current+1 {
		return false, errors.New("click intercepted")
	}
	if f.current+1 >= len(f.pages) {
		return false, nil
	}
	f.current++
	return true, nil
}

func urls(links []models.CandidateLink) []string {
	out := make([]string, len(links))
	for i, l := range links {
		out[i] = l.URL
	}
	return out
}

func TestKeep(t *testing.T) {
	tests := []struct {
		name string
		a    Anchor
		want bool
	}{
		{"matching", Anchor{"/dodf/materia/visualizar?co_data=1&p=extrato-da-nota", "EXTRATO DA NOTA DE EMPENHO Nº 1"}, true},
		{"case-insensitive", Anchor{"/EXTRATO/1", "Extrato da Nota De Empenho"}, true},
		{"text without marker", Anchor{"/extrato/2", "EXTRATO DE CONTRATO Nº 2"}, false},
		{"href without marker", Anchor{"/aviso/3", "EXTRATO DA NOTA DE EMPENHO"}, false},
		{"empty href", Anchor{"", "nota de empenho extrato"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Keep(tt.a))
		})
	}
}

func TestWalk_FiltersAndDeduplicatesAcrossPages(t *testing.T) {
	listing := &fakeListing{pages: [][]Anchor{
		{
			{Href: "/extrato/1", Text: "Extrato da Nota de Empenho 1"},
			{Href: "/extrato/2", Text: "Extrato de Contrato 2"},
			{Href: "https://dodf.df.gov.br/extrato/3", Text: " EXTRATO DA NOTA DE EMPENHO 3 "},
		},
		{
			{Href: "/extrato/1", Text: "Extrato da Nota de Empenho 1"},
			{Href: "/extrato/4", Text: "extrato da nota de empenho 4"},
		},
		{
			{Href: "/extrato/3", Text: "Extrato da Nota de Empenho 3 (relative)"},
		},
	}}

	links := Walk(context.Background(), listing)

	assert.Equal(t, []string{
		"/extrato/1",
		"https://dodf.df.gov.br/extrato/3",
		"/extrato/4",
		"/extrato/3",
	}, urls(links))
	assert.Equal(t, "EXTRATO DA NOTA DE EMPENHO 3", links[1].Text)
	assert.Equal(t, 3, listing.nextCalls)
}

func TestWalk_EmptyListing(t *testing.T) {
	links := Walk(context.Background(), &fakeListing{})
	require.NotNil(t, links)
	assert.Empty(t, links)
}

func TestWalk_AnchorErrorKeepsPartialResults(t *testing.T) {
	listing := &fakeListing{
		pages: [][]Anchor{
			{{Href: "/extrato/1", Text: "nota de empenho"}},
			{{Href: "/extrato/2", Text: "nota de empenho"}},
		},
		failAnchorsAt: 2,
	}
	assert.Equal(t, []string{"/extrato/1"}, urls(Walk(context.Background(), listing)))
}

func TestWalk_NextErrorKeepsPartialResults(t *testing.T) {
	listing := &fakeListing{
		pages: [][]Anchor{
			{{Href: "/extrato/1", Text: "nota de empenho"}},
			{{Href: "/extrato/2", Text: "nota de empenho"}},
		},
		failNextAt: 1,
	}
	assert.Equal(t, []string{"/extrato/1"}, urls(Walk(context.Background(), listing)))
}

func TestWalk_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	links := Walk(ctx, &fakeListing{pages: [][]Anchor{{{Href: "/extrato/1", Text: "nota de empenho"}}}})
	assert.Empty(t, links)
}

func TestCollector_LinksIsACopy(t *testing.T) {
	c := NewCollector()
	assert.Equal(t, 1, c.Add([]Anchor{{Href: "/extrato/1", Text: "nota de empenho"}}))
	assert.Equal(t, 0, c.Add([]Anchor{{Href: "/extrato/1", Text: "nota de empenho again"}}))

	links := c.Links()
	links[0].URL = "mutated"
	assert.Equal(t, "/extrato/1", c.Links()[0].URL)
}



func TestWalk_RepeatedPageDoesNotEndPagination(t *testing.T) {
	first := []Anchor{{Href: "/extrato/1", Text: "nota de empenho"}}
	listing := &fakeListing{pages: [][]Anchor{
		first,
		first, // next page not rendered yet, control still present
		{{Href: "/extrato/2", Text: "nota de empenho"}},
		{{Href: "/extrato/3", Text: "nota de empenho"}},
	}}

	links := Walk(context.Background(), listing)

	assert.Equal(t, []string{"/extrato/1", "/extrato/2", "/extrato/3"}, urls(links))
	assert.Equal(t, 4, listing.nextCalls)
}
