package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/dodf/models"
	"github.com/use-agent/dodf/walker"
)

const (
	origin = "https://dodf.df.gov.br"

	notaText = "EXTRATO DA NOTA DE EMPENHO Nº 2024NE00414. Processo: 04008-00000354/2025-83. " +
		"Partes: Secretaria X e Empresa Y, CNPJ 12.345.678/0001-90. Objeto: aquisição de bens; " +
		"VALOR: R$ 1.172,46; Data do Empenho: 28/03/2025; PRAZO: 30 dias."

	contratoText = "EXTRATO DO CONTRATO Nº 12/2024. Processo: 00001-00000001/2024-11. Partes: A e B."
)

var runDate = time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC)

type staticLinks struct {
	links []models.CandidateLink
	err   error
}

func (s staticLinks) Links(context.Context) ([]models.CandidateLink, error) {
	return s.links, s.err
}

type mapFetcher struct {
	texts     map[string]string
	errs      map[string]error
	requested []string
}

func (m *mapFetcher) FetchText(_ context.Context, url string) (string, error) {
	m.requested = append(m.requested, url)
	if err := m.errs[url]; err != nil {
		return "", err
	}
	return m.texts[url], nil
}

type recordingExporter struct {
	calls   int
	date    time.Time
	records []*models.Record
	err     error
}

func (e *recordingExporter) Export(date time.Time, records []*models.Record) (string, error) {
	e.calls++
	e.date, e.records = date, records
	if e.err != nil {
		return "", e.err
	}
	return "/out/20250328_extrato_notas_empenho_dodf.xlsx", nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	ids    []string
	states []string
}

func (n *recordingNotifier) Notify(_ context.Context, id string, r *models.RunResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, id)
	n.states = append(n.states, r.Status)
}

func links(urls ...string) []models.CandidateLink {
	out := make([]models.CandidateLink, len(urls))
	for i, u := range urls {
		out[i] = models.CandidateLink{URL: u, Text: "EXTRATO DA NOTA DE EMPENHO"}
	}
	return out
}

func newRunner(t *testing.T, src LinkSource, f Fetcher, e Exporter, opts ...Option) *Runner {
	t.Helper()
	r, err := New(src, f, e, origin, opts...)
	require.NoError(t, err)
	return r
}

func TestRun_FullTemplateDocument(t *testing.T) {
	fetcher := &mapFetcher{texts: map[string]string{origin + "/extrato/1": notaText}}
	exp := &recordingExporter{}
	r := newRunner(t, staticLinks{links: links("/extrato/1")}, fetcher, exp)

	res, err := r.Run(context.Background(), runDate)
	require.NoError(t, err)

	assert.Equal(t, models.RunCompleted, res.Status)
	assert.Equal(t, "2025-03-28", res.Date)
	assert.Equal(t, "/out/20250328_extrato_notas_empenho_dodf.xlsx", res.Artifact)
	assert.Equal(t, []string{origin + "/extrato/1"}, fetcher.requested)
	require.Len(t, res.Records, 1)
	assert.NoError(t, Outcome(res))

	rec := res.Records[0]
	assert.Equal(t, "2024NE00414", *rec.NoteNumber)
	assert.Equal(t, "04008-00000354/2025-83", *rec.ProcessNumber)
	assert.Equal(t, "Secretaria X", *rec.ContractingParty)
	assert.Contains(t, *rec.ContractedParty, "Empresa Y")
	assert.Equal(t, "12.345.678/0001-90", *rec.ContractedTaxID)
	assert.Equal(t, "aquisição de bens", *rec.Object)
	assert.Equal(t, "R$ 1.172,46", *rec.Amount)
	assert.Equal(t, "28/03/2025", *rec.IssuanceDate)
	assert.Equal(t, "30 dias", *rec.Term)

	assert.Equal(t, 1, exp.calls)
	assert.Equal(t, runDate, exp.date)
	assert.Equal(t, res.Records, exp.records)
}

func TestRun_DocumentWithoutMarkerIsSkipped(t *testing.T) {
	fetcher := &mapFetcher{texts: map[string]string{
		origin + "/extrato/1": contratoText,
		origin + "/extrato/2": notaText,
	}}
	exp := &recordingExporter{}
	r := newRunner(t, staticLinks{links: links("/extrato/1", "/extrato/2")}, fetcher, exp)

	res, err := r.Run(context.Background(), runDate)
	require.NoError(t, err)
	assert.Equal(t, models.RunCompleted, res.Status)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, res.Records, 1)
}

func TestRun_OnlyNonMatchingDocuments(t *testing.T) {
	fetcher := &mapFetcher{texts: map[string]string{origin + "/extrato/1": contratoText}}
	exp := &recordingExporter{}
	r := newRunner(t, staticLinks{links: links("/extrato/1")}, fetcher, exp)

	res, err := r.Run(context.Background(), runDate)
	require.NoError(t, err)
	assert.Equal(t, models.RunEmpty, res.Status)
	assert.Equal(t, ReasonNoRecords, res.Reason)
	assert.Empty(t, res.Records)
	assert.Zero(t, exp.calls)
	assert.ErrorIs(t, Outcome(res), ErrNothingFound)
}

func TestRun_NoLinks(t *testing.T) {
	fetcher := &mapFetcher{}
	exp := &recordingExporter{}
	r := newRunner(t, staticLinks{}, fetcher, exp)

	res, err := r.Run(context.Background(), runDate)
	require.NoError(t, err)
	assert.Equal(t, models.RunEmpty, res.Status)
	assert.Equal(t, ReasonNoLinks, res.Reason)
	assert.Empty(t, res.Artifact)
	assert.Empty(t, fetcher.requested)
	assert.Zero(t, exp.calls)
	assert.ErrorIs(t, Outcome(res), ErrNothingFound)
}

func TestRun_ListingErrorIsNothingFound(t *testing.T) {
	src := staticLinks{err: models.NewScrapeError(models.ErrCodeElementNotFound, "category control missing", nil)}
	r := newRunner(t, src, &mapFetcher{}, &recordingExporter{})

	res, err := r.Run(context.Background(), runDate)
	require.NoError(t, err)
	assert.Equal(t, models.RunEmpty, res.Status)
}

func TestRun_BrowserLaunchFailurePropagates(t *testing.T) {
	launch := models.NewScrapeError(models.ErrCodeBrowserLaunch, "failed to launch browser", errors.New("no chromium"))

	_, err := newRunner(t, staticLinks{err: launch}, &mapFetcher{}, &recordingExporter{}).Run(context.Background(), runDate)
	assert.ErrorIs(t, err, launch)

	fetcher := &mapFetcher{errs: map[string]error{origin + "/extrato/1": launch}}
	_, err = newRunner(t, staticLinks{links: links("/extrato/1")}, fetcher, &recordingExporter{}).Run(context.Background(), runDate)
	assert.True(t, models.IsCode(err, models.ErrCodeBrowserLaunch))
}

func TestRun_FetchFailureContinues(t *testing.T) {
	fetcher := &mapFetcher{
		texts: map[string]string{origin + "/extrato/2": notaText},
		errs:  map[string]error{origin + "/extrato/1": models.NewScrapeError(models.ErrCodeTimeout, "navigation", context.DeadlineExceeded)},
	}
	r := newRunner(t, staticLinks{links: links("/extrato/1", "/extrato/2")}, fetcher, &recordingExporter{})

	res, err := r.Run(context.Background(), runDate)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Processed)
	assert.Zero(t, res.Skipped)
	assert.Len(t, res.Records, 1)
}

func TestRun_ExportFailure(t *testing.T) {
	fetcher := &mapFetcher{texts: map[string]string{origin + "/extrato/1": notaText}}
	exp := &recordingExporter{err: models.NewScrapeError(models.ErrCodeExport, "disk full", nil)}
	r := newRunner(t, staticLinks{links: links("/extrato/1")}, fetcher, exp)

	res, err := r.Run(context.Background(), runDate)
	require.NoError(t, err)
	assert.Equal(t, models.RunFailed, res.Status)
	assert.Contains(t, res.Reason, "disk full")
	assert.Empty(t, res.Artifact)
}

func TestRun_DuplicateSuppression(t *testing.T) {
	fetcher := &mapFetcher{texts: map[string]string{
		origin + "/extrato/1": notaText,
		origin + "/extrato/2": strings.ToLower(notaText),
	}}
	src := staticLinks{links: links("/extrato/1", "/extrato/2")}

	res, err := newRunner(t, src, fetcher, &recordingExporter{}).Run(context.Background(), runDate)
	require.NoError(t, err)
	assert.Len(t, res.Records, 2)
	assert.Zero(t, res.Duplicates)

	res, err = newRunner(t, src, fetcher, &recordingExporter{}, WithDuplicateThreshold(0)).Run(context.Background(), runDate)
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	assert.Equal(t, 1, res.Duplicates)
}

func TestRun_NotifiesWithRunID(t *testing.T) {
	n := &recordingNotifier{}
	r := newRunner(t, staticLinks{}, &mapFetcher{}, &recordingExporter{}, WithNotifier(n), WithRateLimit(1000))

	_, err := r.Run(WithRunID(context.Background(), "run-42"), runDate)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-42"}, n.ids)
	assert.Equal(t, []string{models.RunEmpty}, n.states)
}

func TestRun_CanceledContextStopsFetching(t *testing.T) {
	fetcher := &mapFetcher{texts: map[string]string{origin + "/extrato/1": notaText}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newRunner(t, staticLinks{links: links("/extrato/1")}, fetcher, &recordingExporter{}).Run(ctx, runDate)
	require.NoError(t, err)
	assert.Empty(t, fetcher.requested)
	assert.Equal(t, models.RunEmpty, res.Status)
}

func TestQualify(t *testing.T) {
	r := newRunner(t, staticLinks{}, &mapFetcher{}, &recordingExporter{})

	assert.Equal(t, origin+"/dodf/materia/visualizar?co_data=1&p=extrato", r.Qualify("/dodf/materia/visualizar?co_data=1&p=extrato"))
	assert.Equal(t, "https://outro.gov.br/extrato", r.Qualify("https://outro.gov.br/extrato"))
	assert.Equal(t, origin+"/extrato/3", r.Qualify(" extrato/3 "))
}

func TestNew_InvalidOrigin(t *testing.T) {
	_, err := New(staticLinks{}, &mapFetcher{}, &recordingExporter{}, "not a url")
	assert.Error(t, err)
}

type fakeListing struct {
	anchors []walker.Anchor
	closed  bool
}

func (f *fakeListing) Anchors(context.Context) ([]walker.Anchor, error) { return f.anchors, nil }
func (f *fakeListing) Next(context.Context) (bool, error)               { return false, nil }
func (f *fakeListing) Close()                                           { f.closed = true }

func TestWalkedListing(t *testing.T) {
	listing := &fakeListing{anchors: []walker.Anchor{
		{Href: "/extrato/1", Text: "Extrato da Nota de Empenho"},
		{Href: "/extrato/2", Text: "Extrato de Contrato"},
	}}
	var openedURL string
	src := WalkedListing{
		URL: "https://dodf.df.gov.br/dodf/jornal/diario?tpSecao=III",
		Open: func(_ context.Context, u string) (ClosableListing, error) {
			openedURL = u
			return listing, nil
		},
	}

	got, err := src.Links(context.Background())
	require.NoError(t, err)
	assert.Equal(t, src.URL, openedURL)
	assert.Equal(t, []models.CandidateLink{{URL: "/extrato/1", Text: "Extrato da Nota de Empenho"}}, got)
	assert.True(t, listing.closed)

	failing := WalkedListing{Open: func(context.Context, string) (ClosableListing, error) {
		return nil, errors.New("boom")
	}}
	_, err = failing.Links(context.Background())
	assert.Error(t, err)
}
