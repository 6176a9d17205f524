package cleaner

import (
	"fmt"
	"log/slog"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/use-agent/dodf/models"
)

// Cleaner turns rendered gazette pages into the text the extractor reads and
// the Markdown preview operators look at when tuning rules.
//
// The converter is created once and reused across all requests (goroutine-safe).
type Cleaner struct {
	mdConverter     *converter.Converter
	contentSelector string
}

// New returns a Cleaner. contentSelector optionally narrows pages to the
// publication body; empty means the whole body.
func New(contentSelector string) *Cleaner {
	return &Cleaner{
		mdConverter:     newMarkdownConverter(),
		contentSelector: contentSelector,
	}
}

// newMarkdownConverter builds the shared converter. Extracts are often laid
// out in tables, so the table plugin is on with minimal padding.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal)),
		),
	)
}

// Preview is the operator-facing rendition of one document.
type Preview struct {
	Title    string
	Markdown string
	Text     string
}

// Text returns the visible text of rawHTML within the content selector.
func (c *Cleaner) Text(rawHTML string) (string, error) {
	return ScopedText(rawHTML, c.contentSelector)
}

// Preview runs the two-stage pipeline:
//
//	Stage 1 (readability): keep the publication, drop portal chrome
//	Stage 2 (markdown):    convert the kept HTML to Markdown
//
// Text is always the scoped visible text, independent of readability, so the
// record shown beside the preview matches what a run would extract.
func (c *Cleaner) Preview(rawHTML, sourceURL string) (*Preview, error) {
	// ── 1. Scope ────────────────────────────────────────────────────
	scoped, err := Scope(rawHTML, c.contentSelector)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput,
			"invalid content selector", err)
	}

	// ── 2. Stage 1: readability ─────────────────────────────────────
	article, ok := extractArticle(scoped, sourceURL)
	if !ok {
		slog.Debug("preview: using scoped HTML", "url", sourceURL)
	}

	// ── 3. Stage 2: markdown ────────────────────────────────────────
	md, err := c.mdConverter.ConvertString(article.Content, converter.WithDomain(sourceURL))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal,
			"markdown conversion failed", fmt.Errorf("convert %s: %w", sourceURL, err))
	}

	title := article.Title
	if title == "" {
		title = Title(rawHTML)
	}

	return &Preview{
		Title:    title,
		Markdown: md,
		Text:     VisibleText(scoped),
	}, nil
}
