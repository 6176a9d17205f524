package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the minimum TextContent length (in characters) for
// readability output to be considered valid. Gazette extracts are short, so
// the bar is lower than for news articles.
const minContentLength = 40

// extractArticle runs the Mozilla Readability algorithm on rawHTML.
// The boolean is false when readability failed or found too little text;
// the returned article then wraps rawHTML unchanged.
func extractArticle(rawHTML string, sourceURL string) (readability.Article, bool) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Warn("readability: invalid source URL, falling back to raw HTML",
			"url", sourceURL, "error", err,
		)
		return fallbackArticle(rawHTML), false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Warn("readability: extraction failed, falling back to raw HTML",
			"url", sourceURL, "error", err,
		)
		return fallbackArticle(rawHTML), false
	}

	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		slog.Debug("readability: extracted content too short, falling back to raw HTML",
			"url", sourceURL, "length", len(article.TextContent),
		)
		return fallbackArticle(rawHTML), false
	}

	return article, true
}

func fallbackArticle(rawHTML string) readability.Article {
	return readability.Article{
		Content:     rawHTML,
		TextContent: VisibleText(rawHTML),
	}
}
