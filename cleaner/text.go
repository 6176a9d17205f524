package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// blockSelector lists elements that start a new line in rendered text.
const blockSelector = "p, div, li, tr, h1, h2, h3, h4, h5, h6, section, article, header, footer, table, ul, ol, blockquote, pre"

// VisibleText approximates the browser's innerText of <body>: script, style
// and template content is dropped, block elements and <br> become line
// breaks, and blank lines are removed.
func VisibleText(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	return selectionText(doc.Selection)
}

func selectionText(sel *goquery.Selection) string {
	sel.Find("script, style, noscript, template, head").Remove()
	sel.Find("br").ReplaceWithNodes(newline())
	sel.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.BeforeNodes(newline())
		s.AppendNodes(newline())
	})

	root := sel.Find("body")
	if root.Length() == 0 {
		root = sel
	}

	lines := strings.Split(root.Text(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func newline() *html.Node {
	return &html.Node{Type: html.TextNode, Data: "\n"}
}

// Title returns the text of the first <title> element, or "".
func Title(rawHTML string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(rawHTML))
	inTitle := false
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				inTitle = true
			}
		case html.TextToken:
			if inTitle {
				return strings.TrimSpace(string(tokenizer.Text()))
			}
		case html.EndTagToken:
			if inTitle {
				return ""
			}
		}
	}
}
