package cleaner

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Scope narrows rawHTML to the elements matching selector, concatenating
// their outer HTML. An empty selector or one that matches nothing returns
// rawHTML unchanged, so a stale selector degrades to whole-page text
// instead of an empty document.
func Scope(rawHTML, selector string) (string, error) {
	if strings.TrimSpace(selector) == "" {
		return rawHTML, nil
	}
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return "", fmt.Errorf("cleaner: invalid selector %q: %w", selector, err)
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("cleaner: parse html: %w", err)
	}

	matches := cascadia.QueryAll(doc, sel)
	if len(matches) == 0 {
		return rawHTML, nil
	}

	var buf bytes.Buffer
	for _, node := range matches {
		if err := html.Render(&buf, node); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// ScopedText is VisibleText applied to the part of the page matched by
// selector.
func ScopedText(rawHTML, selector string) (string, error) {
	scoped, err := Scope(rawHTML, selector)
	if err != nil {
		return "", err
	}
	return VisibleText(scoped), nil
}

// ValidSelector reports whether selector compiles. Empty is valid.
func ValidSelector(selector string) error {
	if strings.TrimSpace(selector) == "" {
		return nil
	}
	_, err := cascadia.Parse(selector)
	return err
}
