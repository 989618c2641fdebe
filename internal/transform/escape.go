package transform

import (
	"strings"

	"golang.org/x/net/html"
)

// markdownSpecials are the characters the final conversion would otherwise
// misinterpret inside plain text.
const markdownSpecials = "\\`*_[]#"

// escapeText backslash-escapes markdown control characters in text nodes.
// Code, fences, raw markdown and math are already marked by earlier passes
// and skipped here, which is why this pass runs last before rendering.
func escapeText(pc *pageContext, body *html.Node) error {
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case rawTag, "pre", "code":
				return
			}
		}
		if n.Type == html.TextNode {
			n.Data = escapeMarkdown(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(body)
	return nil
}

func escapeMarkdown(s string) string {
	if !strings.ContainsAny(s, markdownSpecials) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(markdownSpecials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
