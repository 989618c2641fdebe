package transform

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// normalizeStyles rewrites inline style declarations as semantic markup:
// bold, italic, underline, strikethrough and highlight become their own
// elements, quote-like cite elements become blockquotes, and table cells
// keep their tag with styling stripped.
func normalizeStyles(pc *pageContext, body *html.Node) error {
	for _, cell := range findAll(body, func(n *html.Node) bool {
		return isElem(n, "td") || isElem(n, "th")
	}) {
		removeAttr(cell, "style")
	}

	for _, cite := range findAll(body, func(n *html.Node) bool { return isElem(n, "cite") }) {
		cite.Data = "blockquote"
	}

	styled := findAll(body, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "style") != ""
	})
	for _, n := range styled {
		wrappers := semanticWrappers(styleDecls(attr(n, "style")))
		removeAttr(n, "style")
		if len(wrappers) == 0 {
			continue
		}

		// The outermost wrapper reuses the styled element itself when it is
		// a plain span; otherwise wrappers nest inside it.
		inner := n
		if n.Data == "span" {
			n.Data = wrappers[0]
			wrappers = wrappers[1:]
		}
		for _, tag := range wrappers {
			wrapper := newElem(tag)
			for inner.FirstChild != nil {
				c := inner.FirstChild
				inner.RemoveChild(c)
				wrapper.AppendChild(c)
			}
			inner.AppendChild(wrapper)
			inner = wrapper
		}
	}
	return nil
}

// semanticWrappers maps style declarations to markup element tags, outermost
// first.
func semanticWrappers(decls map[string]string) []string {
	var tags []string
	if w := decls["font-weight"]; w == "bold" || w == "600" || w == "700" || w == "800" || w == "900" {
		tags = append(tags, "strong")
	}
	if decls["font-style"] == "italic" {
		tags = append(tags, "em")
	}
	// A single declaration can carry both decorations.
	deco := decls["text-decoration"]
	if strings.Contains(deco, "underline") {
		tags = append(tags, "u")
	}
	if strings.Contains(deco, "line-through") {
		tags = append(tags, "del")
	}
	if bg := decls["background-color"]; bg != "" && bg != "transparent" && bg != "white" && bg != "#ffffff" {
		tags = append(tags, "mark")
	}
	return tags
}

// rewriteInternalLinks turns proprietary onenote: links into bare
// cross-reference identifiers using the vault's internal-link syntax.
func rewriteInternalLinks(pc *pageContext, body *html.Node) error {
	links := findAll(body, func(n *html.Node) bool {
		return isElem(n, "a") && strings.HasPrefix(strings.ToLower(attr(n, "href")), "onenote:")
	})
	for _, n := range links {
		target := strings.TrimSpace(textContent(n))
		if target == "" {
			target = internalLinkTitle(attr(n, "href"))
		}
		if target == "" {
			unwrap(n)
			continue
		}
		replaceNode(n, rawMarkdown("[["+target+"]]"))
	}
	return nil
}

// internalLinkTitle recovers a human-readable target from an internal link
// URL when the anchor has no text.
func internalLinkTitle(href string) string {
	trimmed := strings.TrimPrefix(href, "onenote:")
	if idx := strings.Index(trimmed, "#"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.Index(trimmed, "&"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	decoded, err := url.PathUnescape(trimmed)
	if err != nil {
		return strings.TrimSpace(trimmed)
	}
	return strings.TrimSpace(decoded)
}

// unwrapListParagraphs removes the paragraph wrapper the source puts inside
// list items; without this the final conversion emits spurious blank lines,
// breaking nested lists apart.
func unwrapListParagraphs(pc *pageContext, body *html.Node) error {
	for _, li := range findAll(body, func(n *html.Node) bool { return isElem(n, "li") }) {
		first := firstSignificantChild(li)
		if first == nil || !isElem(first, "p") {
			continue
		}
		if !zeroMargin(styleDecls(attr(first, "style"))) {
			continue
		}
		unwrap(first)
	}
	return nil
}

func firstSignificantChild(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && isWhitespaceText(c) {
			continue
		}
		return c
	}
	return nil
}

// zeroMargin reports whether the declarations describe a margin-free
// paragraph. A paragraph without margin declarations counts too.
func zeroMargin(decls map[string]string) bool {
	for _, key := range []string{"margin", "margin-top", "margin-bottom"} {
		if val, ok := decls[key]; ok {
			if val != "0" && val != "0px" && val != "0pt" {
				return false
			}
		}
	}
	return true
}
