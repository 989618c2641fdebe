package transform

import (
	"strings"

	"golang.org/x/net/html"
)

var monoFamilies = []string{"consolas", "courier", "monospace", "lucida console", "monaco"}

// reconstructCodeBlocks merges consecutive monospace-only paragraphs into a
// single fenced code block. A lone monospace run without internal line
// breaks becomes an inline code span instead of a fence.
func reconstructCodeBlocks(pc *pageContext, body *html.Node) error {
	monoParas := findAll(body, isMonoParagraph)

	handled := make(map[*html.Node]bool)
	for _, p := range monoParas {
		if handled[p] {
			continue
		}

		run := []*html.Node{p}
		handled[p] = true
		for next := nextSignificantSibling(p); next != nil && isMonoParagraph(next); next = nextSignificantSibling(next) {
			run = append(run, next)
			handled[next] = true
		}

		var lines []string
		for _, para := range run {
			lines = append(lines, paragraphLines(para)...)
		}

		if len(run) == 1 && len(lines) == 1 {
			// Single run, single line: inline span.
			first := run[0]
			for first.FirstChild != nil {
				first.RemoveChild(first.FirstChild)
			}
			first.AppendChild(newElem("code", newText(lines[0])))
			continue
		}

		fence := newElem("pre", newText(strings.Join(lines, "\n")))
		replaceNode(run[0], fence)
		for _, rest := range run[1:] {
			detach(rest)
		}
	}

	// Monospace runs inside mixed paragraphs become inline code spans.
	for _, n := range findAll(body, isMonoStyled) {
		n.Data = "code"
		removeAttr(n, "style")
	}
	return nil
}

// isMonoStyled reports whether an element declares a monospace font family.
func isMonoStyled(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	family := styleDecls(attr(n, "style"))["font-family"]
	if family == "" {
		return false
	}
	for _, mono := range monoFamilies {
		if strings.Contains(family, mono) {
			return true
		}
	}
	return false
}

// isMonoParagraph reports whether a paragraph's entire visible content is
// monospace-styled (line breaks allowed).
func isMonoParagraph(n *html.Node) bool {
	if !isElem(n, "p") {
		return false
	}

	hasMono := false
	allMono := true
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode && !isWhitespaceText(c) {
			if hasMonoAncestorWithin(c, n) {
				hasMono = true
			} else {
				allMono = false
			}
		}
		return true
	})
	return hasMono && allMono
}

func hasMonoAncestorWithin(n, stop *html.Node) bool {
	for cur := n.Parent; cur != nil && cur != stop.Parent; cur = cur.Parent {
		if isMonoStyled(cur) {
			return true
		}
	}
	return false
}

// paragraphLines flattens a paragraph into text lines, splitting on <br>.
func paragraphLines(p *html.Node) []string {
	var lines []string
	var current strings.Builder

	flush := func() {
		lines = append(lines, strings.TrimRight(nbspToSpace(current.String()), " \t"))
		current.Reset()
	}

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if isElem(c, "br") {
				flush()
				continue
			}
			if c.Type == html.TextNode {
				current.WriteString(c.Data)
				continue
			}
			visit(c)
		}
	}
	visit(p)
	flush()
	return lines
}

// nextSignificantSibling skips whitespace-only text nodes between siblings.
func nextSignificantSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.TextNode && isWhitespaceText(s) {
			continue
		}
		return s
	}
	return nil
}

func nbspToSpace(s string) string {
	return strings.ReplaceAll(s, "\u00a0", " ")
}
