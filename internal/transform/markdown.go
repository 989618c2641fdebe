package transform

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// renderMarkdown converts the transformed DOM into markdown text. By this
// point every proprietary construct has been rewritten into plain HTML
// semantics or raw markdown wrappers, so rendering is a direct mapping.
func renderMarkdown(body *html.Node) string {
	blocks := renderBlocks(body)
	return strings.Join(blocks, "\n\n")
}

func renderBlocks(n *html.Node) []string {
	var blocks []string
	var paragraph strings.Builder

	flush := func() {
		if text := strings.TrimSpace(paragraph.String()); text != "" {
			blocks = append(blocks, text)
		}
		paragraph.Reset()
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			paragraph.WriteString(inlineText(c.Data))
			continue
		}
		if c.Type != html.ElementNode {
			continue
		}

		switch c.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			flush()
			depth := int(c.Data[1] - '0')
			blocks = append(blocks, strings.Repeat("#", depth)+" "+renderInline(c))
		case "p":
			flush()
			if text := strings.TrimSpace(renderInline(c)); text != "" {
				blocks = append(blocks, text)
			}
		case "pre":
			flush()
			blocks = append(blocks, "```\n"+textContent(c)+"\n```")
		case "blockquote":
			flush()
			blocks = append(blocks, quoteBlock(c))
		case "ul", "ol":
			flush()
			blocks = append(blocks, renderList(c, 0))
		case "table":
			flush()
			blocks = append(blocks, renderTable(c))
		case "hr":
			flush()
			blocks = append(blocks, "---")
		case "div", "body", "section", "article":
			flush()
			blocks = append(blocks, renderBlocks(c)...)
		case rawTag:
			flush()
			if text := strings.TrimRight(textContent(c), "\n"); text != "" {
				blocks = append(blocks, text)
			}
		case "br":
			flush()
		default:
			paragraph.WriteString(renderInline(c))
		}
	}
	flush()
	return blocks
}

// renderInline flattens a subtree into one markdown line (soft line breaks
// allowed via <br>).
func renderInline(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(renderInlineNode(c))
	}
	return b.String()
}

func renderInlineNode(n *html.Node) string {
	if n.Type == html.TextNode {
		return inlineText(n.Data)
	}
	if n.Type != html.ElementNode {
		return ""
	}

	switch n.Data {
	case "strong", "b":
		return wrapNonEmpty(renderInline(n), "**")
	case "em", "i":
		return wrapNonEmpty(renderInline(n), "*")
	case "del", "s", "strike":
		return wrapNonEmpty(renderInline(n), "~~")
	case "mark":
		return wrapNonEmpty(renderInline(n), "==")
	case "u":
		inner := renderInline(n)
		if strings.TrimSpace(inner) == "" {
			return inner
		}
		return "<u>" + inner + "</u>"
	case "code":
		return "`" + textContent(n) + "`"
	case "a":
		text := strings.TrimSpace(renderInline(n))
		href := attr(n, "href")
		if href == "" {
			return text
		}
		if text == "" {
			text = href
		}
		return fmt.Sprintf("[%s](%s)", text, href)
	case "br":
		return "\n"
	case rawTag:
		return textContent(n)
	default:
		return renderInline(n)
	}
}

// wrapNonEmpty keeps emphasis markers off whitespace-only runs, which would
// otherwise render as literal asterisks.
func wrapNonEmpty(inner, marker string) string {
	trimmed := strings.TrimSpace(inner)
	if trimmed == "" {
		return inner
	}
	return marker + trimmed + marker
}

func quoteBlock(n *html.Node) string {
	inner := strings.Join(renderBlocks(n), "\n\n")
	if inner == "" {
		inner = strings.TrimSpace(renderInline(n))
	}
	lines := strings.Split(inner, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight("> "+line, " ")
	}
	return strings.Join(lines, "\n")
}

func renderList(list *html.Node, depth int) string {
	indent := strings.Repeat("    ", depth)
	ordered := list.Data == "ol"

	var lines []string
	item := 0
	for c := list.FirstChild; c != nil; c = c.NextSibling {
		if !isElem(c, "li") {
			continue
		}
		item++

		marker := "- "
		if ordered {
			marker = fmt.Sprintf("%d. ", item)
		}

		var inline strings.Builder
		var nested []string
		for lc := c.FirstChild; lc != nil; lc = lc.NextSibling {
			if isElem(lc, "ul") || isElem(lc, "ol") {
				nested = append(nested, renderList(lc, depth+1))
				continue
			}
			inline.WriteString(renderInlineNode(lc))
		}

		text := strings.TrimSpace(inline.String())
		lines = append(lines, indent+marker+text)
		lines = append(lines, nested...)
	}
	return strings.Join(lines, "\n")
}

func renderTable(table *html.Node) string {
	var rows [][]string
	walk(table, func(n *html.Node) bool {
		if isElem(n, "tr") {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if isElem(c, "td") || isElem(c, "th") {
					cells = append(cells, strings.TrimSpace(renderInline(c)))
				}
			}
			rows = append(rows, cells)
			return false
		}
		return true
	})
	if len(rows) == 0 {
		return ""
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	var lines []string
	for i, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
		if i == 0 {
			sep := make([]string, width)
			for j := range sep {
				sep[j] = "---"
			}
			lines = append(lines, "| "+strings.Join(sep, " | ")+" |")
		}
	}
	return strings.Join(lines, "\n")
}

// inlineText collapses whitespace runs in source text; the source pads
// paragraph boundaries with newlines and non-breaking spaces that carry no
// meaning in markdown.
func inlineText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	if !strings.ContainsAny(s, "\n\r\t") {
		return s
	}
	var b strings.Builder
	space := false
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || r == ' ' {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	if space {
		b.WriteByte(' ')
	}
	return b.String()
}

// collapseWhitespace is the final cleanup: trailing space removal and blank
// line collapsing outside code fences.
func collapseWhitespace(md string) string {
	lines := strings.Split(md, "\n")
	var out []string
	inFence := false
	blanks := 0

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			out = append(out, line)
			blanks = 0
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}

		line = strings.TrimRight(line, " \t")
		if line == "" {
			blanks++
			if blanks > 1 {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, line)
	}

	result := strings.TrimSpace(strings.Join(out, "\n"))
	if result == "" {
		return ""
	}
	return result + "\n"
}
