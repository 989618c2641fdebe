package transform

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/mrlokans/notebridge/internal/logger"
)

const mathFallback = "[unsupported math expression]"

// convertMath rewrites embedded math markup into inline LaTeX. A conversion
// failure degrades that one expression to a placeholder instead of failing
// the page.
func convertMath(pc *pageContext, body *html.Node) error {
	for _, m := range findAll(body, func(n *html.Node) bool { return isElem(n, "math") }) {
		latex, err := mathToLatex(m)
		if err != nil {
			logger.Warn("math conversion failed", logger.Fields{"page": pc.meta.ID, "reason": err.Error()})
			replaceNode(m, newText(mathFallback))
			continue
		}
		replaceNode(m, rawMarkdown("$"+latex+"$"))
	}
	return nil
}

// mathToLatex converts a MathML subtree to a LaTeX string. Only the element
// vocabulary the notebook service emits is supported; anything else is a
// conversion failure handled by the caller.
func mathToLatex(n *html.Node) (string, error) {
	switch {
	case n.Type == html.TextNode:
		return strings.TrimSpace(n.Data), nil
	case n.Type != html.ElementNode:
		return "", nil
	}

	switch n.Data {
	case "math", "mrow", "mstyle", "semantics":
		return latexChildren(n, "")
	case "mi", "mn", "mtext":
		return strings.TrimSpace(textContent(n)), nil
	case "mo":
		return latexOperator(strings.TrimSpace(textContent(n))), nil
	case "msup":
		return latexPair(n, "%s^{%s}")
	case "msub":
		return latexPair(n, "%s_{%s}")
	case "mfrac":
		return latexPair(n, "\\frac{%s}{%s}")
	case "msqrt":
		inner, err := latexChildren(n, "")
		if err != nil {
			return "", err
		}
		return "\\sqrt{" + inner + "}", nil
	case "mspace":
		return "\\ ", nil
	case "mfenced":
		inner, err := latexChildren(n, ", ")
		if err != nil {
			return "", err
		}
		return "\\left(" + inner + "\\right)", nil
	case "annotation":
		// Skip alternate encodings carried alongside the presentation tree.
		return "", nil
	default:
		return "", fmt.Errorf("unsupported math element <%s>", n.Data)
	}
}

func latexChildren(n *html.Node, sep string) (string, error) {
	var parts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && isWhitespaceText(c) {
			continue
		}
		part, err := mathToLatex(c)
		if err != nil {
			return "", err
		}
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, sep), nil
}

// latexPair converts the first two significant children into a two-slot
// LaTeX template.
func latexPair(n *html.Node, format string) (string, error) {
	var operands []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && isWhitespaceText(c) {
			continue
		}
		part, err := mathToLatex(c)
		if err != nil {
			return "", err
		}
		operands = append(operands, part)
	}
	if len(operands) != 2 {
		return "", fmt.Errorf("expected 2 operands, got %d", len(operands))
	}
	return fmt.Sprintf(format, operands[0], operands[1]), nil
}

var latexOperators = map[string]string{
	"×": "\\times", "÷": "\\div", "±": "\\pm",
	"≤": "\\leq", "≥": "\\geq", "≠": "\\neq",
	"→": "\\rightarrow", "∞": "\\infty",
	"∑": "\\sum", "∏": "\\prod", "∫": "\\int",
	"⋅": "\\cdot", "\u2062": "",
}

func latexOperator(op string) string {
	if latex, ok := latexOperators[op]; ok {
		return latex
	}
	return op
}
