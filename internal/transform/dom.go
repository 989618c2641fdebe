package transform

import (
	"strings"

	"golang.org/x/net/html"
)

// rawTag marks a node whose text child is already markdown and must pass
// through rendering and escaping untouched.
const rawTag = "rawmd"

// walk visits n and its descendants depth-first. Returning false from fn
// skips the node's subtree.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// findAll collects matching descendants before any mutation happens, so
// passes can safely rewrite the tree while iterating the result.
func findAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	walk(root, func(n *html.Node) bool {
		if pred(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

func isElem(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func removeAttr(n *html.Node, key string) {
	attrs := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			attrs = append(attrs, a)
		}
	}
	n.Attr = attrs
}

// textContent returns the concatenated text of a subtree.
func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}

func newText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func newElem(tag string, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

// rawMarkdown wraps already-rendered markdown so later passes leave it alone.
func rawMarkdown(md string) *html.Node {
	return newElem(rawTag, newText(md))
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func replaceNode(old, replacement *html.Node) {
	parent := old.Parent
	if parent == nil {
		return
	}
	parent.InsertBefore(replacement, old)
	parent.RemoveChild(old)
}

// unwrap promotes a node's children into its place.
func unwrap(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for n.FirstChild != nil {
		c := n.FirstChild
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
	}
	parent.RemoveChild(n)
}

// prependChild inserts a node as the first child of parent.
func prependChild(parent, n *html.Node) {
	if parent.FirstChild != nil {
		parent.InsertBefore(n, parent.FirstChild)
	} else {
		parent.AppendChild(n)
	}
}

// isWhitespaceText reports whether the node is a text node with only
// whitespace (including non-breaking spaces).
func isWhitespaceText(n *html.Node) bool {
	if n.Type != html.TextNode {
		return false
	}
	return strings.TrimFunc(n.Data, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\u00a0'
	}) == ""
}

// styleDecls parses an inline style attribute into lowercase key/value pairs.
func styleDecls(style string) map[string]string {
	decls := make(map[string]string)
	for _, part := range strings.Split(style, ";") {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.ToLower(strings.TrimSpace(kv[1]))
		if key != "" {
			decls[key] = val
		}
	}
	return decls
}

// findBody returns the body element of a parsed document, or the document
// itself when parsing produced no body wrapper.
func findBody(doc *html.Node) *html.Node {
	var body *html.Node
	walk(doc, func(n *html.Node) bool {
		if body != nil {
			return false
		}
		if isElem(n, "body") {
			body = n
			return false
		}
		return true
	})
	if body == nil {
		return doc
	}
	return body
}
