package transform

import (
	"strings"

	"golang.org/x/net/html"
)

const drawingBanner = "> [!caution]\n> This page contains a drawing that could not be imported.\n\n"

// markDrawings scans for the comment marker the service leaves where ink
// content was stripped from the HTML rendition. The first marker found in a
// subtree inserts a caution banner at the top of that subtree; no further
// descent happens for this concern, one banner per subtree is enough.
func markDrawings(pc *pageContext, body *html.Node) error {
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.CommentNode && strings.Contains(c.Data, "InkNode is not supported") {
				prependChild(n, rawMarkdown(drawingBanner))
				pc.out.HasDrawings = true
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(body)
	return nil
}
