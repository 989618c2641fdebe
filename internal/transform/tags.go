package transform

import (
	"strings"

	"golang.org/x/net/html"
)

// convertTags rewrites elements carrying a data-tag attribute. To-do tags
// become checklist markers at the start of the element; every other tag
// value becomes an inline hashtag appended after the content.
func convertTags(pc *pageContext, body *html.Node) error {
	tagged := findAll(body, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "data-tag") != ""
	})

	for _, n := range tagged {
		var hashtags []string
		for _, tag := range strings.Split(attr(n, "data-tag"), ",") {
			tag = strings.TrimSpace(tag)
			switch tag {
			case "":
				continue
			case "to-do":
				prependChild(n, rawMarkdown("- [ ] "))
			case "to-do:completed":
				prependChild(n, rawMarkdown("- [x] "))
			default:
				hashtags = append(hashtags, "#"+hashtagName(tag))
			}
		}
		if len(hashtags) > 0 {
			n.AppendChild(rawMarkdown(" " + strings.Join(hashtags, " ")))
		}
		removeAttr(n, "data-tag")
	}
	return nil
}

// hashtagName turns a tag value into a single hashtag token.
func hashtagName(tag string) string {
	tag = strings.ReplaceAll(tag, ":", "-")
	return strings.Join(strings.Fields(tag), "-")
}
