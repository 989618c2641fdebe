package transform

import (
	"fmt"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/mrlokans/notebridge/internal/logger"
)

// compatibleExts are attachment types the vault can preview inline. Anything
// else is dropped unless the caller opted in to importing it anyway.
var compatibleExts = map[string]bool{
	".md": true, ".pdf": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".svg": true, ".webp": true, ".bmp": true,
	".mp3": true, ".wav": true, ".m4a": true, ".ogg": true, ".flac": true,
	".mp4": true, ".webm": true, ".mov": true, ".mkv": true,
}

// videoEmbedHosts are hosting domains whose videos become embed references;
// videos anywhere else degrade to a plain link.
var videoEmbedHosts = []string{"youtube.com", "youtu.be", "vimeo.com"}

// mimeExts maps the content types the notebook service reports for images
// onto file extensions, for generated image names.
var mimeExts = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/svg+xml": ".svg",
	"image/webp":    ".webp",
	"image/bmp":     ".bmp",
}

// extractAttachments pulls embedded objects, images and videos out of the
// DOM, downloads them through the resolver, and replaces each element with
// markdown pointing at the downloaded file. A failed download drops that
// one element and never fails the page.
func extractAttachments(pc *pageContext, body *html.Node) error {
	images := 0

	for _, n := range findAll(body, isAttachmentNode) {
		switch n.Data {
		case "object":
			extractObject(pc, n)
		case "img":
			images++
			extractImage(pc, n, images)
		case "video", "iframe":
			rewriteVideo(n)
		}
	}
	return nil
}

func isAttachmentNode(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "object", "img", "video", "iframe":
		return true
	}
	return false
}

func extractObject(pc *pageContext, n *html.Node) {
	resourceURL := attr(n, "data")
	name := attr(n, "data-attachment")
	if name == "" {
		name = "attachment"
	}
	if resourceURL == "" {
		detach(n)
		return
	}

	if !compatibleExts[strings.ToLower(path.Ext(name))] && !pc.t.opts.IncludeIncompatible {
		logger.Debug("dropping incompatible attachment", logger.Fields{"name": name, "page": pc.meta.ID})
		detach(n)
		return
	}

	dest := fetchAttachment(pc, resourceURL, name)
	if dest == "" {
		detach(n)
		return
	}
	replaceNode(n, rawMarkdown(fmt.Sprintf("[%s](%s)", name, linkTarget(pc.meta.Folder, dest))))
}

func extractImage(pc *pageContext, n *html.Node, index int) {
	resourceURL := attr(n, "data-fullres-src")
	mime := attr(n, "data-fullres-src-type")
	if resourceURL == "" {
		resourceURL = attr(n, "src")
		mime = attr(n, "data-src-type")
	}
	if resourceURL == "" {
		detach(n)
		return
	}

	alt := attr(n, "alt")
	name := fmt.Sprintf("image-%d%s", index, imageExt(mime))

	dest := fetchAttachment(pc, resourceURL, name)
	if dest == "" {
		detach(n)
		return
	}
	replaceNode(n, rawMarkdown(fmt.Sprintf("![%s](%s)", alt, linkTarget(pc.meta.Folder, dest))))
}

// rewriteVideo keeps videos remote: hosted videos become embeds, everything
// else a plain link.
func rewriteVideo(n *html.Node) {
	src := attr(n, "src")
	if src == "" {
		src = attr(n, "data-original-src")
	}
	if src == "" {
		detach(n)
		return
	}

	for _, host := range videoEmbedHosts {
		if strings.Contains(src, host) {
			replaceNode(n, rawMarkdown(fmt.Sprintf("![](%s)", src)))
			return
		}
	}
	replaceNode(n, rawMarkdown(fmt.Sprintf("[%s](%s)", src, src)))
}

// fetchAttachment downloads one resource, recording the result on the page
// output. Returns "" when the download failed.
func fetchAttachment(pc *pageContext, resourceURL, name string) string {
	dest, err := pc.t.resolver.Fetch(pc.ctx, resourceURL, pc.meta.AttachmentDir, name)
	if err != nil {
		logger.Error("attachment download failed", err, logger.Fields{"name": name, "page": pc.meta.ID})
		return ""
	}
	pc.out.Attachments = append(pc.out.Attachments, dest)
	return dest
}

func imageExt(mime string) string {
	if ext, ok := mimeExts[strings.ToLower(mime)]; ok {
		return ext
	}
	return ".png"
}

// linkTarget converts a vault-relative attachment path into a reference
// relative to the note's folder, escaping spaces for markdown.
func linkTarget(noteFolder, dest string) string {
	rel := relPath(noteFolder, dest)
	return strings.ReplaceAll(rel, " ", "%20")
}

// relPath computes a forward-slash relative path from a folder to a target,
// both vault-relative.
func relPath(fromDir, target string) string {
	if fromDir == "" {
		return target
	}
	from := strings.Split(fromDir, "/")
	to := strings.Split(target, "/")

	common := 0
	for common < len(from) && common < len(to)-1 && from[common] == to[common] {
		common++
	}

	var segments []string
	for i := common; i < len(from); i++ {
		segments = append(segments, "..")
	}
	segments = append(segments, to[common:]...)
	return strings.Join(segments, "/")
}
