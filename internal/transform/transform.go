// Package transform converts one page's raw multipart payload into
// vault-ready markdown. The conversion is an explicit ordered pipeline of
// DOM rewriting passes over the parsed HTML; order matters, each pass
// assumes the output of the previous one.
package transform

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/mrlokans/notebridge/internal/logger"
)

// AttachmentResolver downloads one embedded resource into the vault and
// returns its vault-relative path. Satisfied by the attachments fetcher.
type AttachmentResolver interface {
	Fetch(ctx context.Context, resourceURL, dir, name string) (string, error)
}

// PageMeta carries the page identity and placement the transformer needs.
type PageMeta struct {
	ID            string
	Title         string
	Folder        string // vault-relative folder holding the note
	AttachmentDir string // vault-relative folder for this page's attachments
}

// Output is the transformation result for one page. InkML is stashed for
// callers that want to keep the raw ink side-channel; it is never rendered.
type Output struct {
	Markdown    string
	InkML       string
	HasDrawings bool
	Attachments []string // vault-relative paths of fetched attachments
}

// Options tunes transformation behavior.
type Options struct {
	// IncludeIncompatible keeps attachments whose type the vault cannot
	// preview instead of dropping them.
	IncludeIncompatible bool
}

// Transformer runs the conversion pipeline. It is stateless across pages;
// per-page state lives in the pageContext threaded through the passes.
type Transformer struct {
	resolver AttachmentResolver
	opts     Options
}

// NewTransformer creates a transformer that resolves attachments through
// the given resolver.
func NewTransformer(resolver AttachmentResolver, opts Options) *Transformer {
	return &Transformer{resolver: resolver, opts: opts}
}

// pageContext is the mutable state shared by the passes of one page.
type pageContext struct {
	ctx  context.Context
	meta PageMeta
	out  *Output
	t    *Transformer
}

type pass struct {
	name string
	run  func(pc *pageContext, body *html.Node) error
}

// pipeline returns the ordered pass list. Escaping runs after the style,
// link, ink and math passes specifically so protected text (raw markdown,
// math) is already marked by the time it runs.
func (t *Transformer) pipeline() []pass {
	return []pass{
		{"annotation-tags", convertTags},
		{"attachments", extractAttachments},
		{"code-blocks", reconstructCodeBlocks},
		{"styles", normalizeStyles},
		{"internal-links", rewriteInternalLinks},
		{"ink-markers", markDrawings},
		{"math", convertMath},
		{"list-unwrap", unwrapListParagraphs},
		{"escape", escapeText},
	}
}

// Transform converts a raw page payload into markdown. Pass failures other
// than cancellation are contained here so one broken page never takes its
// siblings down with it.
func (t *Transformer) Transform(ctx context.Context, raw string, meta PageMeta) (*Output, error) {
	parts, err := splitPayload(raw)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(parts.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page html: %w", err)
	}
	body := findBody(doc)

	out := &Output{InkML: parts.Ink}
	pc := &pageContext{ctx: ctx, meta: meta, out: out, t: t}

	for _, p := range t.pipeline() {
		if err := p.run(pc, body); err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			return nil, fmt.Errorf("transform pass %s failed: %w", p.name, err)
		}
	}

	out.Markdown = collapseWhitespace(renderMarkdown(body))

	logger.Debug("page transformed", logger.Fields{
		"page":        meta.ID,
		"attachments": len(out.Attachments),
		"drawings":    out.HasDrawings,
	})
	return out, nil
}
