package vault

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// BrokenRef is a markdown link or image whose local target does not exist.
type BrokenRef struct {
	Note   string // vault-relative path of the note holding the reference
	Target string // the reference destination as written
}

// Verify parses every markdown note in the vault and returns the local
// references that point at missing files. External URLs are skipped.
func (v *Vault) Verify() ([]BrokenRef, error) {
	md := goldmark.New()
	var broken []BrokenRef

	err := filepath.WalkDir(v.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		source, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", p, err)
		}

		rel, err := filepath.Rel(v.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		for _, target := range extractRefs(md, source) {
			if !v.refExists(rel, target) {
				broken = append(broken, BrokenRef{Note: rel, Target: target})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("vault verification failed: %w", err)
	}

	return broken, nil
}

// extractRefs walks the parsed document and collects link and image
// destinations.
func extractRefs(md goldmark.Markdown, source []byte) []string {
	doc := md.Parser().Parse(text.NewReader(source))

	var refs []string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			refs = append(refs, string(node.Destination))
		case *ast.Image:
			refs = append(refs, string(node.Destination))
		}
		return ast.WalkContinue, nil
	})
	return refs
}

// refExists resolves a reference relative to the note that contains it and
// checks the target file is present. Non-local references always pass.
func (v *Vault) refExists(noteRel, target string) bool {
	if target == "" || strings.HasPrefix(target, "#") {
		return true
	}
	if u, err := url.Parse(target); err == nil && u.Scheme != "" {
		return true
	}

	decoded, err := url.PathUnescape(target)
	if err != nil {
		decoded = target
	}
	// Strip an in-file anchor if present.
	if idx := strings.Index(decoded, "#"); idx >= 0 {
		decoded = decoded[:idx]
	}
	if decoded == "" {
		return true
	}

	resolved := path.Join(path.Dir(noteRel), decoded)
	return v.Exists(resolved) || v.dirExists(resolved)
}
