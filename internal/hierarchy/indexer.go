// Package hierarchy discovers the remote notebook forest and maps every
// entity onto a deterministic output path inside the vault.
package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mrlokans/notebridge/internal/graph"
	"github.com/mrlokans/notebridge/internal/logger"
	"github.com/mrlokans/notebridge/internal/utils"
)

// ErrNotFound means an entity ID is not present anywhere in the forest.
// The caller cannot place the entity's file and must fail that entity.
var ErrNotFound = errors.New("entity not found in hierarchy")

// NodeKind distinguishes the container types of the forest.
type NodeKind int

const (
	KindNotebook NodeKind = iota
	KindSectionGroup
	KindSection
)

// PageRef is the position of one page within its section. Order is strict
// document order; Level is zero-based outline nesting depth. Level changes
// are used only to detect parent/child nesting, never to reorder.
type PageRef struct {
	ID         string
	Title      string
	Level      int
	Order      int
	ContentURL string
	Created    time.Time
	Modified   time.Time
}

// Node is one container in the forest. Children are ordered; Pages is only
// populated for sections, ordered by PageRef.Order.
type Node struct {
	Kind     NodeKind
	ID       string
	Name     string
	Children []*Node
	Pages    []PageRef
}

// Forest is the set of notebook trees for one import session. It is rebuilt
// on every discovery pass and never mutated concurrently.
type Forest struct {
	Roots []*Node
}

// Sections returns every section in the forest in depth-first order.
func (f *Forest) Sections() []*Node {
	var sections []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.Kind == KindSection {
			sections = append(sections, n)
			return
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	for _, root := range f.Roots {
		walk(root)
	}
	return sections
}

// Indexer performs discovery and path resolution.
type Indexer struct {
	client  *graph.Client
	baseURL string
	forest  *Forest
}

// NewIndexer creates an indexer that discovers through the given client.
func NewIndexer(client *graph.Client, baseURL string) *Indexer {
	return &Indexer{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// NewIndexerWithForest creates an indexer over an already materialized
// forest. Used by tests and by callers that cache discovery results.
func NewIndexerWithForest(forest *Forest) *Indexer {
	return &Indexer{forest: forest}
}

// Forest returns the forest from the last discovery pass.
func (ix *Indexer) Forest() *Forest {
	return ix.forest
}

// Discover fetches the top-level notebooks and recursively materializes all
// nested section groups and sections. The previous forest, if any, is
// discarded: paths are always resolved against a single fresh snapshot.
func (ix *Indexer) Discover(ctx context.Context) (*Forest, error) {
	values, err := ix.client.GetPaginated(ctx, ix.baseURL+"/me/onenote/notebooks")
	if err != nil {
		return nil, fmt.Errorf("failed to list notebooks: %w", err)
	}
	notebooks, err := graph.DecodeList[graph.Notebook](values)
	if err != nil {
		return nil, fmt.Errorf("failed to decode notebooks: %w", err)
	}

	forest := &Forest{}
	for _, nb := range notebooks {
		node := &Node{Kind: KindNotebook, ID: nb.ID, Name: nb.DisplayName}
		if err := ix.discoverChildren(ctx, node, nb.SectionsURL, nb.SectionGroupsURL); err != nil {
			return nil, fmt.Errorf("failed to discover notebook %q: %w", nb.DisplayName, err)
		}
		forest.Roots = append(forest.Roots, node)
	}

	logger.Info("hierarchy discovered", logger.Fields{
		"notebooks": len(forest.Roots),
		"sections":  len(forest.Sections()),
	})

	ix.forest = forest
	return forest, nil
}

// discoverChildren fetches the sections and section groups of one container
// and recurses into each group.
func (ix *Indexer) discoverChildren(ctx context.Context, parent *Node, sectionsURL, groupsURL string) error {
	if sectionsURL != "" {
		values, err := ix.client.GetPaginated(ctx, sectionsURL)
		if err != nil {
			return fmt.Errorf("failed to list sections: %w", err)
		}
		sections, err := graph.DecodeList[graph.Section](values)
		if err != nil {
			return fmt.Errorf("failed to decode sections: %w", err)
		}
		for _, s := range sections {
			parent.Children = append(parent.Children, &Node{
				Kind: KindSection,
				ID:   s.ID,
				Name: s.DisplayName,
			})
		}
	}

	if groupsURL != "" {
		values, err := ix.client.GetPaginated(ctx, groupsURL)
		if err != nil {
			return fmt.Errorf("failed to list section groups: %w", err)
		}
		groups, err := graph.DecodeList[graph.SectionGroup](values)
		if err != nil {
			return fmt.Errorf("failed to decode section groups: %w", err)
		}
		for _, g := range groups {
			node := &Node{Kind: KindSectionGroup, ID: g.ID, Name: g.DisplayName}
			if err := ix.discoverChildren(ctx, node, g.SectionsURL, g.SectionGroupsURL); err != nil {
				return err
			}
			parent.Children = append(parent.Children, node)
		}
	}

	return nil
}

// SetPages attaches the ordered page list of a section. Pages are sorted by
// Order so document order holds regardless of response order.
func (ix *Indexer) SetPages(sectionID string, pages []PageRef) error {
	section := ix.findNode(sectionID)
	if section == nil || section.Kind != KindSection {
		return fmt.Errorf("section %s: %w", sectionID, ErrNotFound)
	}
	sorted := make([]PageRef, len(pages))
	copy(sorted, pages)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	section.Pages = sorted
	return nil
}

// ResolvePath returns the vault-relative folder (forward-slash separated)
// that holds the entity's content. For containers this is their own folder;
// for pages it is the folder their markdown file belongs in. The result is
// a pure function of the current forest snapshot.
func (ix *Indexer) ResolvePath(entityID string) (string, error) {
	if ix.forest == nil {
		return "", fmt.Errorf("no forest discovered: %w", ErrNotFound)
	}

	var resolve func(n *Node, segments []string) (string, bool)
	resolve = func(n *Node, segments []string) (string, bool) {
		here := append(segments, utils.SanitizeFilename(n.Name))
		if n.ID == entityID {
			return strings.Join(here, "/"), true
		}
		if n.Kind == KindSection {
			for i, p := range n.Pages {
				if p.ID == entityID {
					folder := append(here, pageFolder(n.Pages, i)...)
					return strings.Join(folder, "/"), true
				}
			}
			return "", false
		}
		for _, child := range n.Children {
			if path, ok := resolve(child, here); ok {
				return path, true
			}
		}
		return "", false
	}

	for _, root := range ix.forest.Roots {
		if path, ok := resolve(root, nil); ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("entity %s: %w", entityID, ErrNotFound)
}

// pageFolder computes the folder segments of page idx relative to its
// section, mirroring the source outliner nesting:
//
//   - a level-0 page whose immediate successor is nested gets a subfolder
//     bearing its own title, so its children can live beside it;
//   - a nested page scans backward for the nearest page one level up and
//     nests under that parent's title.
func pageFolder(pages []PageRef, idx int) []string {
	p := pages[idx]

	if p.Level <= 0 {
		if idx+1 < len(pages) && pages[idx+1].Level > 0 {
			return []string{utils.SanitizeFilename(p.Title)}
		}
		return nil
	}

	for j := idx - 1; j >= 0; j-- {
		if pages[j].Level == p.Level-1 {
			return append(parentBase(pages, j), utils.SanitizeFilename(pages[j].Title))
		}
	}
	// No parent above: treat as top-level within the section.
	return nil
}

// parentBase returns the folder segments the parent page itself nests in,
// excluding the subfolder the parent may own for its children.
func parentBase(pages []PageRef, idx int) []string {
	p := pages[idx]
	if p.Level <= 0 {
		return nil
	}
	for j := idx - 1; j >= 0; j-- {
		if pages[j].Level == p.Level-1 {
			return append(parentBase(pages, j), utils.SanitizeFilename(pages[j].Title))
		}
	}
	return nil
}

// findNode locates a container node by ID.
func (ix *Indexer) findNode(id string) *Node {
	if ix.forest == nil {
		return nil
	}
	var walk func(n *Node) *Node
	walk = func(n *Node) *Node {
		if n.ID == id {
			return n
		}
		for _, child := range n.Children {
			if found := walk(child); found != nil {
				return found
			}
		}
		return nil
	}
	for _, root := range ix.forest.Roots {
		if found := walk(root); found != nil {
			return found
		}
	}
	return nil
}
