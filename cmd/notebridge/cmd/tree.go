package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/spf13/cobra"

	"github.com/mrlokans/notebridge/internal/hierarchy"
)

var (
	notebookStyle = lipgloss.NewStyle().Bold(true)
	idStyle       = lipgloss.NewStyle().Faint(true)
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show the discovered notebook hierarchy",
	Long: `Discovers your notebooks, section groups and sections and prints them as
a tree. Section IDs shown here can be passed to "import --sections" to
migrate a subset.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openTokenStore()
		if err != nil {
			return err
		}
		defer store.Close()

		client, err := newGraphClient(store)
		if err != nil {
			return err
		}

		indexer := hierarchy.NewIndexer(client, cfg.Graph.BaseURL)
		forest, err := indexer.Discover(cmd.Context())
		if err != nil {
			return err
		}

		if len(forest.Roots) == 0 {
			fmt.Println("No notebooks found.")
			return nil
		}
		for _, root := range forest.Roots {
			fmt.Println(buildTree(root))
		}
		return nil
	},
}

func buildTree(n *hierarchy.Node) *tree.Tree {
	t := tree.Root(nodeLabel(n))
	for _, child := range n.Children {
		if child.Kind == hierarchy.KindSection {
			t.Child(nodeLabel(child))
			continue
		}
		t.Child(buildTree(child))
	}
	return t
}

func nodeLabel(n *hierarchy.Node) string {
	switch n.Kind {
	case hierarchy.KindNotebook:
		return notebookStyle.Render(n.Name)
	case hierarchy.KindSection:
		return fmt.Sprintf("%s %s", n.Name, idStyle.Render("("+n.ID+")"))
	default:
		return n.Name
	}
}

func init() {
	rootCmd.AddCommand(treeCmd)
}
