package hierarchy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/notebridge/internal/graph"
	"github.com/mrlokans/notebridge/internal/oauth2"
)

func testForest() *Forest {
	return &Forest{
		Roots: []*Node{
			{
				Kind: KindNotebook, ID: "nb1", Name: "Work",
				Children: []*Node{
					{Kind: KindSection, ID: "s1", Name: "Meetings"},
					{
						Kind: KindSectionGroup, ID: "g1", Name: "Projects",
						Children: []*Node{
							{Kind: KindSection, ID: "s2", Name: "Alpha"},
						},
					},
				},
			},
		},
	}
}

func TestResolvePath_Containers(t *testing.T) {
	ix := NewIndexerWithForest(testForest())

	path, err := ix.ResolvePath("nb1")
	require.NoError(t, err)
	assert.Equal(t, "Work", path)

	path, err = ix.ResolvePath("s1")
	require.NoError(t, err)
	assert.Equal(t, "Work/Meetings", path)

	path, err = ix.ResolvePath("s2")
	require.NoError(t, err)
	assert.Equal(t, "Work/Projects/Alpha", path)
}

func TestResolvePath_FlatPagesLandInSectionFolder(t *testing.T) {
	ix := NewIndexerWithForest(testForest())
	require.NoError(t, ix.SetPages("s1", []PageRef{
		{ID: "p1", Title: "Standup", Level: 0, Order: 0},
		{ID: "p2", Title: "Retro", Level: 0, Order: 1},
	}))

	for _, id := range []string{"p1", "p2"} {
		path, err := ix.ResolvePath(id)
		require.NoError(t, err)
		assert.Equal(t, "Work/Meetings", path)
	}
}

func TestResolvePath_NestedPagesGetParentSubfolder(t *testing.T) {
	ix := NewIndexerWithForest(testForest())
	require.NoError(t, ix.SetPages("s2", []PageRef{
		{ID: "p1", Title: "Roadmap", Level: 0, Order: 0},
		{ID: "p2", Title: "Milestone 1", Level: 1, Order: 1},
		{ID: "p3", Title: "Task A", Level: 2, Order: 2},
		{ID: "p4", Title: "Milestone 2", Level: 1, Order: 3},
		{ID: "p5", Title: "Summary", Level: 0, Order: 4},
	}))

	// A parent with nested successors owns a subfolder and its own file
	// moves into it.
	path, err := ix.ResolvePath("p1")
	require.NoError(t, err)
	assert.Equal(t, "Work/Projects/Alpha/Roadmap", path)

	// Direct children land in the parent's subfolder.
	path, err = ix.ResolvePath("p2")
	require.NoError(t, err)
	assert.Equal(t, "Work/Projects/Alpha/Roadmap", path)

	// Grandchildren nest one folder deeper, under the level-1 parent.
	path, err = ix.ResolvePath("p3")
	require.NoError(t, err)
	assert.Equal(t, "Work/Projects/Alpha/Roadmap/Milestone 1", path)

	// The second milestone scans back past the deeper task to the roadmap.
	path, err = ix.ResolvePath("p4")
	require.NoError(t, err)
	assert.Equal(t, "Work/Projects/Alpha/Roadmap", path)

	// A trailing top-level page without children stays in the section folder.
	path, err = ix.ResolvePath("p5")
	require.NoError(t, err)
	assert.Equal(t, "Work/Projects/Alpha", path)
}

func TestResolvePath_OrphanNestedPageFallsBackToSection(t *testing.T) {
	ix := NewIndexerWithForest(testForest())
	require.NoError(t, ix.SetPages("s1", []PageRef{
		{ID: "p1", Title: "Dangling", Level: 1, Order: 0},
	}))

	path, err := ix.ResolvePath("p1")
	require.NoError(t, err)
	assert.Equal(t, "Work/Meetings", path)
}

func TestResolvePath_Deterministic(t *testing.T) {
	ix := NewIndexerWithForest(testForest())
	require.NoError(t, ix.SetPages("s2", []PageRef{
		{ID: "p1", Title: "Roadmap", Level: 0, Order: 0},
		{ID: "p2", Title: "Milestone", Level: 1, Order: 1},
	}))

	first, err := ix.ResolvePath("p2")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := ix.ResolvePath("p2")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolvePath_UnknownEntity(t *testing.T) {
	ix := NewIndexerWithForest(testForest())

	_, err := ix.ResolvePath("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetPages_SortsByOrder(t *testing.T) {
	ix := NewIndexerWithForest(testForest())
	require.NoError(t, ix.SetPages("s1", []PageRef{
		{ID: "p2", Title: "Second", Level: 0, Order: 1},
		{ID: "p1", Title: "First", Level: 0, Order: 0},
	}))

	section := ix.findNode("s1")
	require.NotNil(t, section)
	assert.Equal(t, "p1", section.Pages[0].ID)
	assert.Equal(t, "p2", section.Pages[1].ID)
}

func TestSetPages_UnknownSection(t *testing.T) {
	ix := NewIndexerWithForest(testForest())
	err := ix.SetPages("nope", nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDiscover_BuildsForest(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/me/onenote/notebooks":
			w.Write([]byte(`{"value":[{"id":"nb1","displayName":"Work","sectionsUrl":"` +
				server.URL + `/nb1/sections","sectionGroupsUrl":"` + server.URL + `/nb1/sectionGroups"}]}`))
		case "/nb1/sections":
			w.Write([]byte(`{"value":[{"id":"s1","displayName":"Meetings"}]}`))
		case "/nb1/sectionGroups":
			w.Write([]byte(`{"value":[{"id":"g1","displayName":"Projects","sectionsUrl":"` +
				server.URL + `/g1/sections"}]}`))
		case "/g1/sections":
			w.Write([]byte(`{"value":[{"id":"s2","displayName":"Alpha"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := graph.NewClient(oauth2.NewStaticTokenSource("t", "test"), graph.NewSessionHealth(), graph.DefaultOptions())
	ix := NewIndexer(client, server.URL)

	forest, err := ix.Discover(context.Background())
	require.NoError(t, err)

	require.Len(t, forest.Roots, 1)
	sections := forest.Sections()
	require.Len(t, sections, 2)
	assert.Equal(t, "Meetings", sections[0].Name)
	assert.Equal(t, "Alpha", sections[1].Name)

	path, err := ix.ResolvePath("s2")
	require.NoError(t, err)
	assert.Equal(t, "Work/Projects/Alpha", path)
}
