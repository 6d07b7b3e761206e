package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphTopologicalSort(t *testing.T) {
	g := NewGraph()
	g.AddEdge("Post", "Author")
	g.AddEdge("Comment", "Post")
	g.AddEdge("Comment", "Author")

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	require.Len(t, order, 3)

	pos := make(map[string]int)
	for i, name := range order {
		pos[name] = i
	}
	assert.Less(t, pos["Author"], pos["Post"])
	assert.Less(t, pos["Post"], pos["Comment"])
}

func TestGraphDetectCycles(t *testing.T) {
	g := NewGraph()
	g.AddEdge("Post", "Author")
	g.AddEdge("Author", "Post")

	cycles := g.DetectCycles()
	require.NotEmpty(t, cycles)

	_, err := g.TopologicalSort()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular reference")
}

func TestGraphDependenciesAndDependents(t *testing.T) {
	g := NewGraph()
	g.AddEdge("Post", "Author")
	g.AddEdge("Comment", "Author")
	g.AddNode("Orphan")

	assert.Equal(t, []string{"Author"}, g.Dependencies("Post"))
	assert.Empty(t, g.Dependencies("Orphan"))
	assert.ElementsMatch(t, []string{"Post", "Comment"}, g.Dependents("Author"))
}
