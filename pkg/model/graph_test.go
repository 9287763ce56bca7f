package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/crossbar-heterograph/pkg/edges"
	"github.com/ritzau/crossbar-heterograph/pkg/nodes"
)

func sampleStages() (*nodes.Result, *edges.Result) {
	gene := nodes.NewIndex("Gene", []string{"A", "B"})
	disease := nodes.NewIndex("Disease", []string{"X", "Y", "Z"})
	goIdx := nodes.Composite("GO", nodes.NewIndex("Molecular_function", []string{"GO:1"}))

	nodeRes := &nodes.Result{
		Indexes: map[string]*nodes.Index{"Gene": gene, "Disease": disease, "GO": goIdx},
		Order:   []string{"Gene", "Disease", "GO"},
	}
	edgeRes := &edges.Result{
		Relations: []*edges.Relation{
			{
				Declaration: edges.Declaration{Name: "gene_disease", SourceType: "Gene", DestType: "Disease"},
				Source:      []int{0, 1},
				Dest:        []int{2, 0},
			},
			{
				Declaration: edges.Declaration{Name: "gene_gene", SourceType: "Gene", DestType: "Gene"},
				Source:      []int{0},
				Dest:        []int{1},
			},
			{
				Declaration: edges.Declaration{Name: "gene_go", SourceType: "Gene", DestType: "GO"},
				Source:      []int{},
				Dest:        []int{},
			},
		},
		Unresolved: edges.NewUnresolved(),
	}
	return nodeRes, edgeRes
}

func TestAssemble(t *testing.T) {
	g := Assemble(sampleStages())

	require.Len(t, g.Nodes, 3)
	assert.Equal(t, 3, g.Node("Disease").NumNodes)
	assert.Equal(t, []string{"X", "Y", "Z"}, g.Node("Disease").Mapping)
	assert.True(t, g.Node("GO").Composite)
	assert.Nil(t, g.Node("Protein"))

	require.Len(t, g.Edges, 3)
	gd := g.Edge(EdgeKey{Src: "Gene", Rel: "gene_disease", Dst: "Disease"})
	require.NotNil(t, gd)
	assert.Equal(t, [2][]int64{{0, 1}, {2, 0}}, gd.EdgeIndex)
	assert.Equal(t, 0, g.Edge(EdgeKey{Src: "Gene", Rel: "gene_go", Dst: "GO"}).NumEdges())
	assert.Equal(t, 3, g.NumEdges())
}

func TestToUndirected(t *testing.T) {
	g := Assemble(sampleStages())
	g.ToUndirected()

	require.Len(t, g.Edges, 6)

	rev := g.Edge(EdgeKey{Src: "Disease", Rel: "rev_gene_disease", Dst: "Gene"})
	require.NotNil(t, rev)
	assert.True(t, rev.Reverse)
	assert.Equal(t, [2][]int64{{2, 0}, {0, 1}}, rev.EdgeIndex)

	// same-type relations get their own reverse store instead of being merged
	self := g.Edge(EdgeKey{Src: "Gene", Rel: "gene_gene", Dst: "Gene"})
	selfRev := g.Edge(EdgeKey{Src: "Gene", Rel: "rev_gene_gene", Dst: "Gene"})
	require.NotNil(t, selfRev)
	assert.Equal(t, 1, self.NumEdges())
	assert.Equal(t, [2][]int64{{1}, {0}}, selfRev.EdgeIndex)

	assert.Equal(t, 6, g.NumEdges())

	// idempotent: reverse stores are not reversed again
	g.ToUndirected()
	assert.Len(t, g.Edges, 6)
}

func TestToUndirectedCopiesEdgeIndex(t *testing.T) {
	g := Assemble(sampleStages())
	g.ToUndirected()

	fwd := g.Edge(EdgeKey{Src: "Gene", Rel: "gene_disease", Dst: "Disease"})
	rev := g.Edge(EdgeKey{Src: "Disease", Rel: "rev_gene_disease", Dst: "Gene"})
	require.NotNil(t, fwd)
	require.NotNil(t, rev)

	fwd.EdgeIndex[0][0] = 99
	rev.EdgeIndex[0][1] = 42

	assert.Equal(t, [2][]int64{{99, 1}, {2, 0}}, fwd.EdgeIndex)
	assert.Equal(t, [2][]int64{{2, 42}, {0, 1}}, rev.EdgeIndex)
}

func TestEdgeKey(t *testing.T) {
	k := EdgeKey{Src: "Gene", Rel: "expressed_in", Dst: "Tissue"}
	assert.Equal(t, EdgeKey{Src: "Tissue", Rel: "rev_expressed_in", Dst: "Gene"}, k.Reverse())
	assert.Equal(t, "(Gene, expressed_in, Tissue)", k.String())
}
