package graph

import (
	"fmt"

	"github.com/ritzau/crossbar-heterograph/pkg/model"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/multi"
)

// TypedNode is a node of the flattened graph: node Index of type Type
type TypedNode struct {
	UID   int64
	Type  string
	Index int64
}

// ID implements graph.Node
func (n TypedNode) ID() int64 { return n.UID }

// DOTID names the node "<type>/<index>" in DOT output
func (n TypedNode) DOTID() string { return fmt.Sprintf("%s/%d", n.Type, n.Index) }

// RelationLine is one edge of a relation. Parallel lines are kept, since
// relation tables may repeat a pair.
type RelationLine struct {
	F, T graph.Node
	UID  int64
	Rel  string
}

func (l RelationLine) From() graph.Node { return l.F }
func (l RelationLine) To() graph.Node   { return l.T }
func (l RelationLine) ID() int64        { return l.UID }

// ReversedLine implements graph.Line
func (l RelationLine) ReversedLine() graph.Line {
	return RelationLine{F: l.T, T: l.F, UID: l.UID, Rel: l.Rel}
}

// Attributes labels the line with its relation name in DOT output
func (l RelationLine) Attributes() []encoding.Attribute {
	return []encoding.Attribute{{Key: "label", Value: l.Rel}}
}

// TypedGraph flattens a heterogeneous graph into one gonum multigraph. Node
// types are laid out one after another, in store order.
type TypedGraph struct {
	graph   *multi.DirectedGraph
	offsets map[string]int64
	lines   int64
}

// Flatten builds the multigraph. Edge stores whose endpoint types have no
// node store are skipped.
func Flatten(h *model.HeteroGraph) *TypedGraph {
	tg := &TypedGraph{
		graph:   multi.NewDirectedGraph(),
		offsets: make(map[string]int64),
	}

	var next int64
	for _, store := range h.Nodes {
		tg.offsets[store.Type] = next
		for i := 0; i < store.NumNodes; i++ {
			tg.graph.AddNode(TypedNode{UID: next + int64(i), Type: store.Type, Index: int64(i)})
		}
		next += int64(store.NumNodes)
	}

	for _, store := range h.Edges {
		srcOff, srcOK := tg.offsets[store.Src]
		dstOff, dstOK := tg.offsets[store.Dst]
		if !srcOK || !dstOK {
			continue
		}
		for i := range store.EdgeIndex[0] {
			tg.graph.SetLine(RelationLine{
				F:   tg.graph.Node(srcOff + store.EdgeIndex[0][i]),
				T:   tg.graph.Node(dstOff + store.EdgeIndex[1][i]),
				UID: tg.lines,
				Rel: store.Rel,
			})
			tg.lines++
		}
	}

	return tg
}

// Graph returns the underlying directed multigraph
func (tg *TypedGraph) Graph() *multi.DirectedGraph {
	return tg.graph
}

// NodeFor returns the flattened node of a typed index, or nil
func (tg *TypedGraph) NodeFor(nodeType string, index int64) graph.Node {
	off, ok := tg.offsets[nodeType]
	if !ok {
		return nil
	}
	return tg.graph.Node(off + index)
}

// NumLines returns the number of edges in the multigraph
func (tg *TypedGraph) NumLines() int64 {
	return tg.lines
}

// ToDOT renders the heterogeneous graph as a DOT digraph
func ToDOT(h *model.HeteroGraph, name string) ([]byte, error) {
	tg := Flatten(h)
	b, err := dot.MarshalMulti(tg.graph, name, "", "\t")
	if err != nil {
		return nil, fmt.Errorf("encoding DOT: %w", err)
	}
	return b, nil
}
