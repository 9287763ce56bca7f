package model

import (
	"slices"

	"github.com/ritzau/crossbar-heterograph/pkg/edges"
	"github.com/ritzau/crossbar-heterograph/pkg/nodes"
)

// ReversePrefix names the relation added for the opposite direction
const ReversePrefix = "rev_"

// HeteroGraph is the assembled heterogeneous graph: one node store per node
// type and one directed edge store per (source type, relation, destination type).
// Stores keep insertion order so that serialization is reproducible.
type HeteroGraph struct {
	Nodes []*NodeStore `json:"nodes"`
	Edges []*EdgeStore `json:"edges"`

	nodeIdx map[string]int
	edgeIdx map[EdgeKey]int
}

// NewHeteroGraph creates a new empty graph.
func NewHeteroGraph() *HeteroGraph {
	return &HeteroGraph{
		Nodes:   make([]*NodeStore, 0),
		Edges:   make([]*EdgeStore, 0),
		nodeIdx: make(map[string]int),
		edgeIdx: make(map[EdgeKey]int),
	}
}

// NodeStore holds the size and identifier mapping of one node type.
// Mapping[i] is the raw identifier of node i.
type NodeStore struct {
	Type      string   `json:"type"`
	NumNodes  int      `json:"num_nodes"`
	Mapping   []string `json:"mapping"`
	Composite bool     `json:"composite,omitempty"`
}

// EdgeKey identifies an edge store
type EdgeKey struct {
	Src string
	Rel string
	Dst string
}

// Reverse returns the key of the opposite-direction relation
func (k EdgeKey) Reverse() EdgeKey {
	return EdgeKey{Src: k.Dst, Rel: ReversePrefix + k.Rel, Dst: k.Src}
}

func (k EdgeKey) String() string {
	return "(" + k.Src + ", " + k.Rel + ", " + k.Dst + ")"
}

// EdgeStore holds a 2 x E edge index: EdgeIndex[0][i] -> EdgeIndex[1][i]
type EdgeStore struct {
	Src       string     `json:"src"`
	Rel       string     `json:"rel"`
	Dst       string     `json:"dst"`
	EdgeIndex [2][]int64 `json:"edge_index"`
	Reverse   bool       `json:"reverse,omitempty"`
}

// Key returns the store's identity
func (s *EdgeStore) Key() EdgeKey {
	return EdgeKey{Src: s.Src, Rel: s.Rel, Dst: s.Dst}
}

// NumEdges returns the number of directed edges in the store
func (s *EdgeStore) NumEdges() int {
	return len(s.EdgeIndex[0])
}

// SetNodes adds or replaces the node store of a type
func (g *HeteroGraph) SetNodes(store *NodeStore) {
	if i, ok := g.nodeIdx[store.Type]; ok {
		g.Nodes[i] = store
		return
	}
	g.nodeIdx[store.Type] = len(g.Nodes)
	g.Nodes = append(g.Nodes, store)
}

// Node returns the node store of a type, or nil
func (g *HeteroGraph) Node(nodeType string) *NodeStore {
	if i, ok := g.nodeIdx[nodeType]; ok {
		return g.Nodes[i]
	}
	return nil
}

// SetEdges adds or replaces an edge store
func (g *HeteroGraph) SetEdges(store *EdgeStore) {
	key := store.Key()
	if i, ok := g.edgeIdx[key]; ok {
		g.Edges[i] = store
		return
	}
	g.edgeIdx[key] = len(g.Edges)
	g.Edges = append(g.Edges, store)
}

// Edge returns an edge store by key, or nil
func (g *HeteroGraph) Edge(key EdgeKey) *EdgeStore {
	if i, ok := g.edgeIdx[key]; ok {
		return g.Edges[i]
	}
	return nil
}

// NumEdges returns the number of directed edges over all stores
func (g *HeteroGraph) NumEdges() int {
	total := 0
	for _, s := range g.Edges {
		total += s.NumEdges()
	}
	return total
}

// ToUndirected adds, for every edge store, a reverse store with a flipped copy
// of the edge index. Reverse stores are never merged with forward stores that share
// the same type signature.
func (g *HeteroGraph) ToUndirected() {
	forward := make([]*EdgeStore, len(g.Edges))
	copy(forward, g.Edges)

	for _, s := range forward {
		if s.Reverse {
			continue
		}
		rev := s.Key().Reverse()
		g.SetEdges(&EdgeStore{
			Src:       rev.Src,
			Rel:       rev.Rel,
			Dst:       rev.Dst,
			EdgeIndex: [2][]int64{slices.Clone(s.EdgeIndex[1]), slices.Clone(s.EdgeIndex[0])},
			Reverse:   true,
		})
	}
}

// Assemble populates a graph from the node and edge stages. Every loaded node
// type (composite included) gets a node store; every processed relation gets
// an edge store, empty ones included.
func Assemble(nodeRes *nodes.Result, edgeRes *edges.Result) *HeteroGraph {
	g := NewHeteroGraph()

	for _, nodeType := range nodeRes.Order {
		idx := nodeRes.Get(nodeType)
		g.SetNodes(&NodeStore{
			Type:      nodeType,
			NumNodes:  idx.Count(),
			Mapping:   idx.Keys,
			Composite: idx.Composite,
		})
	}

	for _, rel := range edgeRes.Relations {
		g.SetEdges(&EdgeStore{
			Src:       rel.SourceType,
			Rel:       rel.Name,
			Dst:       rel.DestType,
			EdgeIndex: [2][]int64{toInt64(rel.Source), toInt64(rel.Dest)},
		})
	}

	return g
}

func toInt64(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}
