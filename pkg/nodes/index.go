// Package nodes assigns dense integer indices to the raw identifiers of each
// node type and synthesizes composite types from several sub-vocabularies.
package nodes

// Index maps the raw identifiers of one node type onto [0, Count)
type Index struct {
	Type      string
	Mapping   map[string]int
	Keys      []string // Keys[i] is the identifier assigned index i
	TotalRows int      // rows read from the source table, duplicates included
	Composite bool
}

// NewIndex assigns indices in order of first occurrence
func NewIndex(nodeType string, ids []string) *Index {
	idx := &Index{
		Type:      nodeType,
		Mapping:   make(map[string]int, len(ids)),
		Keys:      make([]string, 0, len(ids)),
		TotalRows: len(ids),
	}
	for _, id := range ids {
		idx.add(id)
	}
	return idx
}

func (idx *Index) add(id string) {
	if _, exists := idx.Mapping[id]; exists {
		return
	}
	idx.Mapping[id] = len(idx.Keys)
	idx.Keys = append(idx.Keys, id)
}

// Count returns the number of distinct identifiers
func (idx *Index) Count() int {
	if idx == nil {
		return 0
	}
	return len(idx.Keys)
}

// Lookup returns the dense index of an exact raw identifier
func (idx *Index) Lookup(id string) (int, bool) {
	if idx == nil {
		return 0, false
	}
	i, ok := idx.Mapping[id]
	return i, ok
}

// Composite unions the key sets of parts in the given order and re-indexes
// densely. A key keeps the position of the first part that defined it.
// Nil parts are treated as empty.
func Composite(name string, parts ...*Index) *Index {
	total := 0
	for _, p := range parts {
		total += p.Count()
	}

	merged := &Index{
		Type:      name,
		Mapping:   make(map[string]int, total),
		Keys:      make([]string, 0, total),
		Composite: true,
	}
	for _, p := range parts {
		if p == nil {
			continue
		}
		for _, key := range p.Keys {
			merged.add(key)
		}
	}
	merged.TotalRows = merged.Count()

	return merged
}
