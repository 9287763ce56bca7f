package edges

import (
	"errors"
	"fmt"

	"github.com/ritzau/crossbar-heterograph/pkg/logging"
	"github.com/ritzau/crossbar-heterograph/pkg/nodes"
	"github.com/ritzau/crossbar-heterograph/pkg/table"
)

var (
	// ErrMalformedRelation is returned for a declaration without exactly five fields
	ErrMalformedRelation = errors.New("malformed relation declaration")

	// ErrExhaustedRelation is returned when no edge of a relation survives resolution
	ErrExhaustedRelation = errors.New("no edges resolved")
)

// Declaration is one configured relation:
// (name, source type, destination type, source column, destination column)
type Declaration struct {
	Name         string
	SourceType   string
	DestType     string
	SourceColumn string
	DestColumn   string
}

// ParseDeclaration validates a raw configuration tuple
func ParseDeclaration(fields []string) (Declaration, error) {
	if len(fields) != 5 {
		return Declaration{}, fmt.Errorf("%w: expected 5 fields, got %d: %v", ErrMalformedRelation, len(fields), fields)
	}
	return Declaration{
		Name:         fields[0],
		SourceType:   fields[1],
		DestType:     fields[2],
		SourceColumn: fields[3],
		DestColumn:   fields[4],
	}, nil
}

// Relation is the resolved edge list of one declaration.
// Source[i] -> Dest[i] for every kept row.
type Relation struct {
	Declaration
	Source []int
	Dest   []int

	TotalRows        int
	UnresolvedSource int // rows whose source did not resolve
	UnresolvedDest   int // rows whose destination did not resolve
}

// Len returns the number of kept edges
func (r *Relation) Len() int {
	return len(r.Source)
}

// Dropped returns the number of rows with at least one unresolved endpoint
func (r *Relation) Dropped() int {
	return r.TotalRows - r.Len()
}

// Failure records a relation that halted or was skipped
type Failure struct {
	Relation string
	Err      error
}

// Result is the output of Resolve
type Result struct {
	Relations  []*Relation // processed relations in declared order
	Unresolved *Unresolved
	Failures   []Failure
}

// Get returns a processed relation by name, or nil
func (r *Result) Get(name string) *Relation {
	for _, rel := range r.Relations {
		if rel.Name == name {
			return rel
		}
	}
	return nil
}

// Resolver maps relation tables onto node indexes
type Resolver struct {
	loader    table.Loader
	nodes     *nodes.Result
	fold      map[string]bool
	haltOnErr bool
	lookups   map[string]*Lookup
}

// NewResolver creates a resolver. caseInsensitive lists the node types whose
// identifiers are lower-cased before lookup.
func NewResolver(loader table.Loader, nodeResult *nodes.Result, caseInsensitive []string, haltOnErr bool) *Resolver {
	fold := make(map[string]bool, len(caseInsensitive))
	for _, t := range caseInsensitive {
		fold[t] = true
	}
	return &Resolver{
		loader:    loader,
		nodes:     nodeResult,
		fold:      fold,
		haltOnErr: haltOnErr,
		lookups:   make(map[string]*Lookup),
	}
}

// LookupFor returns the cached two-tier lookup for a node type
func (r *Resolver) LookupFor(nodeType string) *Lookup {
	if l, ok := r.lookups[nodeType]; ok {
		return l
	}
	idx := r.nodes.Get(nodeType)
	if idx == nil {
		logging.Warn("node type not found, no identifiers will resolve", "type", nodeType)
	}
	l := NewLookup(nodeType, idx, r.fold[nodeType])
	r.lookups[nodeType] = l
	return l
}

// Resolve processes the declared relations in order. Malformed declarations,
// unreadable tables and relations with no surviving edges are recorded as
// failures; with haltOnErr the first of them stops the loop.
func (r *Resolver) Resolve(decls [][]string) *Result {
	res := &Result{Unresolved: NewUnresolved()}

	for _, fields := range decls {
		decl, err := ParseDeclaration(fields)
		if err != nil {
			logging.Warn("invalid relation configuration", "error", err)
			res.Failures = append(res.Failures, Failure{Relation: fmt.Sprint(fields), Err: err})
			if r.haltOnErr {
				break
			}
			continue
		}

		rel, unresolved, err := r.ResolveRelation(decl)
		res.Unresolved.Merge(unresolved)
		if rel != nil {
			res.Relations = append(res.Relations, rel)
		}
		if err != nil {
			res.Failures = append(res.Failures, Failure{Relation: decl.Name, Err: err})
			if r.haltOnErr {
				logging.Warn("skipping remaining relations", "after", decl.Name)
				break
			}
		}
	}

	return res
}

// ResolveRelation loads one relation table and resolves both endpoint columns.
// The returned accumulator holds only this relation's unresolved identifiers.
// An exhausted relation is returned together with ErrExhaustedRelation.
func (r *Resolver) ResolveRelation(decl Declaration) (*Relation, *Unresolved, error) {
	logging.Info("loading edges", "relation", decl.Name, "src", decl.SourceType, "dst", decl.DestType)

	tbl, err := r.loader.Load(decl.Name)
	if err != nil {
		logging.Error("could not load edge table", "relation", decl.Name, "error", err)
		return nil, nil, err
	}

	srcCol, err := tbl.Column(decl.SourceColumn)
	if err != nil {
		logging.Error("source column missing", "relation", decl.Name, "error", err)
		return nil, nil, err
	}
	dstCol, err := tbl.Column(decl.DestColumn)
	if err != nil {
		logging.Error("destination column missing", "relation", decl.Name, "error", err)
		return nil, nil, err
	}

	unresolved := NewUnresolved()
	src := resolveColumn(r.LookupFor(decl.SourceType), tbl.Values(srcCol), unresolved)
	dst := resolveColumn(r.LookupFor(decl.DestType), tbl.Values(dstCol), unresolved)

	rel := &Relation{Declaration: decl, TotalRows: tbl.Len()}
	for i := range src {
		if src[i] < 0 {
			rel.UnresolvedSource++
		}
		if dst[i] < 0 {
			rel.UnresolvedDest++
		}
		if src[i] < 0 || dst[i] < 0 {
			continue
		}
		rel.Source = append(rel.Source, src[i])
		rel.Dest = append(rel.Dest, dst[i])
	}

	if rel.Len() == 0 {
		rel.Source, rel.Dest = []int{}, []int{}
		logging.Warn("no valid edges loaded", "relation", decl.Name, "rows", rel.TotalRows)
		return rel, unresolved, fmt.Errorf("%s: %w from %d rows", decl.Name, ErrExhaustedRelation, rel.TotalRows)
	}

	logging.Debug("first pairs", "relation", decl.Name, "pairs", firstPairs(rel, 5))
	logging.Info("edges loaded", "relation", decl.Name, "kept", rel.Len(), "rows", rel.TotalRows)
	if rel.Dropped() > 0 {
		logging.Info("edges dropped due to unmatched IDs",
			"relation", decl.Name,
			"dropped", rel.Dropped(),
			"unmatchedSrc", rel.UnresolvedSource,
			"unmatchedDst", rel.UnresolvedDest,
		)
	}

	return rel, unresolved, nil
}

// resolveColumn resolves every value, using -1 for misses, and records the
// misses under the lookup's node type
func resolveColumn(l *Lookup, values []string, unresolved *Unresolved) []int {
	unresolved.Touch(l.Type)
	out := make([]int, len(values))
	for i, v := range values {
		idx, ok := l.Resolve(v)
		if !ok {
			out[i] = -1
			unresolved.Add(l.Type, l.Normalized(v))
			continue
		}
		out[i] = idx
	}
	return out
}

func firstPairs(rel *Relation, n int) [][2]int {
	n = min(n, rel.Len())
	pairs := make([][2]int, n)
	for i := 0; i < n; i++ {
		pairs[i] = [2]int{rel.Source[i], rel.Dest[i]}
	}
	return pairs
}
