package nodes

import (
	"github.com/ritzau/crossbar-heterograph/pkg/logging"
	"github.com/ritzau/crossbar-heterograph/pkg/table"
)

// CompositeSpec names a synthesized type and the declared types it unions
type CompositeSpec struct {
	Name  string
	Parts []string
}

// Failure records a node type that could not be loaded
type Failure struct {
	Type string
	Err  error
}

// Result is the output of Build
type Result struct {
	Indexes  map[string]*Index
	Order    []string // loaded types in declared order, composite last
	Failures []Failure
}

// Get returns the index for a type, or nil if it was never loaded
func (r *Result) Get(nodeType string) *Index {
	return r.Indexes[nodeType]
}

// Builder loads node tables and indexes them
type Builder struct {
	loader    table.Loader
	composite *CompositeSpec
	haltOnErr bool
}

// NewBuilder creates a builder. composite may be nil.
func NewBuilder(loader table.Loader, composite *CompositeSpec, haltOnErr bool) *Builder {
	return &Builder{
		loader:    loader,
		composite: composite,
		haltOnErr: haltOnErr,
	}
}

// Build indexes every declared node type in order. A missing or empty table
// is logged and recorded; with haltOnErr the remaining types are skipped.
// The composite type is synthesized in both cases.
func (b *Builder) Build(types []string) *Result {
	res := &Result{Indexes: make(map[string]*Index)}

	for _, nodeType := range types {
		logging.Info("loading nodes", "type", nodeType)

		idx, err := b.load(nodeType)
		if err != nil {
			logging.Error("could not load node table", "type", nodeType, "error", err)
			res.Failures = append(res.Failures, Failure{Type: nodeType, Err: err})
			if b.haltOnErr {
				logging.Warn("skipping remaining node types", "remaining", remaining(types, nodeType))
				break
			}
			continue
		}

		res.Indexes[nodeType] = idx
		res.Order = append(res.Order, nodeType)
		logging.Info("nodes loaded", "type", nodeType, "unique", idx.Count(), "rows", idx.TotalRows)
	}

	if b.composite != nil {
		parts := make([]*Index, 0, len(b.composite.Parts))
		for _, name := range b.composite.Parts {
			part := res.Indexes[name]
			if part == nil {
				logging.Debug("composite part not loaded, treating as empty", "composite", b.composite.Name, "part", name)
			}
			parts = append(parts, part)
		}
		merged := Composite(b.composite.Name, parts...)
		if _, declared := res.Indexes[merged.Type]; declared {
			logging.Warn("composite replaces a declared node type", "type", merged.Type)
		} else {
			res.Order = append(res.Order, merged.Type)
		}
		res.Indexes[merged.Type] = merged
		logging.Info("composite nodes merged", "type", merged.Type, "unique", merged.Count(), "parts", len(parts))
	}

	return res
}

func (b *Builder) load(nodeType string) (*Index, error) {
	tbl, err := b.loader.Load(nodeType)
	if err != nil {
		return nil, err
	}
	// the first column holds the identifier whatever its name
	return NewIndex(nodeType, tbl.Values(0)), nil
}

func remaining(types []string, current string) int {
	for i, t := range types {
		if t == current {
			return len(types) - i - 1
		}
	}
	return 0
}
