package config

import (
	"errors"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrNoNodeTypes is returned for a schema that declares no node types
var ErrNoNodeTypes = errors.New("schema declares no node_types")

// Default composite and case-folding settings, matching the CROSSBAR layout
var (
	DefaultComposite = CompositeSchema{
		Name:  "GO",
		Parts: []string{"Molecular_function", "Biological_process", "Cellular_component"},
	}
	DefaultCaseInsensitive = []string{"Disease", "Phenotype"}
)

// CompositeSchema names a node type synthesized from several declared types
type CompositeSchema struct {
	Name  string   `koanf:"name"`
	Parts []string `koanf:"parts"`
}

// Schema is the graph layout document: which node tables and relation tables
// to read. EdgeTypes are kept as raw tuples so that malformed entries surface
// when the relation is processed.
type Schema struct {
	NodeTypes       []string
	EdgeTypes       [][]string
	Composite       CompositeSchema
	CaseInsensitive []string
}

// LoadSchema reads the YAML graph layout
func LoadSchema(path string) (*Schema, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("reading schema %s: %w", path, err)
	}
	return parseSchema(k)
}

func parseSchema(k *koanf.Koanf) (*Schema, error) {
	s := &Schema{
		NodeTypes:       k.Strings("node_types"),
		Composite:       DefaultComposite,
		CaseInsensitive: DefaultCaseInsensitive,
	}
	if len(s.NodeTypes) == 0 {
		return nil, ErrNoNodeTypes
	}

	raw, ok := k.Get("edge_types").([]interface{})
	if k.Exists("edge_types") && !ok {
		return nil, fmt.Errorf("edge_types must be a list, got %T", k.Get("edge_types"))
	}
	for _, entry := range raw {
		s.EdgeTypes = append(s.EdgeTypes, toStrings(entry))
	}

	if k.Exists("composite") {
		var c CompositeSchema
		if err := k.Unmarshal("composite", &c); err != nil {
			return nil, fmt.Errorf("parsing composite: %w", err)
		}
		if c.Name == "" {
			c.Name = DefaultComposite.Name
		}
		if c.Parts == nil {
			c.Parts = DefaultComposite.Parts
		}
		s.Composite = c
	}
	if k.Exists("case_insensitive") {
		s.CaseInsensitive = k.Strings("case_insensitive")
	}

	return s, nil
}

// toStrings coerces a YAML list entry to text. Scalars become a one-field
// tuple, which is then rejected as malformed.
func toStrings(entry interface{}) []string {
	items, ok := entry.([]interface{})
	if !ok {
		return []string{fmt.Sprint(entry)}
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = fmt.Sprint(item)
	}
	return out
}
