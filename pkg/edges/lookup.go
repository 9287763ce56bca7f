// Package edges resolves the raw endpoint identifiers of relation tables
// against node indexes and keeps the edges whose endpoints both resolve.
package edges

import (
	"strings"

	"github.com/ritzau/crossbar-heterograph/pkg/nodes"
)

// NamespaceSeparator splits a namespace prefix from a local identifier ("GO:0001234")
const NamespaceSeparator = ":"

// Lookup is the two-tier identifier lookup for one node type
type Lookup struct {
	Type     string
	fold     bool
	primary  map[string]int
	fallback map[string]int
}

// NewLookup builds a lookup over idx. With fold set, keys and queried values
// are lower-cased. A nil index yields a lookup that resolves nothing.
func NewLookup(nodeType string, idx *nodes.Index, fold bool) *Lookup {
	l := &Lookup{Type: nodeType, fold: fold}

	if idx == nil {
		l.primary = map[string]int{}
	} else if !fold {
		l.primary = idx.Mapping
	} else {
		l.primary = make(map[string]int, len(idx.Keys))
		for i, key := range idx.Keys {
			folded := strings.ToLower(key)
			if _, exists := l.primary[folded]; !exists {
				l.primary[folded] = i
			}
		}
	}

	var keys []string
	if idx != nil {
		keys = idx.Keys
	}
	l.fallback = FallbackMapping(keys, l.primary, l.normalize)

	return l
}

// FallbackMapping derives the namespace-stripped alternative keys of a primary
// mapping. keys fixes the iteration order; when two keys strip to the same
// local identifier the later one wins. The primary mapping is not modified.
func FallbackMapping(keys []string, primary map[string]int, normalize func(string) string) map[string]int {
	fallback := make(map[string]int)
	for _, key := range keys {
		key = normalize(key)
		local, ok := localPart(key)
		if !ok {
			continue
		}
		if i, ok := primary[key]; ok {
			fallback[local] = i
		}
	}
	return fallback
}

// localPart returns the segment following the first separator, up to the next one
func localPart(key string) (string, bool) {
	_, rest, found := strings.Cut(key, NamespaceSeparator)
	if !found {
		return "", false
	}
	local, _, _ := strings.Cut(rest, NamespaceSeparator)
	return local, true
}

func (l *Lookup) normalize(raw string) string {
	if l.fold {
		return strings.ToLower(raw)
	}
	return raw
}

// Resolve maps a raw edge-table value to a dense index: exact match first,
// then the namespace-stripped fallback
func (l *Lookup) Resolve(raw string) (int, bool) {
	value := l.normalize(raw)
	if i, ok := l.primary[value]; ok {
		return i, true
	}
	i, ok := l.fallback[value]
	return i, ok
}

// Normalized returns the value as it is compared during resolution
func (l *Lookup) Normalized(raw string) string {
	return l.normalize(raw)
}
