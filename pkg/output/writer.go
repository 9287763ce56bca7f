package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/ritzau/crossbar-heterograph/pkg/edges"
	"github.com/ritzau/crossbar-heterograph/pkg/graph"
	"github.com/ritzau/crossbar-heterograph/pkg/model"
)

// Output layout under the output directory
const (
	UnresolvedDir  = "unmatched_node_lists"
	GraphFile      = "crossbar_heterodata.json"
	CompressedExt  = ".zst"
	DOTFile        = "crossbar_heterodata.dot"
	UnresolvedHead = "node_id"
)

// FormatVersion is bumped whenever the artifact layout changes
const FormatVersion = 1

// Artifact is the serialized graph document
type Artifact struct {
	Version int `json:"version"`
	*model.HeteroGraph
}

// UnresolvedPath returns the report location for a node type
func UnresolvedPath(outDir, nodeType string) string {
	return filepath.Join(outDir, UnresolvedDir, "unmatched_"+nodeType+".csv")
}

// WriteUnresolved writes one single-column CSV per node type with at least one
// unresolved identifier. It returns the written paths. Lists from an earlier
// run are removed first, so a type that now resolves fully has no file.
func WriteUnresolved(outDir string, unresolved *edges.Unresolved) ([]string, error) {
	if err := removeUnresolved(outDir); err != nil {
		return nil, err
	}

	var written []string
	for _, nodeType := range unresolved.Types() {
		set := unresolved.Get(nodeType)
		if set.Len() == 0 {
			continue
		}

		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write([]string{UnresolvedHead}); err != nil {
			return written, err
		}
		for _, id := range set.Items() {
			if err := w.Write([]string{id}); err != nil {
				return written, err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return written, fmt.Errorf("encoding unresolved %s: %w", nodeType, err)
		}

		path := UnresolvedPath(outDir, nodeType)
		if err := writeFile(path, buf.Bytes()); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// removeUnresolved deletes every unmatched_<type>.csv under outDir
func removeUnresolved(outDir string) error {
	dir := filepath.Join(outDir, UnresolvedDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("listing %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "unmatched_") || filepath.Ext(name) != ".csv" {
			continue
		}
		if err := removeIfExists(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// EncodeGraph renders the artifact. Store order is preserved, so equal graphs
// encode to equal bytes.
func EncodeGraph(w io.Writer, g *model.HeteroGraph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Artifact{Version: FormatVersion, HeteroGraph: g}); err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}
	return nil
}

// DecodeGraph reads an artifact written by WriteGraph. Compressed input is
// detected by the zstd magic number.
func DecodeGraph(r io.Reader) (*model.HeteroGraph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if isZstd(data) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		if data, err = dec.DecodeAll(data, nil); err != nil {
			return nil, fmt.Errorf("decompressing graph: %w", err)
		}
	}

	var doc struct {
		Version int                `json:"version"`
		Nodes   []*model.NodeStore `json:"nodes"`
		Edges   []*model.EdgeStore `json:"edges"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding graph: %w", err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported artifact version %d", doc.Version)
	}

	g := model.NewHeteroGraph()
	for _, n := range doc.Nodes {
		g.SetNodes(n)
	}
	for _, e := range doc.Edges {
		g.SetEdges(e)
	}
	return g, nil
}

// WriteGraph persists the graph under outDir and returns the file path. The
// artifact in the other format, left by a run with the opposite compress
// setting, is removed.
func WriteGraph(outDir string, g *model.HeteroGraph, compress bool) (string, error) {
	var buf bytes.Buffer
	if err := EncodeGraph(&buf, g); err != nil {
		return "", err
	}

	path := filepath.Join(outDir, GraphFile)
	other := path + CompressedExt
	data := buf.Bytes()
	if compress {
		path, other = other, path
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return "", err
		}
		data = enc.EncodeAll(data, nil)
		if err := enc.Close(); err != nil {
			return "", err
		}
	}

	if err := writeFile(path, data); err != nil {
		return "", err
	}
	return path, removeIfExists(other)
}

// WriteDOT exports the graph for inspection with Graphviz
func WriteDOT(outDir string, g *model.HeteroGraph) (string, error) {
	data, err := graph.ToDOT(g, "crossbar")
	if err != nil {
		return "", err
	}
	path := filepath.Join(outDir, DOTFile)
	return path, writeFile(path, data)
}

// RemoveDOT deletes a DOT export left by an earlier run
func RemoveDOT(outDir string) error {
	return removeIfExists(filepath.Join(outDir, DOTFile))
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func isZstd(data []byte) bool {
	magic := []byte{0x28, 0xb5, 0x2f, 0xfd}
	return bytes.HasPrefix(data, magic)
}
