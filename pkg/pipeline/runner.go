// Package pipeline runs the node and edge stages in sequence and persists
// what they produce.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ritzau/crossbar-heterograph/pkg/config"
	"github.com/ritzau/crossbar-heterograph/pkg/edges"
	"github.com/ritzau/crossbar-heterograph/pkg/finder"
	"github.com/ritzau/crossbar-heterograph/pkg/logging"
	"github.com/ritzau/crossbar-heterograph/pkg/model"
	"github.com/ritzau/crossbar-heterograph/pkg/nodes"
	"github.com/ritzau/crossbar-heterograph/pkg/output"
	"github.com/ritzau/crossbar-heterograph/pkg/table"
)

// Runner orchestrates one pipeline run
type Runner struct {
	cfg    *config.Config
	report io.Writer  // nil disables the console report
	mu     sync.Mutex // Prevent concurrent runs in watch mode
}

// Options describes why a run was started
type Options struct {
	Reason string // e.g., "initial build", "inputs changed"
}

// NewRunner creates a runner. The build report is printed to report when it
// is not nil.
func NewRunner(cfg *config.Config, report io.Writer) *Runner {
	return &Runner{cfg: cfg, report: report}
}

// Run executes both stages and writes the outputs. Failures of individual
// tables are part of the returned report, not of the error; the error is
// reserved for an unreadable schema or unwritable outputs.
func (r *Runner) Run(ctx context.Context, opts Options) (*output.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	logging.Info("starting build", "reason", opts.Reason)

	schema, err := config.LoadSchema(r.cfg.SchemaPath)
	if err != nil {
		return nil, err
	}

	loader := table.NewDirLoader(r.cfg.DataDir)
	halt := r.cfg.HaltOnError()
	reportUndeclared(r.cfg.DataDir, schema)

	// Phase 1: node indexes
	logging.Info("[1/4] Indexing node tables...", "types", len(schema.NodeTypes))
	var composite *nodes.CompositeSpec
	if schema.Composite.Name != "" {
		composite = &nodes.CompositeSpec{Name: schema.Composite.Name, Parts: schema.Composite.Parts}
	}
	nodeRes := nodes.NewBuilder(loader, composite, halt).Build(schema.NodeTypes)
	logging.Info("[1/4] Complete", "loaded", len(nodeRes.Order), "failed", len(nodeRes.Failures))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 2: edge resolution
	logging.Info("[2/4] Resolving relation tables...", "relations", len(schema.EdgeTypes))
	edgeRes := edges.NewResolver(loader, nodeRes, schema.CaseInsensitive, halt).Resolve(schema.EdgeTypes)
	logging.Info("[2/4] Complete", "resolved", len(edgeRes.Relations), "failed", len(edgeRes.Failures))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Phase 3: assembly
	logging.Info("[3/4] Assembling graph...")
	g := model.Assemble(nodeRes, edgeRes)
	g.ToUndirected()
	logging.Info("[3/4] Complete", "nodeTypes", len(g.Nodes), "edgeTypes", len(g.Edges), "edges", g.NumEdges())

	// Phase 4: persistence
	logging.Info("[4/4] Writing outputs...", "path", r.cfg.OutputDir)
	report := &output.Report{
		DataDir: r.cfg.DataDir,
		Nodes:   nodeRes,
		Edges:   edgeRes,
		Graph:   g,
	}

	report.UnresolvedPaths, err = output.WriteUnresolved(r.cfg.OutputDir, edgeRes.Unresolved)
	if err != nil {
		return report, fmt.Errorf("writing unresolved lists: %w", err)
	}
	logging.Info("unmatched node lists saved", "files", len(report.UnresolvedPaths))

	report.GraphPath, err = output.WriteGraph(r.cfg.OutputDir, g, r.cfg.Compress)
	if err != nil {
		return report, fmt.Errorf("writing graph: %w", err)
	}
	logging.Info("graph saved", "path", report.GraphPath)

	if r.cfg.DOT {
		path, err := output.WriteDOT(r.cfg.OutputDir, g)
		if err != nil {
			return report, fmt.Errorf("writing DOT export: %w", err)
		}
		logging.Info("DOT export saved", "path", path)
	} else if err := output.RemoveDOT(r.cfg.OutputDir); err != nil {
		return report, err
	}

	logging.Info("[4/4] Build complete", "reason", opts.Reason, "duration", time.Since(start))

	if r.report != nil {
		output.PrintBuildReport(r.report, report)
	}

	return report, nil
}

// reportUndeclared warns about tables in the data directory that the schema
// never reads, usually a typo in a type or relation name
func reportUndeclared(dataDir string, schema *config.Schema) {
	tables, err := finder.FindTables(dataDir)
	if err != nil {
		logging.Warn("could not list data directory", "path", dataDir, "error", err)
		return
	}

	declared := append([]string{}, schema.NodeTypes...)
	for _, fields := range schema.EdgeTypes {
		if len(fields) > 0 {
			declared = append(declared, fields[0])
		}
	}

	for _, name := range finder.FindUndeclared(tables, declared) {
		logging.Warn("table not referenced by schema", "table", name)
	}
}
