package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/ritzau/crossbar-heterograph/pkg/edges"
	"github.com/ritzau/crossbar-heterograph/pkg/model"
	"github.com/ritzau/crossbar-heterograph/pkg/nodes"
)

// Report gathers what a pipeline run produced
type Report struct {
	DataDir         string
	Nodes           *nodes.Result
	Edges           *edges.Result
	Graph           *model.HeteroGraph
	GraphPath       string
	UnresolvedPaths []string
}

// Failed reports whether any stage recorded a failure
func (r *Report) Failed() bool {
	return len(r.Nodes.Failures) > 0 || len(r.Edges.Failures) > 0
}

// PrintBuildReport prints a nicely formatted summary with colors
func PrintBuildReport(w io.Writer, r *Report) {
	// Color definitions
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	bold.Fprintln(w, "CROSSBAR Heterograph - Build Report")
	bold.Fprintln(w, "===================================")
	fmt.Fprintf(w, "Data: %s\n", r.DataDir)
	fmt.Fprintln(w)

	// Node types
	bold.Fprintln(w, "NODE TYPES:")
	for _, nodeType := range r.Nodes.Order {
		idx := r.Nodes.Get(nodeType)
		if idx.Composite {
			cyan.Fprintf(w, "  %-24s %8d unique (merged)\n", nodeType, idx.Count())
			continue
		}
		fmt.Fprintf(w, "  %-24s %8d unique of %d rows\n", nodeType, idx.Count(), idx.TotalRows)
	}
	for _, f := range r.Nodes.Failures {
		red.Fprintf(w, "  %-24s %v\n", f.Type, f.Err)
	}
	fmt.Fprintln(w)

	// Relations
	bold.Fprintln(w, "RELATIONS:")
	for _, rel := range r.Edges.Relations {
		line := fmt.Sprintf("  %-24s %8d of %d rows", rel.Name, rel.Len(), rel.TotalRows)
		switch {
		case rel.Len() == 0:
			red.Fprintf(w, "%s (none resolved)\n", line)
		case rel.Dropped() > 0:
			yellow.Fprintf(w, "%s (%d unmatched %s, %d unmatched %s)\n",
				line, rel.UnresolvedSource, rel.SourceType, rel.UnresolvedDest, rel.DestType)
		default:
			green.Fprintf(w, "%s\n", line)
		}
	}
	for _, f := range r.Edges.Failures {
		red.Fprintf(w, "  %-24s %v\n", f.Relation, f.Err)
	}
	fmt.Fprintln(w)

	// Unresolved identifiers
	unresolvedTotal := 0
	for _, nodeType := range r.Edges.Unresolved.Types() {
		unresolvedTotal += r.Edges.Unresolved.Get(nodeType).Len()
	}
	if unresolvedTotal > 0 {
		yellow.Fprintln(w, "UNRESOLVED IDENTIFIERS:")
		for _, nodeType := range r.Edges.Unresolved.Types() {
			if n := r.Edges.Unresolved.Get(nodeType).Len(); n > 0 {
				fmt.Fprintf(w, "  %-24s %8d\n", nodeType, n)
			}
		}
		for _, path := range r.UnresolvedPaths {
			cyan.Fprintf(w, "  -> %s\n", path)
		}
		fmt.Fprintln(w)
	}

	// Summary
	summaryColor := green
	if unresolvedTotal > 0 {
		summaryColor = yellow
	}
	if r.Failed() {
		summaryColor = red
	}
	if r.Graph != nil {
		summaryColor.Fprintf(w, "Summary: %d node types, %d edge types, %d directed edges\n",
			len(r.Graph.Nodes), len(r.Graph.Edges), r.Graph.NumEdges())
	}
	if r.GraphPath != "" {
		fmt.Fprintf(w, "Graph written to %s\n", r.GraphPath)
	}
	if !r.Failed() && unresolvedTotal == 0 {
		green.Fprintln(w, "✓ Every identifier resolved!")
	}
}
