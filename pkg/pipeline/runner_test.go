package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/crossbar-heterograph/pkg/config"
	"github.com/ritzau/crossbar-heterograph/pkg/edges"
	"github.com/ritzau/crossbar-heterograph/pkg/model"
	"github.com/ritzau/crossbar-heterograph/pkg/output"
)

const schemaYAML = `
node_types:
  - Gene
  - Disease
  - Phenotype
  - Molecular_function
  - Biological_process
  - Cellular_component
edge_types:
  - [gene_disease, Gene, Disease, gene_id, disease_id]
  - [gene_go, Gene, GO, gene_id, go_id]
  - [disease_phenotype, Disease, Phenotype, disease_id, hpo_id]
`

var dataFiles = map[string]string{
	"Gene":               "gene_id,symbol\nENSG1,TP53\nENSG2,BRCA1\nENSG1,TP53\nENSG3,EGFR\n",
	"Disease":            "disease_id,name\nDOID:100,cancer\nDOID:200,asthma\n",
	"Phenotype":          "hpo_id\nHP:0001\nHP:0002\n",
	"Molecular_function": "go_id\nGO:0001\nGO:0002\n",
	"Biological_process": "go_id\nGO:0003\nGO:0001\n",
	"Cellular_component": "go_id\nGO:0004\n",
	"gene_disease":       "gene_id,disease_id,score\nENSG1,doid:100,1\nENSG2,DOID:200,1\nENSG9,DOID:100,1\n",
	"gene_go":            "gene_id,go_id\nENSG1,0001\nENSG3,GO:0004\nENSG2,9999\n",
	"disease_phenotype":  "disease_id,hpo_id\nDOID:100,HP:0002\n200,hp:0001\n",
}

func setup(t *testing.T, files map[string]string, onError string) *config.Config {
	t.Helper()
	root := t.TempDir()
	data := filepath.Join(root, "data")
	require.NoError(t, os.MkdirAll(data, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(data, name+".csv"), []byte(content), 0o644))
	}
	schema := filepath.Join(root, "config.yaml")
	require.NoError(t, os.WriteFile(schema, []byte(schemaYAML), 0o644))

	return &config.Config{
		DataDir:    data,
		SchemaPath: schema,
		OutputDir:  filepath.Join(root, "out"),
		OnError:    onError,
		LogFormat:  "text",
	}
}

func TestRun(t *testing.T) {
	cfg := setup(t, dataFiles, config.OnErrorHalt)

	report, err := NewRunner(cfg, nil).Run(context.Background(), Options{Reason: "test"})
	require.NoError(t, err)
	require.False(t, report.Failed(), "unexpected failures: %v %v", report.Nodes.Failures, report.Edges.Failures)

	g := report.Graph
	assert.Equal(t, 3, g.Node("Gene").NumNodes)
	assert.Equal(t, 4, g.Node("GO").NumNodes)

	gd := g.Edge(model.EdgeKey{Src: "Gene", Rel: "gene_disease", Dst: "Disease"})
	require.NotNil(t, gd)
	assert.Equal(t, [2][]int64{{0, 1}, {0, 1}}, gd.EdgeIndex)

	gg := g.Edge(model.EdgeKey{Src: "Gene", Rel: "gene_go", Dst: "GO"})
	require.NotNil(t, gg)
	assert.Equal(t, [2][]int64{{0, 2}, {0, 3}}, gg.EdgeIndex)

	dp := g.Edge(model.EdgeKey{Src: "Disease", Rel: "disease_phenotype", Dst: "Phenotype"})
	require.NotNil(t, dp)
	assert.Equal(t, [2][]int64{{0, 1}, {1, 0}}, dp.EdgeIndex)

	assert.NotNil(t, g.Edge(model.EdgeKey{Src: "Phenotype", Rel: "rev_disease_phenotype", Dst: "Disease"}))
	assert.Len(t, g.Edges, 6)

	genePath := output.UnresolvedPath(cfg.OutputDir, "Gene")
	data, err := os.ReadFile(genePath)
	require.NoError(t, err)
	assert.Equal(t, "node_id\nENSG9\n", string(data))

	goData, err := os.ReadFile(output.UnresolvedPath(cfg.OutputDir, "GO"))
	require.NoError(t, err)
	assert.Equal(t, "node_id\n9999\n", string(goData))

	_, err = os.Stat(output.UnresolvedPath(cfg.OutputDir, "Disease"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(cfg.OutputDir, output.GraphFile))
	assert.NoError(t, err)
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := setup(t, dataFiles, config.OnErrorHalt)
	cfg.Compress = true
	runner := NewRunner(cfg, nil)

	first, err := runner.Run(context.Background(), Options{Reason: "first"})
	require.NoError(t, err)
	a, err := os.ReadFile(first.GraphPath)
	require.NoError(t, err)
	ua, err := os.ReadFile(output.UnresolvedPath(cfg.OutputDir, "Gene"))
	require.NoError(t, err)

	second, err := runner.Run(context.Background(), Options{Reason: "second"})
	require.NoError(t, err)
	b, err := os.ReadFile(second.GraphPath)
	require.NoError(t, err)
	ub, err := os.ReadFile(output.UnresolvedPath(cfg.OutputDir, "Gene"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, ua, ub)
}

func TestRunHaltsAndPersistsPartialResults(t *testing.T) {
	files := make(map[string]string, len(dataFiles))
	for k, v := range dataFiles {
		files[k] = v
	}
	delete(files, "gene_go")

	t.Run("halt", func(t *testing.T) {
		cfg := setup(t, files, config.OnErrorHalt)
		report, err := NewRunner(cfg, nil).Run(context.Background(), Options{Reason: "test"})
		require.NoError(t, err)

		assert.True(t, report.Failed())
		require.Len(t, report.Edges.Relations, 1)
		assert.Nil(t, report.Edges.Get("disease_phenotype"))
		assert.Len(t, report.Graph.Edges, 2)

		_, err = os.Stat(report.GraphPath)
		assert.NoError(t, err, "partial results are still persisted")
	})

	t.Run("continue", func(t *testing.T) {
		cfg := setup(t, files, config.OnErrorContinue)
		report, err := NewRunner(cfg, nil).Run(context.Background(), Options{Reason: "test"})
		require.NoError(t, err)

		assert.True(t, report.Failed())
		assert.Len(t, report.Edges.Relations, 2)
		assert.NotNil(t, report.Edges.Get("disease_phenotype"))
	})
}

func TestRunExhaustedRelation(t *testing.T) {
	files := make(map[string]string, len(dataFiles))
	for k, v := range dataFiles {
		files[k] = v
	}
	files["gene_disease"] = "gene_id,disease_id\nENSG9,DOID:999\n"

	cfg := setup(t, files, config.OnErrorHalt)
	report, err := NewRunner(cfg, nil).Run(context.Background(), Options{Reason: "test"})
	require.NoError(t, err)

	require.Len(t, report.Edges.Relations, 1)
	assert.Equal(t, 0, report.Edges.Relations[0].Len())
	assert.ErrorIs(t, report.Edges.Failures[0].Err, edges.ErrExhaustedRelation)

	empty := report.Graph.Edge(model.EdgeKey{Src: "Gene", Rel: "gene_disease", Dst: "Disease"})
	require.NotNil(t, empty)
	assert.Equal(t, 0, empty.NumEdges())
}

func TestRunMissingSchema(t *testing.T) {
	cfg := setup(t, dataFiles, config.OnErrorHalt)
	cfg.SchemaPath = filepath.Join(t.TempDir(), "nope.yaml")

	_, err := NewRunner(cfg, nil).Run(context.Background(), Options{Reason: "test"})
	assert.Error(t, err)
}

func TestRunPrintsReport(t *testing.T) {
	color.NoColor = true
	cfg := setup(t, dataFiles, config.OnErrorHalt)
	cfg.DOT = true

	var buf bytes.Buffer
	_, err := NewRunner(cfg, &buf).Run(context.Background(), Options{Reason: "test"})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "Build Report")
	assert.Contains(t, buf.String(), "gene_disease")

	_, err = os.Stat(filepath.Join(cfg.OutputDir, output.DOTFile))
	assert.NoError(t, err)
}

func TestRerunRemovesStaleOutputs(t *testing.T) {
	cfg := setup(t, dataFiles, config.OnErrorHalt)
	cfg.DOT = true
	runner := NewRunner(cfg, nil)

	_, err := runner.Run(context.Background(), Options{Reason: "first"})
	require.NoError(t, err)
	require.FileExists(t, output.UnresolvedPath(cfg.OutputDir, "Gene"))

	// Fix the only unresolved gene and switch the artifact format
	fixed := "gene_id,disease_id,score\nENSG1,doid:100,1\nENSG2,DOID:200,1\n"
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DataDir, "gene_disease.csv"), []byte(fixed), 0o644))
	cfg.Compress = true
	cfg.DOT = false

	report, err := runner.Run(context.Background(), Options{Reason: "second"})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Edges.Unresolved.Get("Gene").Len())
	assert.NoFileExists(t, output.UnresolvedPath(cfg.OutputDir, "Gene"))
	assert.FileExists(t, output.UnresolvedPath(cfg.OutputDir, "GO"))

	assert.FileExists(t, filepath.Join(cfg.OutputDir, output.GraphFile+output.CompressedExt))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, output.GraphFile))
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, output.DOTFile))
}
