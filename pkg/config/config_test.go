package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.String("data", "", "")
	f.String("config", "", "")
	f.String("output", "", "")
	f.String("on-error", "halt", "")
	f.Bool("compress", false, "")
	f.CountP("verbose", "v", "")
	require.NoError(t, f.Parse(args))
	return f
}

func TestLoadDefaultsAndFlags(t *testing.T) {
	f := newFlags(t, "--data", "db", "--config", "schema.yaml", "--output", "out", "--on-error", "continue", "-vv")

	cfg, err := load(f, filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, "db", cfg.DataDir)
	assert.Equal(t, "schema.yaml", cfg.SchemaPath)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, OnErrorContinue, cfg.OnError)
	assert.False(t, cfg.HaltOnError())
	assert.Equal(t, 2, cfg.VerboseCnt)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.toml")
	require.NoError(t, os.WriteFile(path, []byte("data = \"from-file\"\ncompress = true\n"), 0o644))

	cfg, err := load(newFlags(t, "--data", "from-flag"), path)
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.DataDir, "flags override the file")
	assert.True(t, cfg.Compress, "unset flags keep file values")
	assert.True(t, cfg.HaltOnError())
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("CROSSBAR_ON_ERROR", "continue")

	cfg, err := load(nil, filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, OnErrorContinue, cfg.OnError)
}

func TestValidate(t *testing.T) {
	cfg := &Config{OnError: OnErrorHalt, LogFormat: "text"}
	assert.ErrorContains(t, cfg.Validate(), "data, config, output")

	cfg = &Config{DataDir: "d", SchemaPath: "s", OutputDir: "o", OnError: "skip", LogFormat: "text"}
	assert.ErrorContains(t, cfg.Validate(), "on_error")
}

func writeSchema(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSchema(t *testing.T) {
	path := writeSchema(t, `
node_types:
  - Gene
  - Disease
  - Molecular_function
edge_types:
  - [gene_disease, Gene, Disease, gene_id, disease_id]
  - [gene_mf, Gene, GO, gene_id, 1234]
  - [broken, Gene]
`)

	s, err := LoadSchema(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"Gene", "Disease", "Molecular_function"}, s.NodeTypes)
	require.Len(t, s.EdgeTypes, 3)
	assert.Equal(t, []string{"gene_disease", "Gene", "Disease", "gene_id", "disease_id"}, s.EdgeTypes[0])
	assert.Equal(t, "1234", s.EdgeTypes[1][4], "non-string fields are coerced to text")
	assert.Len(t, s.EdgeTypes[2], 2, "malformed tuples are preserved for the resolver")
	assert.Equal(t, DefaultComposite, s.Composite)
	assert.Equal(t, DefaultCaseInsensitive, s.CaseInsensitive)
}

func TestLoadSchemaOverrides(t *testing.T) {
	path := writeSchema(t, `
node_types: [Gene, Chebi]
edge_types: []
composite:
  name: Ontology
  parts: [Chebi]
case_insensitive: [Gene]
`)

	s, err := LoadSchema(path)
	require.NoError(t, err)

	assert.Equal(t, "Ontology", s.Composite.Name)
	assert.Equal(t, []string{"Chebi"}, s.Composite.Parts)
	assert.Equal(t, []string{"Gene"}, s.CaseInsensitive)
	assert.Empty(t, s.EdgeTypes)
}

func TestLoadSchemaErrors(t *testing.T) {
	_, err := LoadSchema(writeSchema(t, "edge_types: []\n"))
	assert.ErrorIs(t, err, ErrNoNodeTypes)

	_, err = LoadSchema(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
