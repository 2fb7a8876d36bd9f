package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGFA = "H\tVN:Z:1.0\n" +
	"S\tA\tACGT\n" +
	"S\tB\tG\n" +
	"S\tC\tTT\n" +
	"S\tD\tAAAA\n" +
	"S\tE\tCC\n" +
	"L\tA\t+\tB\t+\t0M\n" +
	"L\tB\t+\tD\t+\t0M\n" +
	"L\tA\t+\tC\t+\t0M\n" +
	"L\tC\t+\tD\t+\t0M\n" +
	"L\tD\t+\tE\t+\t0M\n"

const testVCF = "##fileformat=VCFv4.2\n" +
	"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
	"chr1\t10\tsnv1\tG\tTT\t.\tPASS\tAT=>A>B>D,>A>C>D\n" +
	"chr1\t20\tbroken\tG\tT\t.\tPASS\tAT=>A>missing>D,>A>C>D\n"

type harness struct {
	dir      string
	gfa, vcf string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	// keep any real ~/.bubblescope.yaml out of the test
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	h := &harness{
		dir: dir,
		gfa: filepath.Join(dir, "graph.gfa"),
		vcf: filepath.Join(dir, "calls.vcf"),
	}
	require.NoError(t, os.WriteFile(h.gfa, []byte(testGFA), 0o644))
	require.NoError(t, os.WriteFile(h.vcf, []byte(testVCF), 0o644))
	return h
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestGenerate_Stdout(t *testing.T) {
	h := newHarness(t)

	stdout, stderr, err := run(t, "generate", "-g", h.gfa, "-v", h.vcf, "-@", "2", "--log-level", "error")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 1, "the broken bubble must be skipped")

	id, payload, ok := strings.Cut(lines[0], "\t")
	require.True(t, ok)
	assert.Equal(t, "snv1", id)

	var chart struct {
		Nodes []map[string]any `json:"nodes"`
		Links []map[string]any `json:"links"`
	}
	require.NoError(t, json.Unmarshal([]byte(payload), &chart))
	assert.Len(t, chart.Nodes, 5)
	assert.NotEmpty(t, chart.Links)

	assert.Contains(t, stderr, "1 laid out")
	assert.Contains(t, stderr, "1 failed")
	assert.Contains(t, stderr, "broken")
}

func TestGenerate_StrictAndFilter(t *testing.T) {
	h := newHarness(t)

	_, _, err := run(t, "generate", "-g", h.gfa, "-v", h.vcf, "--strict", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "partial")

	stdout, stderr, err := run(t, "generate", "-g", h.gfa, "-v", h.vcf, "--strict",
		"--filter", `id != "broken"`, "--log-level", "error")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "snv1\t"))
	assert.Contains(t, stderr, "1 filtered")
}

func TestGenerate_OutputDir(t *testing.T) {
	h := newHarness(t)
	out := filepath.Join(h.dir, "layouts")

	stdout, _, err := run(t, "generate", "-g", h.gfa, "-v", h.vcf, "--output", out, "--log-level", "error")
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(filepath.Join(out, "snv1.json"))
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
	assert.NoFileExists(t, filepath.Join(out, "broken.json"))
}

func TestGenerate_RulesFile(t *testing.T) {
	h := newHarness(t)
	rules := filepath.Join(h.dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("rules:\n  - id: multi-allelic\n    condition: alleles > 2\n"), 0o644))

	stdout, stderr, err := run(t, "generate", "-g", h.gfa, "-v", h.vcf, "--rules", rules, "--log-level", "error")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "2 filtered")
}

func TestGenerate_LayoutCommand(t *testing.T) {
	h := newHarness(t)

	stdout, _, err := run(t, "generate", "-g", h.gfa, "-v", h.vcf, "--layout-cmd", "cat", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, stdout, "snv1\t")
}

func TestExtract(t *testing.T) {
	h := newHarness(t)

	stdout, _, err := run(t, "extract", "-g", h.gfa, "-v", h.vcf, "--id", "snv1", "--log-level", "error")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "graph ["))
	assert.Equal(t, 5, strings.Count(stdout, "\tnode ["))

	stdout, _, err = run(t, "extract", "-g", h.gfa, "-v", h.vcf, "--id", "snv1", "--format", "json", "--log-level", "error")
	require.NoError(t, err)
	var doc struct {
		Nodes []json.RawMessage `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Len(t, doc.Nodes, 5)

	_, _, err = run(t, "extract", "-g", h.gfa, "-v", h.vcf, "--id", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestConfigSources(t *testing.T) {
	h := newHarness(t)

	cfgFile := filepath.Join(h.dir, "bubblescope.yaml")
	content := "graph: " + h.gfa + "\nvariants: " + h.vcf + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0o644))

	stdout, _, err := run(t, "extract", "--config", cfgFile, "--id", "snv1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "graph [")

	t.Setenv("BUBBLESCOPE_STRICT", "true")
	_, _, err = run(t, "generate", "--config", cfgFile)
	require.Error(t, err, "strict mode from the environment")
}

func TestValidation(t *testing.T) {
	newHarness(t)

	_, _, err := run(t, "generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph (-g) is required")
	assert.Contains(t, err.Error(), "variants (-v) is required")

	_, _, err = run(t, "generate", "-g", "x", "-v", "y", "--log-format", "xml")
	require.Error(t, err)

	_, _, err = run(t, "extract", "--config", "/does/not/exist.yaml", "--id", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestHelp(t *testing.T) {
	newHarness(t)

	stdout, _, err := run(t, "--help")
	require.NoError(t, err)
	for _, want := range []string{"BUBBLESCOPE", "generate", "serve", "extract", "--graph"} {
		assert.Contains(t, stdout, want)
	}
}
