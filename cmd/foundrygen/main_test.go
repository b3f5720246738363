package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/foundrydata/foundrygen/diag"
)

const composeDoc = `canonical:
  schema:
    type: object
    required: [id, pick]
    properties:
      id: {type: integer, minimum: 5}
      pick:
        oneOf:
          - {const: left}
          - {const: right}
diag:
  nodes:
    /properties/pick:
      chosenBranch: {index: 1, score: 1}
`

const openapiDoc = `openapi: 3.1.0
info:
  title: Shop
  version: 1.0.0
paths: {}
components:
  schemas:
    Item:
      x-foundry-generate: {count: 2, seed: 11}
      type: object
      required: [sku]
      properties:
        sku: {type: string, pattern: '^[a-c]{2}$'}
    Color:
      x-foundry-generate: true
      enum: [blue, red]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(""))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestGenerateComposeDocument(t *testing.T) {
	path := writeFile(t, "compose.yaml", composeDoc)
	stdout, _, err := runCLI(t, "generate", path, "--count", "2", "--seed", "3")
	require.NoError(t, err)

	var res struct {
		Items       []map[string]any  `json:"items"`
		Diagnostics []diag.Diagnostic `json:"diagnostics"`
		Seed        uint32            `json:"seed"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	require.Len(t, res.Items, 2)
	assert.Equal(t, uint32(3), res.Seed)
	for _, it := range res.Items {
		assert.Equal(t, map[string]any{"id": 5.0, "pick": "right"}, it)
	}
	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, diag.ExclusivityTweakString, res.Diagnostics[0].Code)
	assert.Equal(t, "/properties/pick", res.Diagnostics[0].CanonPath)
}

func TestGenerateIsDeterministic(t *testing.T) {
	path := writeFile(t, "compose.yaml", composeDoc)
	first, _, err := runCLI(t, "generate", path, "-n", "4")
	require.NoError(t, err)
	second, _, err := runCLI(t, "generate", path, "-n", "4")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateItemsOnlyYAML(t *testing.T) {
	path := writeFile(t, "compose.yaml", composeDoc)
	stdout, _, err := runCLI(t, "generate", path, "--items", "-o", "yaml")
	require.NoError(t, err)

	var items []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "right", items[0]["pick"])
}

func TestGenerateFromStdin(t *testing.T) {
	var stdout bytes.Buffer
	root := newRootCmd()
	root.SetArgs([]string{"generate", "--items"})
	root.SetIn(strings.NewReader(`{"type": "string", "minLength": 2}`))
	root.SetOut(&stdout)
	require.NoError(t, root.Execute())
	assert.Equal(t, `["aa"]`+"\n", stdout.String())
}

func TestGenerateOpenAPITargets(t *testing.T) {
	path := writeFile(t, "shop.yaml", openapiDoc)
	stdout, _, err := runCLI(t, "generate", path, "--openapi", "--items")
	require.NoError(t, err)

	var byName map[string][]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &byName))
	assert.Equal(t, []any{"blue"}, byName["Color"])
	require.Len(t, byName["Item"], 2)
	for _, it := range byName["Item"] {
		assert.Equal(t, map[string]any{"sku": "aa"}, it)
	}

	stdout, _, err = runCLI(t, "generate", path, "--openapi", "--target", "Color", "--count", "3", "--items")
	require.NoError(t, err)
	byName = nil
	require.NoError(t, json.Unmarshal([]byte(stdout), &byName))
	assert.Equal(t, map[string][]any{"Color": {"blue", "blue", "blue"}}, byName)
}

func TestGenerateErrors(t *testing.T) {
	_, _, err := runCLI(t, "generate", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open input")

	path := writeFile(t, "compose.yaml", composeDoc)
	_, _, err = runCLI(t, "generate", path, "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")

	shop := writeFile(t, "shop.yaml", openapiDoc)
	_, _, err = runCLI(t, "generate", shop, "--openapi", "--target", "Nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no target matches")
}

func TestDiagnosticsTable(t *testing.T) {
	path := writeFile(t, "compose.yaml", composeDoc)
	stdout, _, err := runCLI(t, "diagnostics", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "CODE"), "header: %q", lines[0])
	assert.Contains(t, lines[1], "EXCLUSIVITY_TWEAK_STRING")
	assert.Contains(t, lines[1], "/properties/pick")
	assert.Contains(t, lines[1], "scoreDetails=")
	assert.Equal(t, "1 diagnostic(s)", lines[2])

	// Columns line up by display width.
	assert.Equal(t, strings.Index(lines[0], "PATH"), strings.Index(lines[1], "/properties/pick"))
}

func TestDiagnosticsTableWithTargets(t *testing.T) {
	path := writeFile(t, "shop.yaml", openapiDoc)
	stdout, _, err := runCLI(t, "diagnostics", path, "--openapi", "--alphabet", "c", "--max-length", "1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "TARGET"), "got %q", stdout)
	assert.Contains(t, stdout, "COMPLEXITY_CAP_PATTERNS")
	assert.Contains(t, stdout, "Item")
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	writeTable(&buf, [][]string{{"A", "B"}, {"日本", "x"}, {"z", "y"}})
	assert.Equal(t, "A     B\n日本  x\nz     y\n", buf.String())
}
