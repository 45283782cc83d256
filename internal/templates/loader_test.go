package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentic-research/radar/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const valid = `name: missing-signer
author: radar
accent: anchor
language: Rust
description: Authority is never checked.
severity: critical
certainty: High
rule: |
  for file, root in ast:
      print(root.find_account_typed_nodes("authority"))
`

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParse(t *testing.T) {
	tmpl, err := Parse([]byte(valid))
	require.NoError(t, err)
	assert.Equal(t, "missing-signer", tmpl.Name)
	assert.Equal(t, "rust", tmpl.Language)
	assert.Equal(t, api.SeverityCritical, tmpl.Severity)
	assert.Equal(t, "anchor", tmpl.Accent)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing fields":  "name: x\n",
		"bad severity":    "name: x\nseverity: huge\nrule: print(1)\n",
		"bad language":    "name: x\nseverity: low\nlanguage: vyper\nrule: print(1)\n",
		"not a mapping":   "- a\n- b\n",
		"whitespace rule": "name: x\nseverity: low\nrule: '   '\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "b.yaml", valid)
	write(t, dir, "nested/a.yml", valid)
	write(t, dir, "nested/deeper/c.YAML", valid)
	write(t, dir, "README.md", "not a template")
	write(t, dir, "broken.yaml", "name: broken\n")

	got, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")

	var paths []string
	for _, tmpl := range got {
		rel, _ := filepath.Rel(dir, tmpl.Path)
		paths = append(paths, filepath.ToSlash(rel))
	}
	assert.Equal(t, []string{"b.yaml", "nested/a.yml", "nested/deeper/c.YAML"}, paths)
}

func TestLoadDir_Missing(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
