package scan

import (
	"testing"

	"github.com/agentic-research/radar/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelector(t *testing.T) {
	tmpls := []api.RuleTemplate{
		{Name: "a", Language: "rust", Severity: api.SeverityLow, Accent: "anchor"},
		{Name: "b", Language: "solidity", Severity: api.SeverityCritical},
		{Name: "c", Language: "rust", Severity: api.SeverityHigh},
	}

	tests := []struct {
		expr string
		want []string
	}{
		{`language == "rust"`, []string{"a", "c"}},
		{`severity_rank >= 3`, []string{"b", "c"}},
		{`accent == "anchor" || severity == "Critical"`, []string{"a", "b"}},
		{`name.startsWith("z")`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			s, err := NewSelector(tt.expr)
			require.NoError(t, err)
			got, err := s.Filter(tmpls)
			require.NoError(t, err)
			var names []string
			for _, g := range got {
				names = append(names, g.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestSelector_Invalid(t *testing.T) {
	_, err := NewSelector(`language ==`)
	assert.Error(t, err)
	_, err = NewSelector(`name`)
	assert.Error(t, err, "non-boolean expressions are rejected")
	_, err = NewSelector(`unknown_var == 1`)
	assert.Error(t, err)
}

func TestSelector_NilMatchesAll(t *testing.T) {
	var s *Selector
	ok, err := s.Match(api.RuleTemplate{Name: "x"})
	require.NoError(t, err)
	assert.True(t, ok)
}
