package api

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuleTemplate is one detection rule: a script plus the metadata copied onto
// every finding it produces.
type RuleTemplate struct {
	// Name identifies the rule in reports.
	Name string `yaml:"name" json:"name"`
	// Author of the rule.
	Author string `yaml:"author" json:"author"`
	// Accent is a free-form category (e.g. "access-control").
	Accent string `yaml:"accent" json:"accent"`
	// Language is the ecosystem the rule targets ("rust" or "solidity").
	Language string `yaml:"language" json:"language"`
	// Description is copied verbatim into findings.
	Description string `yaml:"description" json:"description"`
	// Severity of a positive match.
	Severity Severity `yaml:"severity" json:"severity"`
	// Certainty is free-form (e.g. "Low", "High").
	Certainty string `yaml:"certainty" json:"certainty"`
	// Rule is the script evaluated against the node tree.
	Rule string `yaml:"rule" json:"rule"`
}

// Severity ranks a finding.
type Severity string

const (
	SeverityInfo     Severity = "Info"
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Severities lists every level from least to most severe.
var Severities = []Severity{SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// ParseSeverity matches s case-insensitively and returns the canonical form.
func ParseSeverity(s string) (Severity, error) {
	for _, sev := range Severities {
		if strings.EqualFold(strings.TrimSpace(s), string(sev)) {
			return sev, nil
		}
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Rank orders severities; unknown values rank below Info.
func (s Severity) Rank() int {
	for i, sev := range Severities {
		if sev == s {
			return i
		}
	}
	return -1
}

func (s *Severity) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	sev, err := ParseSeverity(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*s = sev
	return nil
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	sev, err := ParseSeverity(raw)
	if err != nil {
		return err
	}
	*s = sev
	return nil
}
