// Package templates loads rule templates from YAML files.
package templates

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentic-research/radar/api"
	"github.com/agentic-research/radar/internal/graph"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid rule template")

// Template is a rule template together with the file it came from.
type Template struct {
	api.RuleTemplate
	Path string
}

// LoadDir loads every *.yaml and *.yml file below dir, in lexical path order.
// Files that fail to load are reported in the joined error; the others are
// still returned.
func LoadDir(dir string) ([]Template, error) {
	var out []Template
	var errs []error
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
		default:
			return nil
		}
		t, err := LoadFile(path)
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		out = append(out, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return out, errors.Join(errs...)
}

// LoadFile reads and validates one template.
func LoadFile(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("read template: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return Template{}, fmt.Errorf("%s: %w", path, err)
	}
	return Template{RuleTemplate: t, Path: path}, nil
}

// Parse decodes one YAML document and validates it.
func Parse(data []byte) (api.RuleTemplate, error) {
	var t api.RuleTemplate
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	t.Language = strings.ToLower(strings.TrimSpace(t.Language))
	return t, Validate(t)
}

// Validate checks the fields a scan depends on.
func Validate(t api.RuleTemplate) error {
	var missing []string
	if t.Name == "" {
		missing = append(missing, "name")
	}
	if t.Severity == "" {
		missing = append(missing, "severity")
	}
	if strings.TrimSpace(t.Rule) == "" {
		missing = append(missing, "rule")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalid, strings.Join(missing, ", "))
	}
	switch graph.Language(t.Language) {
	case graph.Rust, graph.Solidity, "":
	default:
		return fmt.Errorf("%w: unsupported language %q", ErrInvalid, t.Language)
	}
	return nil
}
