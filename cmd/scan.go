package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/agentic-research/radar/api"
	"github.com/agentic-research/radar/internal/sandbox"
	"github.com/agentic-research/radar/internal/scan"
	"github.com/agentic-research/radar/internal/templates"
	"github.com/spf13/cobra"
)

var (
	scanInputs    inputFlags
	scanTemplates string
	scanRules     []string
	scanFilter    string
	scanOutput    string
	scanKeepEmpty bool
)

func init() {
	scanInputs.register(scanCmd)
	scanCmd.Flags().StringVarP(&scanTemplates, "templates", "t", "", "Directory of rule templates (default from config)")
	scanCmd.Flags().StringArrayVarP(&scanRules, "rule", "r", nil, "Single template file to run (repeatable, replaces --templates)")
	scanCmd.Flags().StringVar(&scanFilter, "filter", "", "CEL expression selecting templates, e.g. severity_rank >= 2")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "", "Write findings to file instead of stdout")
	scanCmd.Flags().BoolVar(&scanKeepEmpty, "keep-empty", false, "Also report templates that matched nothing")
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run rule templates over parsed contracts and print findings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tmpls, err := loadTemplates()
		if err != nil {
			return err
		}
		if len(tmpls) == 0 {
			return fmt.Errorf("no templates selected")
		}

		forest, err := ingestForest(ctx, &scanInputs)
		if err != nil {
			return err
		}

		executor := sandbox.NewExecutor(log.Named("sandbox"), cfg.Sandbox.MaxSteps)
		runner := scan.NewRunner(log.Named("scan"), executor, scan.Options{
			Concurrency: cfg.Scan.Concurrency,
			RuleTimeout: cfg.Scan.RuleTimeout,
		})
		results := runner.Run(ctx, forest, tmpls)

		var failed int
		for _, res := range results {
			if res.Err != nil && !errors.Is(res.Err, scan.ErrLanguageMismatch) {
				failed++
			}
		}
		findings := scan.Findings(results, scanKeepEmpty)
		log.Info("scan complete", "templates", len(tmpls), "findings", len(findings), "failed", failed)

		return writeFindings(findings)
	},
}

func loadTemplates() ([]api.RuleTemplate, error) {
	var loaded []templates.Template
	if len(scanRules) > 0 {
		for _, p := range scanRules {
			t, err := templates.LoadFile(p)
			if err != nil {
				return nil, err
			}
			loaded = append(loaded, t)
		}
	} else {
		dir := scanTemplates
		if dir == "" {
			dir = cfg.Templates.Dir
		}
		var err error
		loaded, err = templates.LoadDir(dir)
		if err != nil {
			if len(loaded) == 0 {
				return nil, err
			}
			log.Warn("some templates were skipped", "error", err)
		}
	}

	tmpls := make([]api.RuleTemplate, len(loaded))
	for i, t := range loaded {
		tmpls[i] = t.RuleTemplate
	}

	filter := scanFilter
	if filter == "" {
		filter = cfg.Scan.Filter
	}
	if filter == "" {
		return tmpls, nil
	}
	sel, err := scan.NewSelector(filter)
	if err != nil {
		return nil, err
	}
	return sel.Filter(tmpls)
}

func writeFindings(findings []api.Finding) error {
	var w io.Writer = os.Stdout
	if scanOutput != "" {
		f, err := os.Create(scanOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}
