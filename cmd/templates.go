package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/agentic-research/radar/internal/sandbox"
	"github.com/agentic-research/radar/internal/templates"
	"github.com/spf13/cobra"
)

var templatesDir string

func init() {
	templatesCmd.PersistentFlags().StringVarP(&templatesDir, "templates", "t", "", "Directory of rule templates (default from config)")
	templatesCmd.AddCommand(templatesListCmd, templatesValidateCmd)
	rootCmd.AddCommand(templatesCmd)
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Inspect rule templates",
}

func templateDir() string {
	if templatesDir != "" {
		return templatesDir
	}
	return cfg.Templates.Dir
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates with their severity and language",
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := templates.LoadDir(templateDir())
		if err != nil && len(loaded) == 0 {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "NAME\tSEVERITY\tLANGUAGE\tPATH")
		for _, t := range loaded {
			lang := t.Language
			if lang == "" {
				lang = "any"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name, t.Severity, lang, t.Path)
		}
		if flushErr := w.Flush(); flushErr != nil {
			return flushErr
		}
		return err
	},
}

var templatesValidateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Check templates load and their rules pass the sandbox checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		var loaded []templates.Template
		var loadErr error
		if len(args) == 0 {
			loaded, loadErr = templates.LoadDir(templateDir())
		} else {
			for _, p := range args {
				t, err := templates.LoadFile(p)
				if err != nil {
					fmt.Printf("FAIL %s: %v\n", p, err)
					loadErr = err
					continue
				}
				loaded = append(loaded, t)
			}
		}

		failed := 0
		for _, t := range loaded {
			if err := sandbox.Check(t.Rule); err != nil {
				fmt.Printf("FAIL %s: %v\n", t.Path, err)
				failed++
				continue
			}
			fmt.Printf("ok   %s\n", t.Path)
		}
		if loadErr != nil {
			return loadErr
		}
		if failed > 0 {
			return fmt.Errorf("%d template(s) failed validation", failed)
		}
		return nil
	},
}
