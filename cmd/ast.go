package cmd

import (
	"fmt"
	"os"

	"github.com/agentic-research/radar/internal/graph"
	"github.com/spf13/cobra"
)

var (
	astInputs inputFlags
	astDB     string
)

func init() {
	astInputs.register(astCmd)
	astCmd.Flags().StringVar(&astDB, "db", "", "Write the node hierarchy to a SQLite database instead of JSON")
	rootCmd.AddCommand(astCmd)
}

var astCmd = &cobra.Command{
	Use:   "ast",
	Short: "Print the node hierarchy rules are evaluated against",
	RunE: func(cmd *cobra.Command, args []string) error {
		forest, err := ingestForest(cmd.Context(), &astInputs)
		if err != nil {
			return err
		}

		if astDB != "" {
			if err := graph.ExportSQLite(forest, astDB); err != nil {
				return err
			}
			log.Info("exported", "db", astDB, "nodes", forest.Len())
			return nil
		}

		data, err := forest.MarshalJSON()
		if err != nil {
			return fmt.Errorf("encode forest: %w", err)
		}
		_, err = fmt.Fprintln(os.Stdout, string(data))
		return err
	},
}
