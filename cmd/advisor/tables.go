package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"finadvisor/internal/cli"
	"finadvisor/internal/config"
)

var tablesForce bool

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Advisory tables (feature schema, categories, keyword rules)",
}

var tablesInitCmd = &cobra.Command{
	Use:   "init PATH",
	Short: "Write the built-in tables to a TOML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		path := args[0]
		if _, err := os.Stat(path); err == nil && !tablesForce {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		if err := config.SaveTables(path, config.DefaultTables()); err != nil {
			return err
		}
		fmt.Printf("  Wrote %s\n", path)
		return nil
	},
}

var tablesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the tables in effect",
	RunE: func(_ *cobra.Command, _ []string) error {
		t, err := loadTables()
		if err != nil {
			return err
		}
		if err := t.Validate(); err != nil {
			return err
		}

		source := cfg.TablesFile
		if source == "" {
			source = "built-in"
		}
		fmt.Println()
		fmt.Println(cli.RenderTitle("TABLES  " + source))
		fmt.Println()
		fmt.Print(cli.RenderKeyValues([][2]string{
			{"schema", t.Schema.Version},
			{"encoding", t.Schema.Encoding},
			{"merchants", strings.Join(t.Schema.Merchants, ", ")},
			{"fields", strings.Join(t.FeatureSchema().Fields(), ", ")},
			{"categories", strings.Join(t.Categories, ", ")},
			{"bill due threshold", fmt.Sprintf("%.2f", t.Thresholds.BillDue)},
			{"low balance threshold", fmt.Sprintf("%.2f", t.Thresholds.LowBalance)},
			{"scaler", scalerState(t)},
		}))
		fmt.Println()

		rows := make([][]string, 0, len(t.Keywords))
		for _, r := range t.Keywords {
			rows = append(rows, []string{r.Keyword, r.Category})
		}
		fmt.Print(cli.RenderTable(cli.Table{Title: "Keyword rules (first match wins)", Headers: []string{"Keyword", "Category"}, Rows: rows}))
		return nil
	},
}

func scalerState(t config.Tables) string {
	if t.Scaler == nil {
		return "none"
	}
	return fmt.Sprintf("%d fields", len(t.Scaler.Mean))
}

func init() {
	tablesInitCmd.Flags().BoolVar(&tablesForce, "force", false, "Overwrite an existing file")
	tablesCmd.AddCommand(tablesInitCmd, tablesShowCmd)
	rootCmd.AddCommand(tablesCmd)
}
