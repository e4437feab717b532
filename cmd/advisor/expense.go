package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"finadvisor/internal/classify"
	"finadvisor/internal/cli"
	"finadvisor/internal/core"
)

var (
	expAmount string
	expDate   string
	expSince  string
)

var expenseCmd = &cobra.Command{
	Use:   "expense",
	Short: "Record and list expenses",
}

var expenseAddCmd = &cobra.Command{
	Use:     "add DESCRIPTION",
	Short:   "Record an expense",
	Example: `  advisor expense add "Grocery shopping" --amount 80`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := core.ParseMoney(expAmount)
		if err != nil {
			return err
		}
		day, err := today()
		if err != nil {
			return err
		}
		if expDate != "" {
			if day, err = core.ParseDate(expDate); err != nil {
				return fmt.Errorf("%w: --date: %v", core.ErrInvalidInput, err)
			}
		}

		repo, err := openStore()
		if err != nil {
			return err
		}
		defer repo.Close()

		e, err := repo.CreateExpense(cmd.Context(), core.Expense{Date: day, Description: args[0], Amount: amount})
		if err != nil {
			return err
		}
		fmt.Printf("  Recorded expense #%d %q %s on %s\n", e.ID, e.Description, cli.FormatMoney(e.Amount), e.Date)
		return nil
	},
}

var expenseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List expenses with their keyword category",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var since core.Date
		if expSince != "" {
			var err error
			if since, err = core.ParseDate(expSince); err != nil {
				return fmt.Errorf("%w: --since: %v", core.ErrInvalidInput, err)
			}
		}
		tables, err := loadTables()
		if err != nil {
			return err
		}
		repo, err := openStore()
		if err != nil {
			return err
		}
		defer repo.Close()

		expenses, err := repo.ListExpenses(cmd.Context(), since)
		if err != nil {
			return err
		}
		if len(expenses) == 0 {
			fmt.Println("\n  No expenses.")
			return nil
		}

		c := classify.New(tables.KeywordTable())
		rows := make([][]string, 0, len(expenses))
		for _, e := range c.ClassifyAll(expenses) {
			rows = append(rows, []string{
				strconv.FormatInt(e.ID, 10), e.Date.String(), e.Description, string(e.Category), cli.FormatMoney(e.Amount),
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Headers: []string{"ID", "Date", "Description", "Category", "Amount"},
			Rows:    rows,
		}))
		return nil
	},
}

func init() {
	expenseAddCmd.Flags().StringVar(&expAmount, "amount", "", "Amount")
	expenseAddCmd.Flags().StringVar(&expDate, "date", "", "Date (YYYY-MM-DD, default today)")
	_ = expenseAddCmd.MarkFlagRequired("amount")
	expenseListCmd.Flags().StringVar(&expSince, "since", "", "Only expenses on or after this date")

	expenseCmd.AddCommand(expenseAddCmd, expenseListCmd)
	rootCmd.AddCommand(expenseCmd)
}
