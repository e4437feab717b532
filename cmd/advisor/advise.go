package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"finadvisor/internal/cli"
	"finadvisor/internal/core"
	"finadvisor/internal/services"
)

var (
	adviseFile  string
	adviseSince string
)

var adviseCmd = &cobra.Command{
	Use:   "advise",
	Short: "Reminders, expense categories and balance projection",
	Long: `Run the model-free advisory. With --file the bills, expenses and balance come
from a JSON batch file; otherwise they are read from the database.`,
	Example: `  advisor advise --file batch.json
  advisor advise --since 2024-03-01`,
	RunE: runAdvise,
}

func init() {
	adviseCmd.Flags().StringVarP(&adviseFile, "file", "f", "", "JSON batch file")
	adviseCmd.Flags().StringVar(&adviseSince, "since", "", "Only stored expenses on or after this date")
	rootCmd.AddCommand(adviseCmd)
}

// batchFile is the JSON batch format. Amounts are decimal strings.
type batchFile struct {
	Today    string `json:"today"`
	Balance  string `json:"balance"`
	Bills    []struct {
		ID      int64  `json:"id"`
		Name    string `json:"name"`
		DueDate string `json:"due_date"`
		Amount  string `json:"amount"`
		Every   string `json:"every"`
	} `json:"bills"`
	Expenses []struct {
		Description string `json:"description"`
		Amount      string `json:"amount"`
		Date        string `json:"date"`
	} `json:"expenses"`
}

func readBatchFile(path string, fallback core.Date) (services.BatchInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return services.BatchInput{}, fmt.Errorf("read batch: %w", err)
	}
	// Unknown fields are rejected, matching the HTTP batch endpoint.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var f batchFile
	if err := dec.Decode(&f); err != nil {
		return services.BatchInput{}, fmt.Errorf("%w: parse batch %s: %v", core.ErrInvalidInput, path, err)
	}
	if dec.More() {
		return services.BatchInput{}, fmt.Errorf("%w: parse batch %s: trailing data", core.ErrInvalidInput, path)
	}

	in := services.BatchInput{Today: fallback}
	if f.Today != "" {
		if in.Today, err = core.ParseDate(f.Today); err != nil {
			return services.BatchInput{}, fmt.Errorf("%w: today: %v", core.ErrInvalidInput, err)
		}
	}
	if in.Balance, err = core.ParseMoney(f.Balance); err != nil {
		return services.BatchInput{}, fmt.Errorf("balance: %w", err)
	}
	for i, b := range f.Bills {
		due, err := core.ParseDate(b.DueDate)
		if err != nil {
			return services.BatchInput{}, fmt.Errorf("%w: bill %d: %v", core.ErrInvalidInput, i, err)
		}
		amount, err := core.ParseMoney(b.Amount)
		if err != nil {
			return services.BatchInput{}, fmt.Errorf("bill %d (%s): %w", i, b.Name, err)
		}
		bill := core.Bill{ID: b.ID, Name: b.Name, DueDate: due, Amount: amount, Every: core.RepetitionTypes(b.Every)}
		if err := bill.Validate(); err != nil {
			return services.BatchInput{}, fmt.Errorf("%w: bill %d: %w", core.ErrInvalidInput, i, err)
		}
		in.Bills = append(in.Bills, bill)
	}
	for i, e := range f.Expenses {
		amount, err := core.ParseMoney(e.Amount)
		if err != nil {
			return services.BatchInput{}, fmt.Errorf("expense %d (%s): %w", i, e.Description, err)
		}
		exp := core.Expense{Description: e.Description, Amount: amount}
		if e.Date != "" {
			if exp.Date, err = core.ParseDate(e.Date); err != nil {
				return services.BatchInput{}, fmt.Errorf("%w: expense %d: %v", core.ErrInvalidInput, i, err)
			}
		}
		if err := exp.Validate(); err != nil {
			return services.BatchInput{}, fmt.Errorf("%w: expense %d: %w", core.ErrInvalidInput, i, err)
		}
		in.Expenses = append(in.Expenses, exp)
	}
	return in, nil
}

func runAdvise(cmd *cobra.Command, _ []string) error {
	day, err := today()
	if err != nil {
		return err
	}
	tables, err := loadTables()
	if err != nil {
		return err
	}
	advisor, err := cli.NewBatchAdvisor(cfg, tables)
	if err != nil {
		return err
	}

	var rep services.BatchReport
	if adviseFile != "" {
		in, err := readBatchFile(adviseFile, day)
		if err != nil {
			return err
		}
		day = in.Today
		if rep, err = advisor.Advise(cmd.Context(), in); err != nil {
			return err
		}
	} else {
		var since core.Date
		if adviseSince != "" {
			if since, err = core.ParseDate(adviseSince); err != nil {
				return fmt.Errorf("%w: --since: %v", core.ErrInvalidInput, err)
			}
		}
		repo, err := openStore()
		if err != nil {
			return err
		}
		defer repo.Close()
		if rep, err = services.NewAdvisorService(repo, advisor).Advise(cmd.Context(), day, since); err != nil {
			return err
		}
	}

	printReport(day, advisor.Window(), rep)
	return nil
}

func printReport(day core.Date, window int, rep services.BatchReport) {
	fmt.Println()
	fmt.Println(cli.RenderTitle("ADVISORY  " + day.String()))
	fmt.Println()

	printReminders(rep.Reminders, window)

	if len(rep.Expenses) > 0 {
		rows := make([][]string, 0, len(rep.Expenses))
		for _, e := range rep.Expenses {
			rows = append(rows, []string{e.Description, e.Date.String(), string(e.Category), cli.FormatMoney(e.Amount)})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Expenses",
			Headers: []string{"Description", "Date", "Category", "Amount"},
			Rows:    rows,
		}))
		fmt.Println()

		rows = make([][]string, 0, len(rep.ByCategory))
		for _, c := range rep.ByCategory {
			rows = append(rows, []string{string(c.Name), cli.FormatMoney(c.Amount)})
		}
		fmt.Print(cli.RenderTable(cli.Table{Title: "By category", Headers: []string{"Category", "Total"}, Rows: rows}))
		fmt.Println()
	}

	p := rep.Projection
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Projection",
		Headers: []string{"", "Amount"},
		Rows: [][]string{
			{"Balance", cli.FormatMoney(p.Balance)},
			{"Expenses", "-" + cli.FormatMoney(p.TotalExpenses)},
			{"Bills", "-" + cli.FormatMoney(p.TotalBills)},
			{"Projected", cli.FormatMoney(p.Projected)},
		},
	}))
	if p.Warning {
		fmt.Printf("  %s projected balance is below %s\n", cli.FormatFlag(true), cli.FormatMoney(p.Threshold))
	}
}

func printReminders(rs []services.Reminder, window int) {
	if len(rs) == 0 {
		fmt.Printf("  No bills due in the next %d days.\n\n", window)
		return
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Bills due within %d days", window),
		Headers: cli.ReminderHeaders,
		Rows:    cli.ReminderRows(rs),
	}))
	fmt.Println()
}
