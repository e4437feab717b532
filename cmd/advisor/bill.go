package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"finadvisor/internal/cli"
	"finadvisor/internal/core"
)

var (
	billDue    string
	billAmount string
	billEvery  string
)

var billCmd = &cobra.Command{
	Use:   "bill",
	Short: "Manage bills",
}

var billAddCmd = &cobra.Command{
	Use:     "add NAME",
	Short:   "Add a bill",
	Example: `  advisor bill add Rent --due 2024-04-01 --amount 900 --every monthly`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		due, err := core.ParseDate(billDue)
		if err != nil {
			return fmt.Errorf("%w: --due: %v", core.ErrInvalidInput, err)
		}
		amount, err := core.ParseMoney(billAmount)
		if err != nil {
			return err
		}
		repo, err := openStore()
		if err != nil {
			return err
		}
		defer repo.Close()

		b, err := repo.CreateBill(cmd.Context(), core.Bill{
			Name:    args[0],
			DueDate: due,
			Amount:  amount,
			Every:   core.RepetitionTypes(billEvery),
		})
		if err != nil {
			return err
		}
		fmt.Printf("  Added bill #%d %s, %s due %s\n", b.ID, b.Name, cli.FormatMoney(b.Amount), b.DueDate)
		return nil
	},
}

var billListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bills with their next due date",
	RunE: func(cmd *cobra.Command, _ []string) error {
		repo, err := openStore()
		if err != nil {
			return err
		}
		defer repo.Close()

		bills, err := repo.ListBills(cmd.Context())
		if err != nil {
			return err
		}
		if len(bills) == 0 {
			fmt.Println("\n  No bills.")
			return nil
		}
		rows := make([][]string, 0, len(bills))
		for _, b := range bills {
			every := string(b.Every)
			if every == "" {
				every = "once"
			}
			rows = append(rows, []string{
				strconv.FormatInt(b.ID, 10), b.Name, b.DueDate.String(), cli.FormatMoney(b.Amount), every, b.LastPaid.String(),
			})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Headers: []string{"ID", "Name", "Due", "Amount", "Every", "Last paid"},
			Rows:    rows,
		}))
		return nil
	},
}

var billPayCmd = &cobra.Command{
	Use:   "pay ID",
	Short: "Pay the occurrence currently due",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		repo, err := openStore()
		if err != nil {
			return err
		}
		defer repo.Close()

		b, err := repo.PayBill(cmd.Context(), id)
		if err != nil {
			return err
		}
		if b.IsRecurring() {
			fmt.Printf("  Paid %s, next due %s\n", b.Name, b.DueDate)
		} else {
			fmt.Printf("  Paid %s\n", b.Name)
		}
		return nil
	},
}

var billDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a bill and its reminder history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		repo, err := openStore()
		if err != nil {
			return err
		}
		defer repo.Close()
		if err := repo.DeleteBill(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("  Deleted bill #%d\n", id)
		return nil
	},
}

func init() {
	billAddCmd.Flags().StringVar(&billDue, "due", "", "Due date (YYYY-MM-DD); the anchor for recurring bills")
	billAddCmd.Flags().StringVar(&billAmount, "amount", "", "Amount")
	billAddCmd.Flags().StringVar(&billEvery, "every", "", "Repeat daily, weekly, monthly or yearly")
	_ = billAddCmd.MarkFlagRequired("due")
	_ = billAddCmd.MarkFlagRequired("amount")

	billCmd.AddCommand(billAddCmd, billListCmd, billPayCmd, billDeleteCmd)
	rootCmd.AddCommand(billCmd)
}
