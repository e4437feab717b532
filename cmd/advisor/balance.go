package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"finadvisor/internal/cli"
	"finadvisor/internal/core"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Record or show the account balance",
}

var balanceSetCmd = &cobra.Command{
	Use:   "set AMOUNT",
	Short: "Record a balance snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := core.ParseMoney(args[0])
		if err != nil {
			return err
		}
		repo, err := openStore()
		if err != nil {
			return err
		}
		defer repo.Close()
		if err := repo.RecordBalance(cmd.Context(), amount); err != nil {
			return err
		}
		fmt.Printf("  Balance set to %s\n", cli.FormatMoney(amount))
		return nil
	},
}

var balanceShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the latest balance snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		repo, err := openStore()
		if err != nil {
			return err
		}
		defer repo.Close()
		balance, err := repo.LatestBalance(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("  Balance: %s\n", cli.FormatMoney(balance))
		return nil
	},
}

func init() {
	balanceCmd.AddCommand(balanceSetCmd, balanceShowCmd)
	rootCmd.AddCommand(balanceCmd)
}
