package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"finadvisor/internal/services"
)

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Bills due within the reminder window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		day, err := today()
		if err != nil {
			return err
		}
		repo, err := openStore()
		if err != nil {
			return err
		}
		defer repo.Close()

		bills, err := repo.ListActiveBills(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println()
		printReminders(slices.Collect(services.DueSoon(bills, day, cfg.ReminderWindowDays)), cfg.ReminderWindowDays)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(remindersCmd)
}
