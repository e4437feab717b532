package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"finadvisor/internal/cli"
	"finadvisor/internal/config"
	"finadvisor/internal/core"
	applog "finadvisor/internal/log"
	"finadvisor/internal/storage"
)

var (
	flagDB        string
	flagTables    string
	flagToday     string
	flagWindow    int
	flagThreshold string
	flagVerbose   bool

	cfg    *config.Config
	logger *applog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "advisor",
	Short:         "Personal finance advisor",
	Long:          "Forecast transactions, remind about bills and project the balance left after pending spending.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		level := slog.LevelWarn
		if flagVerbose {
			level = slog.LevelDebug
		}
		logger = applog.New(applog.Config{
			Level:     level,
			Format:    "text",
			Component: applog.ComponentCLI,
			Output:    os.Stderr,
		})
		applog.SetDefault(logger)

		if cmd.Flags().Changed("db") {
			cfg.SQLiteDBPath = flagDB
		}
		if cmd.Flags().Changed("tables") {
			cfg.TablesFile = flagTables
		}
		if cmd.Flags().Changed("window") {
			cfg.ReminderWindowDays = flagWindow
		}
		if cmd.Flags().Changed("threshold") {
			cfg.LowBalanceThreshold = flagThreshold
		}
		return cfg.Validate()
	},
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "  error: %v\n", err)
		if code := core.ErrorCode(err); code != core.CodeInternal {
			fmt.Fprintf(os.Stderr, "  code:  %s\n", code)
		}
		os.Exit(1)
	}
}

func init() {
	cli.LoadEnvFile()
	cfg = config.Load()

	rootCmd.PersistentFlags().StringVar(&flagDB, "db", cfg.SQLiteDBPath, "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&flagTables, "tables", cfg.TablesFile, "Advisory tables TOML file (empty uses built-in tables)")
	rootCmd.PersistentFlags().StringVar(&flagToday, "today", "", "Evaluate as of this date (YYYY-MM-DD, default today)")
	rootCmd.PersistentFlags().IntVarP(&flagWindow, "window", "w", cfg.ReminderWindowDays, "Reminder window in days")
	rootCmd.PersistentFlags().StringVar(&flagThreshold, "threshold", cfg.LowBalanceThreshold, "Low-balance warning threshold")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging on stderr")
}

// today resolves --today.
func today() (core.Date, error) {
	if flagToday == "" {
		return core.DateOf(time.Now()), nil
	}
	d, err := core.ParseDate(flagToday)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: --today: %v", core.ErrInvalidInput, err)
	}
	return d, nil
}

// openStore opens the database, running migrations.
func openStore() (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.SQLiteDBPath, err)
	}
	return repo, nil
}

func loadTables() (config.Tables, error) {
	return cli.LoadTables(cfg)
}

func parseID(s string) (int64, error) {
	var id int64
	if _, err := fmt.Sscan(s, &id); err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q is not a valid id", core.ErrInvalidInput, s)
	}
	return id, nil
}
