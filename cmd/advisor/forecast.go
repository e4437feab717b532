package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"finadvisor/internal/cli"
	"finadvisor/internal/core"
	"finadvisor/internal/predictor"
	"finadvisor/internal/services"
)

var (
	fcAmount       string
	fcBalance      string
	fcMerchant     string
	fcDay          int
	fcWeekday      int
	fcHour         int
	fcPredictorURL string
	fcFeaturesOnly bool
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Score one transaction against the predictors",
	Example: `  advisor forecast --amount 100 --balance 1000 --merchant Amazon --day 10 --weekday 2 --hour 14
  advisor forecast --amount 12.5 --balance 40 --merchant Netflix --features-only`,
	RunE: runForecast,
}

func init() {
	now := time.Now()
	forecastCmd.Flags().StringVar(&fcAmount, "amount", "", "Transaction amount")
	forecastCmd.Flags().StringVar(&fcBalance, "balance", "", "Account balance at transaction time")
	forecastCmd.Flags().StringVarP(&fcMerchant, "merchant", "m", "", "Merchant name")
	forecastCmd.Flags().IntVar(&fcDay, "day", now.Day(), "Day of month (1-31)")
	forecastCmd.Flags().IntVar(&fcWeekday, "weekday", int(now.Weekday()), "Day of week (0=Sunday ... 6=Saturday)")
	forecastCmd.Flags().IntVar(&fcHour, "hour", now.Hour(), "Hour of day (0-23)")
	forecastCmd.Flags().StringVar(&fcPredictorURL, "predictor-url", "", "Predictor service base URL (default PREDICTOR_URL)")
	forecastCmd.Flags().BoolVar(&fcFeaturesOnly, "features-only", false, "Print the encoded feature vector without scoring")
	_ = forecastCmd.MarkFlagRequired("amount")
	_ = forecastCmd.MarkFlagRequired("balance")
	_ = forecastCmd.MarkFlagRequired("merchant")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, _ []string) error {
	amount, err := core.ParseMoney(fcAmount)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	balance, err := core.ParseMoney(fcBalance)
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	tx, err := core.NewTransaction(amount, fcDay, fcWeekday, fcHour, balance, fcMerchant)
	if err != nil {
		return err
	}

	tables, err := loadTables()
	if err != nil {
		return err
	}

	if fcFeaturesOnly {
		fc, err := tables.ForecastConfig()
		if err != nil {
			return err
		}
		f, err := services.NewForecaster(fc, predictor.Funcs{})
		if err != nil {
			return err
		}
		v, err := f.Features(tx)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, v.Len())
		for i, name := range v.Fields {
			rows = append(rows, []string{name, strconv.FormatFloat(v.Values[i], 'g', 6, 64)})
		}
		fmt.Println()
		fmt.Println(cli.RenderTitle("FEATURES  " + v.SchemaVersion))
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{Headers: []string{"Field", "Value"}, Rows: rows}))
		return nil
	}

	if fcPredictorURL != "" {
		cfg.PredictorURL = fcPredictorURL
	}
	if cfg.PredictorURL == "" {
		return fmt.Errorf("%w: no predictor configured, set PREDICTOR_URL or --predictor-url", core.ErrPredictorUnavailable)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.PredictorTimeout)
	defer cancel()

	forecasting, err := cli.NewForecasting(ctx, logger, cfg, tables)
	if err != nil {
		return err
	}
	defer forecasting.Close()

	res, err := forecasting.Forecaster.Forecast(ctx, tx)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("FORECAST  %s %s", tx.Merchant, cli.FormatMoney(tx.Amount))))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Advice", "Result", "Score"},
		Rows: [][]string{
			{"Bill due soon", cli.FormatFlag(res.BillDueSoon), cli.FormatProbability(res.Scores.BillDue)},
			{"Expense category", res.ExpenseCategory, cli.FormatProbability(maxScore(res.Scores.Category))},
			{"Low balance", cli.FormatFlag(res.LowBalanceWarning), cli.FormatProbability(res.Scores.LowBalance)},
		},
	}))
	fmt.Println(cli.Muted("  schema " + res.SchemaVersion))
	return nil
}

func maxScore(scores []float64) float64 {
	best := 0.0
	for _, s := range scores {
		best = max(best, s)
	}
	return best
}
