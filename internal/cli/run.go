package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ArthurHtr/backtest-engine/analysis"
	"github.com/ArthurHtr/backtest-engine/backtest"
	"github.com/ArthurHtr/backtest-engine/broker"
	"github.com/ArthurHtr/backtest-engine/config"
	"github.com/ArthurHtr/backtest-engine/journal"
	"github.com/ArthurHtr/backtest-engine/marketdata"
	"github.com/ArthurHtr/backtest-engine/strategies"
)

func newRunCmd() *cobra.Command {
	var (
		configPath string
		reportPath string
		verbose    bool

		symbols   []string
		start     string
		end       string
		timeframe string
		strategy  string
		cash      float64
		seed      int64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a backtest and print the summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.LoadFromFile(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			// Flag overrides on top of the config file.
			if len(symbols) > 0 {
				cfg.Data.Symbols = symbols
			}
			if start != "" {
				cfg.Data.Start = start
			}
			if end != "" {
				cfg.Data.End = end
			}
			if timeframe != "" {
				cfg.Data.Timeframe = timeframe
			}
			if strategy != "" {
				cfg.Strategy.Name = strategy
			}
			if cash > 0 {
				cfg.Broker.InitialCash = cash
			}
			if seed != 0 {
				cfg.Data.Seed = seed
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			return runBacktest(cfg, reportPath, logger)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file (optional)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write the step-by-step analysis to this file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	cmd.Flags().StringSliceVar(&symbols, "symbols", nil, "Symbols to replay (overrides config)")
	cmd.Flags().StringVar(&start, "start", "", "Start date, RFC 3339 or YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "End date, RFC 3339 or YYYY-MM-DD")
	cmd.Flags().StringVar(&timeframe, "timeframe", "", "Bar timeframe: 1m, 1h or 1d")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Strategy name")
	cmd.Flags().Float64Var(&cash, "cash", 0, "Initial cash")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for the simulated data provider")

	return cmd
}

func runBacktest(cfg *config.Config, reportPath string, logger *zap.Logger) error {
	startTime, err := config.ParseTime(cfg.Data.Start)
	if err != nil {
		return err
	}
	endTime, err := config.ParseTime(cfg.Data.End)
	if err != nil {
		return err
	}

	strat, err := strategies.ByName(cfg.Strategy.Name, strategies.Params{
		Quantity:    cfg.Strategy.Quantity,
		ShortWindow: cfg.Strategy.ShortWindow,
		LongWindow:  cfg.Strategy.LongWindow,
	})
	if err != nil {
		return err
	}

	j, err := newJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer j.Close()

	provider := marketdata.NewSimulated(marketdata.SimulatedConfig{
		Seed:            cfg.Data.Seed,
		BasePrice:       cfg.Data.BasePrice,
		Drift:           cfg.Data.Drift,
		Volatility:      cfg.Data.Volatility,
		BaseDailyVolume: cfg.Data.BaseDailyVolume,
	})

	runner := &backtest.Runner{
		Provider: provider,
		Broker: broker.New(broker.Config{
			InitialCash:       cfg.Broker.InitialCash,
			FeeRate:           cfg.Broker.FeeRate,
			MarginRequirement: cfg.Broker.MarginRequirement,
			MaintenanceMargin: cfg.Broker.MaintenanceMargin,
			Symbols:           cfg.SymbolMap(),
		}),
		Strategy: strat,
		Journal:  j,
		Logger:   logger,
	}

	logs, err := runner.Run(backtest.RunSpec{
		Symbols:   cfg.Data.Symbols,
		Start:     startTime,
		End:       endTime,
		Timeframe: cfg.Data.Timeframe,
	})
	if err != nil {
		return err
	}

	if reportPath != "" {
		f, err := os.Create(reportPath)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		if err := analysis.WriteReport(f, logs); err != nil {
			f.Close()
			return fmt.Errorf("write report: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		logger.Info("report written", zap.String("path", reportPath))
	}

	return analysis.WriteSummary(os.Stdout, analysis.Compute(logs))
}

func newJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	case "csv":
		return journal.NewCSV(cfg.TradesFile, cfg.EquityFile)
	default:
		return journal.Nop{}, nil
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
