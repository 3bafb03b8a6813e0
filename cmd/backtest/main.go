package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/baiguoname/qust-sub001/internal/backtest"
	"github.com/baiguoname/qust-sub001/internal/config"
	"github.com/baiguoname/qust-sub001/internal/di"
	"github.com/baiguoname/qust-sub001/internal/indicator"
	"github.com/baiguoname/qust-sub001/internal/logger"
	"github.com/baiguoname/qust-sub001/internal/persist"
	"github.com/baiguoname/qust-sub001/internal/pricestore"
	"github.com/baiguoname/qust-sub001/internal/version"
)

// runBacktest loads cfgPath, backtests every strategy on every data set and
// writes the results under the configured output directory.
func runBacktest(ctx context.Context, cfgPath string, workers int, progress io.Writer, log *logger.Logger) ([]backtest.Result, error) {
	cfg, err := config.LoadBacktest(cfgPath)
	if err != nil {
		return nil, err
	}

	if workers <= 0 {
		workers = cfg.Workers
	}

	src, err := pricestore.NewParquetSource(log)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	reg := indicator.DefaultRegistry()
	engine := cfg.Backtest(log)

	var jobs []backtest.Job

	for _, d := range cfg.Data {
		store, err := d.Load(src)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", d.Path, err)
		}

		inst := di.New(d.Contract, store, di.WithLogger(log.Ticker(d.Contract.Ticker, d.Contract.Code)))

		for _, s := range cfg.Strategies {
			p, err := s.Build(reg)
			if err != nil {
				return nil, err
			}

			jobs = append(jobs, backtest.Job{
				ID:     s.Name + "_" + d.Contract.Code,
				DI:     inst,
				Ptm:    p,
				Config: engine,
			})
		}
	}

	bar := progressbar.NewOptions(len(jobs),
		progressbar.OptionSetDescription("Backtesting"),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowCount(),
	)

	results, err := backtest.RunMany(ctx, jobs, workers, func(done, _ int) {
		_ = bar.Set(done)
	})
	if err != nil {
		return nil, err
	}

	if err := writeResults(cfg, results, log); err != nil {
		return nil, err
	}

	return results, nil
}

func writeResults(cfg *config.BacktestConfig, results []backtest.Result, log *logger.Logger) error {
	writer, err := backtest.NewResultsWriter(log)
	if err != nil {
		return err
	}
	defer writer.Close()

	days := filepath.Join(cfg.Output, "days")

	for _, r := range results {
		if err := writer.Add(r); err != nil {
			return err
		}

		if err := persist.Save(days, r.JobID, cfg.PersistFormat(), persist.DaySeriesOf(backtest.DayAgg(r.Res))); err != nil {
			return err
		}

		log.Info("Backtest finished",
			zap.String("job", r.JobID),
			zap.String("ptm", r.Ptm),
			zap.Float64("total", r.Summary.Total),
			zap.Float64("sharpe", r.Summary.Sharpe),
			zap.Float64("max_drawdown", r.Summary.MaxDrawdown),
			zap.Int("trades", r.Summary.Trades),
		)
	}

	return writer.Write(cfg.Output)
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	_, err = runBacktest(ctx, cmd.String("config"), int(cmd.Int("workers")), os.Stderr, log)

	return err
}

func schemaAction(_ context.Context, _ *cli.Command) error {
	out, err := config.GenerateSchemaJSON("backtest-config", &config.BacktestConfig{})
	if err != nil {
		return err
	}

	fmt.Println(out)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "backtest",
		Usage:   "Backtest preset strategies over bar files",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run every configured strategy on every data set",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the backtest `YAML` config",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Parallel jobs, overriding the config",
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the config",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
