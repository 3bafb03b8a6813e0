package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/baiguoname/qust-sub001/internal/config"
	"github.com/baiguoname/qust-sub001/internal/feed"
	"github.com/baiguoname/qust-sub001/internal/logger"
	"github.com/baiguoname/qust-sub001/internal/metrics"
	"github.com/baiguoname/qust-sub001/internal/runner"
	"github.com/baiguoname/qust-sub001/internal/supervisor"
	"github.com/baiguoname/qust-sub001/internal/types"
	"github.com/baiguoname/qust-sub001/internal/version"
)

const (
	envOutput      = "QUST_LIVE_OUTPUT"
	envMetricsAddr = "QUST_METRICS_ADDR"
)

// applyEnv lets the environment override where a deployment writes.
func applyEnv(cfg *config.LiveConfig) {
	if v := os.Getenv(envOutput); v != "" {
		cfg.Output = v
	}

	if v := os.Getenv(envMetricsAddr); v != "" {
		cfg.MetricsAddr = v
	}
}

func serveMetrics(m *metrics.Metrics, addr string, log *logger.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", zap.Error(err))
		}
	}()

	return srv
}

// runLive streams ticks from r into a live runner until r ends or ctx is
// done. With supervise set the runner only runs inside trading sessions.
func runLive(ctx context.Context, cfg *config.LiveConfig, r io.Reader, supervise bool, log *logger.Logger) error {
	contracts := make([]types.Contract, len(cfg.Contracts))
	for i, lc := range cfg.Contracts {
		contracts[i] = lc.Contract
	}

	dec, err := feed.NewDecoder(contracts, time.Local)
	if err != nil {
		return err
	}

	m := metrics.New()

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(m, cfg.MetricsAddr, log)
		defer srv.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ticks := make(chan types.TickRecv, 1024)

	go func() {
		if err := feed.Stream(ctx, r, dec, ticks, log); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Tick stream failed", zap.Error(err))
		}
	}()

	live, err := runner.NewLive(cfg, ticks, runner.WithLogger(log), runner.WithMetrics(m))
	if err != nil {
		return err
	}

	if !supervise {
		if err := live.Start(ctx); err != nil {
			return err
		}
		defer live.Stop()

		select {
		case <-ctx.Done():
		case <-live.Exhausted():
			log.Info("Tick stream ended")
		}

		return nil
	}

	sessions, err := cfg.Intervals()
	if err != nil {
		return err
	}

	opts := []supervisor.Option{supervisor.WithLogger(log)}
	if cfg.MaxSleep > 0 {
		opts = append(opts, supervisor.WithMaxSleep(cfg.MaxSleep))
	}

	sup, err := supervisor.New(sessions, opts...)
	if err != nil {
		return err
	}

	done := make(chan error, 1)

	go func() {
		done <- sup.Loop(ctx, live, nil)
	}()

	select {
	case <-live.Exhausted():
		log.Info("Tick stream ended")
		cancel()
	case <-ctx.Done():
	}

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	if env := cmd.String("env"); env != "" {
		if err := godotenv.Load(env); err != nil {
			return err
		}
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.LoadLive(cmd.String("config"))
	if err != nil {
		return err
	}

	applyEnv(cfg)

	var in io.Reader = os.Stdin

	if path := cmd.String("ticks"); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		in = f
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting live trading",
		zap.String("version", version.GetVersion()),
		zap.Int("contracts", len(cfg.Contracts)),
		zap.Bool("supervise", cmd.Bool("supervise")),
	)

	return runLive(ctx, cfg, in, cmd.Bool("supervise"), log)
}

func main() {
	cmd := &cli.Command{
		Name:    "live",
		Usage:   "Trade preset strategies on a JSON-lines tick stream against a simulated broker",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the live `YAML` config",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "ticks",
				Aliases: []string{"t"},
				Usage:   "JSON-lines tick file, or - for stdin",
				Value:   "-",
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "Optional .env file overriding " + envOutput + " and " + envMetricsAddr,
			},
			&cli.BoolFlag{
				Name:  "supervise",
				Usage: "Only run inside the configured trading sessions",
			},
		},
		Action: runAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
