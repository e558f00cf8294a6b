// mcc-comms runs the loop coordinator for one mission control console and
// serves its HTTP control API.
//
// Configuration is layered: built-in defaults, then the YAML file named by
// --config, then ROLE and MCC_COMMS_* environment variables, then flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	comms "github.com/itaame/MCC-COMMS"
	"github.com/itaame/MCC-COMMS/internal/httpapi"
	"github.com/itaame/MCC-COMMS/internal/logging"
	"github.com/itaame/MCC-COMMS/internal/metrics"
	"github.com/itaame/MCC-COMMS/source"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	configPath   string
	role         string
	loopsDir     string
	listen       string
	bots         []string
	delay        time.Duration
	delayEnabled bool
	delayMode    string
	natsURL      string
	metrics      bool
	logLevel     string
	logFormat    string
}

func run(args []string) error {
	var f flags

	flagSet := pflag.NewFlagSet("mcc-comms", pflag.ContinueOnError)
	flagSet.StringVar(&f.configPath, "config", "", "path to YAML configuration file")
	flagSet.StringVar(&f.role, "role", "", "console role; selects loops_<ROLE>.txt (default FLIGHT)")
	flagSet.StringVar(&f.loopsDir, "loops-dir", "", "directory holding loops_<ROLE>.txt catalogs")
	flagSet.StringVar(&f.listen, "listen", "", "HTTP listen address")
	flagSet.StringSliceVar(&f.bots, "bot", nil, "bot roster entry NAME=URL (repeatable, replaces the default roster)")
	flagSet.DurationVar(&f.delay, "delay", 0, "release delay")
	flagSet.BoolVar(&f.delayEnabled, "delay-enabled", false, "start with the release delay on")
	flagSet.StringVar(&f.delayMode, "delay-mode", "", `who waits out delayed mute/leave: "local" or "worker"`)
	flagSet.StringVar(&f.natsURL, "nats-url", "", "NATS server for the channel view mirror (empty disables)")
	flagSet.BoolVar(&f.metrics, "metrics", true, "expose Prometheus metrics on /metrics")
	flagSet.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flagSet.StringVar(&f.logFormat, "log-format", "", "log format: text or json")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}

		return err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	cfg, err := loadConfig(flagSet, &f)
	if err != nil {
		return err
	}

	logger, err := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []comms.Option{comms.WithLogger(logger)}

	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, comms.WithMetrics(metrics.NewPrometheus(reg, cfg.Metrics.Namespace)))
		gatherer = reg
	}

	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL, nats.Name("mcc-comms-"+cfg.Role), nats.Timeout(cfg.NATS.Timeout))
		if err != nil {
			logger.Error("NATS unavailable, view mirror disabled", "url", cfg.NATS.URL, "error", err)
		} else {
			defer nc.Close()
			opts = append(opts, comms.WithNATS(nc))
		}
	}

	coord, err := comms.New(&cfg, source.NewFile(cfg.LoopsDir, cfg.Role), opts...)
	if err != nil {
		return err
	}
	if err := coord.Start(ctx); err != nil {
		return fmt.Errorf("start coordinator: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.New(coord, httpapi.Config{Logger: logger, Gatherer: gatherer}).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("control API listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		httpErr := srv.Shutdown(shutdownCtx)
		stopErr := coord.Stop(shutdownCtx)

		return errors.Join(httpErr, stopErr)
	})

	return g.Wait()
}

// loadConfig layers defaults, file, environment and flags.
func loadConfig(flagSet *pflag.FlagSet, f *flags) (comms.Config, error) {
	cfg := comms.DefaultConfig()
	if f.configPath != "" {
		var err error
		if cfg, err = comms.LoadConfig(f.configPath); err != nil {
			return comms.Config{}, err
		}
	}

	envCfg, err := comms.LoadEnv()
	if err != nil {
		return comms.Config{}, err
	}
	if err := envCfg.Apply(&cfg); err != nil {
		return comms.Config{}, err
	}

	if flagSet.Changed("role") {
		cfg.Role = f.role
	}
	if flagSet.Changed("loops-dir") {
		cfg.LoopsDir = f.loopsDir
	}
	if flagSet.Changed("listen") {
		cfg.ListenAddr = f.listen
	}
	if flagSet.Changed("bot") {
		bots, err := comms.ParseBots(f.bots)
		if err != nil {
			return comms.Config{}, fmt.Errorf("--bot: %w", err)
		}
		cfg.Bots = bots
	}
	if flagSet.Changed("delay") {
		cfg.Delay.Delay = f.delay
	}
	if flagSet.Changed("delay-enabled") {
		cfg.Delay.Enabled = f.delayEnabled
	}
	if flagSet.Changed("delay-mode") {
		cfg.Delay.Mode = comms.DelayMode(f.delayMode)
	}
	if flagSet.Changed("nats-url") {
		cfg.NATS.URL = f.natsURL
	}
	if flagSet.Changed("metrics") {
		cfg.Metrics.Enabled = f.metrics
	}
	if flagSet.Changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if flagSet.Changed("log-format") {
		cfg.Logging.Format = f.logFormat
	}

	comms.SetDefaults(&cfg)

	return cfg, nil
}
