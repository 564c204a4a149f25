// telemetry-sim plays one or more devices against a running Telemetry Core
// server: it optionally activates them, then posts a reading per device every
// interval and an alert for each value over its limit.
//
// Usage:
//
//	telemetry-sim -url http://localhost:8080 -tokens <token>[,<token>...] -interval 5s
//
// Flags may also come from TELEMETRY_SIM_URL and TELEMETRY_SIM_TOKENS,
// including via a .env file in the working directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/config"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/logging"
	"github.com/nerrad567/telemetry-core/internal/simulator"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the parsed command line.
type options struct {
	url      string
	tokens   []string
	interval time.Duration
	rounds   int
	activate bool
	anomaly  float64
	seed     uint64
	logLevel string
}

func parseFlags(args []string) (options, error) {
	var opts options
	var tokens string

	flags := flag.NewFlagSet("telemetry-sim", flag.ContinueOnError)
	flags.StringVar(&opts.url, "url", envOr("TELEMETRY_SIM_URL", "http://localhost:8080"), "server base URL")
	flags.StringVar(&tokens, "tokens", os.Getenv("TELEMETRY_SIM_TOKENS"), "comma-separated device tokens")
	flags.DurationVar(&opts.interval, "interval", 5*time.Second, "time between rounds")
	flags.IntVar(&opts.rounds, "rounds", 0, "rounds to send (0 runs until interrupted)")
	flags.BoolVar(&opts.activate, "activate", true, "activate each device before sending")
	flags.Float64Var(&opts.anomaly, "anomaly", 0.05, "probability of an out-of-range value per reading")
	flags.Uint64Var(&opts.seed, "seed", uint64(time.Now().UnixNano()), "random seed") //nolint:gosec // G115: any bit pattern is a valid seed
	flags.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	if err := flags.Parse(args); err != nil {
		return opts, err
	}

	for t := range strings.SplitSeq(tokens, ",") {
		if t = strings.TrimSpace(t); t != "" {
			opts.tokens = append(opts.tokens, t)
		}
	}
	switch {
	case len(opts.tokens) == 0:
		return opts, errors.New("at least one device token is required (-tokens or TELEMETRY_SIM_TOKENS)")
	case opts.interval <= 0:
		return opts, errors.New("interval must be positive")
	case opts.anomaly < 0 || opts.anomaly > 1:
		return opts, errors.New("anomaly must be between 0 and 1")
	}
	return opts, nil
}

func run(ctx context.Context, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	log := logging.New(config.LoggingConfig{Level: opts.logLevel, Format: "text", Output: "stdout"}, version)
	log.Info("simulating devices",
		"url", opts.url,
		"devices", len(opts.tokens),
		"interval", opts.interval,
		"seed", opts.seed,
	)

	client := simulator.NewClient(opts.url, 10*time.Second)
	totals, err := simulator.Run(ctx, client, simulator.NewGenerator(opts.seed, opts.anomaly), simulator.Config{
		Tokens:   opts.tokens,
		Interval: opts.interval,
		Rounds:   opts.rounds,
		Activate: opts.activate,
		Limits:   simulator.DefaultLimits,
	}, log)
	if err != nil {
		return err
	}

	log.Info("simulation finished",
		"readings", totals.Readings,
		"alerts", totals.Alerts,
		"failures", totals.Failures,
	)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
