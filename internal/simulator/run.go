package simulator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/logging"
)

// Logger is the subset of slog.Logger the simulator needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Config controls a simulation run.
type Config struct {
	Tokens   []string      // devices to simulate
	Interval time.Duration // time between rounds
	Rounds   int           // 0 runs until ctx is cancelled
	Activate bool          // activate each device before the first round
	Limits   Limits
}

// Totals counts what a run sent.
type Totals struct {
	Readings int
	Alerts   int
	Failures int
}

// Run sends one reading per device every Interval, plus an alert for each
// value over its limit. Failed sends are logged and counted; Run only
// returns an error when a device cannot be activated.
func Run(ctx context.Context, client *Client, gen *Generator, cfg Config, log Logger) (Totals, error) {
	var totals Totals
	if len(cfg.Tokens) == 0 {
		return totals, errors.New("no device tokens given")
	}

	if cfg.Activate {
		for _, token := range cfg.Tokens {
			if err := client.Activate(ctx, token); err != nil {
				return totals, fmt.Errorf("device %s: %w", logging.TokenHint(token), err)
			}
			log.Info("device activated", "device", logging.TokenHint(token))
		}
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for round := 1; ; round++ {
		for _, token := range cfg.Tokens {
			sendRound(ctx, client, gen, cfg.Limits, token, &totals, log)
		}
		if cfg.Rounds > 0 && round >= cfg.Rounds {
			return totals, nil
		}

		select {
		case <-ctx.Done():
			return totals, nil
		case <-ticker.C:
		}
	}
}

func sendRound(ctx context.Context, client *Client, gen *Generator, limits Limits, token string, totals *Totals, log Logger) {
	reading := gen.Next()
	if err := client.SendReading(ctx, token, reading); err != nil {
		totals.Failures++
		log.Warn("reading rejected", "device", logging.TokenHint(token), "error", err)
		return
	}
	totals.Readings++

	for _, alert := range Check(reading, limits) {
		if err := client.SendAlert(ctx, token, alert); err != nil {
			totals.Failures++
			log.Warn("alert rejected", "device", logging.TokenHint(token), "type", alert.Type, "error", err)
			continue
		}
		totals.Alerts++
	}
}
