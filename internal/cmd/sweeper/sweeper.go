// Package sweeper parses sweeper command flags and launches the
// background sweep loop.
package sweeper

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/platform/config"
	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/platform/otel"
	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/services/challenge/app"
	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/services/challenge/storage/sqlite"
)

// Config holds sweeper command configuration.
type Config struct {
	DBPath        string        `env:"WTT_DB_PATH" envDefault:"data/challenges.db"`
	SweepInterval time.Duration `env:"WTT_SWEEP_INTERVAL" envDefault:"1m"`
	CleanupGrace  time.Duration `env:"WTT_CLEANUP_GRACE" envDefault:"720h"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The challenge SQLite database path")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "How often to check challenge deadlines")
	fs.DurationVar(&cfg.CleanupGrace, "cleanup-grace", cfg.CleanupGrace, "How long terminal challenges are retained")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the sweep loop and blocks until the context is cancelled.
func Run(ctx context.Context, cfg Config) error {
	shutdown, err := otel.Setup(ctx, "challenge-sweeper")
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("shutdown tracing: %v", err)
		}
	}()

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	service := app.NewService(app.Stores{
		Challenges:  store,
		Submissions: store,
		Settings:    store,
	})
	err = app.NewSweeper(service, nil, cfg.SweepInterval, cfg.CleanupGrace).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
