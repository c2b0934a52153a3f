// Package maintenance runs one sweep pass over the challenge database,
// for cron jobs and manual operations.
package maintenance

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/platform/config"
	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/services/challenge/app"
	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/services/challenge/storage/sqlite"
)

// Config holds maintenance command configuration.
type Config struct {
	DBPath       string        `env:"WTT_DB_PATH" envDefault:"data/challenges.db"`
	CleanupGrace time.Duration `env:"WTT_CLEANUP_GRACE" envDefault:"720h"`
	Timeout      time.Duration `env:"WTT_MAINTENANCE_TIMEOUT" envDefault:"1m"`
	SkipCleanup  bool          `env:"WTT_MAINTENANCE_SKIP_CLEANUP"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The challenge SQLite database path")
	fs.DurationVar(&cfg.CleanupGrace, "cleanup-grace", cfg.CleanupGrace, "How long terminal challenges are retained")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Overall pass timeout")
	fs.BoolVar(&cfg.SkipCleanup, "skip-cleanup", cfg.SkipCleanup, "Only expire, do not delete old records")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run performs one expiration pass and, unless skipped, one cleanup pass,
// writing a summary to out.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	service := app.NewService(app.Stores{
		Challenges:  store,
		Submissions: store,
		Settings:    store,
	})

	expired, err := service.SweepExpirations(ctx)
	if err != nil {
		return fmt.Errorf("expire overdue challenges: %w", err)
	}
	fmt.Fprintf(out, "expired %d overdue challenges\n", len(expired))

	if cfg.SkipCleanup {
		return nil
	}
	deleted, err := service.SweepCleanup(ctx, cfg.CleanupGrace)
	if err != nil {
		return fmt.Errorf("delete old challenges: %w", err)
	}
	fmt.Fprintf(out, "deleted %d terminal challenges older than %s\n", len(deleted), cfg.CleanupGrace)
	return nil
}
