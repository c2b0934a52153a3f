// Package sqlite provides a SQLite-backed challenge storage implementation.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/platform/storage/sqlitemigrate"
	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/services/challenge/domain"
	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/services/challenge/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists challenge state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite challenge store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	// _txlock=immediate makes read-then-write transactions take the write
	// lock up front, so racing submitters queue instead of failing busy.
	dsn := cleanPath + "?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// pairKey builds the order-independent duel participant key.
func pairKey(creatorID, opponentID string) string {
	if opponentID < creatorID {
		creatorID, opponentID = opponentID, creatorID
	}
	return creatorID + "|" + opponentID
}

const challengeColumns = `id, community_id, kind, track, category, number,
	        creator_id, opponent_id, winner_id,
	        gold_ms, silver_ms, bronze_ms,
	        status, created_at, started_at, ends_at, leaderboard_ref`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChallenge(row rowScanner) (domain.Challenge, error) {
	var c domain.Challenge
	var goldMs, silverMs, bronzeMs sql.NullInt64
	var createdAt int64
	var startedAt, endsAt sql.NullInt64
	err := row.Scan(
		&c.ID,
		&c.CommunityID,
		&c.Kind,
		&c.Track,
		&c.Category,
		&c.Number,
		&c.CreatorID,
		&c.OpponentID,
		&c.WinnerID,
		&goldMs,
		&silverMs,
		&bronzeMs,
		&c.Status,
		&createdAt,
		&startedAt,
		&endsAt,
		&c.LeaderboardRef,
	)
	if err != nil {
		return domain.Challenge{}, err
	}

	if goldMs.Valid && silverMs.Valid && bronzeMs.Valid {
		c.Goals = &domain.GoalTimes{
			Gold:   domain.LapTime(goldMs.Int64),
			Silver: domain.LapTime(silverMs.Int64),
			Bronze: domain.LapTime(bronzeMs.Int64),
		}
	}
	c.CreatedAt = fromMillis(createdAt)
	if startedAt.Valid {
		at := fromMillis(startedAt.Int64)
		c.StartedAt = &at
	}
	if endsAt.Valid {
		at := fromMillis(endsAt.Int64)
		c.EndsAt = &at
	}
	return c, nil
}

func goalColumns(goals *domain.GoalTimes) (gold, silver, bronze sql.NullInt64) {
	if goals == nil {
		return
	}
	gold = sql.NullInt64{Int64: goals.Gold.Millis(), Valid: true}
	silver = sql.NullInt64{Int64: goals.Silver.Millis(), Valid: true}
	bronze = sql.NullInt64{Int64: goals.Bronze.Millis(), Valid: true}
	return
}

func nullableMillis(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*value), Valid: true}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
