package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/services/challenge/storage"
)

// UpsertCommunitySettings inserts or replaces a community's settings row.
func (s *Store) UpsertCommunitySettings(ctx context.Context, settings storage.CommunitySettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	communityID := strings.TrimSpace(settings.CommunityID)
	if communityID == "" {
		return fmt.Errorf("community id is required")
	}
	updatedAt := settings.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO community_settings (community_id, leaderboard_channel_id, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (community_id) DO UPDATE SET
		   leaderboard_channel_id = excluded.leaderboard_channel_id,
		   updated_at = excluded.updated_at`,
		communityID,
		strings.TrimSpace(settings.LeaderboardChannelID),
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert community settings: %w", err)
	}
	return nil
}

// GetCommunitySettings returns one community's settings row.
func (s *Store) GetCommunitySettings(ctx context.Context, communityID string) (storage.CommunitySettings, error) {
	if err := ctx.Err(); err != nil {
		return storage.CommunitySettings{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.CommunitySettings{}, fmt.Errorf("storage is not configured")
	}
	communityID = strings.TrimSpace(communityID)
	if communityID == "" {
		return storage.CommunitySettings{}, fmt.Errorf("community id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT community_id, leaderboard_channel_id, updated_at
		   FROM community_settings WHERE community_id = ?`,
		communityID,
	)
	var settings storage.CommunitySettings
	var updatedAt int64
	if err := row.Scan(&settings.CommunityID, &settings.LeaderboardChannelID, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.CommunitySettings{}, storage.ErrNotFound
		}
		return storage.CommunitySettings{}, fmt.Errorf("get community settings: %w", err)
	}
	settings.UpdatedAt = fromMillis(updatedAt)
	return settings, nil
}
