package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/services/challenge/domain"
	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/services/challenge/storage"
)

// CreateChallenge inserts one challenge, checking active-challenge
// uniqueness and assigning the next per-community display number inside
// the same transaction.
func (s *Store) CreateChallenge(ctx context.Context, challenge domain.Challenge) (domain.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return domain.Challenge{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Challenge{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(challenge.ID) == "" {
		return domain.Challenge{}, fmt.Errorf("challenge id is required")
	}
	if strings.TrimSpace(challenge.CommunityID) == "" {
		return domain.Challenge{}, fmt.Errorf("community id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("begin challenge insert: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback challenge insert: %v", cause, rollbackErr)
		}
		return cause
	}

	var conflicts int
	if challenge.Kind == domain.KindDuel {
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM challenges
			  WHERE community_id = ? AND track = ? AND category = ? AND pair_key = ?
			    AND kind = 'duel' AND status IN ('pending', 'accepted', 'active')`,
			challenge.CommunityID, challenge.Track, string(challenge.Category),
			pairKey(challenge.CreatorID, challenge.OpponentID),
		).Scan(&conflicts)
	} else {
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM challenges
			  WHERE community_id = ? AND track = ? AND category = ?
			    AND kind = 'trial' AND status = 'active'`,
			challenge.CommunityID, challenge.Track, string(challenge.Category),
		).Scan(&conflicts)
	}
	if err != nil {
		return domain.Challenge{}, rollbackWith(fmt.Errorf("check active challenge: %w", err))
	}
	if conflicts > 0 {
		return domain.Challenge{}, rollbackWith(storage.ErrAlreadyExists)
	}

	// Max+1 in the same transaction keeps display numbers race-free.
	var number int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(number), 0) + 1 FROM challenges WHERE community_id = ?`,
		challenge.CommunityID,
	).Scan(&number); err != nil {
		return domain.Challenge{}, rollbackWith(fmt.Errorf("assign challenge number: %w", err))
	}
	challenge.Number = number

	gold, silver, bronze := goalColumns(challenge.Goals)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO challenges (
		   id, community_id, kind, track, category, number,
		   creator_id, opponent_id, pair_key, winner_id,
		   gold_ms, silver_ms, bronze_ms,
		   status, created_at, started_at, ends_at, leaderboard_ref
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		challenge.ID,
		challenge.CommunityID,
		string(challenge.Kind),
		challenge.Track,
		string(challenge.Category),
		challenge.Number,
		challenge.CreatorID,
		challenge.OpponentID,
		pairKey(challenge.CreatorID, challenge.OpponentID),
		challenge.WinnerID,
		gold,
		silver,
		bronze,
		string(challenge.Status),
		toMillis(challenge.CreatedAt),
		nullableMillis(challenge.StartedAt),
		nullableMillis(challenge.EndsAt),
		challenge.LeaderboardRef,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Challenge{}, rollbackWith(storage.ErrAlreadyExists)
		}
		return domain.Challenge{}, rollbackWith(fmt.Errorf("insert challenge: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return domain.Challenge{}, fmt.Errorf("commit challenge insert: %w", err)
	}
	return challenge, nil
}

// GetChallenge returns one challenge by ID.
func (s *Store) GetChallenge(ctx context.Context, challengeID string) (domain.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return domain.Challenge{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Challenge{}, fmt.Errorf("storage is not configured")
	}
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return domain.Challenge{}, fmt.Errorf("challenge id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE id = ?`,
		challengeID,
	)
	challenge, err := scanChallenge(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Challenge{}, storage.ErrNotFound
		}
		return domain.Challenge{}, fmt.Errorf("get challenge: %w", err)
	}
	return challenge, nil
}

// GetActiveTrial returns the active trial for one (community, track,
// category) key.
func (s *Store) GetActiveTrial(ctx context.Context, communityID, track string, category domain.Category) (domain.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return domain.Challenge{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Challenge{}, fmt.Errorf("storage is not configured")
	}
	communityID = strings.TrimSpace(communityID)
	track = strings.TrimSpace(track)
	if communityID == "" || track == "" {
		return domain.Challenge{}, fmt.Errorf("community id and track are required")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges
		  WHERE community_id = ? AND track = ? AND category = ?
		    AND kind = 'trial' AND status = 'active'`,
		communityID, track, string(category),
	)
	challenge, err := scanChallenge(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Challenge{}, storage.ErrNotFound
		}
		return domain.Challenge{}, fmt.Errorf("get active trial: %w", err)
	}
	return challenge, nil
}

// ListActiveTrials returns a community's active trials ordered by number.
func (s *Store) ListActiveTrials(ctx context.Context, communityID string) ([]domain.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	communityID = strings.TrimSpace(communityID)
	if communityID == "" {
		return nil, fmt.Errorf("community id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges
		  WHERE community_id = ? AND kind = 'trial' AND status = 'active'
		  ORDER BY number ASC`,
		communityID,
	)
	if err != nil {
		return nil, fmt.Errorf("list active trials: %w", err)
	}
	defer rows.Close()

	var challenges []domain.Challenge
	for rows.Next() {
		challenge, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("list active trials: %w", err)
		}
		challenges = append(challenges, challenge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active trials: %w", err)
	}
	return challenges, nil
}

// ListDuelsForParticipant returns a community's duels involving the
// participant, filtered to the given statuses, newest first.
func (s *Store) ListDuelsForParticipant(ctx context.Context, communityID, participantID string, statuses []domain.Status) ([]domain.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	communityID = strings.TrimSpace(communityID)
	participantID = strings.TrimSpace(participantID)
	if communityID == "" || participantID == "" {
		return nil, fmt.Errorf("community id and participant id are required")
	}
	if len(statuses) == 0 {
		return nil, fmt.Errorf("at least one status is required")
	}

	placeholders := make([]string, len(statuses))
	args := []any{communityID}
	for i, status := range statuses {
		placeholders[i] = "?"
		args = append(args, string(status))
	}
	args = append(args, participantID, participantID)

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges
		  WHERE community_id = ? AND kind = 'duel'
		    AND status IN (`+strings.Join(placeholders, ", ")+`)
		    AND (creator_id = ? OR opponent_id = ?)
		  ORDER BY created_at DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list duels: %w", err)
	}
	defer rows.Close()

	var duels []domain.Challenge
	for rows.Next() {
		duel, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("list duels: %w", err)
		}
		duels = append(duels, duel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list duels: %w", err)
	}
	return duels, nil
}

// UpdateGoalTimes replaces the goal thresholds on a non-terminal challenge.
// A nil goals value clears them.
func (s *Store) UpdateGoalTimes(ctx context.Context, challengeID string, goals *domain.GoalTimes) (domain.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return domain.Challenge{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Challenge{}, fmt.Errorf("storage is not configured")
	}
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return domain.Challenge{}, fmt.Errorf("challenge id is required")
	}

	gold, silver, bronze := goalColumns(goals)
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE challenges SET gold_ms = ?, silver_ms = ?, bronze_ms = ?
		  WHERE id = ? AND status IN ('pending', 'accepted', 'active')`,
		gold, silver, bronze, challengeID,
	)
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("update goal times: %w", err)
	}
	if err := s.requireLiveRowTouched(ctx, result, challengeID); err != nil {
		return domain.Challenge{}, err
	}
	return s.GetChallenge(ctx, challengeID)
}

// UpdateCategory moves a non-terminal challenge to the other category,
// failing if an active challenge already occupies the target key.
func (s *Store) UpdateCategory(ctx context.Context, challengeID string, category domain.Category) (domain.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return domain.Challenge{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Challenge{}, fmt.Errorf("storage is not configured")
	}
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return domain.Challenge{}, fmt.Errorf("challenge id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("begin category update: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback category update: %v", cause, rollbackErr)
		}
		return cause
	}

	row := tx.QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE id = ?`,
		challengeID,
	)
	challenge, err := scanChallenge(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Challenge{}, rollbackWith(storage.ErrNotFound)
		}
		return domain.Challenge{}, rollbackWith(fmt.Errorf("load challenge: %w", err))
	}
	if challenge.Status.Terminal() {
		return domain.Challenge{}, rollbackWith(storage.ErrStatusConflict)
	}

	var conflicts int
	if challenge.Kind == domain.KindDuel {
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM challenges
			  WHERE community_id = ? AND track = ? AND category = ? AND pair_key = ?
			    AND kind = 'duel' AND status IN ('pending', 'accepted', 'active')
			    AND id != ?`,
			challenge.CommunityID, challenge.Track, string(category),
			pairKey(challenge.CreatorID, challenge.OpponentID), challengeID,
		).Scan(&conflicts)
	} else {
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM challenges
			  WHERE community_id = ? AND track = ? AND category = ?
			    AND kind = 'trial' AND status = 'active'
			    AND id != ?`,
			challenge.CommunityID, challenge.Track, string(category), challengeID,
		).Scan(&conflicts)
	}
	if err != nil {
		return domain.Challenge{}, rollbackWith(fmt.Errorf("check category conflict: %w", err))
	}
	if conflicts > 0 {
		return domain.Challenge{}, rollbackWith(storage.ErrAlreadyExists)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE challenges SET category = ? WHERE id = ?`,
		string(category), challengeID,
	); err != nil {
		if isUniqueViolation(err) {
			return domain.Challenge{}, rollbackWith(storage.ErrAlreadyExists)
		}
		return domain.Challenge{}, rollbackWith(fmt.Errorf("update category: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return domain.Challenge{}, fmt.Errorf("commit category update: %w", err)
	}
	challenge.Category = category
	return challenge, nil
}

// SetLeaderboardRef stores the opaque live-leaderboard handle.
func (s *Store) SetLeaderboardRef(ctx context.Context, challengeID, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return fmt.Errorf("challenge id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE challenges SET leaderboard_ref = ? WHERE id = ?`,
		strings.TrimSpace(ref), challengeID,
	)
	if err != nil {
		return fmt.Errorf("set leaderboard ref: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set leaderboard ref: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// TransitionChallenge applies one status edge with a conditional write.
// A concurrent transition on the same record loses with ErrStatusConflict.
func (s *Store) TransitionChallenge(ctx context.Context, challengeID string, from, to domain.Status, at time.Time, winnerID string) (domain.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return domain.Challenge{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Challenge{}, fmt.Errorf("storage is not configured")
	}
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return domain.Challenge{}, fmt.Errorf("challenge id is required")
	}
	if !from.CanTransition(to) {
		return domain.Challenge{}, storage.ErrStatusConflict
	}

	atMillis := toMillis(at)
	var (
		result sql.Result
		err    error
	)
	switch {
	case to == domain.StatusActive:
		result, err = s.sqlDB.ExecContext(ctx,
			`UPDATE challenges SET status = ?, started_at = COALESCE(started_at, ?)
			  WHERE id = ? AND status = ?`,
			string(to), atMillis, challengeID, string(from),
		)
	case to.Terminal():
		result, err = s.sqlDB.ExecContext(ctx,
			`UPDATE challenges SET status = ?, ends_at = ?, winner_id = ?
			  WHERE id = ? AND status = ?`,
			string(to), atMillis, strings.TrimSpace(winnerID), challengeID, string(from),
		)
	default:
		result, err = s.sqlDB.ExecContext(ctx,
			`UPDATE challenges SET status = ? WHERE id = ? AND status = ?`,
			string(to), challengeID, string(from),
		)
	}
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("transition challenge: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return domain.Challenge{}, fmt.Errorf("transition challenge: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetChallenge(ctx, challengeID); getErr != nil {
			return domain.Challenge{}, getErr
		}
		return domain.Challenge{}, storage.ErrStatusConflict
	}
	return s.GetChallenge(ctx, challengeID)
}

// CompleteDuel closes an open duel, reading its submissions and stamping
// the decided winner in one transaction. A submission racing the close
// either commits first and counts, or finds the duel completed.
func (s *Store) CompleteDuel(ctx context.Context, duelID string, at time.Time) (domain.Challenge, domain.DuelOutcome, string, error) {
	if err := ctx.Err(); err != nil {
		return domain.Challenge{}, "", "", err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Challenge{}, "", "", fmt.Errorf("storage is not configured")
	}
	duelID = strings.TrimSpace(duelID)
	if duelID == "" {
		return domain.Challenge{}, "", "", fmt.Errorf("duel id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Challenge{}, "", "", fmt.Errorf("begin duel close: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback duel close: %v", cause, rollbackErr)
		}
		return cause
	}

	row := tx.QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE id = ?`,
		duelID,
	)
	duel, err := scanChallenge(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Challenge{}, "", "", rollbackWith(storage.ErrNotFound)
		}
		return domain.Challenge{}, "", "", rollbackWith(fmt.Errorf("load duel: %w", err))
	}
	if !duel.IsDuel() || !duel.Status.CanTransition(domain.StatusCompleted) {
		return domain.Challenge{}, "", "", rollbackWith(storage.ErrStatusConflict)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT challenge_id, participant_id, time_ms, submitted_at, updated_at
		   FROM submissions WHERE challenge_id = ?`,
		duelID,
	)
	if err != nil {
		return domain.Challenge{}, "", "", rollbackWith(fmt.Errorf("scan duel submissions: %w", err))
	}
	var subs []domain.Submission
	for rows.Next() {
		sub, scanErr := scanSubmission(rows)
		if scanErr != nil {
			_ = rows.Close()
			return domain.Challenge{}, "", "", rollbackWith(fmt.Errorf("scan duel submissions: %w", scanErr))
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return domain.Challenge{}, "", "", rollbackWith(fmt.Errorf("scan duel submissions: %w", err))
	}
	_ = rows.Close()

	outcome, winnerID := domain.DecideDuelOutcome(duel, subs)

	atMillis := toMillis(at)
	result, err := tx.ExecContext(ctx,
		`UPDATE challenges SET status = ?, ends_at = ?, winner_id = ?
		  WHERE id = ? AND status = ?`,
		string(domain.StatusCompleted), atMillis, winnerID, duelID, string(duel.Status),
	)
	if err != nil {
		return domain.Challenge{}, "", "", rollbackWith(fmt.Errorf("complete duel: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return domain.Challenge{}, "", "", rollbackWith(fmt.Errorf("complete duel: %w", err))
	}
	if affected == 0 {
		return domain.Challenge{}, "", "", rollbackWith(storage.ErrStatusConflict)
	}

	if err := tx.Commit(); err != nil {
		return domain.Challenge{}, "", "", fmt.Errorf("commit duel close: %w", err)
	}

	duel.Status = domain.StatusCompleted
	duel.WinnerID = winnerID
	endsAt := fromMillis(atMillis)
	duel.EndsAt = &endsAt
	return duel, outcome, winnerID, nil
}

// ExpireDue transitions overdue non-terminal challenges to expired.
// Running it twice with the same timestamp changes nothing the second time.
func (s *Store) ExpireDue(ctx context.Context, now time.Time) ([]domain.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin expiration sweep: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback expiration sweep: %v", cause, rollbackErr)
		}
		return cause
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges
		  WHERE status IN ('pending', 'accepted', 'active')
		    AND ends_at IS NOT NULL AND ends_at <= ?`,
		toMillis(now),
	)
	if err != nil {
		return nil, rollbackWith(fmt.Errorf("scan due challenges: %w", err))
	}
	var due []domain.Challenge
	for rows.Next() {
		challenge, scanErr := scanChallenge(rows)
		if scanErr != nil {
			_ = rows.Close()
			return nil, rollbackWith(fmt.Errorf("scan due challenges: %w", scanErr))
		}
		due = append(due, challenge)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, rollbackWith(fmt.Errorf("scan due challenges: %w", err))
	}
	_ = rows.Close()

	expired := make([]domain.Challenge, 0, len(due))
	for _, challenge := range due {
		result, execErr := tx.ExecContext(ctx,
			`UPDATE challenges SET status = ? WHERE id = ? AND status = ?`,
			string(domain.StatusExpired), challenge.ID, string(challenge.Status),
		)
		if execErr != nil {
			return nil, rollbackWith(fmt.Errorf("expire challenge %s: %w", challenge.ID, execErr))
		}
		affected, execErr := result.RowsAffected()
		if execErr != nil {
			return nil, rollbackWith(fmt.Errorf("expire challenge %s: %w", challenge.ID, execErr))
		}
		if affected == 0 {
			continue
		}
		challenge.Status = domain.StatusExpired
		expired = append(expired, challenge)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit expiration sweep: %w", err)
	}
	return expired, nil
}

// DeleteTerminalBefore removes terminal challenges that ended before the
// cutoff. Submissions go with them via the cascade.
func (s *Store) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) ([]domain.Challenge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cleanup sweep: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback cleanup sweep: %v", cause, rollbackErr)
		}
		return cause
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges
		  WHERE status IN ('ended', 'completed', 'declined', 'cancelled', 'expired')
		    AND ends_at IS NOT NULL AND ends_at <= ?`,
		toMillis(cutoff),
	)
	if err != nil {
		return nil, rollbackWith(fmt.Errorf("scan stale challenges: %w", err))
	}
	var stale []domain.Challenge
	for rows.Next() {
		challenge, scanErr := scanChallenge(rows)
		if scanErr != nil {
			_ = rows.Close()
			return nil, rollbackWith(fmt.Errorf("scan stale challenges: %w", scanErr))
		}
		stale = append(stale, challenge)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, rollbackWith(fmt.Errorf("scan stale challenges: %w", err))
	}
	_ = rows.Close()

	for _, challenge := range stale {
		// Explicit child delete so cleanup does not depend on the
		// connection's foreign_keys pragma.
		if _, execErr := tx.ExecContext(ctx,
			`DELETE FROM submissions WHERE challenge_id = ?`, challenge.ID,
		); execErr != nil {
			return nil, rollbackWith(fmt.Errorf("delete submissions %s: %w", challenge.ID, execErr))
		}
		if _, execErr := tx.ExecContext(ctx,
			`DELETE FROM challenges WHERE id = ?`, challenge.ID,
		); execErr != nil {
			return nil, rollbackWith(fmt.Errorf("delete challenge %s: %w", challenge.ID, execErr))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cleanup sweep: %w", err)
	}
	return stale, nil
}

// requireLiveRowTouched distinguishes a missing record from one that is
// already terminal after a conditional update touched zero rows.
func (s *Store) requireLiveRowTouched(ctx context.Context, result sql.Result, challengeID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}
	if _, err := s.GetChallenge(ctx, challengeID); err != nil {
		return err
	}
	return storage.ErrStatusConflict
}
