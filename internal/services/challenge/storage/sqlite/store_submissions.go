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

func scanSubmission(row rowScanner) (domain.Submission, error) {
	var sub domain.Submission
	var timeMs, submittedAt, updatedAt int64
	err := row.Scan(
		&sub.ChallengeID,
		&sub.ParticipantID,
		&timeMs,
		&submittedAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Submission{}, err
	}
	sub.Time = domain.LapTime(timeMs)
	sub.SubmittedAt = fromMillis(submittedAt)
	sub.UpdatedAt = fromMillis(updatedAt)
	return sub, nil
}

// SubmitTime inserts, improves, or rejects a participant's time in one
// transaction. The challenge status check, the comparison against the
// stored best, the write, and the accepted-duel activation all commit or
// roll back together, so concurrent submitters resolve deterministically.
func (s *Store) SubmitTime(ctx context.Context, challengeID, participantID string, t domain.LapTime, at time.Time) (storage.SubmitResult, error) {
	if err := ctx.Err(); err != nil {
		return storage.SubmitResult{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SubmitResult{}, fmt.Errorf("storage is not configured")
	}
	challengeID = strings.TrimSpace(challengeID)
	participantID = strings.TrimSpace(participantID)
	if challengeID == "" {
		return storage.SubmitResult{}, fmt.Errorf("challenge id is required")
	}
	if participantID == "" {
		return storage.SubmitResult{}, fmt.Errorf("participant id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.SubmitResult{}, fmt.Errorf("begin submission write: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback submission write: %v", cause, rollbackErr)
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
			return storage.SubmitResult{}, rollbackWith(storage.ErrNotFound)
		}
		return storage.SubmitResult{}, rollbackWith(fmt.Errorf("load challenge: %w", err))
	}
	if !challenge.AcceptingSubmissions() {
		return storage.SubmitResult{}, rollbackWith(storage.ErrNotAccepting)
	}
	if !challenge.HasParticipant(participantID) {
		return storage.SubmitResult{}, rollbackWith(storage.ErrNotParticipant)
	}

	atMillis := toMillis(at)
	var result storage.SubmitResult

	existing, err := scanSubmission(tx.QueryRowContext(ctx,
		`SELECT challenge_id, participant_id, time_ms, submitted_at, updated_at
		   FROM submissions WHERE challenge_id = ? AND participant_id = ?`,
		challengeID, participantID,
	))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, execErr := tx.ExecContext(ctx,
			`INSERT INTO submissions (challenge_id, participant_id, time_ms, submitted_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			challengeID, participantID, t.Millis(), atMillis, atMillis,
		); execErr != nil {
			return storage.SubmitResult{}, rollbackWith(fmt.Errorf("insert submission: %w", execErr))
		}
		result = storage.SubmitResult{
			Outcome: storage.SubmitInserted,
			Submission: domain.Submission{
				ChallengeID:   challengeID,
				ParticipantID: participantID,
				Time:          t,
				SubmittedAt:   fromMillis(atMillis),
				UpdatedAt:     fromMillis(atMillis),
			},
		}
	case err != nil:
		return storage.SubmitResult{}, rollbackWith(fmt.Errorf("load submission: %w", err))
	case t < existing.Time:
		if _, execErr := tx.ExecContext(ctx,
			`UPDATE submissions SET time_ms = ?, updated_at = ?
			  WHERE challenge_id = ? AND participant_id = ? AND time_ms > ?`,
			t.Millis(), atMillis, challengeID, participantID, t.Millis(),
		); execErr != nil {
			return storage.SubmitResult{}, rollbackWith(fmt.Errorf("improve submission: %w", execErr))
		}
		improved := existing
		improved.Time = t
		improved.UpdatedAt = fromMillis(atMillis)
		result = storage.SubmitResult{
			Outcome:      storage.SubmitImproved,
			Submission:   improved,
			PreviousTime: existing.Time,
		}
	default:
		// Equal or slower: the stored best stands.
		if commitErr := tx.Commit(); commitErr != nil {
			return storage.SubmitResult{}, fmt.Errorf("commit submission write: %w", commitErr)
		}
		return storage.SubmitResult{
			Outcome:    storage.SubmitRejected,
			Submission: existing,
		}, nil
	}

	// An accepted duel goes live the moment its first time lands.
	if challenge.IsDuel() && challenge.Status == domain.StatusAccepted {
		if _, execErr := tx.ExecContext(ctx,
			`UPDATE challenges SET status = ?, started_at = COALESCE(started_at, ?)
			  WHERE id = ? AND status = ?`,
			string(domain.StatusActive), atMillis, challengeID, string(domain.StatusAccepted),
		); execErr != nil {
			return storage.SubmitResult{}, rollbackWith(fmt.Errorf("activate duel: %w", execErr))
		}
	}

	if err := tx.Commit(); err != nil {
		return storage.SubmitResult{}, fmt.Errorf("commit submission write: %w", err)
	}
	return result, nil
}

// RemoveTime deletes a participant's submission while the challenge still
// accepts writes.
func (s *Store) RemoveTime(ctx context.Context, challengeID, participantID string) (domain.Submission, error) {
	if err := ctx.Err(); err != nil {
		return domain.Submission{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Submission{}, fmt.Errorf("storage is not configured")
	}
	challengeID = strings.TrimSpace(challengeID)
	participantID = strings.TrimSpace(participantID)
	if challengeID == "" || participantID == "" {
		return domain.Submission{}, fmt.Errorf("challenge id and participant id are required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("begin submission delete: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback submission delete: %v", cause, rollbackErr)
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
			return domain.Submission{}, rollbackWith(storage.ErrNotFound)
		}
		return domain.Submission{}, rollbackWith(fmt.Errorf("load challenge: %w", err))
	}
	if !challenge.AcceptingSubmissions() {
		return domain.Submission{}, rollbackWith(storage.ErrNotAccepting)
	}

	removed, err := scanSubmission(tx.QueryRowContext(ctx,
		`SELECT challenge_id, participant_id, time_ms, submitted_at, updated_at
		   FROM submissions WHERE challenge_id = ? AND participant_id = ?`,
		challengeID, participantID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Submission{}, rollbackWith(storage.ErrNotFound)
		}
		return domain.Submission{}, rollbackWith(fmt.Errorf("load submission: %w", err))
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM submissions WHERE challenge_id = ? AND participant_id = ?`,
		challengeID, participantID,
	); err != nil {
		return domain.Submission{}, rollbackWith(fmt.Errorf("delete submission: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return domain.Submission{}, fmt.Errorf("commit submission delete: %w", err)
	}
	return removed, nil
}

// GetTime returns one participant's submission for a challenge.
func (s *Store) GetTime(ctx context.Context, challengeID, participantID string) (domain.Submission, error) {
	if err := ctx.Err(); err != nil {
		return domain.Submission{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Submission{}, fmt.Errorf("storage is not configured")
	}
	challengeID = strings.TrimSpace(challengeID)
	participantID = strings.TrimSpace(participantID)
	if challengeID == "" || participantID == "" {
		return domain.Submission{}, fmt.Errorf("challenge id and participant id are required")
	}

	sub, err := scanSubmission(s.sqlDB.QueryRowContext(ctx,
		`SELECT challenge_id, participant_id, time_ms, submitted_at, updated_at
		   FROM submissions WHERE challenge_id = ? AND participant_id = ?`,
		challengeID, participantID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Submission{}, storage.ErrNotFound
		}
		return domain.Submission{}, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// ListTimes returns every submission for a challenge, fastest first.
func (s *Store) ListTimes(ctx context.Context, challengeID string) ([]domain.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	challengeID = strings.TrimSpace(challengeID)
	if challengeID == "" {
		return nil, fmt.Errorf("challenge id is required")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT challenge_id, participant_id, time_ms, submitted_at, updated_at
		   FROM submissions WHERE challenge_id = ?
		  ORDER BY time_ms ASC, submitted_at ASC`,
		challengeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("list submissions: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

var (
	_ storage.ChallengeStore  = (*Store)(nil)
	_ storage.SubmissionStore = (*Store)(nil)
	_ storage.SettingsStore   = (*Store)(nil)
)
