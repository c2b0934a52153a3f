// Package storage defines persistence contracts for challenge state.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/services/challenge/domain"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates an active challenge already occupies the
// uniqueness key being inserted.
var ErrAlreadyExists = errors.New("record already exists")

// ErrNotAccepting indicates the challenge status forbids submission writes.
var ErrNotAccepting = errors.New("challenge is not accepting submissions")

// ErrNotParticipant indicates the submitter is not part of the duel.
var ErrNotParticipant = errors.New("participant is not part of this duel")

// ErrStatusConflict indicates a transition lost a race: the record's
// status no longer matches the expected source status.
var ErrStatusConflict = errors.New("challenge status changed concurrently")

// SubmitOutcome distinguishes the three results of a time submission.
type SubmitOutcome string

const (
	// SubmitInserted means the participant had no prior time.
	SubmitInserted SubmitOutcome = "inserted"
	// SubmitImproved means a strictly faster time replaced the prior one.
	SubmitImproved SubmitOutcome = "improved"
	// SubmitRejected means the prior time was equal or faster and stands.
	SubmitRejected SubmitOutcome = "rejected"
)

// SubmitResult reports what a submission attempt did. Submission always
// holds the stored row after the attempt; for SubmitRejected that is the
// unchanged current best. PreviousTime is set only for SubmitImproved.
type SubmitResult struct {
	Outcome      SubmitOutcome
	Submission   domain.Submission
	PreviousTime domain.LapTime
}

// CommunitySettings stores per-community configuration.
type CommunitySettings struct {
	CommunityID          string
	LeaderboardChannelID string
	UpdatedAt            time.Time
}

// ChallengeStore persists challenge records and their lifecycle state.
type ChallengeStore interface {
	// CreateChallenge inserts the challenge and assigns its per-community
	// display number inside the same transaction. Returns ErrAlreadyExists
	// when an active challenge occupies the same uniqueness key.
	CreateChallenge(ctx context.Context, challenge domain.Challenge) (domain.Challenge, error)
	GetChallenge(ctx context.Context, challengeID string) (domain.Challenge, error)
	GetActiveTrial(ctx context.Context, communityID, track string, category domain.Category) (domain.Challenge, error)
	ListActiveTrials(ctx context.Context, communityID string) ([]domain.Challenge, error)
	ListDuelsForParticipant(ctx context.Context, communityID, participantID string, statuses []domain.Status) ([]domain.Challenge, error)

	UpdateGoalTimes(ctx context.Context, challengeID string, goals *domain.GoalTimes) (domain.Challenge, error)
	UpdateCategory(ctx context.Context, challengeID string, category domain.Category) (domain.Challenge, error)
	SetLeaderboardRef(ctx context.Context, challengeID, ref string) error

	// TransitionChallenge applies from -> to with a conditional write so a
	// racing transition loses cleanly with ErrStatusConflict.
	TransitionChallenge(ctx context.Context, challengeID string, from, to domain.Status, at time.Time, winnerID string) (domain.Challenge, error)

	// CompleteDuel closes an accepted or active duel, deciding the outcome
	// from the submissions read in the same transaction that stamps the
	// completed status and winner. A submission that commits first is part
	// of the decision; one that commits after is rejected by the terminal
	// status. Returns ErrStatusConflict when the duel is not open.
	CompleteDuel(ctx context.Context, duelID string, at time.Time) (domain.Challenge, domain.DuelOutcome, string, error)

	// ExpireDue transitions every non-terminal challenge whose deadline
	// passed to expired, returning the records it changed.
	ExpireDue(ctx context.Context, now time.Time) ([]domain.Challenge, error)
	// DeleteTerminalBefore removes terminal challenges that ended before
	// the cutoff, cascading to their submissions.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) ([]domain.Challenge, error)
}

// SubmissionStore enforces the one-row-per-participant, strictly-faster
// submission rule.
type SubmissionStore interface {
	// SubmitTime atomically inserts, improves, or rejects the time. The
	// status check, the comparison against the stored best, and the write
	// happen in one transaction. Submitting to an accepted duel activates
	// it in the same transaction.
	SubmitTime(ctx context.Context, challengeID, participantID string, t domain.LapTime, at time.Time) (SubmitResult, error)
	RemoveTime(ctx context.Context, challengeID, participantID string) (domain.Submission, error)
	GetTime(ctx context.Context, challengeID, participantID string) (domain.Submission, error)
	ListTimes(ctx context.Context, challengeID string) ([]domain.Submission, error)
}

// SettingsStore persists per-community configuration.
type SettingsStore interface {
	UpsertCommunitySettings(ctx context.Context, settings CommunitySettings) error
	GetCommunitySettings(ctx context.Context, communityID string) (CommunitySettings, error)
}
