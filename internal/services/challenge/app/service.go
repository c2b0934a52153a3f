// Package app wires challenge domain logic, storage, and rendering into
// the operations the command surface calls.
package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/errors"
	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/platform/id"
	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/services/challenge/domain"
	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/services/challenge/storage"
)

// Stores groups the storage interfaces the service depends on.
type Stores struct {
	Challenges  storage.ChallengeStore
	Submissions storage.SubmissionStore
	Settings    storage.SettingsStore
}

// Service exposes the challenge lifecycle operations.
type Service struct {
	stores      Stores
	render      RenderSink
	clock       func() time.Time
	idGenerator func() (string, error)
}

// Option configures optional Service dependencies.
type Option func(*Service)

// WithClock overrides the wall clock, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithIDGenerator overrides challenge ID generation, for tests.
func WithIDGenerator(idGenerator func() (string, error)) Option {
	return func(s *Service) { s.idGenerator = idGenerator }
}

// WithRenderSink sets the live-leaderboard publisher.
func WithRenderSink(render RenderSink) Option {
	return func(s *Service) { s.render = render }
}

// NewService creates a Service with default dependencies.
func NewService(stores Stores, opts ...Option) *Service {
	s := &Service{
		stores:      stores,
		clock:       time.Now,
		idGenerator: id.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTrialParams carries raw command input for a new trial.
type CreateTrialParams struct {
	CommunityID string
	Track       string
	Category    string
	// Goal thresholds are all-or-none: supply all three or none.
	GoldText   string
	SilverText string
	BronzeText string
	Duration   time.Duration
}

// CreateTrial validates and creates an active community trial.
func (s *Service) CreateTrial(ctx context.Context, params CreateTrialParams) (domain.Challenge, error) {
	goals, err := parseGoalParams(params.GoldText, params.SilverText, params.BronzeText)
	if err != nil {
		return domain.Challenge{}, err
	}

	trial, err := domain.CreateTrial(domain.CreateTrialInput{
		CommunityID: params.CommunityID,
		Track:       params.Track,
		Category:    params.Category,
		Goals:       goals,
		Duration:    params.Duration,
	}, s.clock, s.idGenerator)
	if err != nil {
		return domain.Challenge{}, err
	}

	created, err := s.stores.Challenges.CreateChallenge(ctx, trial)
	if err != nil {
		if stderrors.Is(err, storage.ErrAlreadyExists) {
			metadata := map[string]string{"Track": trial.Track, "Category": string(trial.Category)}
			if existing, getErr := s.stores.Challenges.GetActiveTrial(ctx, trial.CommunityID, trial.Track, trial.Category); getErr == nil {
				metadata["ConflictingChallengeID"] = existing.ID
			}
			return domain.Challenge{}, errors.WrapWithMetadata(errors.CodeActiveChallengeExists,
				"an active trial already exists for this track and category", metadata, err)
		}
		return domain.Challenge{}, s.mapStoreError(ctx, err, trial.ID, "create trial")
	}
	s.publishLeaderboard(ctx, created)
	return created, nil
}

// CreateDuelParams carries raw command input for a new duel.
type CreateDuelParams struct {
	CommunityID string
	Track       string
	Category    string
	CreatorID   string
	OpponentID  string
	Duration    time.Duration
}

// CreateDuel validates and creates a pending duel.
func (s *Service) CreateDuel(ctx context.Context, params CreateDuelParams) (domain.Challenge, error) {
	duel, err := domain.CreateDuel(domain.CreateDuelInput{
		CommunityID: params.CommunityID,
		Track:       params.Track,
		Category:    params.Category,
		CreatorID:   params.CreatorID,
		OpponentID:  params.OpponentID,
		Duration:    params.Duration,
	}, s.clock, s.idGenerator)
	if err != nil {
		return domain.Challenge{}, err
	}

	created, err := s.stores.Challenges.CreateChallenge(ctx, duel)
	if err != nil {
		if stderrors.Is(err, storage.ErrAlreadyExists) {
			metadata := map[string]string{"Track": duel.Track, "Category": string(duel.Category)}
			if existing, ok := s.findLiveDuel(ctx, duel); ok {
				metadata["ConflictingChallengeID"] = existing.ID
			}
			return domain.Challenge{}, errors.WrapWithMetadata(errors.CodeActiveChallengeExists,
				"a live duel already exists for this matchup", metadata, err)
		}
		return domain.Challenge{}, s.mapStoreError(ctx, err, duel.ID, "create duel")
	}
	return created, nil
}

// findLiveDuel locates the open duel occupying the same matchup key.
func (s *Service) findLiveDuel(ctx context.Context, duel domain.Challenge) (domain.Challenge, bool) {
	live, err := s.stores.Challenges.ListDuelsForParticipant(ctx, duel.CommunityID, duel.CreatorID,
		[]domain.Status{domain.StatusPending, domain.StatusAccepted, domain.StatusActive})
	if err != nil {
		return domain.Challenge{}, false
	}
	for _, candidate := range live {
		if candidate.Track != duel.Track || candidate.Category != duel.Category {
			continue
		}
		if candidate.HasParticipant(duel.CreatorID) && candidate.HasParticipant(duel.OpponentID) {
			return candidate, true
		}
	}
	return domain.Challenge{}, false
}

// GetChallenge returns one challenge by ID.
func (s *Service) GetChallenge(ctx context.Context, challengeID string) (domain.Challenge, error) {
	challenge, err := s.stores.Challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		return domain.Challenge{}, s.mapStoreError(ctx, err, challengeID, "get challenge")
	}
	return challenge, nil
}

// GetActiveTrial returns the active trial for a (community, track,
// category) key.
func (s *Service) GetActiveTrial(ctx context.Context, communityID, track, category string) (domain.Challenge, error) {
	canonical, err := domain.CanonicalTrack(track)
	if err != nil {
		return domain.Challenge{}, err
	}
	parsed, err := domain.ParseCategory(category)
	if err != nil {
		return domain.Challenge{}, err
	}
	challenge, err := s.stores.Challenges.GetActiveTrial(ctx, communityID, canonical, parsed)
	if err != nil {
		return domain.Challenge{}, s.mapStoreError(ctx, err, "", "get active trial")
	}
	return challenge, nil
}

// ListActiveTrials returns a community's active trials.
func (s *Service) ListActiveTrials(ctx context.Context, communityID string) ([]domain.Challenge, error) {
	trials, err := s.stores.Challenges.ListActiveTrials(ctx, communityID)
	if err != nil {
		return nil, s.mapStoreError(ctx, err, "", "list active trials")
	}
	return trials, nil
}

// ListPendingDuelsFor returns duels awaiting the participant's response
// or withdrawal.
func (s *Service) ListPendingDuelsFor(ctx context.Context, communityID, participantID string) ([]domain.Challenge, error) {
	duels, err := s.stores.Challenges.ListDuelsForParticipant(ctx, communityID, participantID,
		[]domain.Status{domain.StatusPending})
	if err != nil {
		return nil, s.mapStoreError(ctx, err, "", "list pending duels")
	}
	return duels, nil
}

// ListLiveDuelsFor returns the participant's accepted and racing duels.
func (s *Service) ListLiveDuelsFor(ctx context.Context, communityID, participantID string) ([]domain.Challenge, error) {
	duels, err := s.stores.Challenges.ListDuelsForParticipant(ctx, communityID, participantID,
		[]domain.Status{domain.StatusAccepted, domain.StatusActive})
	if err != nil {
		return nil, s.mapStoreError(ctx, err, "", "list live duels")
	}
	return duels, nil
}

// SubmitTime records a participant's time, returning whether it was
// inserted, improved the stored best, or was rejected as not faster.
func (s *Service) SubmitTime(ctx context.Context, challengeID, participantID, timeText string) (storage.SubmitResult, error) {
	lapTime, err := domain.ParseLapTime(timeText)
	if err != nil {
		return storage.SubmitResult{}, err
	}
	participantID = strings.TrimSpace(participantID)
	if participantID == "" {
		return storage.SubmitResult{}, errors.New(errors.CodeSubmissionEmptyParticipantID, "participant id is required")
	}

	result, err := s.stores.Submissions.SubmitTime(ctx, challengeID, participantID, lapTime, s.clock())
	if err != nil {
		return storage.SubmitResult{}, s.mapStoreError(ctx, err, challengeID, "submit time")
	}
	if result.Outcome != storage.SubmitRejected {
		if challenge, getErr := s.stores.Challenges.GetChallenge(ctx, challengeID); getErr == nil {
			s.publishLeaderboard(ctx, challenge)
		}
	}
	return result, nil
}

// RemoveTime deletes a participant's submission.
func (s *Service) RemoveTime(ctx context.Context, challengeID, participantID string) (domain.Submission, error) {
	removed, err := s.stores.Submissions.RemoveTime(ctx, challengeID, participantID)
	if err != nil {
		return domain.Submission{}, s.mapStoreError(ctx, err, challengeID, "remove time")
	}
	if challenge, getErr := s.stores.Challenges.GetChallenge(ctx, challengeID); getErr == nil {
		s.publishLeaderboard(ctx, challenge)
	}
	return removed, nil
}

// GetTime returns a participant's current submission.
func (s *Service) GetTime(ctx context.Context, challengeID, participantID string) (domain.Submission, error) {
	sub, err := s.stores.Submissions.GetTime(ctx, challengeID, participantID)
	if err != nil {
		return domain.Submission{}, s.mapStoreError(ctx, err, challengeID, "get time")
	}
	return sub, nil
}

// Leaderboard returns the challenge and its ranked entries.
func (s *Service) Leaderboard(ctx context.Context, challengeID string) (domain.Challenge, []domain.RankedEntry, error) {
	challenge, err := s.stores.Challenges.GetChallenge(ctx, challengeID)
	if err != nil {
		return domain.Challenge{}, nil, s.mapStoreError(ctx, err, challengeID, "get challenge")
	}
	subs, err := s.stores.Submissions.ListTimes(ctx, challengeID)
	if err != nil {
		return domain.Challenge{}, nil, s.mapStoreError(ctx, err, challengeID, "list times")
	}
	return challenge, domain.Rank(challenge, subs), nil
}

// ParticipantRank returns a participant's position and the field size.
func (s *Service) ParticipantRank(ctx context.Context, challengeID, participantID string) (int, int, error) {
	challenge, entries, err := s.Leaderboard(ctx, challengeID)
	if err != nil {
		return 0, 0, err
	}
	subs := make([]domain.Submission, len(entries))
	for i, entry := range entries {
		subs[i] = entry.Submission
	}
	rank, total, ok := domain.ParticipantRank(challenge, subs, participantID)
	if !ok {
		return 0, total, errors.New(errors.CodeNotFound, "participant has no submission")
	}
	return rank, total, nil
}

// UpdateGoalTimes replaces a trial's goal thresholds from raw time text.
func (s *Service) UpdateGoalTimes(ctx context.Context, challengeID, goldText, silverText, bronzeText string) (domain.Challenge, error) {
	goals, err := domain.ParseGoalTimes(goldText, silverText, bronzeText)
	if err != nil {
		return domain.Challenge{}, err
	}
	return s.applyGoalTimes(ctx, challengeID, &goals)
}

// ClearGoalTimes removes a trial's goal thresholds.
func (s *Service) ClearGoalTimes(ctx context.Context, challengeID string) (domain.Challenge, error) {
	return s.applyGoalTimes(ctx, challengeID, nil)
}

func (s *Service) applyGoalTimes(ctx context.Context, challengeID string, goals *domain.GoalTimes) (domain.Challenge, error) {
	challenge, err := s.GetChallenge(ctx, challengeID)
	if err != nil {
		return domain.Challenge{}, err
	}
	if challenge.IsDuel() {
		return domain.Challenge{}, errors.New(errors.CodeGoalTimesUnsupported, "duels do not carry goal thresholds")
	}

	updated, err := s.stores.Challenges.UpdateGoalTimes(ctx, challengeID, goals)
	if err != nil {
		return domain.Challenge{}, s.mapStoreError(ctx, err, challengeID, "update goal times")
	}
	s.publishLeaderboard(ctx, updated)
	return updated, nil
}

// UpdateCategory moves a challenge to the other category.
func (s *Service) UpdateCategory(ctx context.Context, challengeID, category string) (domain.Challenge, error) {
	parsed, err := domain.ParseCategory(category)
	if err != nil {
		return domain.Challenge{}, err
	}
	updated, err := s.stores.Challenges.UpdateCategory(ctx, challengeID, parsed)
	if err != nil {
		if stderrors.Is(err, storage.ErrAlreadyExists) {
			metadata := map[string]string{"Category": string(parsed)}
			if current, getErr := s.stores.Challenges.GetChallenge(ctx, challengeID); getErr == nil {
				if existing, findErr := s.stores.Challenges.GetActiveTrial(ctx, current.CommunityID, current.Track, parsed); findErr == nil {
					metadata["ConflictingChallengeID"] = existing.ID
				}
			}
			return domain.Challenge{}, errors.WrapWithMetadata(errors.CodeActiveChallengeExists,
				"the target category already has an active challenge for this track", metadata, err)
		}
		return domain.Challenge{}, s.mapStoreError(ctx, err, challengeID, "update category")
	}
	s.publishLeaderboard(ctx, updated)
	return updated, nil
}

// AcceptDuel lets the challenged player agree to race.
func (s *Service) AcceptDuel(ctx context.Context, duelID, participantID string) (domain.Challenge, error) {
	return s.respondToDuel(ctx, duelID, participantID, domain.StatusAccepted)
}

// DeclineDuel lets the challenged player reject the duel.
func (s *Service) DeclineDuel(ctx context.Context, duelID, participantID string) (domain.Challenge, error) {
	return s.respondToDuel(ctx, duelID, participantID, domain.StatusDeclined)
}

func (s *Service) respondToDuel(ctx context.Context, duelID, participantID string, target domain.Status) (domain.Challenge, error) {
	duel, err := s.GetChallenge(ctx, duelID)
	if err != nil {
		return domain.Challenge{}, err
	}
	if !duel.IsDuel() {
		return domain.Challenge{}, errors.New(errors.CodeChallengeInvalidKind, "challenge is not a duel")
	}
	if strings.TrimSpace(participantID) != duel.OpponentID {
		return domain.Challenge{}, errors.New(errors.CodeDuelNotChallenged, "only the challenged player can respond")
	}

	updated, err := s.stores.Challenges.TransitionChallenge(ctx, duelID, domain.StatusPending, target, s.clock(), "")
	if err != nil {
		return domain.Challenge{}, s.mapStoreError(ctx, err, duelID, "respond to duel")
	}
	if target.Terminal() {
		s.publishLeaderboard(ctx, updated)
	}
	return updated, nil
}

// CancelDuel lets the creator withdraw a duel before acceptance.
func (s *Service) CancelDuel(ctx context.Context, duelID, participantID string) (domain.Challenge, error) {
	duel, err := s.GetChallenge(ctx, duelID)
	if err != nil {
		return domain.Challenge{}, err
	}
	if !duel.IsDuel() {
		return domain.Challenge{}, errors.New(errors.CodeChallengeInvalidKind, "challenge is not a duel")
	}
	if strings.TrimSpace(participantID) != duel.CreatorID {
		return domain.Challenge{}, errors.New(errors.CodeDuelNotParticipant, "only the duel creator can cancel")
	}

	updated, err := s.stores.Challenges.TransitionChallenge(ctx, duelID, domain.StatusPending, domain.StatusCancelled, s.clock(), "")
	if err != nil {
		return domain.Challenge{}, s.mapStoreError(ctx, err, duelID, "cancel duel")
	}
	s.publishLeaderboard(ctx, updated)
	return updated, nil
}

// DuelResult reports how a duel closed.
type DuelResult struct {
	Duel     domain.Challenge
	Outcome  domain.DuelOutcome
	WinnerID string
}

// EndDuel closes a duel on a participant's request and decides its
// outcome from the submitted times.
func (s *Service) EndDuel(ctx context.Context, duelID, participantID string) (DuelResult, error) {
	duel, err := s.GetChallenge(ctx, duelID)
	if err != nil {
		return DuelResult{}, err
	}
	if !duel.IsDuel() {
		return DuelResult{}, errors.New(errors.CodeChallengeInvalidKind, "challenge is not a duel")
	}
	if !duel.HasParticipant(strings.TrimSpace(participantID)) {
		return DuelResult{}, errors.New(errors.CodeDuelNotParticipant, "only a duel participant can close it")
	}
	if duel.Status != domain.StatusAccepted && duel.Status != domain.StatusActive {
		return DuelResult{}, errors.WithMetadata(errors.CodeChallengeStatusDisallowsOp,
			fmt.Sprintf("duel status %s does not allow closing", duel.Status),
			map[string]string{"Status": string(duel.Status), "Operation": "end duel"})
	}

	// The outcome is decided inside the same transaction that stamps the
	// terminal status, so a submission racing the close cannot be left out
	// of the decision.
	closed, outcome, winnerID, err := s.stores.Challenges.CompleteDuel(ctx, duelID, s.clock())
	if err != nil {
		return DuelResult{}, s.mapStoreError(ctx, err, duelID, "end duel")
	}

	result := DuelResult{Duel: closed, Outcome: outcome, WinnerID: winnerID}
	s.publishDuelResult(ctx, closed, outcome, winnerID)
	return result, nil
}

// EndTrial closes a trial by admin action.
func (s *Service) EndTrial(ctx context.Context, trialID string) (domain.Challenge, error) {
	trial, err := s.GetChallenge(ctx, trialID)
	if err != nil {
		return domain.Challenge{}, err
	}
	if trial.IsDuel() {
		return domain.Challenge{}, errors.New(errors.CodeChallengeInvalidKind, "challenge is not a trial")
	}

	closed, err := s.stores.Challenges.TransitionChallenge(ctx, trialID, domain.StatusActive, domain.StatusEnded, s.clock(), "")
	if err != nil {
		return domain.Challenge{}, s.mapStoreError(ctx, err, trialID, "end trial")
	}
	s.publishLeaderboard(ctx, closed)
	return closed, nil
}

// SetLeaderboardChannel stores the community's live-leaderboard channel.
func (s *Service) SetLeaderboardChannel(ctx context.Context, communityID, channelID string) error {
	err := s.stores.Settings.UpsertCommunitySettings(ctx, storage.CommunitySettings{
		CommunityID:          communityID,
		LeaderboardChannelID: channelID,
		UpdatedAt:            s.clock(),
	})
	if err != nil {
		return s.mapStoreError(ctx, err, "", "set leaderboard channel")
	}
	return nil
}

// ClearLeaderboardChannel removes the community's configured channel.
func (s *Service) ClearLeaderboardChannel(ctx context.Context, communityID string) error {
	return s.SetLeaderboardChannel(ctx, communityID, "")
}

// LeaderboardChannel returns the community's configured channel, or an
// empty string when none is set.
func (s *Service) LeaderboardChannel(ctx context.Context, communityID string) (string, error) {
	settings, err := s.stores.Settings.GetCommunitySettings(ctx, communityID)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		return "", s.mapStoreError(ctx, err, "", "get leaderboard channel")
	}
	return settings.LeaderboardChannelID, nil
}

// SweepExpirations expires every overdue challenge. Safe to run on an
// interval and concurrently with user-triggered transitions.
func (s *Service) SweepExpirations(ctx context.Context) ([]domain.Challenge, error) {
	expired, err := s.stores.Challenges.ExpireDue(ctx, s.clock())
	if err != nil {
		return nil, s.mapStoreError(ctx, err, "", "sweep expirations")
	}
	for _, challenge := range expired {
		s.publishLeaderboard(ctx, challenge)
	}
	return expired, nil
}

// SweepCleanup deletes terminal challenges older than the grace period.
func (s *Service) SweepCleanup(ctx context.Context, gracePeriod time.Duration) ([]domain.Challenge, error) {
	deleted, err := s.stores.Challenges.DeleteTerminalBefore(ctx, s.clock().Add(-gracePeriod))
	if err != nil {
		return nil, s.mapStoreError(ctx, err, "", "sweep cleanup")
	}
	return deleted, nil
}

// publishLeaderboard pushes the current standings to the render sink.
// Failures are logged and swallowed: rendering must never undo data.
func (s *Service) publishLeaderboard(ctx context.Context, challenge domain.Challenge) {
	if s.render == nil {
		return
	}
	subs, err := s.stores.Submissions.ListTimes(ctx, challenge.ID)
	if err != nil {
		log.Printf("render leaderboard for %s: list times: %v", challenge.ID, err)
		return
	}
	snapshot := Snapshot{
		Challenge: challenge,
		Entries:   domain.Rank(challenge, subs),
	}
	s.deliverSnapshot(ctx, challenge, snapshot)
}

func (s *Service) publishDuelResult(ctx context.Context, duel domain.Challenge, outcome domain.DuelOutcome, winnerID string) {
	if s.render == nil {
		return
	}
	subs, err := s.stores.Submissions.ListTimes(ctx, duel.ID)
	if err != nil {
		log.Printf("render duel result for %s: list times: %v", duel.ID, err)
		return
	}
	snapshot := Snapshot{
		Challenge: duel,
		Entries:   domain.Rank(duel, subs),
		Outcome:   outcome,
		WinnerID:  winnerID,
	}
	s.deliverSnapshot(ctx, duel, snapshot)
}

func (s *Service) deliverSnapshot(ctx context.Context, challenge domain.Challenge, snapshot Snapshot) {
	newRef, err := s.render.Render(ctx, snapshot, challenge.LeaderboardRef)
	if err != nil {
		log.Printf("render leaderboard for %s: %v", challenge.ID, err)
		return
	}
	if newRef == challenge.LeaderboardRef {
		return
	}
	if err := s.stores.Challenges.SetLeaderboardRef(ctx, challenge.ID, newRef); err != nil {
		log.Printf("persist leaderboard ref for %s: %v", challenge.ID, err)
	}
}

// parseGoalParams enforces the all-or-none threshold rule on raw input.
func parseGoalParams(goldText, silverText, bronzeText string) (*domain.GoalTimes, error) {
	goldText = strings.TrimSpace(goldText)
	silverText = strings.TrimSpace(silverText)
	bronzeText = strings.TrimSpace(bronzeText)

	provided := 0
	for _, value := range []string{goldText, silverText, bronzeText} {
		if value != "" {
			provided++
		}
	}
	switch provided {
	case 0:
		return nil, nil
	case 3:
		goals, err := domain.ParseGoalTimes(goldText, silverText, bronzeText)
		if err != nil {
			return nil, err
		}
		return &goals, nil
	}
	return nil, errors.New(errors.CodeGoalTimesIncomplete, "all three goal times must be provided together")
}

// mapStoreError translates storage sentinels into domain error codes.
func (s *Service) mapStoreError(ctx context.Context, err error, challengeID, operation string) error {
	switch {
	case stderrors.Is(err, storage.ErrNotFound):
		return errors.Wrap(errors.CodeNotFound, operation+": record not found", err)
	case stderrors.Is(err, storage.ErrAlreadyExists):
		return errors.Wrap(errors.CodeActiveChallengeExists, operation+": active challenge already exists", err)
	case stderrors.Is(err, storage.ErrNotParticipant):
		return errors.Wrap(errors.CodeDuelNotParticipant, operation+": not a duel participant", err)
	case stderrors.Is(err, storage.ErrNotAccepting):
		metadata := map[string]string{"Operation": operation}
		if challenge, getErr := s.stores.Challenges.GetChallenge(ctx, challengeID); getErr == nil {
			metadata["Status"] = string(challenge.Status)
		}
		return errors.WrapWithMetadata(errors.CodeChallengeStatusDisallowsOp,
			operation+": challenge is not accepting submissions", metadata, err)
	case stderrors.Is(err, storage.ErrStatusConflict):
		metadata := map[string]string{"Operation": operation}
		if challenge, getErr := s.stores.Challenges.GetChallenge(ctx, challengeID); getErr == nil {
			metadata["Status"] = string(challenge.Status)
		}
		return errors.WrapWithMetadata(errors.CodeChallengeStatusDisallowsOp,
			operation+": challenge status changed", metadata, err)
	}
	return errors.Wrap(errors.CodeStoreFault, operation+" failed", err)
}
