package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/errors"
	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/services/challenge/domain"
	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/services/challenge/storage"
	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/services/challenge/storage/sqlite"
)

var testStart = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

// testClock is an adjustable wall clock for service tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testStart}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sequentialIDs(prefix string) func() (string, error) {
	var mu sync.Mutex
	next := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		next++
		return fmt.Sprintf("%s-%d", prefix, next), nil
	}
}

// recordingSink captures every render call and hands back a fresh ref.
type recordingSink struct {
	mu        sync.Mutex
	snapshots []Snapshot
	fail      bool
}

func (r *recordingSink) Render(_ context.Context, snapshot Snapshot, priorRef string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return "", stderrors.New("channel unavailable")
	}
	r.snapshots = append(r.snapshots, snapshot)
	return fmt.Sprintf("msg-%d", len(r.snapshots)), nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func (r *recordingSink) last() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[len(r.snapshots)-1]
}

func newTestService(t *testing.T) (*Service, *testClock, *recordingSink) {
	t.Helper()
	store, err := sqlite.Open(t.TempDir() + "/challenges.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clock := newTestClock()
	sink := &recordingSink{}
	service := NewService(Stores{
		Challenges:  store,
		Submissions: store,
		Settings:    store,
	},
		WithClock(clock.Now),
		WithIDGenerator(sequentialIDs("challenge")),
		WithRenderSink(sink),
	)
	return service, clock, sink
}

func TestCreateTrialLifecycle(t *testing.T) {
	service, _, sink := newTestService(t)
	ctx := context.Background()

	trial, err := service.CreateTrial(ctx, CreateTrialParams{
		CommunityID: "guild-1",
		Track:       "rainbow road",
		Category:    "shrooms",
		GoldText:    "2:20.000",
		SilverText:  "2:25.000",
		BronzeText:  "2:30.000",
		Duration:    7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("create trial: %v", err)
	}
	if trial.Track != "Rainbow Road" {
		t.Errorf("Track = %q", trial.Track)
	}
	if trial.Number != 1 {
		t.Errorf("Number = %d, want 1", trial.Number)
	}
	if trial.Status != domain.StatusActive {
		t.Errorf("Status = %s", trial.Status)
	}
	if sink.count() != 1 {
		t.Errorf("render calls = %d, want 1", sink.count())
	}

	// The returned ref was persisted for the next update.
	stored, err := service.GetChallenge(ctx, trial.ID)
	if err != nil {
		t.Fatalf("get challenge: %v", err)
	}
	if stored.LeaderboardRef != "msg-1" {
		t.Errorf("LeaderboardRef = %q, want msg-1", stored.LeaderboardRef)
	}
}

func TestCreateTrialGoalTimesAllOrNone(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.CreateTrial(context.Background(), CreateTrialParams{
		CommunityID: "guild-1",
		Track:       "Rainbow Road",
		Category:    "shrooms",
		GoldText:    "2:20.000",
		SilverText:  "2:25.000",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.GetCode(err) != errors.CodeGoalTimesIncomplete {
		t.Fatalf("code = %s, want %s", errors.GetCode(err), errors.CodeGoalTimesIncomplete)
	}
}

func TestCreateTrialConflict(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	params := CreateTrialParams{CommunityID: "guild-1", Track: "Rainbow Road", Category: "shrooms"}
	if _, err := service.CreateTrial(ctx, params); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := service.CreateTrial(ctx, params)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.GetCode(err) != errors.CodeActiveChallengeExists {
		t.Fatalf("code = %s, want %s", errors.GetCode(err), errors.CodeActiveChallengeExists)
	}
	if got := errors.GetMetadata(err)["ConflictingChallengeID"]; got != "challenge-1" {
		t.Errorf("ConflictingChallengeID = %q", got)
	}

	// Same track under the other category is a distinct trial.
	params.Category = "shroomless"
	if _, err := service.CreateTrial(ctx, params); err != nil {
		t.Fatalf("other category: %v", err)
	}
}

func TestCreateDuelConflict(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	params := CreateDuelParams{
		CommunityID: "guild-1", Track: "DK Pass", Category: "shrooms",
		CreatorID: "user-a", OpponentID: "user-b",
	}
	first, err := service.CreateDuel(ctx, params)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	// Reversed participant order is the same unordered matchup.
	params.CreatorID, params.OpponentID = "user-b", "user-a"
	_, err = service.CreateDuel(ctx, params)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.GetCode(err) != errors.CodeActiveChallengeExists {
		t.Fatalf("code = %s", errors.GetCode(err))
	}
	if got := errors.GetMetadata(err)["ConflictingChallengeID"]; got != first.ID {
		t.Errorf("ConflictingChallengeID = %q, want %q", got, first.ID)
	}
}

// Medal progression on a community trial: first submission lands silver,
// an improvement reaches gold, and a slower attempt is rejected without
// touching the stored best.
func TestTrialSubmissionProgression(t *testing.T) {
	service, clock, sink := newTestService(t)
	ctx := context.Background()

	trial, err := service.CreateTrial(ctx, CreateTrialParams{
		CommunityID: "guild-1",
		Track:       "Rainbow Road",
		Category:    "shrooms",
		GoldText:    "2:20.000",
		SilverText:  "2:25.000",
		BronzeText:  "2:30.000",
	})
	if err != nil {
		t.Fatalf("create trial: %v", err)
	}

	result, err := service.SubmitTime(ctx, trial.ID, "user-a", "2:23.640")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Outcome != storage.SubmitInserted {
		t.Fatalf("outcome = %s, want %s", result.Outcome, storage.SubmitInserted)
	}

	_, entries, err := service.Leaderboard(ctx, trial.ID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 1 || entries[0].Medal != domain.MedalSilver {
		t.Fatalf("entries = %+v, want one silver", entries)
	}

	clock.Advance(time.Minute)
	result, err = service.SubmitTime(ctx, trial.ID, "user-a", "2:19.995")
	if err != nil {
		t.Fatalf("improve: %v", err)
	}
	if result.Outcome != storage.SubmitImproved {
		t.Fatalf("outcome = %s, want %s", result.Outcome, storage.SubmitImproved)
	}
	if result.PreviousTime.String() != "2:23.640" {
		t.Errorf("PreviousTime = %s", result.PreviousTime)
	}

	_, entries, err = service.Leaderboard(ctx, trial.ID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if entries[0].Medal != domain.MedalGold {
		t.Errorf("medal = %s, want gold", entries[0].Medal)
	}

	rendersBefore := sink.count()
	result, err = service.SubmitTime(ctx, trial.ID, "user-a", "2:30.000")
	if err != nil {
		t.Fatalf("slow submit: %v", err)
	}
	if result.Outcome != storage.SubmitRejected {
		t.Fatalf("outcome = %s, want %s", result.Outcome, storage.SubmitRejected)
	}
	if result.Submission.Time.String() != "2:19.995" {
		t.Errorf("stored best = %s, want 2:19.995", result.Submission.Time)
	}
	// A rejected submission changes nothing, so nothing is re-rendered.
	if sink.count() != rendersBefore {
		t.Errorf("render calls = %d, want %d", sink.count(), rendersBefore)
	}
}

func TestSubmitTimeValidation(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	trial, err := service.CreateTrial(ctx, CreateTrialParams{
		CommunityID: "guild-1", Track: "Rainbow Road", Category: "shrooms",
	})
	if err != nil {
		t.Fatalf("create trial: %v", err)
	}

	if _, err := service.SubmitTime(ctx, trial.ID, "user-a", "not-a-time"); errors.GetCode(err) != errors.CodeLapTimeInvalidFormat {
		t.Errorf("bad format code = %s", errors.GetCode(err))
	}
	if _, err := service.SubmitTime(ctx, trial.ID, "  ", "1:30.000"); errors.GetCode(err) != errors.CodeSubmissionEmptyParticipantID {
		t.Errorf("empty participant code = %s", errors.GetCode(err))
	}
	if _, err := service.SubmitTime(ctx, "missing", "user-a", "1:30.000"); errors.GetCode(err) != errors.CodeNotFound {
		t.Errorf("missing challenge code = %s", errors.GetCode(err))
	}
}

func TestSubmitToEndedTrial(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	trial, err := service.CreateTrial(ctx, CreateTrialParams{
		CommunityID: "guild-1", Track: "Rainbow Road", Category: "shrooms",
	})
	if err != nil {
		t.Fatalf("create trial: %v", err)
	}
	if _, err := service.EndTrial(ctx, trial.ID); err != nil {
		t.Fatalf("end trial: %v", err)
	}

	_, err = service.SubmitTime(ctx, trial.ID, "user-a", "1:30.000")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.GetCode(err) != errors.CodeChallengeStatusDisallowsOp {
		t.Fatalf("code = %s", errors.GetCode(err))
	}
	if got := errors.GetMetadata(err)["Status"]; got != string(domain.StatusEnded) {
		t.Errorf("Status metadata = %q", got)
	}
}

func TestRemoveTime(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	trial, err := service.CreateTrial(ctx, CreateTrialParams{
		CommunityID: "guild-1", Track: "Rainbow Road", Category: "shrooms",
	})
	if err != nil {
		t.Fatalf("create trial: %v", err)
	}
	if _, err := service.SubmitTime(ctx, trial.ID, "user-a", "2:00.000"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	removed, err := service.RemoveTime(ctx, trial.ID, "user-a")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed.Time.String() != "2:00.000" {
		t.Errorf("removed time = %s", removed.Time)
	}

	if _, err := service.GetTime(ctx, trial.ID, "user-a"); errors.GetCode(err) != errors.CodeNotFound {
		t.Errorf("after removal code = %s", errors.GetCode(err))
	}
}

func TestDuelFullLifecycle(t *testing.T) {
	service, clock, _ := newTestService(t)
	ctx := context.Background()

	duel, err := service.CreateDuel(ctx, CreateDuelParams{
		CommunityID: "guild-1",
		Track:       "DK Pass",
		Category:    "shrooms",
		CreatorID:   "user-a",
		OpponentID:  "user-b",
	})
	if err != nil {
		t.Fatalf("create duel: %v", err)
	}
	if duel.Status != domain.StatusPending {
		t.Fatalf("status = %s", duel.Status)
	}

	// Only the challenged player may respond.
	if _, err := service.AcceptDuel(ctx, duel.ID, "user-a"); errors.GetCode(err) != errors.CodeDuelNotChallenged {
		t.Fatalf("creator accept code = %s", errors.GetCode(err))
	}

	accepted, err := service.AcceptDuel(ctx, duel.ID, "user-b")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != domain.StatusAccepted {
		t.Fatalf("status = %s", accepted.Status)
	}

	// First submission activates the duel.
	if _, err := service.SubmitTime(ctx, duel.ID, "user-a", "1:30.000"); err != nil {
		t.Fatalf("submit a: %v", err)
	}
	activated, err := service.GetChallenge(ctx, duel.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if activated.Status != domain.StatusActive {
		t.Fatalf("status after first submit = %s", activated.Status)
	}

	// An outsider cannot race in someone else's duel.
	if _, err := service.SubmitTime(ctx, duel.ID, "user-c", "1:20.000"); errors.GetCode(err) != errors.CodeDuelNotParticipant {
		t.Fatalf("outsider code = %s", errors.GetCode(err))
	}

	clock.Advance(time.Minute)
	if _, err := service.SubmitTime(ctx, duel.ID, "user-b", "1:29.999"); err != nil {
		t.Fatalf("submit b: %v", err)
	}

	// Only a participant may close the duel.
	if _, err := service.EndDuel(ctx, duel.ID, "user-c"); errors.GetCode(err) != errors.CodeDuelNotParticipant {
		t.Fatalf("outsider end code = %s", errors.GetCode(err))
	}

	result, err := service.EndDuel(ctx, duel.ID, "user-a")
	if err != nil {
		t.Fatalf("end duel: %v", err)
	}
	if result.Outcome != domain.DuelWinner {
		t.Fatalf("outcome = %s", result.Outcome)
	}
	if result.WinnerID != "user-b" {
		t.Fatalf("winner = %s, want user-b", result.WinnerID)
	}
	if result.Duel.Status != domain.StatusCompleted {
		t.Fatalf("status = %s", result.Duel.Status)
	}
	if result.Duel.WinnerID != "user-b" {
		t.Fatalf("stored winner = %s", result.Duel.WinnerID)
	}
}

func TestDeclineAndCancelDuel(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	duel, err := service.CreateDuel(ctx, CreateDuelParams{
		CommunityID: "guild-1", Track: "DK Pass", Category: "shrooms",
		CreatorID: "user-a", OpponentID: "user-b",
	})
	if err != nil {
		t.Fatalf("create duel: %v", err)
	}

	declined, err := service.DeclineDuel(ctx, duel.ID, "user-b")
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined.Status != domain.StatusDeclined {
		t.Fatalf("status = %s", declined.Status)
	}

	// The slot is free again once the duel is terminal.
	second, err := service.CreateDuel(ctx, CreateDuelParams{
		CommunityID: "guild-1", Track: "DK Pass", Category: "shrooms",
		CreatorID: "user-a", OpponentID: "user-b",
	})
	if err != nil {
		t.Fatalf("recreate duel: %v", err)
	}

	if _, err := service.CancelDuel(ctx, second.ID, "user-b"); errors.GetCode(err) != errors.CodeDuelNotParticipant {
		t.Fatalf("opponent cancel code = %s", errors.GetCode(err))
	}
	cancelled, err := service.CancelDuel(ctx, second.ID, "user-a")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.StatusCancelled {
		t.Fatalf("status = %s", cancelled.Status)
	}
}

// lastInstantStore lands one extra submission immediately before the
// duel-close write, simulating a racer who commits between the service's
// pre-checks and the terminal transition.
type lastInstantStore struct {
	*sqlite.Store
	participantID string
	lap           domain.LapTime
	at            time.Time
	once          sync.Once
}

func (l *lastInstantStore) CompleteDuel(ctx context.Context, duelID string, at time.Time) (domain.Challenge, domain.DuelOutcome, string, error) {
	l.once.Do(func() {
		if _, err := l.Store.SubmitTime(ctx, duelID, l.participantID, l.lap, l.at); err != nil {
			panic(err)
		}
	})
	return l.Store.CompleteDuel(ctx, duelID, at)
}

// A time that commits just before the close must be part of the decided
// outcome, not silently excluded from a stamped winner.
func TestEndDuelCountsLastInstantSubmission(t *testing.T) {
	store, err := sqlite.Open(t.TempDir() + "/challenges.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clock := newTestClock()
	racing := &lastInstantStore{
		Store:         store,
		participantID: "user-b",
		lap:           domain.LapTime(89000),
		at:            testStart.Add(time.Minute),
	}
	service := NewService(Stores{
		Challenges:  racing,
		Submissions: store,
		Settings:    store,
	},
		WithClock(clock.Now),
		WithIDGenerator(sequentialIDs("challenge")),
	)
	ctx := context.Background()

	duel, err := service.CreateDuel(ctx, CreateDuelParams{
		CommunityID: "guild-1", Track: "DK Pass", Category: "shrooms",
		CreatorID: "user-a", OpponentID: "user-b",
	})
	if err != nil {
		t.Fatalf("create duel: %v", err)
	}
	if _, err := service.AcceptDuel(ctx, duel.ID, "user-b"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := service.SubmitTime(ctx, duel.ID, "user-a", "1:30.000"); err != nil {
		t.Fatalf("submit a: %v", err)
	}

	result, err := service.EndDuel(ctx, duel.ID, "user-a")
	if err != nil {
		t.Fatalf("end duel: %v", err)
	}
	if result.Outcome != domain.DuelWinner || result.WinnerID != "user-b" {
		t.Fatalf("outcome = %s winner = %q, want user-b by the late 1:29.000", result.Outcome, result.WinnerID)
	}
	if result.Duel.WinnerID != "user-b" {
		t.Fatalf("stamped winner = %q, want user-b", result.Duel.WinnerID)
	}
}

// Closing a duel nobody raced yields an incomplete outcome and no winner.
func TestEndDuelWithoutSubmissions(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	duel, err := service.CreateDuel(ctx, CreateDuelParams{
		CommunityID: "guild-1", Track: "DK Pass", Category: "shrooms",
		CreatorID: "user-a", OpponentID: "user-b",
	})
	if err != nil {
		t.Fatalf("create duel: %v", err)
	}
	if _, err := service.AcceptDuel(ctx, duel.ID, "user-b"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	result, err := service.EndDuel(ctx, duel.ID, "user-b")
	if err != nil {
		t.Fatalf("end duel: %v", err)
	}
	if result.Outcome != domain.DuelIncomplete {
		t.Fatalf("outcome = %s", result.Outcome)
	}
	if result.WinnerID != "" {
		t.Fatalf("winner = %q, want empty", result.WinnerID)
	}
}

func TestEndPendingDuelDisallowed(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	duel, err := service.CreateDuel(ctx, CreateDuelParams{
		CommunityID: "guild-1", Track: "DK Pass", Category: "shrooms",
		CreatorID: "user-a", OpponentID: "user-b",
	})
	if err != nil {
		t.Fatalf("create duel: %v", err)
	}

	_, err = service.EndDuel(ctx, duel.ID, "user-a")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.GetCode(err) != errors.CodeChallengeStatusDisallowsOp {
		t.Fatalf("code = %s", errors.GetCode(err))
	}
}

func TestGoalTimesOnDuelUnsupported(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	duel, err := service.CreateDuel(ctx, CreateDuelParams{
		CommunityID: "guild-1", Track: "DK Pass", Category: "shrooms",
		CreatorID: "user-a", OpponentID: "user-b",
	})
	if err != nil {
		t.Fatalf("create duel: %v", err)
	}

	_, err = service.UpdateGoalTimes(ctx, duel.ID, "1:20.000", "1:25.000", "1:30.000")
	if errors.GetCode(err) != errors.CodeGoalTimesUnsupported {
		t.Fatalf("code = %s", errors.GetCode(err))
	}
}

func TestUpdateAndClearGoalTimes(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	trial, err := service.CreateTrial(ctx, CreateTrialParams{
		CommunityID: "guild-1", Track: "Rainbow Road", Category: "shrooms",
	})
	if err != nil {
		t.Fatalf("create trial: %v", err)
	}

	updated, err := service.UpdateGoalTimes(ctx, trial.ID, "2:20.000", "2:25.000", "2:30.000")
	if err != nil {
		t.Fatalf("update goals: %v", err)
	}
	if updated.Goals == nil || updated.Goals.Gold.String() != "2:20.000" {
		t.Fatalf("Goals = %+v", updated.Goals)
	}

	// Misordered thresholds are rejected before touching storage.
	if _, err := service.UpdateGoalTimes(ctx, trial.ID, "2:30.000", "2:25.000", "2:20.000"); errors.GetCode(err) != errors.CodeGoalTimesMisordered {
		t.Fatalf("misordered code = %s", errors.GetCode(err))
	}

	cleared, err := service.ClearGoalTimes(ctx, trial.ID)
	if err != nil {
		t.Fatalf("clear goals: %v", err)
	}
	if cleared.Goals != nil {
		t.Fatalf("Goals = %+v, want nil", cleared.Goals)
	}
}

func TestUpdateCategory(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	trial, err := service.CreateTrial(ctx, CreateTrialParams{
		CommunityID: "guild-1", Track: "Rainbow Road", Category: "shrooms",
	})
	if err != nil {
		t.Fatalf("create trial: %v", err)
	}

	updated, err := service.UpdateCategory(ctx, trial.ID, "shroomless")
	if err != nil {
		t.Fatalf("update category: %v", err)
	}
	if updated.Category != domain.CategoryShroomless {
		t.Fatalf("Category = %s", updated.Category)
	}
}

func TestParticipantRank(t *testing.T) {
	service, clock, _ := newTestService(t)
	ctx := context.Background()

	trial, err := service.CreateTrial(ctx, CreateTrialParams{
		CommunityID: "guild-1", Track: "Rainbow Road", Category: "shrooms",
	})
	if err != nil {
		t.Fatalf("create trial: %v", err)
	}
	for i, submission := range []struct{ participant, lap string }{
		{"user-a", "2:10.000"},
		{"user-b", "2:05.000"},
		{"user-c", "2:20.000"},
	} {
		clock.Advance(time.Duration(i) * time.Second)
		if _, err := service.SubmitTime(ctx, trial.ID, submission.participant, submission.lap); err != nil {
			t.Fatalf("submit %s: %v", submission.participant, err)
		}
	}

	rank, total, err := service.ParticipantRank(ctx, trial.ID, "user-a")
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if rank != 2 || total != 3 {
		t.Fatalf("rank = %d/%d, want 2/3", rank, total)
	}

	if _, _, err := service.ParticipantRank(ctx, trial.ID, "user-z"); errors.GetCode(err) != errors.CodeNotFound {
		t.Fatalf("absent participant code = %s", errors.GetCode(err))
	}
}

func TestRenderFailureDoesNotFailMutation(t *testing.T) {
	service, _, sink := newTestService(t)
	sink.fail = true
	ctx := context.Background()

	trial, err := service.CreateTrial(ctx, CreateTrialParams{
		CommunityID: "guild-1", Track: "Rainbow Road", Category: "shrooms",
	})
	if err != nil {
		t.Fatalf("create trial: %v", err)
	}
	if _, err := service.SubmitTime(ctx, trial.ID, "user-a", "2:00.000"); err != nil {
		t.Fatalf("submit with failing sink: %v", err)
	}

	// The data write stuck even though rendering never succeeded.
	stored, err := service.GetTime(ctx, trial.ID, "user-a")
	if err != nil {
		t.Fatalf("get time: %v", err)
	}
	if stored.Time.String() != "2:00.000" {
		t.Errorf("stored = %s", stored.Time)
	}
}

func TestEndDuelRendersOutcome(t *testing.T) {
	service, _, sink := newTestService(t)
	ctx := context.Background()

	duel, err := service.CreateDuel(ctx, CreateDuelParams{
		CommunityID: "guild-1", Track: "DK Pass", Category: "shrooms",
		CreatorID: "user-a", OpponentID: "user-b",
	})
	if err != nil {
		t.Fatalf("create duel: %v", err)
	}
	if _, err := service.AcceptDuel(ctx, duel.ID, "user-b"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := service.SubmitTime(ctx, duel.ID, "user-a", "1:30.000"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := service.EndDuel(ctx, duel.ID, "user-a"); err != nil {
		t.Fatalf("end duel: %v", err)
	}

	snapshot := sink.last()
	if snapshot.Outcome != domain.DuelIncomplete {
		t.Fatalf("outcome = %s, want incomplete with one racer", snapshot.Outcome)
	}
	if snapshot.Challenge.Status != domain.StatusCompleted {
		t.Fatalf("rendered status = %s", snapshot.Challenge.Status)
	}
}

func TestCommunitySettings(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	channel, err := service.LeaderboardChannel(ctx, "guild-1")
	if err != nil {
		t.Fatalf("get unset channel: %v", err)
	}
	if channel != "" {
		t.Fatalf("channel = %q, want empty", channel)
	}

	if err := service.SetLeaderboardChannel(ctx, "guild-1", "channel-42"); err != nil {
		t.Fatalf("set channel: %v", err)
	}
	channel, err = service.LeaderboardChannel(ctx, "guild-1")
	if err != nil {
		t.Fatalf("get channel: %v", err)
	}
	if channel != "channel-42" {
		t.Fatalf("channel = %q", channel)
	}

	if err := service.ClearLeaderboardChannel(ctx, "guild-1"); err != nil {
		t.Fatalf("clear channel: %v", err)
	}
	channel, err = service.LeaderboardChannel(ctx, "guild-1")
	if err != nil {
		t.Fatalf("get cleared channel: %v", err)
	}
	if channel != "" {
		t.Fatalf("channel = %q, want empty after clear", channel)
	}
}

func TestSweepExpirations(t *testing.T) {
	service, clock, _ := newTestService(t)
	ctx := context.Background()

	trial, err := service.CreateTrial(ctx, CreateTrialParams{
		CommunityID: "guild-1", Track: "Rainbow Road", Category: "shrooms",
		Duration: time.Hour,
	})
	if err != nil {
		t.Fatalf("create trial: %v", err)
	}

	clock.Advance(30 * time.Minute)
	expired, err := service.SweepExpirations(ctx)
	if err != nil {
		t.Fatalf("early sweep: %v", err)
	}
	if len(expired) != 0 {
		t.Fatalf("expired = %d before deadline", len(expired))
	}

	clock.Advance(31 * time.Minute)
	expired, err = service.SweepExpirations(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != trial.ID {
		t.Fatalf("expired = %+v", expired)
	}
	if expired[0].Status != domain.StatusExpired {
		t.Fatalf("status = %s", expired[0].Status)
	}
}

func TestSweepCleanup(t *testing.T) {
	service, clock, _ := newTestService(t)
	ctx := context.Background()

	trial, err := service.CreateTrial(ctx, CreateTrialParams{
		CommunityID: "guild-1", Track: "Rainbow Road", Category: "shrooms",
	})
	if err != nil {
		t.Fatalf("create trial: %v", err)
	}
	if _, err := service.SubmitTime(ctx, trial.ID, "user-a", "2:00.000"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := service.EndTrial(ctx, trial.ID); err != nil {
		t.Fatalf("end trial: %v", err)
	}

	// Still inside the retention window.
	deleted, err := service.SweepCleanup(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if len(deleted) != 0 {
		t.Fatalf("deleted = %d inside grace", len(deleted))
	}

	clock.Advance(25 * time.Hour)
	deleted, err = service.SweepCleanup(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if len(deleted) != 1 {
		t.Fatalf("deleted = %d, want 1", len(deleted))
	}
	if _, err := service.GetChallenge(ctx, trial.ID); errors.GetCode(err) != errors.CodeNotFound {
		t.Fatalf("after cleanup code = %s", errors.GetCode(err))
	}
}
