package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/errors"
	"github.com/ChristianAlexanderDiaz/WeeklyTimeTrials/internal/platform/id"
)

// Kind distinguishes the two challenge variants.
type Kind string

const (
	// KindTrial is a community-wide time trial on one track.
	KindTrial Kind = "trial"
	// KindDuel is a head-to-head challenge between two participants.
	KindDuel Kind = "duel"
)

// Category is the rule variant applied to a challenge.
type Category string

const (
	// CategoryShrooms allows mushroom item usage.
	CategoryShrooms Category = "shrooms"
	// CategoryShroomless forbids mushroom item usage.
	CategoryShroomless Category = "shroomless"
)

// ParseCategory validates a user-supplied category string.
func ParseCategory(raw string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(raw))) {
	case CategoryShrooms:
		return CategoryShrooms, nil
	case CategoryShroomless:
		return CategoryShroomless, nil
	}
	return "", errors.WithMetadata(errors.CodeChallengeInvalidCategory,
		fmt.Sprintf("invalid category %q", raw),
		map[string]string{"Category": raw})
}

// Status is the lifecycle state of a challenge.
type Status string

const (
	// StatusPending is a duel awaiting the opponent's response.
	StatusPending Status = "pending"
	// StatusAccepted is a duel the opponent agreed to but nobody has raced yet.
	StatusAccepted Status = "accepted"
	// StatusActive accepts submissions.
	StatusActive Status = "active"
	// StatusEnded is a trial closed by an admin.
	StatusEnded Status = "ended"
	// StatusCompleted is a duel closed with a decided outcome.
	StatusCompleted Status = "completed"
	// StatusDeclined is a duel the opponent rejected.
	StatusDeclined Status = "declined"
	// StatusCancelled is a duel the creator withdrew before acceptance.
	StatusCancelled Status = "cancelled"
	// StatusExpired is a challenge whose deadline passed.
	StatusExpired Status = "expired"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusEnded, StatusCompleted, StatusDeclined, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// transitions holds the legal status edges for both challenge variants.
var transitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusDeclined, StatusCancelled, StatusExpired},
	StatusAccepted: {StatusActive, StatusCompleted, StatusExpired},
	StatusActive:   {StatusEnded, StatusCompleted, StatusExpired},
}

// CanTransition reports whether moving from s to target is legal.
func (s Status) CanTransition(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Challenge is one trial or duel instance.
type Challenge struct {
	ID          string
	CommunityID string
	Kind        Kind
	Track       string
	Category    Category
	Number      int64

	// Duel fields; empty for trials.
	CreatorID  string
	OpponentID string
	WinnerID   string

	Goals  *GoalTimes
	Status Status

	CreatedAt time.Time
	StartedAt *time.Time
	EndsAt    *time.Time

	// LeaderboardRef is an opaque handle to the live-rendered leaderboard.
	LeaderboardRef string
}

// IsDuel reports whether the challenge is a head-to-head duel.
func (c Challenge) IsDuel() bool {
	return c.Kind == KindDuel
}

// HasParticipant reports whether the given participant races in this duel.
// Trials accept any participant.
func (c Challenge) HasParticipant(participantID string) bool {
	if !c.IsDuel() {
		return true
	}
	return participantID == c.CreatorID || participantID == c.OpponentID
}

// AcceptingSubmissions reports whether new times may be recorded. An
// accepted duel counts: its first submission is what activates it.
func (c Challenge) AcceptingSubmissions() bool {
	if c.Status == StatusActive {
		return true
	}
	return c.IsDuel() && c.Status == StatusAccepted
}

// Transition moves the challenge to the target status, stamping the start
// time on activation and the end time on any terminal transition.
func (c Challenge) Transition(target Status, at time.Time) (Challenge, error) {
	if !c.Status.CanTransition(target) {
		return Challenge{}, errors.WithMetadata(errors.CodeChallengeInvalidStatusTransition,
			fmt.Sprintf("cannot transition challenge from %s to %s", c.Status, target),
			map[string]string{
				"FromStatus": string(c.Status),
				"ToStatus":   string(target),
			})
	}

	at = at.UTC()
	if target == StatusActive && c.StartedAt == nil {
		c.StartedAt = &at
	}
	if target.Terminal() {
		c.EndsAt = &at
	}
	c.Status = target
	return c, nil
}

// CreateTrialInput describes a new community time trial.
type CreateTrialInput struct {
	CommunityID string
	Track       string
	Category    string
	Goals       *GoalTimes
	Duration    time.Duration
}

// CreateTrial builds an active trial with a generated ID and timestamps.
// The per-community display number is assigned by storage on insert.
func CreateTrial(input CreateTrialInput, now func() time.Time, idGenerator func() (string, error)) (Challenge, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	communityID := strings.TrimSpace(input.CommunityID)
	if communityID == "" {
		return Challenge{}, errors.New(errors.CodeChallengeEmptyCommunityID, "community id is required")
	}
	track, err := CanonicalTrack(input.Track)
	if err != nil {
		return Challenge{}, err
	}
	category, err := ParseCategory(input.Category)
	if err != nil {
		return Challenge{}, err
	}

	challengeID, err := idGenerator()
	if err != nil {
		return Challenge{}, fmt.Errorf("generate challenge id: %w", err)
	}

	createdAt := now().UTC()
	c := Challenge{
		ID:          challengeID,
		CommunityID: communityID,
		Kind:        KindTrial,
		Track:       track,
		Category:    category,
		Goals:       input.Goals,
		Status:      StatusActive,
		CreatedAt:   createdAt,
		StartedAt:   &createdAt,
	}
	if input.Duration > 0 {
		endsAt := createdAt.Add(input.Duration)
		c.EndsAt = &endsAt
	}
	return c, nil
}

// CreateDuelInput describes a new head-to-head duel.
type CreateDuelInput struct {
	CommunityID string
	Track       string
	Category    string
	CreatorID   string
	OpponentID  string
	Duration    time.Duration
}

// CreateDuel builds a pending duel awaiting the opponent's response.
func CreateDuel(input CreateDuelInput, now func() time.Time, idGenerator func() (string, error)) (Challenge, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	communityID := strings.TrimSpace(input.CommunityID)
	if communityID == "" {
		return Challenge{}, errors.New(errors.CodeChallengeEmptyCommunityID, "community id is required")
	}
	track, err := CanonicalTrack(input.Track)
	if err != nil {
		return Challenge{}, err
	}
	category, err := ParseCategory(input.Category)
	if err != nil {
		return Challenge{}, err
	}

	creatorID := strings.TrimSpace(input.CreatorID)
	opponentID := strings.TrimSpace(input.OpponentID)
	if creatorID == "" || opponentID == "" {
		return Challenge{}, errors.New(errors.CodeDuelEmptyOpponent, "both duel participants are required")
	}
	if creatorID == opponentID {
		return Challenge{}, errors.New(errors.CodeDuelSelfChallenge, "duel participants must be distinct")
	}

	challengeID, err := idGenerator()
	if err != nil {
		return Challenge{}, fmt.Errorf("generate challenge id: %w", err)
	}

	createdAt := now().UTC()
	c := Challenge{
		ID:          challengeID,
		CommunityID: communityID,
		Kind:        KindDuel,
		Track:       track,
		Category:    category,
		CreatorID:   creatorID,
		OpponentID:  opponentID,
		Status:      StatusPending,
		CreatedAt:   createdAt,
	}
	if input.Duration > 0 {
		endsAt := createdAt.Add(input.Duration)
		c.EndsAt = &endsAt
	}
	return c, nil
}
