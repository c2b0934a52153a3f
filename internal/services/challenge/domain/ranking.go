package domain

import "sort"

// Medal classifies a submission against a trial's goal thresholds.
type Medal string

const (
	MedalGold   Medal = "gold"
	MedalSilver Medal = "silver"
	MedalBronze Medal = "bronze"
	MedalNone   Medal = "none"
)

// MedalFor classifies a lap time against the thresholds. A nil goals
// value means the challenge has no thresholds and everything is MedalNone.
func MedalFor(goals *GoalTimes, t LapTime) Medal {
	if goals == nil {
		return MedalNone
	}
	switch {
	case t <= goals.Gold:
		return MedalGold
	case t <= goals.Silver:
		return MedalSilver
	case t <= goals.Bronze:
		return MedalBronze
	}
	return MedalNone
}

// RankedEntry is one leaderboard row.
type RankedEntry struct {
	Rank          int
	ParticipantID string
	Time          LapTime
	Medal         Medal
	Submission    Submission
}

// Rank orders submissions fastest first and annotates each with a dense
// 1-based rank and a medal. Ties on time are broken by earliest first
// submission, then by participant ID so the order is a total one.
func Rank(challenge Challenge, submissions []Submission) []RankedEntry {
	sorted := make([]Submission, len(submissions))
	copy(sorted, submissions)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Time != sorted[j].Time {
			return sorted[i].Time < sorted[j].Time
		}
		if !sorted[i].SubmittedAt.Equal(sorted[j].SubmittedAt) {
			return sorted[i].SubmittedAt.Before(sorted[j].SubmittedAt)
		}
		return sorted[i].ParticipantID < sorted[j].ParticipantID
	})

	entries := make([]RankedEntry, len(sorted))
	for i, sub := range sorted {
		entries[i] = RankedEntry{
			Rank:          i + 1,
			ParticipantID: sub.ParticipantID,
			Time:          sub.Time,
			Medal:         MedalFor(challenge.Goals, sub.Time),
			Submission:    sub,
		}
	}
	return entries
}

// ParticipantRank returns a participant's 1-based rank and the total
// participant count. The boolean is false when the participant has no
// submission.
func ParticipantRank(challenge Challenge, submissions []Submission, participantID string) (int, int, bool) {
	entries := Rank(challenge, submissions)
	for _, entry := range entries {
		if entry.ParticipantID == participantID {
			return entry.Rank, len(entries), true
		}
	}
	return 0, len(entries), false
}

// Fastest returns the leaderboard's top entry, if any submissions exist.
func Fastest(challenge Challenge, submissions []Submission) (RankedEntry, bool) {
	entries := Rank(challenge, submissions)
	if len(entries) == 0 {
		return RankedEntry{}, false
	}
	return entries[0], true
}

// DuelOutcome is the result of closing a duel.
type DuelOutcome string

const (
	// DuelWinner means one participant was strictly faster.
	DuelWinner DuelOutcome = "winner"
	// DuelTie means both participants recorded equal times.
	DuelTie DuelOutcome = "tie"
	// DuelIncomplete means fewer than two submissions existed at close.
	DuelIncomplete DuelOutcome = "incomplete"
)

// DecideDuelOutcome determines the duel result from its submissions.
// The returned participant ID is empty unless the outcome is DuelWinner.
func DecideDuelOutcome(duel Challenge, submissions []Submission) (DuelOutcome, string) {
	var creator, opponent *Submission
	for i := range submissions {
		switch submissions[i].ParticipantID {
		case duel.CreatorID:
			creator = &submissions[i]
		case duel.OpponentID:
			opponent = &submissions[i]
		}
	}

	if creator == nil || opponent == nil {
		return DuelIncomplete, ""
	}
	switch {
	case creator.Time < opponent.Time:
		return DuelWinner, creator.ParticipantID
	case opponent.Time < creator.Time:
		return DuelWinner, opponent.ParticipantID
	}
	return DuelTie, ""
}
