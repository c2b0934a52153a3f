package domain

import "time"

// Submission is one participant's best recorded time for a challenge.
// There is at most one per (challenge, participant); improvements update
// the row in place and only a strictly faster time is accepted.
type Submission struct {
	ChallengeID   string
	ParticipantID string
	Time          LapTime
	SubmittedAt   time.Time
	UpdatedAt     time.Time
}
