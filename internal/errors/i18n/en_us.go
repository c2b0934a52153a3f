package i18n

// Error codes must match the codes defined in internal/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeUnknown = "UNKNOWN"

	CodeLapTimeInvalidFormat = "LAP_TIME_INVALID_FORMAT"
	CodeLapTimeOutOfRange    = "LAP_TIME_OUT_OF_RANGE"

	CodeGoalTimesMisordered  = "GOAL_TIMES_MISORDERED"
	CodeGoalTimesIncomplete  = "GOAL_TIMES_INCOMPLETE"
	CodeGoalTimesUnsupported = "GOAL_TIMES_UNSUPPORTED"

	CodeChallengeEmptyCommunityID        = "CHALLENGE_EMPTY_COMMUNITY_ID"
	CodeChallengeUnknownTrack            = "CHALLENGE_UNKNOWN_TRACK"
	CodeChallengeInvalidCategory         = "CHALLENGE_INVALID_CATEGORY"
	CodeChallengeInvalidKind             = "CHALLENGE_INVALID_KIND"
	CodeChallengeInvalidStatusTransition = "CHALLENGE_INVALID_STATUS_TRANSITION"
	CodeChallengeStatusDisallowsOp       = "CHALLENGE_STATUS_DISALLOWS_OPERATION"
	CodeChallengeDeadlineInPast          = "CHALLENGE_DEADLINE_IN_PAST"

	CodeDuelSelfChallenge  = "DUEL_SELF_CHALLENGE"
	CodeDuelEmptyOpponent  = "DUEL_EMPTY_OPPONENT"
	CodeDuelNotParticipant = "DUEL_NOT_PARTICIPANT"
	CodeDuelNotChallenged  = "DUEL_NOT_CHALLENGED"

	CodeSubmissionEmptyParticipantID = "SUBMISSION_EMPTY_PARTICIPANT_ID"

	CodeNotFound              = "NOT_FOUND"
	CodeActiveChallengeExists = "ACTIVE_CHALLENGE_EXISTS"
	CodeStoreFault            = "STORE_FAULT"
)

var enUSCatalog = &Catalog{
	locale: "en-US",
	messages: map[Code]string{
		CodeUnknown: "An unexpected error occurred",

		// Lap time errors
		CodeLapTimeInvalidFormat: "Time must be in M:SS.mmm format, e.g. 2:23.640",
		CodeLapTimeOutOfRange:    "Time {{.Time}} is outside the valid range (0:00.001 to 9:59.999)",

		// Goal time errors
		CodeGoalTimesMisordered:  "Goal times must satisfy gold ≤ silver ≤ bronze",
		CodeGoalTimesIncomplete:  "All three goal times (gold, silver, bronze) must be provided together",
		CodeGoalTimesUnsupported: "Goal times are only supported on time trials",

		// Challenge errors
		CodeChallengeEmptyCommunityID:        "Community ID is required for a challenge",
		CodeChallengeUnknownTrack:            "Unknown track: {{.Track}}",
		CodeChallengeInvalidCategory:         "Category must be shrooms or shroomless",
		CodeChallengeInvalidKind:             "Invalid challenge kind specified",
		CodeChallengeInvalidStatusTransition: "Cannot transition challenge from {{.FromStatus}} to {{.ToStatus}}",
		CodeChallengeStatusDisallowsOp:       "Challenge status {{.Status}} does not allow {{.Operation}}",
		CodeChallengeDeadlineInPast:          "Challenge deadline must be in the future",

		// Duel errors
		CodeDuelSelfChallenge:  "You cannot challenge yourself to a duel",
		CodeDuelEmptyOpponent:  "An opponent is required for a duel",
		CodeDuelNotParticipant: "Only duel participants can submit times",
		CodeDuelNotChallenged:  "Only the challenged player can respond to this duel",

		// Submission errors
		CodeSubmissionEmptyParticipantID: "Participant ID is required for a submission",

		// Storage errors
		CodeNotFound:              "The requested resource was not found",
		CodeActiveChallengeExists: "An active challenge already exists for this matchup",
		CodeStoreFault:            "A storage error occurred",
	},
}
