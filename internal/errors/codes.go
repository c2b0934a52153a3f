// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Lap time errors
	CodeLapTimeInvalidFormat Code = "LAP_TIME_INVALID_FORMAT"
	CodeLapTimeOutOfRange    Code = "LAP_TIME_OUT_OF_RANGE"

	// Goal time errors
	CodeGoalTimesMisordered  Code = "GOAL_TIMES_MISORDERED"
	CodeGoalTimesIncomplete  Code = "GOAL_TIMES_INCOMPLETE"
	CodeGoalTimesUnsupported Code = "GOAL_TIMES_UNSUPPORTED"

	// Challenge errors
	CodeChallengeEmptyCommunityID        Code = "CHALLENGE_EMPTY_COMMUNITY_ID"
	CodeChallengeUnknownTrack            Code = "CHALLENGE_UNKNOWN_TRACK"
	CodeChallengeInvalidCategory         Code = "CHALLENGE_INVALID_CATEGORY"
	CodeChallengeInvalidKind             Code = "CHALLENGE_INVALID_KIND"
	CodeChallengeInvalidStatusTransition Code = "CHALLENGE_INVALID_STATUS_TRANSITION"
	CodeChallengeStatusDisallowsOp       Code = "CHALLENGE_STATUS_DISALLOWS_OPERATION"
	CodeChallengeDeadlineInPast          Code = "CHALLENGE_DEADLINE_IN_PAST"

	// Duel errors
	CodeDuelSelfChallenge  Code = "DUEL_SELF_CHALLENGE"
	CodeDuelEmptyOpponent  Code = "DUEL_EMPTY_OPPONENT"
	CodeDuelNotParticipant Code = "DUEL_NOT_PARTICIPANT"
	CodeDuelNotChallenged  Code = "DUEL_NOT_CHALLENGED"

	// Submission errors
	CodeSubmissionEmptyParticipantID Code = "SUBMISSION_EMPTY_PARTICIPANT_ID"

	// Storage errors
	CodeNotFound              Code = "NOT_FOUND"
	CodeActiveChallengeExists Code = "ACTIVE_CHALLENGE_EXISTS"
	CodeStoreFault            Code = "STORE_FAULT"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeLapTimeInvalidFormat,
		CodeLapTimeOutOfRange,
		CodeGoalTimesMisordered,
		CodeGoalTimesIncomplete,
		CodeChallengeEmptyCommunityID,
		CodeChallengeUnknownTrack,
		CodeChallengeInvalidCategory,
		CodeChallengeInvalidKind,
		CodeChallengeDeadlineInPast,
		CodeDuelSelfChallenge,
		CodeDuelEmptyOpponent,
		CodeSubmissionEmptyParticipantID:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeChallengeInvalidStatusTransition,
		CodeChallengeStatusDisallowsOp,
		CodeGoalTimesUnsupported,
		CodeActiveChallengeExists,
		CodeDuelNotParticipant,
		CodeDuelNotChallenged:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
