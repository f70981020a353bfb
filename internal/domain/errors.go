package domain

import "errors"

var (
	// ErrNoQuestionsAvailable means no question source yielded data for a region.
	// Fatal to session start; the user must pick again or retry.
	ErrNoQuestionsAvailable = errors.New("no questions available for region")
	// ErrAnswerAlreadyRecorded means submitAnswer was called twice for the same
	// question without an intervening advance. A well-behaved presentation layer
	// never triggers this.
	ErrAnswerAlreadyRecorded = errors.New("answer already recorded for current question")
	// ErrAnswerNotRecorded means advance was called before the current question
	// was answered.
	ErrAnswerNotRecorded = errors.New("current question has no recorded answer")
	// ErrSessionNotFound means the referenced practice session does not exist
	// (or was abandoned).
	ErrSessionNotFound = errors.New("practice session not found")
	// ErrSessionNotActive means the operation requires an in-progress session.
	ErrSessionNotActive = errors.New("practice session is not in progress")
	// ErrSessionNotCompleted means the operation requires a completed session.
	ErrSessionNotCompleted = errors.New("practice session is not completed")
	// ErrQuestionBankNotFound indicates no static dataset exists for a region.
	ErrQuestionBankNotFound = errors.New("question bank not found")
	// ErrInvalidOption indicates a submitted option index is out of range.
	ErrInvalidOption = errors.New("selected option out of range")
)
