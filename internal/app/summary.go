package app

import "github.com/solutionspma/godrive-academy/internal/domain"

// PassThreshold is the fixed passing score percentage.
const PassThreshold = 70

// Summarize derives the scoring and timing summary from a session snapshot.
// It is a pure function: it works for completed sessions and for mid-flight
// live score display (duration is zero until CompletedAt is set).
func Summarize(snap Snapshot) domain.SessionSummary {
	correct := 0
	for _, a := range snap.Answers {
		if a.Correct {
			correct++
		}
	}

	percent := 0
	if snap.TotalQuestions > 0 {
		percent = roundPercent(correct, snap.TotalQuestions)
	}

	duration := 0
	if !snap.CompletedAt.IsZero() {
		// Clock skew can make the difference negative; clamp to zero.
		if d := snap.CompletedAt.Sub(snap.StartedAt); d > 0 {
			duration = int(d.Seconds())
		}
	}

	return domain.SessionSummary{
		RegionCode:      snap.RegionCode,
		TotalQuestions:  snap.TotalQuestions,
		CorrectCount:    correct,
		ScorePercent:    percent,
		DurationSeconds: duration,
		Passed:          percent >= PassThreshold,
		CompletedAt:     snap.CompletedAt,
	}
}

// roundPercent computes round-half-up of correct/total*100 in exact integer
// arithmetic.
func roundPercent(correct, total int) int {
	return (correct*200 + total) / (2 * total)
}
