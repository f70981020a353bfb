package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/solutionspma/godrive-academy/internal/domain"
)

// SessionRecorder writes completed session summaries to practice_sessions.
// No deduplication key exists: every completed attempt is a distinct row.
type SessionRecorder struct {
	pool *pgxpool.Pool
}

func NewSessionRecorder(pool *pgxpool.Pool) *SessionRecorder {
	return &SessionRecorder{pool: pool}
}

func (r *SessionRecorder) Record(ctx context.Context, summary domain.SessionSummary, identity *domain.Identity) error {
	var userID *string
	if identity != nil {
		userID = &identity.UserID
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO practice_sessions (region_code, total_questions, correct_answers, score_percentage, duration_seconds, completed_at, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		summary.RegionCode,
		summary.TotalQuestions,
		summary.CorrectCount,
		summary.ScorePercent,
		summary.DurationSeconds,
		summary.CompletedAt,
		userID,
	)
	if err != nil {
		return fmt.Errorf("insert practice session: %w", err)
	}
	return nil
}
