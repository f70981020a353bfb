package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/solutionspma/godrive-academy/internal/domain"
)

// ProfileStore resolves profiles from the profiles table. Users without a row
// get the student role.
type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

func (s *ProfileStore) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	var role, displayName string
	err := s.pool.QueryRow(ctx, `SELECT role, display_name FROM profiles WHERE user_id=$1`, userID).Scan(&role, &displayName)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{Role: domain.RoleStudent}, nil
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return domain.Profile{Role: domain.Role(role), DisplayName: displayName}, nil
}
