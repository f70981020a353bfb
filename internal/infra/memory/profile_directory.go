package memory

import (
	"context"

	"github.com/solutionspma/godrive-academy/internal/domain"
)

// ProfileDirectory resolves profiles from a static map. Unknown users get the
// student role so anonymous-ish visitors can still practice.
type ProfileDirectory struct {
	profiles map[string]domain.Profile
}

func NewProfileDirectory(profiles map[string]domain.Profile) *ProfileDirectory {
	return &ProfileDirectory{profiles: profiles}
}

func (d *ProfileDirectory) Profile(_ context.Context, userID string) (domain.Profile, error) {
	if profile, ok := d.profiles[userID]; ok {
		return profile, nil
	}
	return domain.Profile{Role: domain.RoleStudent}, nil
}
