package domain

import (
	"fmt"
	"time"
)

// SourceTag records where a question set came from.
type SourceTag string

const (
	SourceStatic    SourceTag = "static"
	SourceGenerated SourceTag = "generated"
)

// SessionState enumerates the lifecycle states of a practice attempt.
type SessionState string

const (
	StateSelectingRegion SessionState = "selecting_region"
	StateInProgress      SessionState = "in_progress"
	StateCompleted       SessionState = "completed"
)

// Role is the profile role attached to an identity.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
	RoleOwner   Role = "owner"
	RoleStaff   Role = "staff"
)

// Question models a single multiple-choice practice question.
type Question struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
	Category     string   `json:"category,omitempty"`
	Difficulty   string   `json:"difficulty,omitempty"`
}

// Validate checks the structural invariants: at least two distinct options and
// an in-bounds correct index.
func (q Question) Validate() error {
	if len(q.Options) < 2 {
		return fmt.Errorf("question %q: need at least 2 options, got %d", q.ID, len(q.Options))
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if _, dup := seen[opt]; dup {
			return fmt.Errorf("question %q: duplicate option %q", q.ID, opt)
		}
		seen[opt] = struct{}{}
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("question %q: correct index %d out of range [0,%d)", q.ID, q.CorrectIndex, len(q.Options))
	}
	return nil
}

// QuestionSet is an immutable bank of questions for one region. Callers that
// need a randomized subset must derive their own sequence.
type QuestionSet struct {
	RegionCode  string     `json:"regionCode"`
	Questions   []Question `json:"questions"`
	Source      SourceTag  `json:"source"`
	GeneratedAt time.Time  `json:"generatedAt,omitempty"`
}

// AnsweredEvent records one answer. Events are appended exactly once per
// question, in increasing question-index order, and never mutated afterwards.
type AnsweredEvent struct {
	QuestionIndex int       `json:"questionIndex"`
	SelectedIndex int       `json:"selectedIndex"`
	SelectedText  string    `json:"selectedText"`
	Correct       bool      `json:"correct"`
	AnsweredAt    time.Time `json:"answeredAt"`
}

// SessionSummary is the derived result of a practice attempt.
type SessionSummary struct {
	RegionCode      string    `json:"regionCode"`
	TotalQuestions  int       `json:"totalQuestions"`
	CorrectCount    int       `json:"correctCount"`
	ScorePercent    int       `json:"scorePercent"`
	DurationSeconds int       `json:"durationSeconds"`
	Passed          bool      `json:"passed"`
	CompletedAt     time.Time `json:"completedAt"`
}

// Identity is an opaque reference to an authenticated user. A nil *Identity
// means anonymous practice.
type Identity struct {
	UserID string
}

// Profile describes the user behind an identity.
type Profile struct {
	Role        Role
	DisplayName string
}

// Privileged reports whether the role unlocks the full-length test.
func (p Profile) Privileged() bool {
	switch p.Role {
	case RoleAdmin, RoleOwner, RoleStaff:
		return true
	}
	return false
}
