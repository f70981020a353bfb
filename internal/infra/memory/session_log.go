package memory

import (
	"context"
	"sync"

	"github.com/solutionspma/godrive-academy/internal/domain"
)

// RecordedSummary pairs a persisted summary with its owning user.
type RecordedSummary struct {
	UserID  string
	Summary domain.SessionSummary
}

// SessionLog is an in-memory app.SummaryRecorder for dev mode and tests.
type SessionLog struct {
	mu      sync.Mutex
	entries []RecordedSummary
}

func NewSessionLog() *SessionLog {
	return &SessionLog{}
}

func (l *SessionLog) Record(_ context.Context, summary domain.SessionSummary, identity *domain.Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, RecordedSummary{UserID: identity.UserID, Summary: summary})
	return nil
}

// Entries returns a copy of everything recorded so far.
func (l *SessionLog) Entries() []RecordedSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]RecordedSummary, len(l.entries))
	copy(out, l.entries)
	return out
}
