package app

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/solutionspma/godrive-academy/internal/domain"
)

// Question counts by role: students and anonymous visitors get the short
// practice test, school staff get the full-length one.
const (
	DefaultQuestionCount    = 10
	PrivilegedQuestionCount = 50
)

// QuestionSource resolves a question set for a region, static bank first and
// generative fallback second, cached by (region, count).
type QuestionSource interface {
	Resolve(ctx context.Context, regionCode string, desiredCount int) (domain.QuestionSet, error)
}

// SessionRepository holds live sessions (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
}

// SummaryRecorder persists completed session summaries, best-effort.
type SummaryRecorder interface {
	Record(ctx context.Context, summary domain.SessionSummary, identity *domain.Identity) error
}

// ProfileDirectory resolves the profile behind an identity.
type ProfileDirectory interface {
	Profile(ctx context.Context, userID string) (domain.Profile, error)
}

// CoachService contains the practice-test use cases.
type CoachService struct {
	sessions SessionRepository
	source   QuestionSource
	recorder SummaryRecorder
	profiles ProfileDirectory
}

func NewCoachService(sessions SessionRepository, source QuestionSource, recorder SummaryRecorder, profiles ProfileDirectory) *CoachService {
	return &CoachService{sessions: sessions, source: source, recorder: recorder, profiles: profiles}
}

// StartSession resolves questions for the region and begins a new attempt.
// The question count depends on the caller's role; an anonymous identity gets
// the default. Fails with domain.ErrNoQuestionsAvailable when no source
// yields at least one question — no session is created in that case.
func (c *CoachService) StartSession(ctx context.Context, regionCode string, identity *domain.Identity) (Snapshot, error) {
	count := c.questionCount(ctx, identity)

	set, err := c.source.Resolve(ctx, regionCode, count)
	if err != nil {
		return Snapshot{}, err
	}
	if len(set.Questions) == 0 {
		return Snapshot{}, domain.ErrNoQuestionsAvailable
	}

	session := NewSession(uuid.NewString(), identity)
	snap := session.begin(set, count)
	c.sessions.Put(session)
	return snap, nil
}

// SubmitAnswer records the answer for the session's current question and
// returns correctness feedback with the running score. It does not advance.
func (c *CoachService) SubmitAnswer(_ context.Context, sessionID string, optionIndex int) (AnswerFeedback, error) {
	session, ok := c.sessions.Get(sessionID)
	if !ok {
		return AnswerFeedback{}, domain.ErrSessionNotFound
	}
	return session.submitAnswer(optionIndex)
}

// Advance moves the session to the next question. When the last answer is
// advanced past, the session completes and the summary is recorded
// best-effort: an anonymous session is skipped silently, a failed write is
// logged and swallowed. The Completed snapshot is final before any write.
func (c *CoachService) Advance(ctx context.Context, sessionID string) (Snapshot, error) {
	session, ok := c.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}

	snap, err := session.advance()
	if err != nil {
		return Snapshot{}, err
	}
	if snap.State == domain.StateCompleted {
		c.record(ctx, Summarize(snap), session.Identity())
	}
	return snap, nil
}

// CurrentQuestion returns the presentation view of the question at the cursor.
func (c *CoachService) CurrentQuestion(_ context.Context, sessionID string) (QuestionView, error) {
	session, ok := c.sessions.Get(sessionID)
	if !ok {
		return QuestionView{}, domain.ErrSessionNotFound
	}
	return session.currentQuestion()
}

// Summary derives the result summary of a completed session.
func (c *CoachService) Summary(_ context.Context, sessionID string) (domain.SessionSummary, error) {
	session, ok := c.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSummary{}, domain.ErrSessionNotFound
	}
	snap := session.Snapshot()
	if snap.State != domain.StateCompleted {
		return domain.SessionSummary{}, domain.ErrSessionNotCompleted
	}
	return Summarize(snap), nil
}

// RetakeSameRegion starts a fresh attempt for the same region, redrawing an
// independently randomized subset from the retained question set.
func (c *CoachService) RetakeSameRegion(_ context.Context, sessionID string) (Snapshot, error) {
	session, ok := c.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.retake()
}

// Abandon discards the session. An in-flight fetch or write for it completes
// on its own and its result is dropped.
func (c *CoachService) Abandon(_ context.Context, sessionID string) {
	session, ok := c.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.abandon()
	c.sessions.Delete(sessionID)
}

// Subscribe returns a channel that receives session state snapshots.
// The caller must invoke the returned cancel function to avoid leaks.
func (c *CoachService) Subscribe(_ context.Context, sessionID string) (<-chan Snapshot, func(), error) {
	session, ok := c.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

func (c *CoachService) questionCount(ctx context.Context, identity *domain.Identity) int {
	if identity == nil || c.profiles == nil {
		return DefaultQuestionCount
	}
	profile, err := c.profiles.Profile(ctx, identity.UserID)
	if err != nil {
		// Profile lookup trouble must not keep a user from practicing.
		log.Printf("profile lookup for %s failed: %v", identity.UserID, err)
		return DefaultQuestionCount
	}
	if profile.Privileged() {
		return PrivilegedQuestionCount
	}
	return DefaultQuestionCount
}

func (c *CoachService) record(ctx context.Context, summary domain.SessionSummary, identity *domain.Identity) {
	if c.recorder == nil || identity == nil {
		// Anonymous practice is supported and unpersisted.
		return
	}
	if err := c.recorder.Record(ctx, summary, identity); err != nil {
		log.Printf("recording practice session for %s failed: %v", identity.UserID, err)
	}
}
