package app

import (
	"math/rand"
	"sync"
	"time"

	"github.com/solutionspma/godrive-academy/internal/domain"
)

// Snapshot is an immutable view of a session, safe to hand to subscribers.
type Snapshot struct {
	ID             string                 `json:"id"`
	State          domain.SessionState    `json:"state"`
	RegionCode     string                 `json:"regionCode"`
	Source         domain.SourceTag       `json:"source"`
	CurrentIndex   int                    `json:"currentIndex"`
	TotalQuestions int                    `json:"totalQuestions"`
	CorrectCount   int                    `json:"correctCount"`
	Answers        []domain.AnsweredEvent `json:"answers"`
	StartedAt      time.Time              `json:"startedAt"`
	CompletedAt    time.Time              `json:"completedAt,omitempty"`
}

// QuestionView is the presentation-safe form of the current question: the
// correct index and explanation are withheld until the answer is in.
type QuestionView struct {
	Index   int      `json:"index"`
	Total   int      `json:"total"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// AnswerFeedback is returned to the caller after each recorded answer.
type AnswerFeedback struct {
	QuestionIndex int    `json:"questionIndex"`
	Correct       bool   `json:"correct"`
	CorrectIndex  int    `json:"correctIndex"`
	CorrectText   string `json:"correctText"`
	Explanation   string `json:"explanation"`
	CorrectCount  int    `json:"correctCount"`
}

// Session owns the lifecycle of one practice attempt. It is exclusively owned
// by a single UI flow; the mutex only guards against the transport's reader
// and subscriber goroutines observing a transition mid-write.
type Session struct {
	id       string
	identity *domain.Identity
	now      func() time.Time
	rnd      *rand.Rand

	mu             sync.RWMutex
	state          domain.SessionState
	set            domain.QuestionSet
	requestedCount int
	selected       []domain.Question
	currentIndex   int
	answers        []domain.AnsweredEvent
	startedAt      time.Time
	completedAt    time.Time
	subscribers    map[chan Snapshot]struct{}
}

// NewSession creates a session in the region-selection state.
func NewSession(id string, identity *domain.Identity) *Session {
	return newSessionWithClock(id, identity, time.Now, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewSessionWithClock is test-only for deterministic timestamps and selection.
func NewSessionWithClock(id string, identity *domain.Identity, now func() time.Time, rnd *rand.Rand) *Session {
	return newSessionWithClock(id, identity, now, rnd)
}

func newSessionWithClock(id string, identity *domain.Identity, now func() time.Time, rnd *rand.Rand) *Session {
	return &Session{
		id:          id,
		identity:    identity,
		now:         now,
		rnd:         rnd,
		state:       domain.StateSelectingRegion,
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Identity returns the owning identity, nil for anonymous practice.
func (s *Session) Identity() *domain.Identity {
	return s.identity
}

// begin draws requestedCount questions from set via a uniform random
// permutation and transitions to InProgress. The count is clamped to the
// available length rather than failing; the snapshot carries the actual count.
func (s *Session) begin(set domain.QuestionSet, requestedCount int) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := requestedCount
	if count > len(set.Questions) {
		count = len(set.Questions)
	}

	selected := make([]domain.Question, 0, count)
	for _, i := range s.rnd.Perm(len(set.Questions))[:count] {
		selected = append(selected, set.Questions[i])
	}

	s.set = set
	s.requestedCount = requestedCount
	s.selected = selected
	s.currentIndex = 0
	s.answers = nil
	s.startedAt = s.now()
	s.completedAt = time.Time{}
	s.state = domain.StateInProgress
	return s.broadcastLocked()
}

// submitAnswer records the answer for the current question. It does not
// advance; the caller advances explicitly.
func (s *Session) submitAnswer(optionIndex int) (AnswerFeedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateInProgress {
		return AnswerFeedback{}, domain.ErrSessionNotActive
	}
	if len(s.answers) > s.currentIndex {
		return AnswerFeedback{}, domain.ErrAnswerAlreadyRecorded
	}

	question := s.selected[s.currentIndex]
	if optionIndex < 0 || optionIndex >= len(question.Options) {
		return AnswerFeedback{}, domain.ErrInvalidOption
	}

	correct := optionIndex == question.CorrectIndex
	s.answers = append(s.answers, domain.AnsweredEvent{
		QuestionIndex: s.currentIndex,
		SelectedIndex: optionIndex,
		SelectedText:  question.Options[optionIndex],
		Correct:       correct,
		AnsweredAt:    s.now(),
	})

	s.broadcastLocked()
	return AnswerFeedback{
		QuestionIndex: s.currentIndex,
		Correct:       correct,
		CorrectIndex:  question.CorrectIndex,
		CorrectText:   question.Options[question.CorrectIndex],
		Explanation:   question.Explanation,
		CorrectCount:  s.correctCountLocked(),
	}, nil
}

// advance moves to the next question, completing the session past the last one.
func (s *Session) advance() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateInProgress {
		return Snapshot{}, domain.ErrSessionNotActive
	}
	if len(s.answers) != s.currentIndex+1 {
		return Snapshot{}, domain.ErrAnswerNotRecorded
	}

	s.currentIndex++
	if s.currentIndex == len(s.selected) {
		s.completedAt = s.now()
		s.state = domain.StateCompleted
	}
	return s.broadcastLocked(), nil
}

// retake redraws a fresh random subset from the retained question set and
// restarts the attempt. Valid only from Completed.
func (s *Session) retake() (Snapshot, error) {
	s.mu.Lock()
	if s.state != domain.StateCompleted {
		s.mu.Unlock()
		return Snapshot{}, domain.ErrSessionNotCompleted
	}
	set, count := s.set, s.requestedCount
	s.mu.Unlock()
	return s.begin(set, count), nil
}

// abandon discards the attempt and returns to region selection. Subscriber
// channels are closed; the owning store is expected to drop the session.
func (s *Session) abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = domain.StateSelectingRegion
	s.set = domain.QuestionSet{}
	s.selected = nil
	s.answers = nil
	s.currentIndex = 0
	s.startedAt = time.Time{}
	s.completedAt = time.Time{}
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// currentQuestion returns the presentation view of the question at the cursor.
func (s *Session) currentQuestion() (QuestionView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state != domain.StateInProgress {
		return QuestionView{}, domain.ErrSessionNotActive
	}
	question := s.selected[s.currentIndex]
	return QuestionView{
		Index:   s.currentIndex,
		Total:   len(s.selected),
		Prompt:  question.Prompt,
		Options: question.Options,
	}, nil
}

// subscribe returns a channel receiving state snapshots. The caller must
// invoke the cancel function to avoid leaks.
func (s *Session) subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Snapshot returns the current immutable view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) broadcastLocked() Snapshot {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the oldest queued snapshot so a slow consumer never
			// blocks a state transition.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (s *Session) snapshotLocked() Snapshot {
	answers := make([]domain.AnsweredEvent, len(s.answers))
	copy(answers, s.answers)
	return Snapshot{
		ID:             s.id,
		State:          s.state,
		RegionCode:     s.set.RegionCode,
		Source:         s.set.Source,
		CurrentIndex:   s.currentIndex,
		TotalQuestions: len(s.selected),
		CorrectCount:   s.correctCountLocked(),
		Answers:        answers,
		StartedAt:      s.startedAt,
		CompletedAt:    s.completedAt,
	}
}

func (s *Session) correctCountLocked() int {
	correct := 0
	for _, a := range s.answers {
		if a.Correct {
			correct++
		}
	}
	return correct
}
