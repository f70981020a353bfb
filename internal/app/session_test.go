package app

import (
	"math/rand"
	"testing"
	"time"

	"github.com/solutionspma/godrive-academy/internal/domain"
)

func TestBeginSelectsWithoutReplacement(t *testing.T) {
	set := bankOf(t, 50)
	session := NewSession("s1", nil)

	snap := session.begin(set, 10)
	if snap.State != domain.StateInProgress {
		t.Fatalf("expected in_progress, got %s", snap.State)
	}
	if snap.TotalQuestions != 10 {
		t.Fatalf("expected 10 questions, got %d", snap.TotalQuestions)
	}
	assertUniqueFromSet(t, session.selected, set)
}

func TestBeginSelectsAllWhenCountMatches(t *testing.T) {
	set := bankOf(t, 10)
	session := NewSession("s1", nil)
	session.begin(set, 10)

	// Exactly the full set, each question exactly once.
	if len(session.selected) != 10 {
		t.Fatalf("expected all 10 selected, got %d", len(session.selected))
	}
	assertUniqueFromSet(t, session.selected, set)
}

func TestBeginClampsToAvailable(t *testing.T) {
	set := bankOf(t, 4)
	session := NewSession("s1", nil)

	snap := session.begin(set, 10)
	if snap.TotalQuestions != 4 {
		t.Fatalf("expected degraded count 4 surfaced, got %d", snap.TotalQuestions)
	}
}

func TestAnswersTrackCursorInvariant(t *testing.T) {
	set := bankOf(t, 5)
	session := NewSession("s1", nil)
	session.begin(set, 5)

	if snap := session.Snapshot(); snap.CurrentIndex != 0 || len(snap.Answers) != 0 {
		t.Fatalf("fresh session should start at 0 with no answers, got %+v", snap)
	}

	for i := 0; i < 5; i++ {
		if _, err := session.submitAnswer(0); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		snap, err := session.advance()
		if err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
		if len(snap.Answers) != snap.CurrentIndex {
			t.Fatalf("after pair %d: answers=%d index=%d", i, len(snap.Answers), snap.CurrentIndex)
		}
	}

	snap := session.Snapshot()
	if snap.State != domain.StateCompleted {
		t.Fatalf("expected completed, got %s", snap.State)
	}
	if snap.CompletedAt.IsZero() {
		t.Fatalf("completed session must carry completedAt")
	}
}

func TestDoubleSubmitRejected(t *testing.T) {
	session := NewSession("s1", nil)
	session.begin(bankOf(t, 3), 3)

	if _, err := session.submitAnswer(0); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := session.submitAnswer(1); err != domain.ErrAnswerAlreadyRecorded {
		t.Fatalf("expected ErrAnswerAlreadyRecorded, got %v", err)
	}
	if snap := session.Snapshot(); len(snap.Answers) != 1 {
		t.Fatalf("rejected submit must not grow answers, got %d", len(snap.Answers))
	}
}

func TestAdvanceRequiresRecordedAnswer(t *testing.T) {
	session := NewSession("s1", nil)
	session.begin(bankOf(t, 3), 3)

	if _, err := session.advance(); err != domain.ErrAnswerNotRecorded {
		t.Fatalf("expected ErrAnswerNotRecorded, got %v", err)
	}
}

func TestSubmitRejectsOutOfRangeOption(t *testing.T) {
	session := NewSession("s1", nil)
	session.begin(bankOf(t, 3), 3)

	if _, err := session.submitAnswer(17); err != domain.ErrInvalidOption {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
	if _, err := session.submitAnswer(-1); err != domain.ErrInvalidOption {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
}

func TestRetakeRedrawsFromSameSet(t *testing.T) {
	set := bankOf(t, 50)
	session := NewSessionWithClock("s1", nil, time.Now, rand.New(rand.NewSource(1)))
	session.begin(set, 10)
	completeAll(t, session)

	// Selection must stay within the retained set and the draw must not be a
	// fixed order: across repeated retakes of 10-of-50 at least two orderings
	// appear unless the shuffle is deterministic.
	orders := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		snap, err := session.retake()
		if err != nil {
			t.Fatalf("retake %d: %v", i, err)
		}
		if snap.State != domain.StateInProgress || snap.TotalQuestions != 10 {
			t.Fatalf("retake %d: unexpected snapshot %+v", i, snap)
		}
		assertUniqueFromSet(t, session.selected, set)
		order := ""
		for _, q := range session.selected {
			order += q.ID + ","
		}
		orders[order] = struct{}{}
		completeAll(t, session)
	}
	if len(orders) < 2 {
		t.Fatalf("expected independently randomized retake draws, got a fixed order")
	}
}

func TestRetakeOnlyFromCompleted(t *testing.T) {
	session := NewSession("s1", nil)
	session.begin(bankOf(t, 3), 3)

	if _, err := session.retake(); err != domain.ErrSessionNotCompleted {
		t.Fatalf("expected ErrSessionNotCompleted, got %v", err)
	}
}

func TestAbandonDiscardsStateAndClosesSubscribers(t *testing.T) {
	session := NewSession("s1", nil)
	session.begin(bankOf(t, 3), 3)

	ch, cancel := session.subscribe()
	defer cancel()
	<-ch // initial snapshot

	session.abandon()

	snap := session.Snapshot()
	if snap.State != domain.StateSelectingRegion || snap.TotalQuestions != 0 {
		t.Fatalf("abandon must return to region selection, got %+v", snap)
	}
	if _, open := <-ch; open {
		t.Fatalf("expected subscriber channel closed on abandon")
	}
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	session := NewSession("s1", nil)
	session.begin(bankOf(t, 2), 2)

	ch, cancel := session.subscribe()
	defer cancel()
	<-ch // initial snapshot

	if _, err := session.submitAnswer(0); err != nil {
		t.Fatalf("submit: %v", err)
	}
	update := <-ch
	if len(update.Answers) != 1 {
		t.Fatalf("expected answer in snapshot, got %+v", update)
	}
}

func completeAll(t *testing.T, session *Session) {
	t.Helper()
	for session.Snapshot().State == domain.StateInProgress {
		if _, err := session.submitAnswer(0); err != nil {
			t.Fatalf("submit: %v", err)
		}
		if _, err := session.advance(); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
}

func assertUniqueFromSet(t *testing.T, selected []domain.Question, set domain.QuestionSet) {
	t.Helper()
	inSet := make(map[string]struct{}, len(set.Questions))
	for _, q := range set.Questions {
		inSet[q.ID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(selected))
	for _, q := range selected {
		if _, ok := inSet[q.ID]; !ok {
			t.Fatalf("selected question %s not in source set", q.ID)
		}
		if _, dup := seen[q.ID]; dup {
			t.Fatalf("question %s selected twice", q.ID)
		}
		seen[q.ID] = struct{}{}
	}
}

func bankOf(t *testing.T, n int) domain.QuestionSet {
	t.Helper()
	questions := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, domain.Question{
			ID:           questionID(i),
			Prompt:       "What does a solid yellow line mean?",
			Options:      []string{"No passing", "Passing allowed", "Merge left", "Stop"},
			CorrectIndex: 0,
			Explanation:  "A solid yellow line marks a no-passing zone.",
		})
	}
	return domain.QuestionSet{RegionCode: "CA", Questions: questions, Source: domain.SourceStatic}
}

func questionID(i int) string {
	return "q" + string(rune('a'+i/26)) + string(rune('a'+i%26))
}
